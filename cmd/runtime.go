package cmd

import (
	"os"
	"time"

	"github.com/KaramelBytes/datadash-cli/internal/ai"
	"github.com/KaramelBytes/datadash-cli/internal/chat"
	cfgpkg "github.com/KaramelBytes/datadash-cli/internal/config"
	"github.com/KaramelBytes/datadash-cli/internal/insight"
)

// apiKeyFor resolves the credential: config/DATADASH_API_KEY first, then the
// provider's conventional environment variable.
func apiKeyFor(c *cfgpkg.Global, provider string) string {
	if c.APIKey != "" {
		return c.APIKey
	}
	switch provider {
	case ai.ProviderGemini:
		return os.Getenv("GEMINI_API_KEY")
	case ai.ProviderOpenRouter:
		return os.Getenv("OPENROUTER_API_KEY")
	}
	return ""
}

// buildRuntime returns nil when AI is not configured; callers then use their
// local fallbacks without attempting any request.
func buildRuntime(c *cfgpkg.Global) (ai.Runtime, string) {
	provider := ai.NormalizeProvider(c.Provider)
	model := c.Model
	if model == "" {
		model = ai.DefaultModel(provider)
	}
	key := apiKeyFor(c, provider)
	if !ai.Configured(provider, key) {
		debugf("AI not configured for provider %s; using local fallbacks", provider)
		return nil, model
	}
	rc := ai.RuntimeConfig{
		HTTPTimeout: time.Duration(c.HTTPTimeoutSec) * time.Second,
		RetryMax:    c.RetryMaxAttempts,
		BaseDelay:   time.Duration(c.RetryBaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(c.RetryMaxDelayMs) * time.Millisecond,
		APIKey:      key,
		Host:        c.OllamaHost,
	}
	rt, ok := ai.GetRuntime(provider, rc)
	if !ok {
		debugf("unknown provider %q; using local fallbacks", provider)
		return nil, model
	}
	debugf("using provider %s with model %s", provider, model)
	return rt, model
}

func newInsightGenerator(c *cfgpkg.Global) *insight.Generator {
	rt, model := buildRuntime(c)
	opt := insight.DefaultOptions()
	opt.Model = model
	if c.MaxTokens > 0 {
		opt.MaxTokens = c.MaxTokens
	}
	opt.Temperature = c.Temperature
	if c.InsightSampleRows > 0 {
		opt.SampleRows = c.InsightSampleRows
	}
	if c.MaxInsights > 0 {
		opt.MaxInsights = c.MaxInsights
	}
	opt.MaxPromptTokens = c.MaxPromptTokens
	return insight.New(rt, opt, nil)
}

func newChatResponder(c *cfgpkg.Global) *chat.Responder {
	rt, model := buildRuntime(c)
	return chat.New(rt, chat.Options{
		Model:           model,
		MaxTokens:       c.MaxTokens,
		Temperature:     c.Temperature,
		MaxPromptTokens: c.MaxPromptTokens,
	})
}
