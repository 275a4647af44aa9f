package ai

import (
	"strings"
	"time"
)

// RuntimeFactory builds a Runtime from the generic config below.
type RuntimeFactory func(RuntimeConfig) Runtime

// RuntimeConfig carries common knobs used by runtimes.
type RuntimeConfig struct {
	HTTPTimeout time.Duration
	RetryMax    int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Gemini / OpenRouter
	APIKey string
	// Ollama
	Host string
}

var registry = map[string]RuntimeFactory{}

// RegisterRuntime registers a provider name with its factory.
func RegisterRuntime(name string, f RuntimeFactory) { registry[name] = f }

// GetRuntime creates a Runtime for the given provider if registered.
func GetRuntime(name string, cfg RuntimeConfig) (Runtime, bool) {
	if f, ok := registry[NormalizeProvider(name)]; ok {
		return f(cfg), true
	}
	return nil, false
}

// NormalizeProvider maps user spellings onto provider identifiers.
func NormalizeProvider(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "gemini", "google":
		return ProviderGemini
	case "openrouter":
		return ProviderOpenRouter
	case "ollama", "local":
		return ProviderOllama
	default:
		return strings.ToLower(strings.TrimSpace(name))
	}
}

// Configured reports whether AI calls should be attempted at all. An empty or
// placeholder credential means every caller uses its heuristic fallback instead.
// Local Ollama needs no credential.
func Configured(provider, apiKey string) bool {
	if NormalizeProvider(provider) == ProviderOllama {
		return true
	}
	k := strings.TrimSpace(apiKey)
	return k != "" && k != PlaceholderAPIKey
}

func init() {
	RegisterRuntime(ProviderGemini, func(c RuntimeConfig) Runtime {
		return NewGeminiClient(c.APIKey, c.HTTPTimeout, c.RetryMax, c.BaseDelay, c.MaxDelay)
	})
	RegisterRuntime(ProviderOpenRouter, func(c RuntimeConfig) Runtime {
		return NewOpenRouterClient(c.APIKey, c.HTTPTimeout, c.RetryMax, c.BaseDelay, c.MaxDelay)
	})
	RegisterRuntime(ProviderOllama, func(c RuntimeConfig) Runtime {
		if c.BaseDelay <= 0 {
			c.BaseDelay = 200 * time.Millisecond
		}
		if c.MaxDelay <= 0 {
			c.MaxDelay = time.Second
		}
		return NewOllamaClient(c.Host, c.HTTPTimeout, c.RetryMax, c.BaseDelay, c.MaxDelay)
	})
}

// DefaultModel returns the model used when none is configured for provider.
func DefaultModel(provider string) string {
	switch NormalizeProvider(provider) {
	case ProviderOpenRouter:
		return "google/gemini-flash-1.5"
	case ProviderOllama:
		return "llama3.1"
	default:
		return "gemini-1.5-flash"
	}
}
