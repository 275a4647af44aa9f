package ai

import (
	"context"
	"errors"
	"time"
)

// OpenRouterClient talks to the OpenRouter chat completions API.
type OpenRouterClient struct {
	transport
	apiKey  string
	baseURL string
}

// NewOpenRouterClient allows customizing HTTP timeout and retry/backoff behavior.
func NewOpenRouterClient(apiKey string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration) *OpenRouterClient {
	c := &OpenRouterClient{
		transport: newTransport(httpTimeout, retryMax, baseDelay, maxDelay),
		apiKey:    apiKey,
	}
	return c.WithBaseURL("https://openrouter.ai/api/v1")
}

// WithBaseURL points the client at another endpoint (used in tests).
func (c *OpenRouterClient) WithBaseURL(u string) *OpenRouterClient {
	if u != "" {
		c.baseURL = u
		c.host = u
	}
	return c
}

func (c *OpenRouterClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	headers := map[string]string{
		"Authorization": "Bearer " + c.apiKey,
		"HTTP-Referer":  "https://github.com/KaramelBytes/datadash-cli",
		"X-Title":       "DataDash",
	}
	var out GenerateResponse
	reqID, err := c.postJSON(ctx, c.baseURL+"/chat/completions", headers, req, &out)
	if err != nil {
		return nil, err
	}
	out.RequestID = reqID
	return &out, nil
}
