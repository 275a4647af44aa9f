package ai

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// OllamaClient is a minimal HTTP client for a local Ollama runtime.
type OllamaClient struct {
	transport
	host string
}

// NewOllamaClient creates a client targeting host (e.g., http://127.0.0.1:11434).
func NewOllamaClient(host string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration) *OllamaClient {
	if host == "" {
		host = "http://127.0.0.1:11434"
	}
	t := newTransport(httpTimeout, retryMax, baseDelay, maxDelay)
	t.host = host
	t.errorBody = func(raw map[string]any) (string, string) {
		if msg, ok := raw["error"].(string); ok {
			return msg, ""
		}
		msg, _ := raw["message"].(string)
		return msg, ""
	}
	return &OllamaClient{transport: t, host: host}
}

// Structures aligned with Ollama /api/chat (non-streaming)
type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message Message `json:"message"`
	Done    bool    `json:"done"`
}

// Generate sends a chat request to Ollama and maps the response to GenerateResponse.
func (c *OllamaClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	if len(req.Messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}
	oreq := ollamaChatRequest{Model: req.Model, Messages: req.Messages, Options: map[string]any{}}
	if req.Temperature > 0 {
		oreq.Options["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		oreq.Options["num_predict"] = req.MaxTokens
	}
	var oresp ollamaChatResponse
	if _, err := c.postJSON(ctx, c.host+"/api/chat", nil, oreq, &oresp); err != nil {
		return nil, err
	}
	// Ollama has no request ids; synthesize one for log correlation.
	id := fmt.Sprintf("ollama_%d", time.Now().UnixNano())
	return &GenerateResponse{
		ID:        id,
		Choices:   []Choice{{Message: oresp.Message}},
		RequestID: id,
	}, nil
}
