package ai

import (
	"context"
	"errors"
	"strings"
)

// Complete issues a single-prompt generation and returns the trimmed text.
// An empty reply is reported as an error so callers fall back.
func Complete(ctx context.Context, rt Runtime, model, prompt string, maxTokens int, temperature float64) (string, error) {
	if rt == nil {
		return "", ErrNotConfigured
	}
	resp, err := rt.Generate(ctx, GenerateRequest{
		Model:       model,
		Messages:    []Message{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("empty response from provider")
	}
	return text, nil
}
