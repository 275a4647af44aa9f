package ai

import (
	"context"
	"errors"
	"strings"
	"time"
)

// GeminiClient calls the Google Generative Language API (models/{model}:generateContent).
type GeminiClient struct {
	transport
	apiKey   string
	endpoint string
}

// NewGeminiClient builds a Gemini runtime with the given HTTP/retry knobs.
func NewGeminiClient(apiKey string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration) *GeminiClient {
	c := &GeminiClient{
		transport: newTransport(httpTimeout, retryMax, baseDelay, maxDelay),
		apiKey:    apiKey,
	}
	return c.WithEndpoint("https://generativelanguage.googleapis.com/v1beta/models")
}

// WithEndpoint overrides the models endpoint (used in tests).
func (c *GeminiClient) WithEndpoint(u string) *GeminiClient {
	if u != "" {
		c.endpoint = strings.TrimRight(u, "/")
		c.host = c.endpoint
	}
	return c
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	ResponseID string `json:"responseId"`
}

// Generate maps chat messages onto Gemini contents; system messages become the system instruction.
func (c *GeminiClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if c.apiKey == "" || c.apiKey == PlaceholderAPIKey {
		return nil, ErrNotConfigured
	}
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	var greq geminiRequest
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			if greq.SystemInstruction == nil {
				greq.SystemInstruction = &geminiContent{}
			}
			greq.SystemInstruction.Parts = append(greq.SystemInstruction.Parts, geminiPart{Text: m.Content})
		case "assistant", "model":
			greq.Contents = append(greq.Contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: m.Content}}})
		default:
			greq.Contents = append(greq.Contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: m.Content}}})
		}
	}
	if len(greq.Contents) == 0 {
		return nil, errors.New("messages cannot be empty")
	}
	if req.MaxTokens > 0 || req.Temperature > 0 {
		greq.GenerationConfig = &geminiGenerationConfig{MaxOutputTokens: req.MaxTokens, Temperature: req.Temperature}
	}

	var gresp geminiResponse
	url := c.endpoint + "/" + req.Model + ":generateContent"
	reqID, err := c.postJSON(ctx, url, map[string]string{"x-goog-api-key": c.apiKey}, greq, &gresp)
	if err != nil {
		return nil, err
	}
	if len(gresp.Candidates) == 0 {
		return nil, errors.New("gemini returned no candidates")
	}
	var sb strings.Builder
	for _, p := range gresp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	if reqID == "" {
		reqID = gresp.ResponseID
	}
	return &GenerateResponse{
		ID:      gresp.ResponseID,
		Choices: []Choice{{Message: Message{Role: "assistant", Content: sb.String()}}},
		Usage: Usage{
			PromptTokens:     gresp.UsageMetadata.PromptTokenCount,
			CompletionTokens: gresp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      gresp.UsageMetadata.TotalTokenCount,
		},
		RequestID: reqID,
	}, nil
}
