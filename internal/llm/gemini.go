package llm

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"
)

// GeminiClient calls the Gemini API through the genai SDK.
type GeminiClient struct {
	model       string
	temperature float32
	timeout     time.Duration
}

func NewGeminiClient(model string, temperature float64, timeout time.Duration) *GeminiClient {
	if model == "" || model == "gpt-4" {
		model = "gemini-2.5-flash"
	}
	return &GeminiClient{
		model:       model,
		temperature: float32(temperature),
		timeout:     timeout,
	}
}

func (c *GeminiClient) Complete(ctx context.Context, r Request) (string, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	// The client is built per call so the key is never retained.
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  r.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("create GenAI client: %w", err)
	}

	temperature := c.temperature
	resp, err := client.Models.GenerateContent(ctx,
		c.model,
		[]*genai.Content{genai.NewContentFromText(r.UserText, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(r.Instructions, genai.RoleUser),
			Temperature:       &temperature,
		},
	)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
