// Package llm talks to the natural-language completion services used by the
// remote parsing tier.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"calc-assistant/internal/config"
)

// Request is one completion call. The API key is supplied per call so that
// clients never hold on to it.
type Request struct {
	APIKey       string
	Instructions string
	UserText     string
}

// Completer returns the raw text produced by the service.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// APIError is an error reported by the service itself rather than the
// transport.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error: %s", e.Message)
}

// ErrEmptyCompletion is returned when the service answered without content.
var ErrEmptyCompletion = errors.New("no response generated")

// New builds the completer selected by the remote section.
func New(cfg config.RemoteConfig) (Completer, error) {
	timeout := cfg.RequestTimeout()
	switch cfg.Provider {
	case "openai", "":
		return NewChatClient(cfg.BaseURL, cfg.Model, cfg.Temperature, timeout), nil
	case "gemini":
		return NewGeminiClient(cfg.Model, cfg.Temperature, timeout), nil
	}
	return nil, fmt.Errorf("unknown remote provider %q", cfg.Provider)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
