// Package browser provides the ui.Document implementations that drive a
// real browser: Controller over chromedp and Browser over Playwright.
package browser

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"calc-assistant/internal/config"
	"calc-assistant/internal/ui"
)

// Driver is a browser tab the assistant can automate and inspect.
type Driver interface {
	ui.Document
	ui.PageInfo
	Navigate(ctx context.Context, url string) error
	Screenshot(ctx context.Context) ([]byte, error)
	// IsNavigated reports whether Navigate has succeeded at least once.
	IsNavigated() bool
	Close() error
}

var (
	_ Driver = (*Controller)(nil)
	_ Driver = (*Browser)(nil)
)

// New starts the driver selected by cfg.Driver.
func New(cfg config.BrowserConfig, logger *zap.Logger) (Driver, error) {
	switch cfg.Driver {
	case "chromedp", "":
		c, err := NewController(cfg, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "playwright":
		b, err := NewBrowser(cfg, logger)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	return nil, fmt.Errorf("unknown browser driver %q", cfg.Driver)
}
