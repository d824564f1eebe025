package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"calc-assistant/internal/config"
	"calc-assistant/internal/ui"
)

// Browser drives a Chromium page through Playwright.
type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page

	mu            sync.Mutex
	isNavigated   bool
	actionTimeout time.Duration
	hub           *notifyHub
	logger        *zap.Logger
}

func NewBrowser(cfg config.BrowserConfig, logger *zap.Logger) (*Browser, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
		SlowMo:   playwright.Float(cfg.SlowMo),
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(cfg.UserAgent),
		Viewport:  &playwright.Size{Width: cfg.WindowWidth, Height: cfg.WindowHeight},
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("create page: %w", err)
	}

	b := &Browser{
		pw:            pw,
		browser:       browser,
		context:       bctx,
		page:          page,
		actionTimeout: cfg.ActionWait(),
		hub:           newNotifyHub(),
		logger:        logger.Named("playwright"),
	}

	err = page.ExposeFunction(bindingName, func(args ...interface{}) interface{} {
		b.hub.notify()
		return nil
	})
	if err == nil {
		err = page.AddInitScript(playwright.Script{Content: playwright.String(observerScript)})
	}
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("install mutation observer: %w", err)
	}
	return b, nil
}

func (b *Browser) Navigate(ctx context.Context, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := b.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   playwright.Float(60000),
	})
	if err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	if _, err := b.page.Evaluate(observerScript); err != nil {
		b.logger.Warn("observer not installed", zap.Error(err))
	}
	b.isNavigated = true
	return nil
}

func (b *Browser) IsNavigated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.isNavigated
}

func (b *Browser) URL(context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.page.URL(), nil
}

func (b *Browser) Title(context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	title, err := b.page.Title()
	if err != nil {
		return "", fmt.Errorf("failed to get page title: %w", err)
	}
	return title, nil
}

func (b *Browser) Screenshot(context.Context) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, err := b.page.Screenshot()
	if err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

func (b *Browser) Snapshot(ctx context.Context) ([]ui.Element, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := b.page.Evaluate(snapshotScript)
	if err != nil {
		return nil, fmt.Errorf("snapshot failed: %w", err)
	}
	raw, ok := res.(string)
	if !ok {
		return nil, fmt.Errorf("snapshot failed: unexpected result %T", res)
	}
	return decodeSnapshot(raw)
}

func (b *Browser) Subscribe(context.Context) (<-chan struct{}, func(), error) {
	ch, unsubscribe := b.hub.subscribe()
	return ch, unsubscribe, nil
}

func (b *Browser) Click(ctx context.Context, h ui.Handle) error {
	return b.evalBool(ctx, clickScript(h), "click", h)
}

func (b *Browser) Fill(ctx context.Context, h ui.Handle, value string, commit bool) error {
	return b.evalBool(ctx, fillScript(h, value, commit), "fill", h)
}

func (b *Browser) evalBool(ctx context.Context, script, action string, h ui.Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	res, err := b.page.Evaluate(script)
	if err != nil {
		return fmt.Errorf("%s failed on element %s: %w", action, h, err)
	}
	if ok, _ := res.(bool); !ok {
		return fmt.Errorf("%s %s: %w", action, h, ErrElementGone)
	}
	return nil
}

func (b *Browser) Close() error {
	if b.page != nil {
		b.page.Close()
	}
	if b.context != nil {
		b.context.Close()
	}
	if b.browser != nil {
		b.browser.Close()
	}
	if b.pw != nil {
		return b.pw.Stop()
	}
	return nil
}
