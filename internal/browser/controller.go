package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"calc-assistant/internal/config"
	"calc-assistant/internal/ui"
)

// ErrElementGone is returned when an element disappeared between the
// snapshot that produced its handle and the interaction.
var ErrElementGone = errors.New("element no longer on page")

// Controller drives a Chrome tab through chromedp.
type Controller struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	mu          sync.Mutex
	isNavigated bool

	actionTimeout time.Duration
	hub           *notifyHub
	logger        *zap.Logger
}

func NewController(cfg config.BrowserConfig, logger *zap.Logger) (*Controller, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
		chromedp.UserAgent(cfg.UserAgent),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	controller := &Controller{
		allocCtx:      allocCtx,
		allocCancel:   allocCancel,
		actionTimeout: cfg.ActionWait(),
		hub:           newNotifyHub(),
		logger:        logger.Named("chromedp"),
	}

	sugar := controller.logger.Sugar()
	ctx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(sugar.Debugf), chromedp.WithErrorf(sugar.Errorf))

	chromedp.ListenTarget(ctx, func(ev interface{}) {
		if e, ok := ev.(*runtime.EventBindingCalled); ok && e.Name == bindingName {
			controller.hub.notify()
		}
	})

	// Starting the browser with the binding and observer in place means every
	// document the tab loads reports its mutations.
	err := chromedp.Run(ctx,
		runtime.AddBinding(bindingName),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(observerScript).Do(ctx)
			return err
		}),
	)
	if err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to initialize browser: %w", err)
	}

	controller.ctx = ctx
	controller.cancel = cancel
	return controller, nil
}

// newContext derives a chromedp context bounded by timeout that also ends
// when parent does.
func (c *Controller) newContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(c.ctx, timeout)
	stop := context.AfterFunc(parent, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (c *Controller) Navigate(ctx context.Context, url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, cancel := c.newContext(ctx, 30*time.Second)
	defer cancel()

	err := chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Evaluate(observerScript, nil),
	)
	if err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}

	c.isNavigated = true
	return nil
}

func (c *Controller) URL(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var url string
	ctx, cancel := c.newContext(ctx, 5*time.Second)
	defer cancel()

	if err := chromedp.Run(ctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to get current URL: %w", err)
	}
	return url, nil
}

func (c *Controller) Title(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var title string
	ctx, cancel := c.newContext(ctx, 5*time.Second)
	defer cancel()

	if err := chromedp.Run(ctx, chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("failed to get page title: %w", err)
	}
	return title, nil
}

func (c *Controller) Screenshot(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var buf []byte
	ctx, cancel := c.newContext(ctx, 15*time.Second)
	defer cancel()

	err := chromedp.Run(ctx,
		chromedp.Sleep(500*time.Millisecond),
		chromedp.CaptureScreenshot(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

func (c *Controller) Snapshot(ctx context.Context) ([]ui.Element, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var raw string
	ctx, cancel := c.newContext(ctx, c.actionTimeout)
	defer cancel()

	if err := chromedp.Run(ctx, chromedp.Evaluate(snapshotScript, &raw)); err != nil {
		return nil, fmt.Errorf("snapshot failed: %w", err)
	}
	return decodeSnapshot(raw)
}

func (c *Controller) Subscribe(context.Context) (<-chan struct{}, func(), error) {
	ch, unsubscribe := c.hub.subscribe()
	return ch, unsubscribe, nil
}

func (c *Controller) Click(ctx context.Context, h ui.Handle) error {
	return c.evalBool(ctx, clickScript(h), "click", h)
}

func (c *Controller) Fill(ctx context.Context, h ui.Handle, value string, commit bool) error {
	return c.evalBool(ctx, fillScript(h, value, commit), "fill", h)
}

func (c *Controller) evalBool(ctx context.Context, script, action string, h ui.Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var ok bool
	ctx, cancel := c.newContext(ctx, c.actionTimeout)
	defer cancel()

	if err := chromedp.Run(ctx, chromedp.Evaluate(script, &ok)); err != nil {
		return fmt.Errorf("%s failed on element %s: %w", action, h, err)
	}
	if !ok {
		return fmt.Errorf("%s %s: %w", action, h, ErrElementGone)
	}
	return nil
}

func (c *Controller) IsNavigated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isNavigated
}

func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	if c.allocCancel != nil {
		c.allocCancel()
	}
	return nil
}
