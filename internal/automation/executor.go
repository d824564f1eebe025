// Package automation adds parsed services to the pricing calculator estimate
// through a ui.Document, one service at a time.
package automation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"calc-assistant/internal/config"
	"calc-assistant/internal/service"
	"calc-assistant/internal/ui"
)

// Timing holds the settle delays and the form wait. Settle delays mask the
// calculator's re-render latency; they are not conditions.
type Timing struct {
	SearchSettle    time.Duration
	ConfigureSettle time.Duration
	FieldSettle     time.Duration
	FormTimeout     time.Duration
}

func TimingFrom(cfg config.AutomationConfig) Timing {
	return Timing{
		SearchSettle:    cfg.SearchSettleDelay(),
		ConfigureSettle: cfg.ConfigureSettleDelay(),
		FieldSettle:     cfg.FieldSettleDelay(),
		FormTimeout:     cfg.FormWait(),
	}
}

// Executor runs the per-kind procedures against one document. It is not safe
// for concurrent use: the page is a single mutable surface.
type Executor struct {
	doc    ui.Document
	timing Timing
	logger *zap.Logger
}

func NewExecutor(doc ui.Document, timing Timing, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{doc: doc, timing: timing, logger: logger.Named("executor")}
}

// Execute adds one spec to the estimate. It never panics and never returns an
// error: every failure becomes a FAILURE result.
func (e *Executor) Execute(ctx context.Context, spec service.Spec, region service.Region) (result ActionResult) {
	var kind service.Kind
	defer func() {
		if r := recover(); r != nil {
			result = failure(kind, fmt.Errorf("automation panicked: %v", r))
			e.logger.Error("automation panicked", zap.String("kind", string(kind)), zap.Any("panic", r))
		}
	}()

	if spec == nil {
		return failure(kind, ErrUnsupportedKind)
	}
	kind = spec.Kind()
	proc, ok := procedures[kind]
	if !ok {
		return failure(kind, ErrUnsupportedKind)
	}

	log := e.logger.With(zap.String("kind", string(kind)))
	if err := e.run(ctx, log, proc, spec, region); err != nil {
		log.Warn("service not added", zap.Error(err))
		return failure(kind, err)
	}
	log.Info("service added")
	return success(kind)
}

// ExecuteAll runs the request's specs strictly in order. A failed spec does
// not stop the ones after it. onResult, if set, sees each result as it is
// produced.
func (e *Executor) ExecuteAll(ctx context.Context, req service.ParsedRequest, onResult func(i int, r ActionResult)) []ActionResult {
	results := make([]ActionResult, 0, len(req.Services))
	for i, spec := range req.Services {
		r := e.Execute(ctx, spec, req.Region)
		results = append(results, r)
		if onResult != nil {
			onResult(i, r)
		}
	}
	return results
}

func (e *Executor) run(ctx context.Context, log *zap.Logger, proc procedure, spec service.Spec, region service.Region) error {
	// 1. The search box only exists on the add-service screen.
	elements, err := e.doc.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("read page: %w", err)
	}
	search, ok := searchEntry.Find(elements)
	if !ok {
		return ErrEntryPointMissing
	}

	// 2. Typing fires input only; the calculator filters on input.
	log.Debug("searching", zap.String("term", proc.searchTerm))
	if err := e.doc.Fill(ctx, search.Handle, proc.searchTerm, false); err != nil {
		return fmt.Errorf("search for %s: %w", proc.searchTerm, err)
	}
	e.settle(ctx, e.timing.SearchSettle)

	// 3. The first matching card must hold the configure button.
	elements, err = e.doc.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("read search results: %w", err)
	}
	card, ok := ui.Find(elements, proc.card)
	if !ok {
		return ErrServiceCardNotFound
	}
	configure, ok := ui.Find(elements, ui.Descriptor{Kind: ui.KindButton, Fragments: configureFragments, Within: card.Handle})
	if !ok {
		return ErrServiceCardNotFound
	}

	// 4.
	log.Debug("opening configuration", zap.String("card", string(card.Handle)))
	if err := e.doc.Click(ctx, configure.Handle); err != nil {
		return fmt.Errorf("click configure: %w", err)
	}
	e.settle(ctx, e.timing.ConfigureSettle)
	if _, ok := ui.AwaitAppearance(ctx, e.doc, formPresent, e.timing.FormTimeout); !ok {
		return ErrConfigFormTimeout
	}

	// 5. Missing fields are skipped; the calculator does not show every
	// field for every option combination.
	for _, f := range proc.fields(spec, region) {
		e.applyField(ctx, log, f)
	}

	// 6.
	e.commit(ctx, log)
	return nil
}

func (e *Executor) applyField(ctx context.Context, log *zap.Logger, f field) {
	elements, err := e.doc.Snapshot(ctx)
	if err != nil {
		log.Warn("field skipped", zap.String("field", f.name), zap.Error(err))
		return
	}
	el, ok := f.strategies.Find(elements)
	if !ok {
		log.Debug("field not found", zap.String("field", f.name))
		return
	}
	if err := e.doc.Fill(ctx, el.Handle, f.value, true); err != nil {
		log.Warn("field not set", zap.String("field", f.name), zap.Error(err))
		return
	}
	log.Debug("field set", zap.String("field", f.name), zap.String("value", f.value))
	e.settle(ctx, e.timing.FieldSettle)
}

func (e *Executor) commit(ctx context.Context, log *zap.Logger) {
	elements, err := e.doc.Snapshot(ctx)
	if err != nil {
		log.Warn("add to estimate skipped", zap.Error(err))
		return
	}
	button, ok := commitButton.Find(elements)
	if !ok {
		log.Warn("add to estimate button not found")
		return
	}
	if err := e.doc.Click(ctx, button.Handle); err != nil {
		log.Warn("add to estimate failed", zap.Error(err))
	}
}

func (e *Executor) settle(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
