// Package assistant wires interpretation, automation and aggregation into a
// single run, and makes sure only one run touches the page at a time.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"calc-assistant/internal/automation"
	"calc-assistant/internal/events"
	"calc-assistant/internal/report"
	"calc-assistant/internal/service"
	"calc-assistant/internal/ui"
)

var (
	// ErrRunInProgress is returned when a run is requested while another
	// is still automating the page. In-flight runs cannot be interrupted.
	ErrRunInProgress = errors.New("a request is already being processed")
	// ErrNotOnCalculator is returned when the browser is not showing the
	// pricing calculator.
	ErrNotOnCalculator = errors.New("open the AWS Pricing Calculator first")
)

type Interpreter interface {
	Interpret(ctx context.Context, text string) (service.ParsedRequest, error)
}

type Executor interface {
	ExecuteAll(ctx context.Context, req service.ParsedRequest, onResult func(i int, r automation.ActionResult)) []automation.ActionResult
}

// Options configures an Assistant. Page and CalculatorURL enable the check
// that the browser is on the calculator before automating.
type Options struct {
	Interpreter   Interpreter
	Executor      Executor
	Page          ui.PageInfo
	CalculatorURL string
	Publisher     events.Publisher
	Logger        *zap.Logger
}

type Assistant struct {
	interpreter   Interpreter
	executor      Executor
	page          ui.PageInfo
	calculatorURL string
	publisher     events.Publisher
	logger        *zap.Logger

	sem *semaphore.Weighted
	now func() time.Time
}

func New(opts Options) *Assistant {
	a := &Assistant{
		interpreter:   opts.Interpreter,
		executor:      opts.Executor,
		page:          opts.Page,
		calculatorURL: opts.CalculatorURL,
		publisher:     opts.Publisher,
		logger:        opts.Logger,
		sem:           semaphore.NewWeighted(1),
		now:           time.Now,
	}
	if a.publisher == nil {
		a.publisher = events.Nop{}
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	a.logger = a.logger.Named("assistant")
	return a
}

// RunResult is the exit signal of one run.
type RunResult struct {
	RunID   string         `json:"runId,omitempty"`
	Success bool           `json:"success"`
	Data    *report.Report `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Busy reports whether a run is in progress.
func (a *Assistant) Busy() bool {
	if !a.sem.TryAcquire(1) {
		return true
	}
	a.sem.Release(1)
	return false
}

// Exclusive runs fn while holding the run guard, so no run can start until
// fn returns. It fails with ErrRunInProgress when a run is already going.
func (a *Assistant) Exclusive(ctx context.Context, fn func(ctx context.Context) error) error {
	if !a.sem.TryAcquire(1) {
		return ErrRunInProgress
	}
	defer a.sem.Release(1)
	return fn(ctx)
}

// Parse interprets text without touching the page.
func (a *Assistant) Parse(ctx context.Context, text string) (service.ParsedRequest, error) {
	return a.interpreter.Interpret(ctx, text)
}

// InterpretAndExecute runs the whole pipeline for text. Interpretation and
// page errors fail the run; per-service failures only show up in the report.
func (a *Assistant) InterpretAndExecute(ctx context.Context, text string) (report.Report, error) {
	return a.run(ctx, uuid.NewString(), text)
}

// Run is InterpretAndExecute reporting through the exit signal.
func (a *Assistant) Run(ctx context.Context, text string) RunResult {
	runID := uuid.NewString()
	rep, err := a.run(ctx, runID, text)
	if err != nil {
		return RunResult{RunID: runID, Error: err.Error()}
	}
	return RunResult{RunID: runID, Success: true, Data: &rep}
}

func (a *Assistant) run(ctx context.Context, runID, text string) (report.Report, error) {
	if !a.sem.TryAcquire(1) {
		return report.Report{}, ErrRunInProgress
	}
	defer a.sem.Release(1)

	log := a.logger.With(zap.String("run_id", runID))
	log.Info("run started", zap.String("query", text))
	a.publish(ctx, log, events.Event{RunID: runID, Stage: events.StageProcessing, Query: text})

	rep, err := a.execute(ctx, log, runID, text)
	finished := events.Event{RunID: runID, Stage: events.StageFinished}
	if err != nil {
		log.Warn("run failed", zap.Error(err))
		finished.Error = err.Error()
	} else {
		log.Info("run finished", zap.Int("success_count", rep.SuccessCount), zap.Int("total", rep.Total()))
		finished.Success, finished.Report = true, &rep
	}
	a.publish(ctx, log, finished)
	return rep, err
}

func (a *Assistant) execute(ctx context.Context, log *zap.Logger, runID, text string) (report.Report, error) {
	req, err := a.interpreter.Interpret(ctx, text)
	if err != nil {
		return report.Report{}, err
	}
	if err := a.checkPage(ctx); err != nil {
		return report.Report{}, err
	}

	total := len(req.Services)
	log.Debug("configuring services", zap.Any("kinds", req.Kinds()), zap.String("provenance", string(req.Provenance)))
	a.publish(ctx, log, events.Event{RunID: runID, Stage: events.StageConfiguring, Total: total})

	results := a.executor.ExecuteAll(ctx, req, func(i int, r automation.ActionResult) {
		item := report.Aggregate([]automation.ActionResult{r}, nil).Items[0]
		a.publish(ctx, log, events.Event{RunID: runID, Stage: events.StageItem, Index: i, Total: total, Item: &item, Success: r.Succeeded()})
	})
	return report.Aggregate(results, report.NotesFor(req)), nil
}

func (a *Assistant) checkPage(ctx context.Context) error {
	if a.page == nil || a.calculatorURL == "" {
		return nil
	}
	current, err := a.page.URL(ctx)
	if err != nil {
		return fmt.Errorf("read current page: %w", err)
	}
	if !automation.IsCalculatorURL(current, a.calculatorURL) {
		return fmt.Errorf("%w (current page %s)", ErrNotOnCalculator, current)
	}
	return nil
}

func (a *Assistant) publish(ctx context.Context, log *zap.Logger, evt events.Event) {
	evt.Time = a.now()
	if err := a.publisher.Publish(ctx, evt); err != nil {
		log.Debug("event not delivered", zap.String("stage", string(evt.Stage)), zap.Error(err))
	}
}
