package assistant

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"calc-assistant/internal/automation"
	"calc-assistant/internal/events"
	"calc-assistant/internal/interpreter"
	"calc-assistant/internal/report"
	"calc-assistant/internal/service"
	"calc-assistant/internal/ui/uitest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, evt events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *recorder) stages() []events.Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Stage, len(r.events))
	for i, e := range r.events {
		out[i] = e.Stage
	}
	return out
}

func newAssistant(t *testing.T, calc *uitest.Calculator, pub events.Publisher) *Assistant {
	t.Helper()
	t.Cleanup(calc.Close)
	return New(Options{
		Interpreter:   interpreter.New(nil, zap.NewNop()),
		Executor:      automation.NewExecutor(calc, automation.Timing{FormTimeout: 100 * time.Millisecond}, nil),
		Page:          calc,
		CalculatorURL: "https://calculator.aws/#/addService",
		Publisher:     pub,
	})
}

func TestInterpretAndExecute_EndToEnd(t *testing.T) {
	calc := uitest.NewCalculator()
	rec := &recorder{}
	a := newAssistant(t, calc, rec)

	rep, err := a.InterpretAndExecute(context.Background(), "我需要 3 個 t3.medium EC2 實例和 100GB 的 S3 儲存")
	require.NoError(t, err)

	assert.Equal(t, 2, rep.SuccessCount)
	assert.Equal(t, []service.Kind{service.KindEC2, service.KindS3}, []service.Kind{rep.Items[0].Kind, rep.Items[1].Kind})
	assert.Empty(t, rep.OptimizationNotes)
	assert.Equal(t, []string{"Amazon EC2", "Amazon S3"}, calc.Estimate())

	assert.Equal(t, []events.Stage{
		events.StageProcessing,
		events.StageConfiguring,
		events.StageItem,
		events.StageItem,
		events.StageFinished,
	}, rec.stages())
	last := rec.events[len(rec.events)-1]
	assert.True(t, last.Success)
	require.NotNil(t, last.Report)
	assert.Equal(t, 2, last.Report.SuccessCount)
	assert.Equal(t, rec.events[0].RunID, last.RunID)
}

func TestRun_PartialFailureIsSuccessfulRun(t *testing.T) {
	calc := uitest.NewCalculator(uitest.WithStuckForm("s3"))
	a := newAssistant(t, calc, nil)

	res := a.Run(context.Background(), "2 EC2, an S3 bucket and a Lambda function")

	require.True(t, res.Success)
	require.NotNil(t, res.Data)
	assert.Empty(t, res.Error)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 2, res.Data.SuccessCount)
	require.Len(t, res.Data.Items, 3)
	assert.Equal(t, automation.OutcomeFailure, res.Data.Items[1].Outcome)
	assert.Contains(t, res.Data.Items[1].Message, automation.ErrConfigFormTimeout.Error())
}

func TestRun_InterpretationFailure(t *testing.T) {
	calc := uitest.NewCalculator()
	rec := &recorder{}
	a := newAssistant(t, calc, rec)

	res := a.Run(context.Background(), "hello")

	assert.False(t, res.Success)
	assert.Nil(t, res.Data)
	assert.Equal(t, "no AWS service recognized, try a more specific description: API key not configured", res.Error)
	assert.Empty(t, calc.Fills())
	assert.Equal(t, []events.Stage{events.StageProcessing, events.StageFinished}, rec.stages())
}

func TestInterpretAndExecute_EmptyQuery(t *testing.T) {
	a := newAssistant(t, uitest.NewCalculator(), nil)

	_, err := a.InterpretAndExecute(context.Background(), "")
	assert.ErrorIs(t, err, interpreter.ErrEmptyQuery)
}

func TestInterpretAndExecute_NotOnCalculator(t *testing.T) {
	calc := uitest.NewCalculator()
	calc.SetLocation("https://example.com/", "Example")
	a := newAssistant(t, calc, nil)

	_, err := a.InterpretAndExecute(context.Background(), "EC2")
	assert.ErrorIs(t, err, ErrNotOnCalculator)
	assert.Empty(t, calc.Fills())
}

func TestInterpretAndExecute_RemoteRequestGetsGenericTips(t *testing.T) {
	a := New(Options{
		Interpreter: stubInterpreter{req: service.ParsedRequest{
			Services:   []service.Spec{service.NewDynamoDB(0, 0, 0)},
			Region:     service.RegionTokyo,
			Provenance: service.ProvenanceRemote,
		}},
		Executor: stubExecutor{},
	})

	rep, err := a.InterpretAndExecute(context.Background(), "a key value store")
	require.NoError(t, err)
	assert.Equal(t, report.GenericTips, rep.OptimizationNotes)
}

type stubInterpreter struct {
	req service.ParsedRequest
}

func (s stubInterpreter) Interpret(context.Context, string) (service.ParsedRequest, error) {
	return s.req, nil
}

type stubExecutor struct{}

func (stubExecutor) ExecuteAll(_ context.Context, req service.ParsedRequest, _ func(int, automation.ActionResult)) []automation.ActionResult {
	out := make([]automation.ActionResult, len(req.Services))
	for i, s := range req.Services {
		out[i] = automation.ActionResult{Kind: s.Kind(), Outcome: automation.OutcomeSuccess}
	}
	return out
}

// blockingExecutor holds a run open until release is closed.
type blockingExecutor struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (b *blockingExecutor) ExecuteAll(ctx context.Context, req service.ParsedRequest, onResult func(int, automation.ActionResult)) []automation.ActionResult {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return stubExecutor{}.ExecuteAll(ctx, req, onResult)
}

func TestRun_RejectsConcurrentRun(t *testing.T) {
	exec := &blockingExecutor{started: make(chan struct{}), release: make(chan struct{})}
	a := New(Options{Interpreter: interpreter.New(nil, nil), Executor: exec})

	done := make(chan RunResult, 1)
	go func() {
		done <- a.Run(context.Background(), "EC2")
	}()
	<-exec.started

	assert.True(t, a.Busy())
	_, err := a.InterpretAndExecute(context.Background(), "S3")
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(exec.release)
	first := <-done
	assert.True(t, first.Success)
	assert.False(t, a.Busy())

	res := a.Run(context.Background(), "S3")
	assert.True(t, res.Success)
}

func TestExclusive_HoldsRunGuard(t *testing.T) {
	exec := &blockingExecutor{started: make(chan struct{}), release: make(chan struct{})}
	a := New(Options{Interpreter: interpreter.New(nil, nil), Executor: exec})

	err := a.Exclusive(context.Background(), func(ctx context.Context) error {
		assert.True(t, a.Busy())
		res := a.Run(ctx, "EC2")
		assert.False(t, res.Success)
		assert.Equal(t, ErrRunInProgress.Error(), res.Error)
		return nil
	})
	require.NoError(t, err)
	assert.False(t, a.Busy())

	done := make(chan RunResult, 1)
	go func() {
		done <- a.Run(context.Background(), "EC2")
	}()
	<-exec.started

	called := false
	err = a.Exclusive(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrRunInProgress)
	assert.False(t, called)

	close(exec.release)
	assert.True(t, (<-done).Success)
}
