package automation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"calc-assistant/internal/service"
	"calc-assistant/internal/ui"
	"calc-assistant/internal/ui/uitest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var fastTiming = Timing{FormTimeout: 200 * time.Millisecond}

func newCalculator(t *testing.T, opts ...uitest.CalculatorOption) *uitest.Calculator {
	t.Helper()
	calc := uitest.NewCalculator(opts...)
	t.Cleanup(calc.Close)
	return calc
}

func committedFills(fills []uitest.Fill) map[ui.Handle]string {
	out := make(map[ui.Handle]string)
	for _, f := range fills {
		if f.Commit {
			out[f.Handle] = f.Value
		}
	}
	return out
}

func TestExecute_EachKind(t *testing.T) {
	tests := []struct {
		name      string
		spec      service.Spec
		region    service.Region
		product   string
		wantFills []uitest.Fill
	}{
		{
			name:    "ec2",
			spec:    service.NewEC2(3, "t3.medium"),
			region:  service.RegionTokyo,
			product: "Amazon EC2",
			wantFills: []uitest.Fill{
				{Handle: uitest.SearchHandle, Value: "EC2"},
				{Handle: "ec2-region", Value: "ap-northeast-1", Commit: true},
				{Handle: "ec2-type", Value: "t3.medium", Commit: true},
				{Handle: "ec2-quantity", Value: "3", Commit: true},
			},
		},
		{
			name:    "rds",
			spec:    service.NewRDS(2, 500, service.EnginePostgreSQL, ""),
			region:  service.RegionVirginia,
			product: "Amazon RDS for MySQL",
			wantFills: []uitest.Fill{
				{Handle: uitest.SearchHandle, Value: "RDS"},
				{Handle: "rds-engine", Value: "postgresql", Commit: true},
				{Handle: "rds-region", Value: "us-east-1", Commit: true},
				{Handle: "rds-instance", Value: "db.t3.medium", Commit: true},
				{Handle: "rds-storage", Value: "500", Commit: true},
				{Handle: "rds-quantity", Value: "2", Commit: true},
			},
		},
		{
			name:    "s3",
			spec:    service.NewS3(100, "", 0),
			region:  service.RegionTokyo,
			product: "Amazon S3",
			wantFills: []uitest.Fill{
				{Handle: uitest.SearchHandle, Value: "S3"},
				{Handle: "s3-class", Value: "Standard", Commit: true},
				{Handle: "s3-storage", Value: "100", Commit: true},
				{Handle: "s3-requests", Value: "10000", Commit: true},
			},
		},
		{
			name:    "lambda",
			spec:    service.NewLambda(512, 0, 250),
			region:  service.RegionTokyo,
			product: "AWS Lambda",
			wantFills: []uitest.Fill{
				{Handle: uitest.SearchHandle, Value: "Lambda"},
				{Handle: "lambda-memory", Value: "512", Commit: true},
				{Handle: "lambda-requests", Value: "1000000", Commit: true},
				{Handle: "lambda-duration", Value: "250", Commit: true},
			},
		},
		{
			name:    "dynamodb",
			spec:    service.NewDynamoDB(0, 20, 10),
			region:  service.RegionTokyo,
			product: "Amazon DynamoDB",
			wantFills: []uitest.Fill{
				{Handle: uitest.SearchHandle, Value: "DynamoDB"},
				{Handle: "dynamodb-read", Value: "20", Commit: true},
				{Handle: "dynamodb-write", Value: "10", Commit: true},
				{Handle: "dynamodb-storage", Value: "10", Commit: true},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := newCalculator(t)
			exec := NewExecutor(calc, fastTiming, zap.NewNop())

			result := exec.Execute(context.Background(), tt.spec, tt.region)

			assert.Equal(t, ActionResult{Kind: tt.spec.Kind(), Outcome: OutcomeSuccess}, result)
			assert.Equal(t, tt.wantFills, calc.Fills())
			assert.Equal(t, []string{tt.product}, calc.Estimate())
			assert.Equal(t, uitest.AddHandle, calc.Clicks()[len(calc.Clicks())-1])
		})
	}
}

func TestExecute_SkipsWindowsServerCard(t *testing.T) {
	calc := newCalculator(t)
	exec := NewExecutor(calc, fastTiming, nil)

	result := exec.Execute(context.Background(), service.NewEC2(1, ""), service.RegionTokyo)
	require.True(t, result.Succeeded())
	assert.Equal(t, []ui.Handle{"configure-ec2", uitest.AddHandle}, calc.Clicks())
}

func TestExecute_EntryPointMissing(t *testing.T) {
	page := uitest.NewPage(ui.Element{Handle: "h", Kind: ui.KindHeading, Text: "My Estimate"})
	exec := NewExecutor(page, fastTiming, nil)

	result := exec.Execute(context.Background(), service.NewS3(0, "", 0), service.RegionTokyo)
	assert.Equal(t, OutcomeFailure, result.Outcome)
	assert.ErrorIs(t, result.Err, ErrEntryPointMissing)
	assert.Equal(t, "failed to add Amazon S3: enter the add-service screen first", result.Message)
	assert.Empty(t, page.Fills())
	assert.Empty(t, page.Clicks())
}

func TestExecute_ServiceCardNotFound(t *testing.T) {
	t.Run("no card", func(t *testing.T) {
		calc := newCalculator(t, uitest.WithCatalogue(uitest.DefaultCatalogue()[:2]))
		exec := NewExecutor(calc, fastTiming, nil)

		result := exec.Execute(context.Background(), service.NewDynamoDB(0, 0, 0), service.RegionTokyo)
		assert.ErrorIs(t, result.Err, ErrServiceCardNotFound)
		assert.Empty(t, calc.Clicks())
	})

	t.Run("card without configure button", func(t *testing.T) {
		page := uitest.NewPage(
			ui.Element{Handle: "search", Kind: ui.KindInput, Placeholder: "搜尋服務"},
			ui.Element{Handle: "card", Kind: ui.KindCard, Text: "AWS Lambda"},
			ui.Element{Handle: "other", Kind: ui.KindCard, Text: "AWS Lambda@Edge"},
			ui.Element{Handle: "btn", Kind: ui.KindButton, Text: "設定", Container: "other"},
		)
		exec := NewExecutor(page, fastTiming, nil)

		result := exec.Execute(context.Background(), service.NewLambda(0, 0, 0), service.RegionTokyo)
		assert.ErrorIs(t, result.Err, ErrServiceCardNotFound)
		assert.Equal(t, []uitest.Fill{{Handle: "search", Value: "Lambda"}}, page.Fills())
	})
}

func TestExecute_ConfigFormTimeout(t *testing.T) {
	calc := newCalculator(t, uitest.WithStuckForm("s3"))
	exec := NewExecutor(calc, Timing{FormTimeout: 50 * time.Millisecond}, nil)

	start := time.Now()
	result := exec.Execute(context.Background(), service.NewS3(0, "", 0), service.RegionTokyo)
	assert.ErrorIs(t, result.Err, ErrConfigFormTimeout)
	assert.Contains(t, result.Message, ErrConfigFormTimeout.Error())
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.Zero(t, calc.Subscribers())
	assert.Empty(t, calc.Estimate())
}

func TestExecute_WaitsForSlowForm(t *testing.T) {
	calc := newCalculator(t, uitest.WithFormDelay(60*time.Millisecond))
	exec := NewExecutor(calc, Timing{FormTimeout: 2 * time.Second}, nil)

	result := exec.Execute(context.Background(), service.NewLambda(0, 0, 0), service.RegionTokyo)
	assert.True(t, result.Succeeded())
	assert.Equal(t, []string{"AWS Lambda"}, calc.Estimate())
}

func TestExecute_MissingFieldIsNotFatal(t *testing.T) {
	catalogue := uitest.DefaultCatalogue()
	for i := range catalogue {
		if catalogue[i].ID == "ec2" {
			catalogue[i].Fields = catalogue[i].Fields[:2]
		}
	}
	calc := newCalculator(t, uitest.WithCatalogue(catalogue))
	exec := NewExecutor(calc, fastTiming, nil)

	result := exec.Execute(context.Background(), service.NewEC2(4, "m5.large"), service.RegionTokyo)
	assert.True(t, result.Succeeded())
	assert.Equal(t, map[ui.Handle]string{"ec2-region": "ap-northeast-1", "ec2-type": "m5.large"}, committedFills(calc.Fills()))
}

func TestExecute_QuantityFallsBackToDefaultValue(t *testing.T) {
	catalogue := uitest.DefaultCatalogue()
	for i := range catalogue {
		if catalogue[i].ID == "ec2" {
			catalogue[i].Fields[2].Placeholder = ""
		}
	}
	calc := newCalculator(t, uitest.WithCatalogue(catalogue))
	exec := NewExecutor(calc, fastTiming, nil)

	result := exec.Execute(context.Background(), service.NewEC2(4, ""), service.RegionTokyo)
	assert.True(t, result.Succeeded())
	assert.Equal(t, "4", committedFills(calc.Fills())["ec2-quantity"])
}

func TestExecute_MissingAddButtonIsNotFatal(t *testing.T) {
	calc := newCalculator(t, uitest.WithoutAddButton())
	exec := NewExecutor(calc, fastTiming, nil)

	result := exec.Execute(context.Background(), service.NewS3(0, "", 0), service.RegionTokyo)
	assert.True(t, result.Succeeded())
	assert.Empty(t, calc.Estimate())
}

type panickingDoc struct {
	*uitest.Page
}

func (panickingDoc) Snapshot(context.Context) ([]ui.Element, error) {
	panic("renderer crashed")
}

func TestExecute_RecoversPanics(t *testing.T) {
	exec := NewExecutor(panickingDoc{uitest.NewPage()}, fastTiming, nil)

	result := exec.Execute(context.Background(), service.NewEC2(1, ""), service.RegionTokyo)
	assert.Equal(t, OutcomeFailure, result.Outcome)
	assert.Equal(t, service.KindEC2, result.Kind)
	assert.Contains(t, result.Message, "renderer crashed")
}

type failingDoc struct {
	*uitest.Page
}

func (failingDoc) Snapshot(context.Context) ([]ui.Element, error) {
	return nil, errors.New("target closed")
}

func TestExecute_SnapshotError(t *testing.T) {
	exec := NewExecutor(failingDoc{uitest.NewPage()}, fastTiming, nil)

	result := exec.Execute(context.Background(), service.NewEC2(1, ""), service.RegionTokyo)
	assert.Equal(t, OutcomeFailure, result.Outcome)
	assert.Contains(t, result.Message, "target closed")
}

func TestExecute_UnsupportedKind(t *testing.T) {
	exec := NewExecutor(uitest.NewPage(), fastTiming, nil)

	result := exec.Execute(context.Background(), nil, service.RegionTokyo)
	assert.Equal(t, OutcomeFailure, result.Outcome)
	assert.ErrorIs(t, result.Err, ErrUnsupportedKind)
}

func TestExecute_SettleDelays(t *testing.T) {
	calc := newCalculator(t)
	timing := Timing{
		SearchSettle:    20 * time.Millisecond,
		ConfigureSettle: 20 * time.Millisecond,
		FieldSettle:     10 * time.Millisecond,
		FormTimeout:     time.Second,
	}
	exec := NewExecutor(calc, timing, nil)

	start := time.Now()
	result := exec.Execute(context.Background(), service.NewLambda(0, 0, 0), service.RegionTokyo)
	require.True(t, result.Succeeded())
	// search + configure + three fields
	assert.GreaterOrEqual(t, time.Since(start), 70*time.Millisecond)
}

func TestExecuteAll_PartialFailureContinues(t *testing.T) {
	calc := newCalculator(t, uitest.WithStuckForm("s3"))
	exec := NewExecutor(calc, Timing{FormTimeout: 50 * time.Millisecond}, nil)
	req := service.ParsedRequest{
		Services: []service.Spec{
			service.NewEC2(2, ""),
			service.NewS3(0, "", 0),
			service.NewLambda(0, 0, 0),
		},
		Region:     service.RegionTokyo,
		Provenance: service.ProvenanceLocal,
	}

	var seen []int
	results := exec.ExecuteAll(context.Background(), req, func(i int, r ActionResult) {
		seen = append(seen, i)
	})

	require.Len(t, results, 3)
	assert.Equal(t, []int{0, 1, 2}, seen)
	assert.True(t, results[0].Succeeded())
	assert.False(t, results[1].Succeeded())
	assert.ErrorIs(t, results[1].Err, ErrConfigFormTimeout)
	assert.True(t, results[2].Succeeded())
	assert.Equal(t, []service.Kind{service.KindEC2, service.KindS3, service.KindLambda},
		[]service.Kind{results[0].Kind, results[1].Kind, results[2].Kind})
	assert.Equal(t, []string{"Amazon EC2", "AWS Lambda"}, calc.Estimate())
}
