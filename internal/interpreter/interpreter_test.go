package interpreter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"calc-assistant/internal/credential"
	"calc-assistant/internal/llm"
	"calc-assistant/internal/service"
)

type fakeCompleter struct {
	calls    int
	last     llm.Request
	response string
	err      error
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	f.calls++
	f.last = req
	return f.response, f.err
}

func newTestInterpreter(t *testing.T, key string, completer llm.Completer) *Interpreter {
	t.Helper()
	store := &credential.MemoryStore{}
	if key != "" {
		require.NoError(t, store.Set(context.Background(), key))
	}
	return New(NewRemoteTier(store, completer, zap.NewNop()), zap.NewNop())
}

func TestInterpret_LocalNeverCallsRemote(t *testing.T) {
	completer := &fakeCompleter{response: `{"services":[{"type":"lambda"}]}`}
	in := newTestInterpreter(t, "sk-test", completer)

	for _, text := range []string{
		"我需要 3 個 t3.medium EC2 實例和 100GB 的 S3 儲存",
		"2 EC2 instances and an RDS database",
		"DynamoDB",
		"Lambda in Europe",
	} {
		req, err := in.Interpret(context.Background(), text)
		require.NoError(t, err)
		assert.Equal(t, service.ProvenanceLocal, req.Provenance)
		assert.Empty(t, req.Optimizations)
	}
	assert.Zero(t, completer.calls)
}

func TestInterpret_EmptyQuery(t *testing.T) {
	completer := &fakeCompleter{}
	in := newTestInterpreter(t, "sk-test", completer)

	_, err := in.Interpret(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.Zero(t, completer.calls)
}

func TestInterpret_UnrecognisedWithoutCredential(t *testing.T) {
	completer := &fakeCompleter{}
	in := newTestInterpreter(t, "", completer)

	_, err := in.Interpret(context.Background(), "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoServiceRecognized)
	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.Equal(t, "no AWS service recognized, try a more specific description: API key not configured", err.Error())
	assert.Zero(t, completer.calls)

	var recErr *RecognitionError
	require.True(t, errors.As(err, &recErr))
}

func TestInterpret_RemoteFallback(t *testing.T) {
	completer := &fakeCompleter{response: "Here is the plan:\n" + `{
		"services": [
			{"type": "rds", "params": {"engine": "postgresql", "storage": 250, "count": "2"}},
			{"type": "redshift", "params": {"nodes": 3}},
			{"type": "lambda", "memory": 512}
		],
		"region": "us-east-1",
		"optimizations": ["Use reserved instances", 42]
	}` + "\nLet me know!"}
	in := newTestInterpreter(t, "sk-test", completer)

	req, err := in.Interpret(context.Background(), "a postgres database and some serverless functions")
	require.NoError(t, err)
	assert.Equal(t, 1, completer.calls)
	assert.Equal(t, "sk-test", completer.last.APIKey)
	assert.Equal(t, Instructions, completer.last.Instructions)
	assert.Equal(t, "a postgres database and some serverless functions", completer.last.UserText)

	assert.Equal(t, service.ProvenanceRemote, req.Provenance)
	assert.Equal(t, service.RegionVirginia, req.Region)
	assert.Equal(t, []string{"Use reserved instances"}, req.Optimizations)
	assert.Equal(t, []service.Spec{
		service.RDSSpec{Engine: service.EnginePostgreSQL, StorageGB: 250, InstanceType: "db.t3.medium", Count: 2},
		service.LambdaSpec{MemoryMB: 512, Requests: 1000000, DurationMs: 100},
	}, req.Services)
}

func TestInterpret_RemoteDropsUnknownTypesWithWarning(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	store := &credential.MemoryStore{}
	require.NoError(t, store.Set(context.Background(), "sk-test"))
	completer := &fakeCompleter{response: `{"services":[{"type":"redshift"},{"type":"S3","params":{"storage":"1"}}]}`}
	in := New(NewRemoteTier(store, completer, zap.New(core)), zap.NewNop())

	req, err := in.Interpret(context.Background(), "a data warehouse")
	require.NoError(t, err)
	assert.Equal(t, []service.Spec{service.S3Spec{StorageGB: 1, StorageClass: "Standard", Requests: 10000}}, req.Services)
	assert.Equal(t, service.RegionTokyo, req.Region)

	entries := logs.FilterMessage("dropping unsupported service type").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "redshift", entries[0].ContextMap()["type"])
}

func TestInterpret_RemoteMalformed(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"broken array", `Sure! {"services": [}, broken`},
		{"no object", "I could not understand the request."},
		{"services not a list", `{"services": {"type": "ec2"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := newTestInterpreter(t, "sk-test", &fakeCompleter{response: tt.response})
			req, err := in.Interpret(context.Background(), "something vague")
			assert.ErrorIs(t, err, ErrMalformedRemoteResponse)
			assert.ErrorIs(t, err, ErrNoServiceRecognized)
			assert.Empty(t, req.Services)
		})
	}
}

func TestInterpret_RemoteRequestFailed(t *testing.T) {
	t.Run("api error message is propagated", func(t *testing.T) {
		completer := &fakeCompleter{err: &llm.APIError{StatusCode: 401, Message: "Incorrect API key provided"}}
		in := newTestInterpreter(t, "sk-bad", completer)

		_, err := in.Interpret(context.Background(), "something vague")
		assert.ErrorIs(t, err, ErrRemoteRequestFailed)
		assert.Contains(t, err.Error(), "Incorrect API key provided")
	})

	t.Run("transport error", func(t *testing.T) {
		completer := &fakeCompleter{err: errors.New("dial tcp: connection refused")}
		in := newTestInterpreter(t, "sk-test", completer)

		_, err := in.Interpret(context.Background(), "something vague")
		assert.ErrorIs(t, err, ErrRemoteRequestFailed)
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestInterpret_RemoteWithoutServices(t *testing.T) {
	in := newTestInterpreter(t, "sk-test", &fakeCompleter{response: `{"services": [], "region": "eu-west-1"}`})

	_, err := in.Interpret(context.Background(), "something vague")
	assert.ErrorIs(t, err, ErrNoServiceRecognized)
	assert.Equal(t, ErrNoServiceRecognized.Error(), err.Error())
}

type stubRemote struct {
	req service.ParsedRequest
}

func (s stubRemote) Parse(context.Context, string) (service.ParsedRequest, error) {
	return s.req, nil
}

func TestInterpret_RemoteResultIsValidated(t *testing.T) {
	in := New(stubRemote{req: service.ParsedRequest{
		Services:   []service.Spec{service.NewLambda(0, 0, 0)},
		Region:     "mars-1",
		Provenance: service.ProvenanceRemote,
	}}, nil)

	_, err := in.Interpret(context.Background(), "something vague")
	assert.ErrorIs(t, err, ErrNoServiceRecognized)
	assert.ErrorIs(t, err, ErrMalformedRemoteResponse)
	assert.Contains(t, err.Error(), `unsupported region "mars-1"`)

	in = New(stubRemote{req: service.ParsedRequest{Region: service.DefaultRegion}}, nil)
	_, err = in.Interpret(context.Background(), "something vague")
	assert.ErrorIs(t, err, ErrNoServiceRecognized)
	assert.NotErrorIs(t, err, ErrMalformedRemoteResponse)
}
