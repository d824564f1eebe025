// Package interpreter turns free text into a service.ParsedRequest. A local
// pattern tier runs first; the remote tier is consulted only when the local
// tier recognises nothing.
package interpreter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"calc-assistant/internal/service"
)

// Remote is the fallback tier.
type Remote interface {
	Parse(ctx context.Context, text string) (service.ParsedRequest, error)
}

type Interpreter struct {
	remote Remote
	logger *zap.Logger
}

// New returns an Interpreter. remote may be nil, in which case unrecognised
// text fails with ErrMissingCredential as its cause.
func New(remote Remote, logger *zap.Logger) *Interpreter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Interpreter{remote: remote, logger: logger.Named("interpreter")}
}

// Interpret parses text. On failure of both tiers the error is a
// *RecognitionError whose cause is the remote tier's error.
func (i *Interpreter) Interpret(ctx context.Context, text string) (service.ParsedRequest, error) {
	if strings.TrimSpace(text) == "" {
		return service.ParsedRequest{}, ErrEmptyQuery
	}

	if req, ok := ParseLocal(text); ok {
		i.logger.Debug("local tier matched", zap.Any("kinds", req.Kinds()), zap.String("region", string(req.Region)))
		return req, nil
	}

	if i.remote == nil {
		return service.ParsedRequest{}, &RecognitionError{Cause: ErrMissingCredential}
	}
	req, err := i.remote.Parse(ctx, text)
	if err != nil {
		i.logger.Info("remote tier failed", zap.Error(err))
		return service.ParsedRequest{}, &RecognitionError{Cause: err}
	}
	if err := req.Validate(); err != nil {
		if errors.Is(err, service.ErrNoServices) {
			return service.ParsedRequest{}, &RecognitionError{}
		}
		return service.ParsedRequest{}, &RecognitionError{Cause: fmt.Errorf("%w: %v", ErrMalformedRemoteResponse, err)}
	}
	i.logger.Debug("remote tier matched", zap.Any("kinds", req.Kinds()), zap.String("region", string(req.Region)))
	return req, nil
}
