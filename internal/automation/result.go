package automation

import (
	"errors"
	"fmt"

	"calc-assistant/internal/service"
)

var (
	ErrEntryPointMissing   = errors.New("enter the add-service screen first")
	ErrServiceCardNotFound = errors.New("configure button for the service not found")
	ErrConfigFormTimeout   = errors.New("configuration page did not load")
	ErrUnsupportedKind     = errors.New("unsupported service type")
)

// Outcome is the terminal state of one spec's automation.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
)

// ActionResult is produced once per spec. Message is set only on failure.
type ActionResult struct {
	Kind    service.Kind `json:"serviceKind"`
	Outcome Outcome      `json:"outcome"`
	Message string       `json:"message,omitempty"`

	Err error `json:"-"`
}

// Succeeded reports whether the spec was configured.
func (r ActionResult) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}

func success(kind service.Kind) ActionResult {
	return ActionResult{Kind: kind, Outcome: OutcomeSuccess}
}

func failure(kind service.Kind, err error) ActionResult {
	return ActionResult{
		Kind:    kind,
		Outcome: OutcomeFailure,
		Message: fmt.Sprintf("failed to add %s: %v", kind.DisplayName(), err),
		Err:     err,
	}
}
