package interpreter

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyQuery              = errors.New("describe the AWS services you need")
	ErrNoServiceRecognized     = errors.New("no AWS service recognized, try a more specific description")
	ErrMissingCredential       = errors.New("API key not configured")
	ErrRemoteRequestFailed     = errors.New("remote parsing request failed")
	ErrMalformedRemoteResponse = errors.New("remote parsing response is not a valid request")
)

// RecognitionError is returned when neither tier produced a service. It
// matches ErrNoServiceRecognized and unwraps to whatever stopped the remote
// tier, so callers can test for either.
type RecognitionError struct {
	Cause error
}

func (e *RecognitionError) Error() string {
	if e.Cause == nil {
		return ErrNoServiceRecognized.Error()
	}
	return fmt.Sprintf("%s: %v", ErrNoServiceRecognized, e.Cause)
}

func (e *RecognitionError) Is(target error) bool {
	return target == ErrNoServiceRecognized
}

func (e *RecognitionError) Unwrap() error {
	return e.Cause
}
