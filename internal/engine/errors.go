package engine

import (
	"fmt"

	"github.com/rohmanhakim/fetchkit/pkg/failure"
)

type EngineErrorCause string

const (
	ErrCauseSetupFailure EngineErrorCause = "setup failed"
	ErrCauseInvalidURL   EngineErrorCause = "invalid url"
)

type EngineError struct {
	Message string
	Cause   EngineErrorCause
	Err     error
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("engine error: %s: %s: %v", e.Cause, e.Message, e.Err)
	}
	return fmt.Sprintf("engine error: %s: %s", e.Cause, e.Message)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

func (e *EngineError) Severity() failure.Severity {
	return failure.SeverityFatal
}
