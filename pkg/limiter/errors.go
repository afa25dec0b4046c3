package limiter

import (
	"fmt"

	"github.com/rohmanhakim/fetchkit/pkg/failure"
)

type LimiterErrorCause string

const (
	ErrCauseUnknownStrategy LimiterErrorCause = "unknown strategy"
	ErrCauseInvalidParam    LimiterErrorCause = "invalid parameter"
)

type LimiterError struct {
	Message string
	Cause   LimiterErrorCause
}

func (e *LimiterError) Error() string {
	return fmt.Sprintf("limiter error: %s: %s", e.Cause, e.Message)
}

func (e *LimiterError) Severity() failure.Severity {
	return failure.SeverityFatal
}
