package robots

import (
	"fmt"

	"github.com/rohmanhakim/fetchkit/internal/metadata"
	"github.com/rohmanhakim/fetchkit/pkg/failure"
)

type RobotsErrorCause string

const (
	ErrCauseRequestFailure  RobotsErrorCause = "request failed"
	ErrCauseTooManyRequests RobotsErrorCause = "too many requests"
	ErrCauseServerError     RobotsErrorCause = "server error"
	ErrCauseReadFailure     RobotsErrorCause = "read failed"
	ErrCauseParseFailure    RobotsErrorCause = "parse failed"
)

type RobotsError struct {
	Message   string
	Retryable bool
	Cause     RobotsErrorCause
}

func (e *RobotsError) Error() string {
	return fmt.Sprintf("robots error: %s: %s", e.Cause, e.Message)
}

func (e *RobotsError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// mapRobotsErrorToMetadataCause maps robots-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapRobotsErrorToMetadataCause(err *RobotsError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseRequestFailure, ErrCauseReadFailure:
		return metadata.CauseNetworkFailure
	case ErrCauseTooManyRequests, ErrCauseServerError:
		return metadata.CauseUpstreamFailure
	case ErrCauseParseFailure:
		return metadata.CauseContentInvalid
	default:
		return metadata.CauseUnknown
	}
}
