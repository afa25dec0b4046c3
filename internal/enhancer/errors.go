package enhancer

import (
	"fmt"

	"github.com/rohmanhakim/fetchkit/internal/metadata"
	"github.com/rohmanhakim/fetchkit/pkg/failure"
)

type EnhanceErrorCause string

const (
	ErrCauseParseFailure   EnhanceErrorCause = "parse failure"
	ErrCauseEncodeFailure  EnhanceErrorCause = "encode failure"
	ErrCauseSummaryFailure EnhanceErrorCause = "summary failure"
)

type EnhanceError struct {
	Message   string
	Retryable bool
	Cause     EnhanceErrorCause
}

func (e *EnhanceError) Error() string {
	return fmt.Sprintf("enhance error: %s: %s", e.Cause, e.Message)
}

func (e *EnhanceError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// mapEnhanceErrorToMetadataCause maps enhancer-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapEnhanceErrorToMetadataCause(err *EnhanceError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseParseFailure, ErrCauseEncodeFailure:
		return metadata.CauseContentInvalid
	case ErrCauseSummaryFailure:
		return metadata.CauseUpstreamFailure
	default:
		return metadata.CauseUnknown
	}
}
