package sitemap

import (
	"fmt"

	"github.com/rohmanhakim/fetchkit/internal/metadata"
	"github.com/rohmanhakim/fetchkit/pkg/failure"
)

type MapErrorCause string

const (
	ErrCauseSitemapUnavailable MapErrorCause = "sitemap unavailable"
	ErrCausePageUnavailable    MapErrorCause = "page unavailable"
)

type MapError struct {
	Message   string
	Retryable bool
	Cause     MapErrorCause
}

func (e *MapError) Error() string {
	return fmt.Sprintf("sitemap error: %s: %s", e.Cause, e.Message)
}

func (e *MapError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// mapMapErrorToMetadataCause maps sitemap-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapMapErrorToMetadataCause(err *MapError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseSitemapUnavailable, ErrCausePageUnavailable:
		return metadata.CauseNetworkFailure
	default:
		return metadata.CauseUnknown
	}
}
