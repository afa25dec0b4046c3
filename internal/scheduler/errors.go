package scheduler

import (
	"context"
	"errors"

	"github.com/rohmanhakim/fetchkit/internal/fetcher"
	"github.com/rohmanhakim/fetchkit/internal/metadata"
)

// mapFetchFailureToMetadataCause maps the error of a failed batch entry
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapFetchFailureToMetadataCause(err error) metadata.ErrorCause {
	switch {
	case errors.Is(err, fetcher.ErrRetrievalTimeout), errors.Is(err, context.DeadlineExceeded):
		return metadata.CauseDeadlineExceeded
	case errors.Is(err, fetcher.ErrRetrievalExhausted):
		return metadata.CauseNetworkFailure
	default:
		return metadata.CauseUnknown
	}
}
