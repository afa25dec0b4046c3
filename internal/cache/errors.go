package cache

import (
	"errors"
	"fmt"

	"github.com/rohmanhakim/fetchkit/internal/metadata"
	"github.com/rohmanhakim/fetchkit/pkg/failure"
)

// ErrCorruptRecord marks a persistent entry that could not be decoded.
// Such entries are deleted and treated as a miss.
var ErrCorruptRecord = errors.New("corrupt cache record")

type CacheErrorCause string

const (
	ErrCauseStoreFailure     CacheErrorCause = "store failure"
	ErrCauseCorruptRecord    CacheErrorCause = "corrupt record"
	ErrCauseEncodeFailure    CacheErrorCause = "encode failure"
	ErrCauseUnknownStrategy  CacheErrorCause = "unknown strategy"
	ErrCauseStoreUnavailable CacheErrorCause = "store unavailable"
)

type CacheError struct {
	Message   string
	Retryable bool
	Cause     CacheErrorCause
	Err       error
}

func (e *CacheError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cache error: %s: %s: %v", e.Cause, e.Message, e.Err)
	}
	return fmt.Sprintf("cache error: %s: %s", e.Cause, e.Message)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

func (e *CacheError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// mapCacheErrorToMetadataCause maps cache-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapCacheErrorToMetadataCause(err *CacheError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseStoreFailure, ErrCauseStoreUnavailable:
		return metadata.CauseStorageFailure
	case ErrCauseCorruptRecord, ErrCauseEncodeFailure:
		return metadata.CauseContentInvalid
	case ErrCauseUnknownStrategy:
		return metadata.CauseInvariantViolation
	default:
		return metadata.CauseUnknown
	}
}
