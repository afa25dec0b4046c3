package fetcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rohmanhakim/fetchkit/internal/metadata"
	"github.com/rohmanhakim/fetchkit/pkg/failure"
)

var (
	ErrRetrievalExhausted = errors.New("retrieval exhausted")
	ErrRetrievalTimeout   = errors.New("retrieval timeout")
)

type FetchErrorCause string

const (
	ErrCauseTimeout               FetchErrorCause = "timeout"
	ErrCauseNetworkFailure        FetchErrorCause = "network issues"
	ErrCauseReadResponseBodyError FetchErrorCause = "failed to read response body"
	ErrCauseContentTypeInvalid    FetchErrorCause = "non-HTML content"
	ErrCauseRedirectLimitExceeded FetchErrorCause = "reached redirect limit"
	ErrCauseRequestPageForbidden  FetchErrorCause = "forbidden"
	ErrCauseRequestClientError    FetchErrorCause = "4xx"
	ErrCauseRequestTooMany        FetchErrorCause = "too many requests"
	ErrCauseRequest5xx            FetchErrorCause = "5xx"
	ErrCauseUpstreamRejected      FetchErrorCause = "upstream rejected request"
	ErrCauseBrowserFailure        FetchErrorCause = "browser failure"
	ErrCauseRenderFailure         FetchErrorCause = "render failure"
)

// FetchError is a failure of one strategy. The chain recovers from it by
// moving on to the next strategy.
type FetchError struct {
	Message   string
	Retryable bool
	Cause     FetchErrorCause
	// StatusCode is the upstream HTTP status, when there was one.
	StatusCode int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetcher error: %s: %s", e.Cause, e.Message)
}

func (e *FetchError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// IsRetryable returns whether this error is retryable
func (e *FetchError) IsRetryable() bool {
	return e.Retryable
}

// ExhaustedError is returned when every available strategy failed.
type ExhaustedError struct {
	URL      string
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	var parts []string
	for _, a := range e.Attempts {
		if a.Skipped {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %v", a.Strategy, a.Err))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%s for %s: no strategy available", ErrRetrievalExhausted, e.URL)
	}
	return fmt.Sprintf("%s for %s: %s", ErrRetrievalExhausted, e.URL, strings.Join(parts, "; "))
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrRetrievalExhausted
}

func (e *ExhaustedError) Unwrap() []error {
	var errs []error
	for _, a := range e.Attempts {
		if a.Err != nil {
			errs = append(errs, a.Err)
		}
	}
	return errs
}

func (e *ExhaustedError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}

// TimeoutError is returned when the chain deadline elapsed. No strategy is
// tried after it.
type TimeoutError struct {
	URL      string
	Timeout  time.Duration
	Attempts []Attempt
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s for %s after %s", ErrRetrievalTimeout, e.URL, e.Timeout)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrRetrievalTimeout
}

func (e *TimeoutError) Unwrap() error {
	return context.DeadlineExceeded
}

func (e *TimeoutError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}

// mapFetchErrorToMetadataCause maps fetcher-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapFetchErrorToMetadataCause(err error) metadata.ErrorCause {
	var fetchErr *FetchError
	switch {
	case errors.Is(err, ErrRetrievalTimeout), errors.Is(err, context.DeadlineExceeded):
		return metadata.CauseDeadlineExceeded
	case errors.Is(err, ErrRetrievalExhausted):
		return metadata.CauseUpstreamFailure
	case errors.As(err, &fetchErr):
		switch fetchErr.Cause {
		case ErrCauseTimeout, ErrCauseNetworkFailure, ErrCauseRequest5xx, ErrCauseBrowserFailure:
			return metadata.CauseNetworkFailure
		case ErrCauseRequestTooMany, ErrCauseRequestPageForbidden:
			return metadata.CausePolicyDisallow
		case ErrCauseContentTypeInvalid, ErrCauseRenderFailure:
			return metadata.CauseContentInvalid
		case ErrCauseUpstreamRejected, ErrCauseRequestClientError:
			return metadata.CauseUpstreamFailure
		}
	}
	return metadata.CauseUnknown
}
