package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rohmanhakim/fetchkit/pkg/failure"
	"github.com/rohmanhakim/fetchkit/pkg/retry"
	"github.com/rohmanhakim/fetchkit/pkg/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultBackoffParam() timeutil.BackoffParam {
	return timeutil.NewBackoffParam(5*time.Millisecond, 2.0, 50*time.Millisecond)
}

// mockError is a mock implementation of failure.ClassifiedError for testing
type mockError struct {
	msg       string
	retryable bool
}

func (m *mockError) Error() string { return m.msg }

func (m *mockError) Severity() failure.Severity {
	if m.retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (m *mockError) IsRetryable() bool { return m.retryable }

// severityOnly carries no IsRetryable method.
type severityOnly struct{ severity failure.Severity }

func (s *severityOnly) Error() string              { return "severity only" }
func (s *severityOnly) Severity() failure.Severity { return s.severity }

func TestRetry_SuccessOnFirstAttempt(t *testing.T) {
	callCount := 0
	fn := func(context.Context) (string, failure.ClassifiedError) {
		callCount++
		return "success", nil
	}

	result := retry.Retry(context.Background(), retry.NewRetryParam(0, 42, 3, defaultBackoffParam()), fn)

	require.True(t, result.IsSuccess())
	assert.Equal(t, "success", result.Value())
	assert.Equal(t, 1, result.Attempts())
	assert.Equal(t, 1, callCount)
}

func TestRetry_SuccessAfterRetries(t *testing.T) {
	callCount := 0
	fn := func(context.Context) (string, failure.ClassifiedError) {
		callCount++
		if callCount < 3 {
			return "", &mockError{msg: "transient error", retryable: true}
		}
		return "success", nil
	}

	result := retry.Retry(context.Background(), retry.NewRetryParam(time.Millisecond, 42, 5, defaultBackoffParam()), fn)

	require.True(t, result.IsSuccess())
	assert.Equal(t, "success", result.Value())
	assert.Equal(t, 3, result.Attempts())
}

func TestRetry_NonRetryableErrorReturnsImmediately(t *testing.T) {
	expectedErr := &mockError{msg: "fatal error", retryable: false}
	callCount := 0
	fn := func(context.Context) (string, failure.ClassifiedError) {
		callCount++
		return "", expectedErr
	}

	result := retry.Retry(context.Background(), retry.NewRetryParam(0, 42, 5, defaultBackoffParam()), fn)

	require.True(t, result.IsFailure())
	assert.Equal(t, 1, callCount)
	assert.Same(t, expectedErr, result.Err())
}

func TestRetry_ExhaustedAttempts(t *testing.T) {
	last := &mockError{msg: "persistent transient error", retryable: true}
	callCount := 0
	fn := func(context.Context) (int, failure.ClassifiedError) {
		callCount++
		return 0, last
	}

	result := retry.Retry(context.Background(), retry.NewRetryParam(0, 42, 3, defaultBackoffParam()), fn)

	require.True(t, result.IsFailure())
	assert.Equal(t, 3, callCount)
	assert.Equal(t, 3, result.Attempts())
	assert.Equal(t, failure.SeverityRecoverable, result.Err().Severity())

	var retryErr *retry.RetryError
	require.True(t, errors.As(result.Err(), &retryErr))
	assert.Equal(t, retry.ErrExhaustedAttempts, retryErr.Cause)
	assert.ErrorIs(t, result.Err(), last)
}

func TestRetry_ZeroAttempts(t *testing.T) {
	called := false
	fn := func(context.Context) (int, failure.ClassifiedError) {
		called = true
		return 1, nil
	}

	result := retry.Retry(context.Background(), retry.NewRetryParam(0, 42, 0, defaultBackoffParam()), fn)

	require.True(t, result.IsFailure())
	assert.False(t, called)
	var retryErr *retry.RetryError
	require.True(t, errors.As(result.Err(), &retryErr))
	assert.Equal(t, retry.ErrZeroAttempt, retryErr.Cause)
}

func TestRetry_CancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fn := func(context.Context) (int, failure.ClassifiedError) {
		cancel()
		return 0, &mockError{msg: "transient", retryable: true}
	}

	slow := timeutil.NewBackoffParam(time.Minute, 2.0, time.Minute)
	start := time.Now()
	result := retry.Retry(ctx, retry.NewRetryParam(0, 42, 5, slow), fn)

	require.True(t, result.IsFailure())
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, result.Attempts())
	var retryErr *retry.RetryError
	require.True(t, errors.As(result.Err(), &retryErr))
	assert.Equal(t, retry.ErrCanceled, retryErr.Cause)
}

func TestRetry_FallsBackToSeverity(t *testing.T) {
	callCount := 0
	fn := func(context.Context) (int, failure.ClassifiedError) {
		callCount++
		return 0, &severityOnly{severity: failure.SeverityFatal}
	}

	result := retry.Retry(context.Background(), retry.NewRetryParam(0, 42, 4, defaultBackoffParam()), fn)

	require.True(t, result.IsFailure())
	assert.Equal(t, 1, callCount)
}
