package limiter

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rohmanhakim/fetchkit/pkg/timeutil"
	"golang.org/x/time/rate"
)

// RateLimiter
// Paces outbound retrievals for one engine.
// Responsibilities:
// - Block callers until the active strategy permits the next request
// - Serve waiting callers in the order they reserved a slot
// - Adjust pacing from success and failure feedback
type RateLimiter interface {
	Acquire(ctx context.Context) error
	RecordSuccess()
	RecordFailure()
	State() State
}

var (
	_ RateLimiter = (*FixedLimiter)(nil)
	_ RateLimiter = (*ExponentialLimiter)(nil)
	_ RateLimiter = (*AdaptiveLimiter)(nil)
	_ RateLimiter = (*TokenBucketLimiter)(nil)
)

// New builds the limiter for the given strategy. The strategy is fixed for
// the lifetime of the returned value.
func New(strategy Strategy, param Param) (RateLimiter, error) {
	if param.RequestsPerSecond <= 0 || math.IsInf(param.RequestsPerSecond, 0) || math.IsNaN(param.RequestsPerSecond) {
		return nil, &LimiterError{
			Message: fmt.Sprintf("requests per second must be positive, got %v", param.RequestsPerSecond),
			Cause:   ErrCauseInvalidParam,
		}
	}

	switch strategy {
	case StrategyFixed:
		return NewFixedLimiter(param.RequestsPerSecond), nil
	case StrategyExponential:
		if param.BackoffFactor < 1 {
			return nil, &LimiterError{
				Message: fmt.Sprintf("backoff factor must be at least 1, got %v", param.BackoffFactor),
				Cause:   ErrCauseInvalidParam,
			}
		}
		return NewExponentialLimiter(param.RequestsPerSecond, param.BackoffFactor), nil
	case StrategyAdaptive:
		return NewAdaptiveLimiter(param.RequestsPerSecond), nil
	case StrategyTokenBucket:
		if param.BurstLimit < 1 {
			return nil, &LimiterError{
				Message: fmt.Sprintf("burst limit must be at least 1, got %d", param.BurstLimit),
				Cause:   ErrCauseInvalidParam,
			}
		}
		return NewTokenBucketLimiter(param.RequestsPerSecond, param.BurstLimit), nil
	default:
		return nil, &LimiterError{
			Message: fmt.Sprintf("unknown rate limit strategy %q", strategy),
			Cause:   ErrCauseUnknownStrategy,
		}
	}
}

func intervalFor(rps float64) time.Duration {
	return time.Duration(float64(time.Second) / rps)
}

// nextSlot returns the earliest start time that keeps gap between
// consecutive reservations. The first reservation starts immediately.
func nextSlot(now, last time.Time, gap time.Duration) time.Time {
	if last.IsZero() {
		return now
	}
	at := last.Add(gap)
	if at.Before(now) {
		return now
	}
	return at
}

func waitUntil(ctx context.Context, at time.Time) error {
	return timeutil.SleepContext(ctx, time.Until(at))
}

// reserve claims the next slot after *last and waits for it. gap is
// evaluated with mu held. A slot abandoned by a cancelled caller is given
// back unless a later caller has already reserved behind it.
func reserve(ctx context.Context, mu *sync.Mutex, last *time.Time, gap func() time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	mu.Lock()
	prev := *last
	at := nextSlot(time.Now(), prev, gap())
	*last = at
	mu.Unlock()

	if err := waitUntil(ctx, at); err != nil {
		mu.Lock()
		if last.Equal(at) {
			*last = prev
		}
		mu.Unlock()
		return err
	}
	return nil
}

// FixedLimiter enforces a constant minimum interval of 1/rps.
type FixedLimiter struct {
	mu          sync.Mutex
	interval    time.Duration
	lastRequest time.Time
	failures    int
}

func NewFixedLimiter(rps float64) *FixedLimiter {
	return &FixedLimiter{interval: intervalFor(rps)}
}

func (f *FixedLimiter) Acquire(ctx context.Context) error {
	return reserve(ctx, &f.mu, &f.lastRequest, func() time.Duration {
		return f.interval
	})
}

func (f *FixedLimiter) RecordSuccess() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = 0
}

func (f *FixedLimiter) RecordFailure() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures++
}

func (f *FixedLimiter) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return State{
		Strategy:            StrategyFixed,
		Delay:               f.interval,
		ConsecutiveFailures: f.failures,
		LastRequest:         f.lastRequest,
	}
}

// ExponentialLimiter spaces requests by factor^failures seconds after
// consecutive failures, and by 1/rps otherwise.
type ExponentialLimiter struct {
	mu          sync.Mutex
	interval    time.Duration
	factor      float64
	failures    int
	lastRequest time.Time
}

func NewExponentialLimiter(rps float64, factor float64) *ExponentialLimiter {
	return &ExponentialLimiter{interval: intervalFor(rps), factor: factor}
}

// backoff must be called with e.mu held.
func (e *ExponentialLimiter) backoff() time.Duration {
	if e.failures == 0 {
		return 0
	}
	seconds := math.Pow(e.factor, float64(e.failures))
	if seconds >= maxExponentialDelay.Seconds() {
		return maxExponentialDelay
	}
	return time.Duration(seconds * float64(time.Second))
}

func (e *ExponentialLimiter) Acquire(ctx context.Context) error {
	return reserve(ctx, &e.mu, &e.lastRequest, func() time.Duration {
		return timeutil.MaxDuration([]time.Duration{e.interval, e.backoff()})
	})
}

func (e *ExponentialLimiter) RecordSuccess() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures = 0
}

func (e *ExponentialLimiter) RecordFailure() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures++
}

func (e *ExponentialLimiter) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{
		Strategy:            StrategyExponential,
		Delay:               e.backoff(),
		ConsecutiveFailures: e.failures,
		LastRequest:         e.lastRequest,
	}
}

// AdaptiveLimiter widens its delay on failure and narrows it on success,
// within [1/(2*rps), 5s].
type AdaptiveLimiter struct {
	mu          sync.Mutex
	delay       time.Duration
	floor       time.Duration
	failures    int
	lastRequest time.Time
}

func NewAdaptiveLimiter(rps float64) *AdaptiveLimiter {
	interval := intervalFor(rps)
	floor := intervalFor(2 * rps)
	return &AdaptiveLimiter{
		delay: timeutil.ClampDuration(interval, floor, maxAdaptiveDelay),
		floor: floor,
	}
}

func (a *AdaptiveLimiter) Acquire(ctx context.Context) error {
	return reserve(ctx, &a.mu, &a.lastRequest, func() time.Duration {
		return a.delay
	})
}

func (a *AdaptiveLimiter) scale(factor float64) {
	scaled := time.Duration(float64(a.delay) * factor)
	a.delay = timeutil.ClampDuration(scaled, a.floor, maxAdaptiveDelay)
}

func (a *AdaptiveLimiter) RecordSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures = 0
	a.scale(adaptiveDecrease)
}

func (a *AdaptiveLimiter) RecordFailure() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures++
	a.scale(adaptiveIncrease)
}

func (a *AdaptiveLimiter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return State{
		Strategy:            StrategyAdaptive,
		Delay:               a.delay,
		ConsecutiveFailures: a.failures,
		LastRequest:         a.lastRequest,
	}
}

// TokenBucketLimiter holds up to burst tokens refilled at rps per second.
// The bucket starts full.
type TokenBucketLimiter struct {
	bucket *rate.Limiter

	mu          sync.Mutex
	failures    int
	lastRequest time.Time
}

func NewTokenBucketLimiter(rps float64, burst int) *TokenBucketLimiter {
	return &TokenBucketLimiter{bucket: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (t *TokenBucketLimiter) Acquire(ctx context.Context) error {
	if err := t.bucket.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		// the reservation would outlive the context deadline
		return fmt.Errorf("acquire token: %w", context.DeadlineExceeded)
	}
	t.mu.Lock()
	t.lastRequest = time.Now()
	t.mu.Unlock()
	return nil
}

func (t *TokenBucketLimiter) RecordSuccess() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures = 0
}

func (t *TokenBucketLimiter) RecordFailure() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures++
}

func (t *TokenBucketLimiter) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	tokens := t.bucket.Tokens()
	if tokens < 0 {
		tokens = 0
	}
	return State{
		Strategy:            StrategyTokenBucket,
		Tokens:              tokens,
		Delay:               intervalFor(float64(t.bucket.Limit())),
		ConsecutiveFailures: t.failures,
		LastRequest:         t.lastRequest,
	}
}
