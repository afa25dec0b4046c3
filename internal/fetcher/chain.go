package fetcher

import (
	"context"
	"errors"
	"time"

	"github.com/rohmanhakim/fetchkit/internal/metadata"
	"github.com/rohmanhakim/fetchkit/pkg/limiter"
)

/*
Responsibilities

- Pace retrievals through the rate limiter
- Try strategies in order until one succeeds
- Bound the whole retrieval by one deadline
- Report every attempt

Chain Semantics

- The rate limiter is acquired once per Fetch, before the first strategy
- A strategy that is not available is skipped, not failed
- The first success ends the chain and is reported to the limiter as a success
- When the deadline elapses the chain stops; no later strategy is tried
- When all strategies fail the limiter records one failure
*/
type Chain struct {
	metadataSink metadata.MetadataSink
	rateLimiter  limiter.RateLimiter
	strategies   []Strategy
}

func NewChain(
	metadataSink metadata.MetadataSink,
	rateLimiter limiter.RateLimiter,
	strategies ...Strategy,
) *Chain {
	return &Chain{
		metadataSink: metadataSink,
		rateLimiter:  rateLimiter,
		strategies:   strategies,
	}
}

// StrategyNames lists the strategies in the order they are tried.
func (c *Chain) StrategyNames() []string {
	names := make([]string, 0, len(c.strategies))
	for _, s := range c.strategies {
		names = append(names, s.Name())
	}
	return names
}

func (c *Chain) Fetch(ctx context.Context, param FetchParam) (Outcome, error) {
	if param.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, param.Timeout)
		defer cancel()
	}

	format := PrimaryFormat(param.Formats)
	fetchUrl := param.URL.String()

	var limiterWait time.Duration
	if c.rateLimiter != nil {
		waitStart := time.Now()
		if err := c.rateLimiter.Acquire(ctx); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return Outcome{LimiterWait: time.Since(waitStart)}, c.timeout(fetchUrl, param.Timeout, nil)
			}
			return Outcome{LimiterWait: time.Since(waitStart)}, err
		}
		limiterWait = time.Since(waitStart)
	}

	var attempts []Attempt
	tried := 0
	for _, strategy := range c.strategies {
		if !strategy.Available() {
			attempts = append(attempts, Attempt{Strategy: strategy.Name(), Skipped: true})
			continue
		}
		tried++

		start := time.Now()
		page, err := strategy.Retrieve(ctx, param, format)
		duration := time.Since(start)

		if err == nil {
			attempts = append(attempts, Attempt{Strategy: strategy.Name(), Duration: duration})
			c.recordSuccess()
			c.metadataSink.RecordFetch(metadata.NewFetchEvent(
				fetchUrl,
				strategy.Name(),
				page.StatusCode,
				duration,
				page.ContentType,
				tried,
			))
			result := NewFetchResult(param.URL, page, format, time.Now(), map[string]string{
				"strategy": strategy.Name(),
			})
			return Outcome{Result: result, Attempts: attempts, LimiterWait: limiterWait}, nil
		}

		attempts = append(attempts, Attempt{Strategy: strategy.Name(), Err: err, Duration: duration})

		if ctxErr := ctx.Err(); ctxErr != nil {
			c.recordFailure()
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				return Outcome{Attempts: attempts, LimiterWait: limiterWait}, c.timeout(fetchUrl, param.Timeout, attempts)
			}
			return Outcome{Attempts: attempts, LimiterWait: limiterWait}, ctxErr
		}

		c.metadataSink.RecordError(
			time.Now(),
			"fetcher",
			"Chain.Fetch",
			mapFetchErrorToMetadataCause(err),
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, fetchUrl),
				metadata.NewAttr(metadata.AttrStrategy, strategy.Name()),
			},
		)
	}

	c.recordFailure()
	exhausted := &ExhaustedError{URL: fetchUrl, Attempts: attempts}
	c.metadataSink.RecordError(
		time.Now(),
		"fetcher",
		"Chain.Fetch",
		mapFetchErrorToMetadataCause(exhausted),
		exhausted.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, fetchUrl),
		},
	)
	return Outcome{Attempts: attempts, LimiterWait: limiterWait}, exhausted
}

func (c *Chain) timeout(fetchUrl string, timeout time.Duration, attempts []Attempt) *TimeoutError {
	timeoutErr := &TimeoutError{URL: fetchUrl, Timeout: timeout, Attempts: attempts}
	c.metadataSink.RecordError(
		time.Now(),
		"fetcher",
		"Chain.Fetch",
		mapFetchErrorToMetadataCause(timeoutErr),
		timeoutErr.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, fetchUrl),
		},
	)
	return timeoutErr
}

func (c *Chain) recordSuccess() {
	if c.rateLimiter != nil {
		c.rateLimiter.RecordSuccess()
	}
}

func (c *Chain) recordFailure() {
	if c.rateLimiter != nil {
		c.rateLimiter.RecordFailure()
	}
}
