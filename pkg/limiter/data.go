package limiter

import (
	"fmt"
	"time"
)

type Strategy string

const (
	StrategyFixed       Strategy = "fixed"
	StrategyExponential Strategy = "exponential"
	StrategyAdaptive    Strategy = "adaptive"
	StrategyTokenBucket Strategy = "token_bucket"
)

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyFixed, StrategyExponential, StrategyAdaptive, StrategyTokenBucket:
		return Strategy(s), nil
	default:
		return "", &LimiterError{
			Message: fmt.Sprintf("unknown rate limit strategy %q", s),
			Cause:   ErrCauseUnknownStrategy,
		}
	}
}

// Param configures every strategy. Fields a strategy does not use are ignored.
type Param struct {
	RequestsPerSecond float64
	BurstLimit        int
	BackoffFactor     float64
}

// State is a point-in-time snapshot of a limiter.
type State struct {
	Strategy            Strategy
	Tokens              float64
	Delay               time.Duration
	ConsecutiveFailures int
	LastRequest         time.Time
}

const (
	maxExponentialDelay = 60 * time.Second
	maxAdaptiveDelay    = 5 * time.Second
	adaptiveIncrease    = 1.5
	adaptiveDecrease    = 0.95
)
