package limiter_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rohmanhakim/fetchkit/pkg/limiter"
	"github.com/stretchr/testify/assert"
)

func TestFixedLimiter_ConcurrentCallersShareTheRate(t *testing.T) {
	rl := limiter.NewFixedLimiter(100) // 10ms interval
	const callers = 10

	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, rl.Acquire(context.Background()))
		}()
	}
	wg.Wait()

	assert.GreaterOrEqual(t, time.Since(start), 85*time.Millisecond)
}

func TestAdaptiveLimiter_ConcurrentFeedback(t *testing.T) {
	rl := limiter.NewAdaptiveLimiter(50)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			rl.RecordFailure()
		}()
		go func() {
			defer wg.Done()
			rl.RecordSuccess()
		}()
	}
	wg.Wait()

	delay := rl.State().Delay
	assert.GreaterOrEqual(t, delay, 10*time.Millisecond)
	assert.LessOrEqual(t, delay, 5*time.Second)
}
