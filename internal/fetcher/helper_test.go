package fetcher_test

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/rohmanhakim/fetchkit/internal/fetcher"
	"github.com/rohmanhakim/fetchkit/internal/metadata"
	"github.com/rohmanhakim/fetchkit/pkg/failure"
	"github.com/rohmanhakim/fetchkit/pkg/limiter"
	"github.com/rohmanhakim/fetchkit/pkg/retry"
	"github.com/rohmanhakim/fetchkit/pkg/timeutil"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	metadata.NoopSink
	mu      sync.Mutex
	fetches []metadata.FetchEvent
	causes  []metadata.ErrorCause
}

func (s *recordingSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause metadata.ErrorCause,
	details string,
	attrs []metadata.Attribute,
) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.causes = append(s.causes, cause)
}

func (s *recordingSink) RecordFetch(event metadata.FetchEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches = append(s.fetches, event)
}

type countingLimiter struct {
	mu         sync.Mutex
	acquires   int
	successes  int
	failures   int
	acquireErr error
}

func (c *countingLimiter) Acquire(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.acquires++
	if c.acquireErr != nil {
		return c.acquireErr
	}
	return ctx.Err()
}

func (c *countingLimiter) RecordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.successes++
}

func (c *countingLimiter) RecordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures++
}

func (c *countingLimiter) State() limiter.State {
	return limiter.State{}
}

// fakeStrategy returns a canned page or error and counts its calls.
type fakeStrategy struct {
	name      string
	available bool
	page      fetcher.Page
	err       failure.ClassifiedError
	// block makes Retrieve wait for ctx to end.
	block bool
	calls int
	seen  []fetcher.Format
}

func (f *fakeStrategy) Name() string    { return f.name }
func (f *fakeStrategy) Available() bool { return f.available }

func (f *fakeStrategy) Retrieve(ctx context.Context, param fetcher.FetchParam, format fetcher.Format) (fetcher.Page, failure.ClassifiedError) {
	f.calls++
	f.seen = append(f.seen, format)
	if f.block {
		<-ctx.Done()
		return fetcher.Page{}, &fetcher.FetchError{Message: ctx.Err().Error(), Cause: fetcher.ErrCauseTimeout}
	}
	if f.err != nil {
		return fetcher.Page{}, f.err
	}
	return f.page, nil
}

func mustURL(t *testing.T, raw string) url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return *u
}

func fastRetryParam(attempts int) retry.RetryParam {
	return retry.NewRetryParam(0, 1, attempts, timeutil.NewBackoffParam(time.Millisecond, 2, 5*time.Millisecond))
}

const articleHTML = `<!DOCTYPE html>
<html><head><title>Caching Guide</title>
<meta name="description" content="How the cache works"></head>
<body>
<nav><a href="/home">Home</a></nav>
<main>
<h1>Caching Guide</h1>
<p>The cache keeps recently fetched pages in memory and on disk so repeated requests are served quickly.</p>
<p>See the <a href="/docs/ttl">TTL rules</a> for details.</p>
<img src="/img/diagram.png" alt="diagram">
</main>
<footer>footer text</footer>
</body></html>`
