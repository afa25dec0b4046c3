package scheduler_test

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/rohmanhakim/fetchkit/internal/fetcher"
	"github.com/rohmanhakim/fetchkit/internal/metadata"
	"github.com/stretchr/testify/require"
)

type testRequest struct {
	url      string
	priority int
	fail     bool
	delay    time.Duration
}

func (r testRequest) PriorityLevel() int { return r.priority }
func (r testRequest) Target() string     { return r.url }

type batchStats struct {
	batchID   string
	total     int
	succeeded int
	failed    int
}

type recordingSink struct {
	metadata.NoopSink
	mu     sync.Mutex
	errors []metadata.ErrorCause
	attrs  [][]metadata.Attribute
	stats  []batchStats
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
	s.errors = append(s.errors, cause)
	s.attrs = append(s.attrs, attrs)
}

func (s *recordingSink) RecordBatchStats(batchID string, total int, succeeded int, failed int, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = append(s.stats, batchStats{batchID: batchID, total: total, succeeded: succeeded, failed: failed})
}

// peakGauge remembers the highest value it reached.
type peakGauge struct {
	mu      sync.Mutex
	current int
	peak    int
}

func (g *peakGauge) Inc() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current++
	g.peak = max(g.peak, g.current)
}

func (g *peakGauge) Dec() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current--
}

// fakeFetch serves testRequest values and logs the order of calls.
type fakeFetch struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeFetch) fetch(t *testing.T) func(ctx context.Context, r testRequest) (fetcher.FetchResult, error) {
	return func(ctx context.Context, r testRequest) (fetcher.FetchResult, error) {
		f.mu.Lock()
		f.calls = append(f.calls, r.url)
		f.mu.Unlock()

		if r.delay > 0 {
			select {
			case <-time.After(r.delay):
			case <-ctx.Done():
				return fetcher.FetchResult{}, ctx.Err()
			}
		}
		if r.fail {
			return fetcher.FetchResult{}, &fetcher.ExhaustedError{URL: r.url}
		}
		u, err := url.Parse(r.url)
		require.NoError(t, err)
		return fetcher.NewFetchResult(*u, fetcher.Page{Content: r.url}, fetcher.FormatMarkdown, time.Now(), nil), nil
	}
}

func urlsOf(results []fetcher.FetchResult) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.URL())
	}
	return out
}

var errBoom = errors.New("boom")
