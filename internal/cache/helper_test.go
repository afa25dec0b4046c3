package cache_test

import (
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/rohmanhakim/fetchkit/internal/fetcher"
	"github.com/rohmanhakim/fetchkit/internal/metadata"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type cacheEvent struct {
	outcome metadata.CacheOutcome
	tier    string
	key     string
}

type recordingSink struct {
	metadata.NoopSink
	mu     sync.Mutex
	events []cacheEvent
	causes []metadata.ErrorCause
}

func (s *recordingSink) RecordCache(outcome metadata.CacheOutcome, tier string, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, cacheEvent{outcome: outcome, tier: tier, key: key})
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

func (s *recordingSink) count(outcome metadata.CacheOutcome, tier string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e.outcome == outcome && e.tier == tier {
			n++
		}
	}
	return n
}

func sampleResult(t *testing.T, rawUrl string, content string) fetcher.FetchResult {
	t.Helper()
	u, err := url.Parse(rawUrl)
	require.NoError(t, err)
	return fetcher.NewFetchResult(
		*u,
		fetcher.Page{Content: content, Title: "Title"},
		fetcher.FormatMarkdown,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		map[string]string{"strategy": fetcher.StrategyDirectHTTP},
	)
}
