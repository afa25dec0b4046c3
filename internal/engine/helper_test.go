package engine_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rohmanhakim/fetchkit/internal/config"
	"github.com/rohmanhakim/fetchkit/internal/metadata"
	"github.com/stretchr/testify/require"
)

const guideHTML = `<!DOCTYPE html>
<html><head><title>Caching Guide</title>
<meta name="description" content="How the cache works"></head>
<body>
<main>
<h1>Caching Guide</h1>
<p>The cache keeps recently fetched pages in memory and on disk so repeated requests are served quickly.</p>
<table><tr><th>Tier</th><th>Scope</th></tr><tr><td>memory</td><td>process</td></tr></table>
<pre><code class="language-go">cache.Get(ctx, key)</code></pre>
</main>
</body></html>`

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

// site serves guideHTML on every path except /missing and counts page hits.
type site struct {
	*httptest.Server
	hits atomic.Int64
}

func newSite(t *testing.T) *site {
	t.Helper()
	s := &site{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		s.hits.Add(1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(guideHTML))
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *site) url(t *testing.T, path string) url.URL {
	t.Helper()
	u, err := url.Parse(s.URL + path)
	require.NoError(t, err)
	return *u
}

// testConfig is a fast memory-cached configuration.
func testConfig() *config.Config {
	return config.WithDefault().
		WithRequestsPerSecond(1000).
		WithBurstLimit(10).
		WithMaxRetries(1).
		WithTimeout(5 * time.Second).
		WithUserAgent("fetchkit-test")
}

func buildConfig(t *testing.T, builder *config.Config) config.Config {
	t.Helper()
	cfg, err := builder.Build()
	require.NoError(t, err)
	return cfg
}

type recordingSink struct {
	metadata.NoopSink
	mu      sync.Mutex
	errors  []string
	batches int
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
	s.errors = append(s.errors, packageName+"/"+action)
}

func (s *recordingSink) RecordBatchStats(batchID string, total int, succeeded int, failed int, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches++
}

func (s *recordingSink) errorActions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.errors...)
}
