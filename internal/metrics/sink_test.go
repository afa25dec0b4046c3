package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rohmanhakim/fetchkit/internal/metadata"
	"github.com/rohmanhakim/fetchkit/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSink struct {
	metadata.NoopSink
	errors    int
	fetches   int
	caches    int
	artifacts int
	batches   int
}

func (s *countingSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause metadata.ErrorCause,
	details string,
	attrs []metadata.Attribute,
) {
	s.errors++
}

func (s *countingSink) RecordFetch(event metadata.FetchEvent) { s.fetches++ }

func (s *countingSink) RecordCache(outcome metadata.CacheOutcome, tier string, key string) {
	s.caches++
}

func (s *countingSink) RecordArtifact(kind metadata.ArtifactKind, path string, attrs []metadata.Attribute) {
	s.artifacts++
}

func (s *countingSink) RecordBatchStats(batchID string, total int, succeeded int, failed int, duration time.Duration) {
	s.batches++
}

func TestSink_CountsAndForwards(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	next := &countingSink{}
	sink := metrics.NewSink(next, m)

	sink.RecordCache(metadata.CacheHit, "memory", "k1")
	sink.RecordCache(metadata.CacheHit, "memory", "k2")
	sink.RecordCache(metadata.CacheMiss, "persistent", "k3")
	sink.RecordFetch(metadata.NewFetchEvent("https://example.com", "direct_http", 200, 120*time.Millisecond, "text/html", 1))
	sink.RecordError(time.Now(), "fetcher", "Chain.Fetch", metadata.CauseNetworkFailure, "boom", []metadata.Attribute{
		metadata.NewAttr(metadata.AttrStrategy, "remote_api"),
	})
	sink.RecordError(time.Now(), "cache", "Manager.Get", metadata.CauseStorageFailure, "disk", nil)
	sink.RecordArtifact(metadata.ArtifactResult, "/tmp/x.md", nil)
	sink.RecordBatchStats("batch-1", 5, 4, 1, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheEventsTotal.WithLabelValues("memory", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheEventsTotal.WithLabelValues("persistent", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StrategyAttemptsTotal.WithLabelValues("direct_http", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StrategyAttemptsTotal.WithLabelValues("remote_api", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("fetcher", "network_failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("cache", "storage_failure")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.BatchRequestsTotal.WithLabelValues("succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchRequestsTotal.WithLabelValues("failed")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.FetchDurationSeconds))

	assert.Equal(t, 2, next.errors)
	assert.Equal(t, 1, next.fetches)
	assert.Equal(t, 3, next.caches)
	assert.Equal(t, 1, next.artifacts)
	assert.Equal(t, 1, next.batches)
}

func TestSink_NextWithoutFinalizer(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	sink := metrics.NewSink(nil, m)

	assert.NotPanics(t, func() {
		sink.RecordBatchStats("batch-1", 1, 1, 0, time.Millisecond)
	})
}

func TestHandler_ServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	m.ObserveLimiterWait(250 * time.Millisecond)
	m.BatchInFlight.Inc()

	rec := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "fetchkit_ratelimit_wait_seconds_count 1")
	assert.Contains(t, body, "fetchkit_batch_in_flight 1")
}
