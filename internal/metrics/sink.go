package metrics

import (
	"time"

	"github.com/rohmanhakim/fetchkit/internal/metadata"
)

var (
	_ metadata.MetadataSink   = (*Sink)(nil)
	_ metadata.BatchFinalizer = (*Sink)(nil)
)

// Sink counts metadata events and forwards each one to the wrapped sink
// unchanged.
type Sink struct {
	next      metadata.MetadataSink
	finalizer metadata.BatchFinalizer
	metrics   *Metrics
}

// NewSink wraps next. Batch statistics are forwarded when next is also a
// metadata.BatchFinalizer.
func NewSink(next metadata.MetadataSink, m *Metrics) *Sink {
	if next == nil {
		next = &metadata.NoopSink{}
	}
	finalizer, ok := next.(metadata.BatchFinalizer)
	if !ok {
		finalizer = &metadata.NoopSink{}
	}
	return &Sink{next: next, finalizer: finalizer, metrics: m}
}

func (s *Sink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause metadata.ErrorCause,
	details string,
	attrs []metadata.Attribute,
) {
	s.metrics.ErrorsTotal.WithLabelValues(packageName, cause.String()).Inc()
	if strategy, ok := attrValue(attrs, metadata.AttrStrategy); ok {
		s.metrics.StrategyAttemptsTotal.WithLabelValues(strategy, "failure").Inc()
	}
	s.next.RecordError(observedAt, packageName, action, cause, details, attrs)
}

func (s *Sink) RecordFetch(event metadata.FetchEvent) {
	s.metrics.StrategyAttemptsTotal.WithLabelValues(event.Strategy(), "success").Inc()
	s.metrics.FetchDurationSeconds.WithLabelValues(event.Strategy()).Observe(event.Duration().Seconds())
	s.next.RecordFetch(event)
}

func (s *Sink) RecordCache(outcome metadata.CacheOutcome, tier string, key string) {
	s.metrics.CacheEventsTotal.WithLabelValues(tier, string(outcome)).Inc()
	s.next.RecordCache(outcome, tier, key)
}

func (s *Sink) RecordArtifact(kind metadata.ArtifactKind, path string, attrs []metadata.Attribute) {
	s.next.RecordArtifact(kind, path, attrs)
}

func (s *Sink) RecordBatchStats(batchID string, total int, succeeded int, failed int, duration time.Duration) {
	s.metrics.BatchRequestsTotal.WithLabelValues("succeeded").Add(float64(succeeded))
	s.metrics.BatchRequestsTotal.WithLabelValues("failed").Add(float64(failed))
	s.finalizer.RecordBatchStats(batchID, total, succeeded, failed, duration)
}

func attrValue(attrs []metadata.Attribute, key metadata.AttributeKey) (string, bool) {
	for _, attr := range attrs {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}
