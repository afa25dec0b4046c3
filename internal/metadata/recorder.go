package metadata

import (
	"time"

	"go.uber.org/zap"
)

/*
Metadata Collected
- Fetch timestamps, durations and the strategy that served them
- HTTP status codes
- Cache hits, misses and evictions
- Batch summaries

Logging Goals
- Debuggable retrieval behavior
- Post-run auditability
- Failure diagnostics

Metadata is write-only.
No component may read metadata to influence fallback, caching or scheduling.
*/

/*
Recorder captures structured retrieval events and writes them through zap.
It must not:
- perform I/O decisions
- affect control flow
Ordering guarantees:
- Events are recorded synchronously in the order they are received by a single worker.
- No global ordering across workers is guaranteed.
*/
type Recorder struct {
	logger   *zap.Logger
	workerId string
}

func NewRecorder(logger *zap.Logger, workerId string) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		logger:   logger.With(zap.String("worker_id", workerId)),
		workerId: workerId,
	}
}

// WithWorker returns a recorder that tags its events with another worker id.
func (r *Recorder) WithWorker(workerId string) *Recorder {
	return &Recorder{
		logger:   r.logger.With(zap.String("worker_id", workerId)),
		workerId: workerId,
	}
}

func (r *Recorder) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	errorString string,
	attrs []Attribute,
) {
	fields := append([]zap.Field{
		zap.Time("observed_at", observedAt),
		zap.String("package", packageName),
		zap.String("action", action),
		zap.String("cause", cause.String()),
		zap.String("error", errorString),
	}, attrFields(attrs)...)
	r.logger.Warn("operation failed", fields...)
}

func (r *Recorder) RecordFetch(event FetchEvent) {
	r.logger.Info("fetch completed",
		zap.String("url", event.fetchUrl),
		zap.String("strategy", event.strategy),
		zap.Int("http_status", event.httpStatus),
		zap.Duration("duration", event.duration),
		zap.String("content_type", event.contentType),
		zap.Int("attempt", event.attempt),
	)
}

func (r *Recorder) RecordCache(outcome CacheOutcome, tier string, key string) {
	r.logger.Debug("cache event",
		zap.String("outcome", string(outcome)),
		zap.String("tier", tier),
		zap.String("key", key),
	)
}

func (r *Recorder) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {
	fields := append([]zap.Field{
		zap.String("kind", string(kind)),
		zap.String("path", path),
	}, attrFields(attrs)...)
	r.logger.Info("artifact written", fields...)
}

/*
RecordBatchStats records a terminal, derived summary of a completed batch.

Contract:
  - MUST be called exactly once per batch, after the queue drained.
  - The provided counts MUST be derived from scheduler state.
  - Recorded stats MUST NOT influence control flow or scheduling.
*/
func (r *Recorder) RecordBatchStats(
	batchID string,
	total int,
	succeeded int,
	failed int,
	duration time.Duration,
) {
	stats := batchStats{
		batchID:    batchID,
		total:      total,
		succeeded:  succeeded,
		failed:     failed,
		durationMs: duration.Milliseconds(),
	}
	r.logger.Info("batch completed",
		zap.String("batch_id", stats.batchID),
		zap.Int("total", stats.total),
		zap.Int("succeeded", stats.succeeded),
		zap.Int("failed", stats.failed),
		zap.Int64("duration_ms", stats.durationMs),
	)
}

func attrFields(attrs []Attribute) []zap.Field {
	fields := make([]zap.Field, 0, len(attrs))
	for _, a := range attrs {
		fields = append(fields, zap.String(string(a.Key), a.Value))
	}
	return fields
}

func NewFetchEvent(
	fetchUrl string,
	strategy string,
	httpStatus int,
	duration time.Duration,
	contentType string,
	attempt int,
) FetchEvent {
	return FetchEvent{
		fetchUrl:    fetchUrl,
		strategy:    strategy,
		httpStatus:  httpStatus,
		duration:    duration,
		contentType: contentType,
		attempt:     attempt,
	}
}

func (e FetchEvent) URL() string             { return e.fetchUrl }
func (e FetchEvent) Strategy() string        { return e.strategy }
func (e FetchEvent) HTTPStatus() int         { return e.httpStatus }
func (e FetchEvent) Duration() time.Duration { return e.duration }
func (e FetchEvent) ContentType() string     { return e.contentType }
func (e FetchEvent) Attempt() int            { return e.attempt }

type MetadataSink interface {
	RecordError(
		observedAt time.Time,
		packageName string,
		action string,
		cause ErrorCause,
		details string,
		attrs []Attribute,
	)
	RecordFetch(event FetchEvent)
	RecordCache(outcome CacheOutcome, tier string, key string)
	RecordArtifact(kind ArtifactKind, path string, attrs []Attribute)
}

type BatchFinalizer interface {
	RecordBatchStats(
		batchID string,
		total int,
		succeeded int,
		failed int,
		duration time.Duration,
	)
}

var (
	_ MetadataSink   = (*Recorder)(nil)
	_ BatchFinalizer = (*Recorder)(nil)
	_ MetadataSink   = (*NoopSink)(nil)
	_ BatchFinalizer = (*NoopSink)(nil)
)

// NoopSink implements metadata.MetadataSink but does nothing.
// Components (or tests) decide whether to inject a Recorder or a NoopSink.

type NoopSink struct{}

func (n *NoopSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	errorString string,
	attrs []Attribute,
) {
}

func (n *NoopSink) RecordFetch(event FetchEvent) {}

func (n *NoopSink) RecordCache(outcome CacheOutcome, tier string, key string) {}

func (n *NoopSink) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {}

func (n *NoopSink) RecordBatchStats(batchID string, total int, succeeded int, failed int, duration time.Duration) {
}
