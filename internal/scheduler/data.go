package scheduler

import (
	"context"

	"github.com/rohmanhakim/fetchkit/internal/fetcher"
)

// Request is one unit of batch work.
type Request interface {
	// PriorityLevel orders the queue; higher runs first.
	PriorityLevel() int
	// Target names the request in records, usually its URL.
	Target() string
}

// FetchFunc serves one request. It is called from several workers at once.
type FetchFunc[R Request] func(ctx context.Context, request R) (fetcher.FetchResult, error)

// Gauge tracks the number of requests in flight. prometheus.Gauge
// satisfies it.
type Gauge interface {
	Inc()
	Dec()
}

// BatchReport summarizes one finished batch.
type BatchReport struct {
	BatchID   string
	Total     int
	Succeeded int
	Failed    int
}
