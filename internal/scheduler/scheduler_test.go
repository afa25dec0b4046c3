package scheduler_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rohmanhakim/fetchkit/internal/fetcher"
	"github.com/rohmanhakim/fetchkit/internal/metadata"
	"github.com/rohmanhakim/fetchkit/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScrapeBatch_PriorityOrder(t *testing.T) {
	sink := &recordingSink{}
	fake := &fakeFetch{}
	s := scheduler.NewBatchScheduler(scheduler.Param{MetadataSink: sink, BatchFinalizer: sink}, fake.fetch(t))

	requests := []testRequest{
		{url: "https://example.com/low", priority: 0},
		{url: "https://example.com/high", priority: 2},
		{url: "https://example.com/normal", priority: 1},
	}
	results := s.ScrapeBatch(context.Background(), requests, 1)

	want := []string{"https://example.com/high", "https://example.com/normal", "https://example.com/low"}
	assert.Equal(t, want, fake.calls)
	assert.Equal(t, want, urlsOf(results))
}

func TestScrapeBatch_ResultsInDequeueOrder(t *testing.T) {
	fake := &fakeFetch{}
	s := scheduler.NewBatchScheduler(scheduler.Param{}, fake.fetch(t))

	// earlier requests take longer so completion order is reversed
	requests := []testRequest{
		{url: "https://example.com/1", priority: 1, delay: 60 * time.Millisecond},
		{url: "https://example.com/2", priority: 1, delay: 30 * time.Millisecond},
		{url: "https://example.com/3", priority: 1},
	}
	results := s.ScrapeBatch(context.Background(), requests, 3)

	assert.Equal(t, []string{"https://example.com/1", "https://example.com/2", "https://example.com/3"}, urlsOf(results))
}

func TestScrapeBatch_FailuresOmittedAndRecorded(t *testing.T) {
	sink := &recordingSink{}
	fake := &fakeFetch{}
	s := scheduler.NewBatchScheduler(scheduler.Param{MetadataSink: sink, BatchFinalizer: sink}, fake.fetch(t))

	requests := []testRequest{
		{url: "https://example.com/ok-1", priority: 1},
		{url: "https://example.com/bad", priority: 1, fail: true},
		{url: "https://example.com/ok-2", priority: 1},
	}
	results, report := s.ScrapeBatchReport(context.Background(), requests, 2)

	assert.Equal(t, []string{"https://example.com/ok-1", "https://example.com/ok-2"}, urlsOf(results))
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed)

	require.Len(t, sink.errors, 1)
	assert.Equal(t, metadata.CauseNetworkFailure, sink.errors[0])
	assert.Contains(t, sink.attrs[0], metadata.NewAttr(metadata.AttrURL, "https://example.com/bad"))
	assert.Contains(t, sink.attrs[0], metadata.NewAttr(metadata.AttrBatchID, report.BatchID))

	require.Len(t, sink.stats, 1)
	assert.Equal(t, report.BatchID, sink.stats[0].batchID)
	assert.Equal(t, 2, sink.stats[0].succeeded)
	assert.Equal(t, 1, sink.stats[0].failed)
}

func TestScrapeBatch_BoundedConcurrency(t *testing.T) {
	gauge := &peakGauge{}
	fake := &fakeFetch{}
	s := scheduler.NewBatchScheduler(scheduler.Param{InFlight: gauge}, fake.fetch(t))

	requests := make([]testRequest, 12)
	for i := range requests {
		requests[i] = testRequest{url: fmt.Sprintf("https://example.com/%d", i), delay: 20 * time.Millisecond}
	}
	results := s.ScrapeBatch(context.Background(), requests, 3)

	assert.Len(t, results, 12)
	assert.LessOrEqual(t, gauge.peak, 3)
	assert.Equal(t, 0, gauge.current)
}

func TestScrapeBatch_ConcurrencyAboveQueueLength(t *testing.T) {
	gauge := &peakGauge{}
	fake := &fakeFetch{}
	s := scheduler.NewBatchScheduler(scheduler.Param{InFlight: gauge}, fake.fetch(t))

	requests := []testRequest{
		{url: "https://example.com/a", delay: 10 * time.Millisecond},
		{url: "https://example.com/b", delay: 10 * time.Millisecond},
	}

	done := make(chan []fetcher.FetchResult, 1)
	go func() { done <- s.ScrapeBatch(context.Background(), requests, 50) }()

	select {
	case results := <-done:
		assert.Len(t, results, 2)
		assert.LessOrEqual(t, gauge.peak, 2)
	case <-time.After(5 * time.Second):
		t.Fatal("batch did not drain")
	}
}

func TestScrapeBatch_EmptyAndZeroConcurrency(t *testing.T) {
	sink := &recordingSink{}
	fake := &fakeFetch{}
	s := scheduler.NewBatchScheduler(scheduler.Param{BatchFinalizer: sink}, fake.fetch(t))

	assert.Empty(t, s.ScrapeBatch(context.Background(), nil, 4))

	results := s.ScrapeBatch(context.Background(), []testRequest{{url: "https://example.com/a"}}, 0)
	assert.Len(t, results, 1)
	assert.Len(t, sink.stats, 2)
}

func TestScrapeBatch_CancelledContextStops(t *testing.T) {
	sink := &recordingSink{}
	fake := &fakeFetch{}
	s := scheduler.NewBatchScheduler(scheduler.Param{MetadataSink: sink, BatchFinalizer: sink}, fake.fetch(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, report := s.ScrapeBatchReport(ctx, []testRequest{
		{url: "https://example.com/a"},
		{url: "https://example.com/b"},
	}, 2)

	assert.Empty(t, results)
	assert.Empty(t, fake.calls)
	assert.Equal(t, 2, report.Failed)
}

func TestMapFailureCauses(t *testing.T) {
	sink := &recordingSink{}
	fetch := func(ctx context.Context, r testRequest) (fetcher.FetchResult, error) {
		switch r.url {
		case "timeout":
			return fetcher.FetchResult{}, &fetcher.TimeoutError{URL: r.url}
		default:
			return fetcher.FetchResult{}, errBoom
		}
	}
	s := scheduler.NewBatchScheduler(scheduler.Param{MetadataSink: sink}, fetch)

	s.ScrapeBatch(context.Background(), []testRequest{{url: "timeout", priority: 1}, {url: "other"}}, 1)

	assert.Equal(t, []metadata.ErrorCause{metadata.CauseDeadlineExceeded, metadata.CauseUnknown}, sink.errors)
}
