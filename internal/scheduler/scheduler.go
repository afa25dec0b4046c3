package scheduler

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rohmanhakim/fetchkit/internal/fetcher"
	"github.com/rohmanhakim/fetchkit/internal/frontier"
	"github.com/rohmanhakim/fetchkit/internal/metadata"
	"golang.org/x/sync/errgroup"
)

/*
 BatchScheduler drives many fetches through a fixed worker pool.

 Ordering and concurrency guarantees:
 - Requests leave the queue highest priority first, FIFO among equals.
 - At most min(concurrency, len(requests)) fetches are in flight.
 - Results are returned in dequeue order, not completion order.
 - The queue always drains: workers exit once it is empty or the
   context is done, so a pool larger than the queue cannot block.

 A failed request never fails the batch. It is recorded and omitted
 from the results.

 Metadata emission is observational only and MUST NOT influence
 scheduling.
*/
type BatchScheduler[R Request] struct {
	fetch          FetchFunc[R]
	metadataSink   metadata.MetadataSink
	batchFinalizer metadata.BatchFinalizer
	inFlight       Gauge
	newBatchID     func() string
}

type Param struct {
	MetadataSink   metadata.MetadataSink
	BatchFinalizer metadata.BatchFinalizer
	// InFlight is optional.
	InFlight Gauge
}

func NewBatchScheduler[R Request](param Param, fetch FetchFunc[R]) *BatchScheduler[R] {
	s := &BatchScheduler[R]{
		fetch:          fetch,
		metadataSink:   param.MetadataSink,
		batchFinalizer: param.BatchFinalizer,
		inFlight:       param.InFlight,
		newBatchID:     uuid.NewString,
	}
	if s.metadataSink == nil {
		s.metadataSink = &metadata.NoopSink{}
	}
	if s.batchFinalizer == nil {
		s.batchFinalizer = &metadata.NoopSink{}
	}
	return s
}

// ScrapeBatch fetches every request and returns the successful results.
// A concurrency below one runs a single worker.
func (s *BatchScheduler[R]) ScrapeBatch(ctx context.Context, requests []R, concurrency int) []fetcher.FetchResult {
	results, _ := s.run(ctx, requests, concurrency)
	return results
}

// ScrapeBatchReport is ScrapeBatch that also returns the batch summary.
func (s *BatchScheduler[R]) ScrapeBatchReport(ctx context.Context, requests []R, concurrency int) ([]fetcher.FetchResult, BatchReport) {
	return s.run(ctx, requests, concurrency)
}

func (s *BatchScheduler[R]) run(ctx context.Context, requests []R, concurrency int) ([]fetcher.FetchResult, BatchReport) {
	startedAt := time.Now()
	report := BatchReport{BatchID: s.newBatchID(), Total: len(requests)}
	if len(requests) == 0 {
		s.batchFinalizer.RecordBatchStats(report.BatchID, 0, 0, 0, time.Since(startedAt))
		return []fetcher.FetchResult{}, report
	}

	queue := frontier.NewPriorityQueue[R]()
	for _, request := range requests {
		queue.Push(request, request.PriorityLevel())
	}

	// slots are indexed by dequeue position
	slots := make([]fetcher.FetchResult, len(requests))
	succeeded := make([]bool, len(requests))
	var (
		dequeueMu sync.Mutex
		nextSlot  int
	)
	next := func() (R, int, bool) {
		dequeueMu.Lock()
		defer dequeueMu.Unlock()
		request, ok := queue.Pop()
		if !ok {
			return request, 0, false
		}
		slot := nextSlot
		nextSlot++
		return request, slot, true
	}

	workers := min(max(concurrency, 1), len(requests))
	var g errgroup.Group
	for range workers {
		g.Go(func() error {
			for ctx.Err() == nil {
				request, slot, ok := next()
				if !ok {
					return nil
				}
				result, err := s.fetchOne(ctx, report.BatchID, request)
				if err != nil {
					continue
				}
				slots[slot] = result
				succeeded[slot] = true
			}
			return nil
		})
	}
	_ = g.Wait()

	results := make([]fetcher.FetchResult, 0, len(requests))
	for i, ok := range succeeded {
		if ok {
			results = append(results, slots[i])
		}
	}

	report.Succeeded = len(results)
	report.Failed = report.Total - report.Succeeded
	s.batchFinalizer.RecordBatchStats(
		report.BatchID,
		report.Total,
		report.Succeeded,
		report.Failed,
		time.Since(startedAt),
	)
	return results, report
}

func (s *BatchScheduler[R]) fetchOne(ctx context.Context, batchID string, request R) (fetcher.FetchResult, error) {
	if s.inFlight != nil {
		s.inFlight.Inc()
		defer s.inFlight.Dec()
	}

	result, err := s.fetch(ctx, request)
	if err != nil {
		s.metadataSink.RecordError(
			time.Now(),
			"scheduler",
			"BatchScheduler.ScrapeBatch",
			mapFetchFailureToMetadataCause(err),
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, request.Target()),
				metadata.NewAttr(metadata.AttrBatchID, batchID),
				metadata.NewAttr(metadata.AttrPriority, strconv.Itoa(request.PriorityLevel())),
			},
		)
		return fetcher.FetchResult{}, err
	}
	return result, nil
}
