package collector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"

	"github.com/timchilders/jre/pkg/domain"
	"github.com/timchilders/jre/pkg/monitor"
	"github.com/timchilders/jre/pkg/quality"
	"github.com/timchilders/jre/pkg/store"
	"github.com/timchilders/jre/pkg/youtube"
)

const (
	defaultRatePerMinute = 30
	defaultMaxRetries    = 3
	defaultWorkers       = 1

	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
)

// Config wires the collector dependencies.
type Config struct {
	Fetcher youtube.TranscriptFetcher
	Store   *store.Store

	// Monitor is optional; when set, per-item outcomes are recorded.
	Monitor *monitor.Monitor

	// RatePerMinute caps outbound fetch requests, counting retries.
	RatePerMinute int

	// MaxRetries is how many times a transiently failing item is retried
	// after its first attempt.
	MaxRetries int

	// Workers fetch in parallel; they share one limiter so concurrency
	// never multiplies the effective request rate.
	Workers int
}

// Collector fetches transcripts for a batch of videos, respecting a request
// rate ceiling, and persists one record per video. Item failures are recorded
// and never abort the batch; a store write failure does.
type Collector struct {
	fetcher       youtube.TranscriptFetcher
	store         *store.Store
	monitor       *monitor.Monitor
	ratePerMinute int
	maxRetries    int
	workers       int

	// retry pause bounds, shrunk in tests
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// New creates a collector.
func New(cfg Config) (*Collector, error) {
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("collector: fetcher is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("collector: store is required")
	}

	c := &Collector{
		fetcher:        cfg.Fetcher,
		store:          cfg.Store,
		monitor:        cfg.Monitor,
		ratePerMinute:  cfg.RatePerMinute,
		maxRetries:     cfg.MaxRetries,
		workers:        cfg.Workers,
		initialBackoff: initialBackoff,
		maxBackoff:     maxBackoff,
	}
	if c.ratePerMinute <= 0 {
		c.ratePerMinute = defaultRatePerMinute
	}
	if c.maxRetries < 0 {
		c.maxRetries = defaultMaxRetries
	}
	if c.workers <= 0 {
		c.workers = defaultWorkers
	}
	return c, nil
}

// itemResult carries one completed attempt from a fetch worker to the
// store-writer loop.
type itemResult struct {
	record  domain.TranscriptRecord
	elapsed time.Duration
}

// Collect fetches a transcript for every reference and persists each record
// immediately after its fetch attempt completes, so partial progress survives
// a crash mid-run. The returned records are in completion order.
//
// Per-item failures (no transcript, invalid id, exhausted retries) become
// failed records. The only errors returned are fatal: a store write failure
// or batch cancellation.
func (c *Collector) Collect(ctx context.Context, videos []domain.VideoReference) ([]domain.TranscriptRecord, error) {
	if len(videos) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// One limiter per batch, shared by all workers, consulted before every
	// outbound request including retries.
	limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(c.ratePerMinute)), 1)

	jobs := make(chan domain.VideoReference)
	results := make(chan itemResult, c.workers)

	var wg sync.WaitGroup
	wg.Add(c.workers)
	for i := 0; i < c.workers; i++ {
		go func(workerID int) {
			defer wg.Done()
			for ref := range jobs {
				start := time.Now()
				rec, ok := c.fetchOne(ctx, limiter, ref)
				if !ok {
					// Batch cancelled mid-attempt; drop the item
					// rather than persisting a bogus failure.
					return
				}
				select {
				case results <- itemResult{record: rec, elapsed: time.Since(start)}:
				case <-ctx.Done():
					return
				}
			}
		}(i)
	}

	go func() {
		defer close(jobs)
		for _, ref := range videos {
			select {
			case jobs <- ref:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	// Single writer: all store writes are serialized here.
	var records []domain.TranscriptRecord
	var fatal error
	for res := range results {
		if fatal != nil {
			continue // drain remaining results after a fatal error
		}

		if err := c.store.Save(res.record); err != nil {
			fatal = fmt.Errorf("persist record %s: %w", res.record.VideoID, err)
			if c.monitor != nil {
				c.monitor.RecordError("storage")
			}
			cancel()
			continue
		}

		if c.monitor != nil {
			c.monitor.RecordProcessed(res.record, res.elapsed)
		}
		records = append(records, res.record)
	}

	if fatal != nil {
		return records, fatal
	}
	if err := ctx.Err(); err != nil {
		return records, err
	}
	return records, nil
}

// fetchOne runs the bounded-retry fetch loop for a single video and builds
// its record. ok is false only when the batch context was cancelled before
// the attempt could finish.
func (c *Collector) fetchOne(ctx context.Context, limiter *rate.Limiter, ref domain.VideoReference) (domain.TranscriptRecord, bool) {
	if !youtube.ValidVideoID(ref.ID) {
		err := fmt.Errorf("%w: %q", youtube.ErrInvalidVideoID, ref.ID)
		log.Printf("Collector: skipping %q: %v", ref.ID, err)
		c.countError(err)
		return domain.NewRecord(ref, domain.StatusFailed, nil, err), true
	}

	attempts := 0
	operation := func() ([]domain.TranscriptSegment, error) {
		if err := limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}
		attempts++

		segments, err := c.fetcher.FetchTranscript(ctx, ref.ID)
		if err != nil {
			if youtube.IsTransient(err) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return segments, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initialBackoff
	bo.MaxInterval = c.maxBackoff

	segments, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(c.maxRetries+1)))

	if err != nil {
		if ctx.Err() != nil {
			return domain.TranscriptRecord{}, false
		}
		log.Printf("Collector: %s failed after %d attempts: %v", ref.ID, attempts, err)
		c.countError(err)
		return domain.NewRecord(ref, domain.StatusFailed, nil, err), true
	}

	status := domain.StatusSuccess
	if !quality.IsComplete(segments) {
		status = domain.StatusPartial
	}
	log.Printf("Collector: %s fetched %d segments in %d attempts (status=%s)", ref.ID, len(segments), attempts, status)
	return domain.NewRecord(ref, status, segments, nil), true
}

func (c *Collector) countError(err error) {
	if c.monitor == nil {
		return
	}
	switch {
	case errors.Is(err, youtube.ErrNoTranscript):
		c.monitor.RecordError("no_transcript")
	case errors.Is(err, youtube.ErrInvalidVideoID):
		c.monitor.RecordError("invalid_id")
	case errors.Is(err, youtube.ErrVideoUnavailable):
		c.monitor.RecordError("unavailable")
	case youtube.IsTransient(err):
		c.monitor.RecordError("transient_exhausted")
	default:
		c.monitor.RecordError("other")
	}
}
