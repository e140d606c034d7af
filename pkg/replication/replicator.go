package replication

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/timchilders/jre/pkg/domain"
	"github.com/timchilders/jre/pkg/index"
	"github.com/timchilders/jre/pkg/store"
)

// Config wires the replication dependencies.
type Config struct {
	Store *store.Store
	Index *index.Index
}

// Replicator copies transcript records from the JSON store into the segment
// index so segments can be queried relationally.
//
// This is intentionally a one-shot, "copy everything new" flow.
type Replicator struct {
	store *store.Store
	index *index.Index
}

// New creates a replicator.
func New(cfg Config) (*Replicator, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Index == nil {
		return nil, fmt.Errorf("index is required")
	}
	return &Replicator{
		store: cfg.Store,
		index: cfg.Index,
	}, nil
}

// ReplicateStoreToIndex reads all records from the store and indexes the
// ones the index does not have yet. Re-running is idempotent: already
// indexed videos are skipped.
func (r *Replicator) ReplicateStoreToIndex(ctx context.Context) (int, error) {
	if err := r.index.EnsureSchema(ctx); err != nil {
		return 0, err
	}

	records, err := r.store.List()
	if err != nil {
		return 0, fmt.Errorf("load records from store: %w", err)
	}

	existing, err := r.index.IndexedIDs(ctx)
	if err != nil {
		return 0, err
	}

	toIndex := make([]domain.TranscriptRecord, 0, len(records))
	for _, rec := range records {
		if !existing[rec.VideoID] {
			toIndex = append(toIndex, rec)
		}
	}

	log.Printf("Replication: %d records in store, %d already indexed, %d to index",
		len(records), len(records)-len(toIndex), len(toIndex))

	if len(toIndex) == 0 {
		return 0, nil
	}

	indexed, err := r.indexInParallel(ctx, toIndex)
	if err != nil {
		return indexed, err
	}

	log.Printf("Replication complete: indexed %d records", indexed)
	return indexed, nil
}

// indexInParallel fans the records over a small worker pool and fails fast
// on the first index error.
func (r *Replicator) indexInParallel(ctx context.Context, records []domain.TranscriptRecord) (int, error) {
	const numWorkers = 4

	jobs := make(chan domain.TranscriptRecord, len(records))
	for _, rec := range records {
		jobs <- rec
	}
	close(jobs)

	type result struct {
		videoID string
		err     error
	}
	results := make(chan result, len(records))

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range jobs {
				if ctx.Err() != nil {
					return
				}
				results <- result{videoID: rec.VideoID, err: r.index.SaveRecord(ctx, rec)}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	indexed := 0
	var firstErr error
	for res := range results {
		if res.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("index record %s: %w", res.videoID, res.err)
			}
			continue
		}
		indexed++
		if indexed%100 == 0 {
			log.Printf("Replication progress: indexed %d/%d records", indexed, len(records))
		}
	}

	return indexed, firstErr
}
