// Package publish fans a batch of atom directories out to concurrent
// store publishes and aggregates per-item outcomes.
//
// Batches are best-effort: one atom's failure never aborts its
// siblings, and interrupting a batch keeps the lineage entries that
// already landed.
package publish

import (
	"context"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/ekforge/atom/logger"
	"github.com/ekforge/atom/manifest"
	"github.com/ekforge/atom/store"
)

// Outcome is the result of publishing one atom directory.
type Outcome struct {
	// Path is the directory holding the atom manifest
	Path string
	// Record is the resulting lineage record, nil when Err is set
	Record *store.Record
	// Skipped marks an idempotent republish of identical content
	Skipped bool
	Err     error
}

// Stats counts per-item outcomes of one batch.
type Stats struct {
	Published int
	Skipped   int
	Failed    int
}

// Report is the aggregate result of a batch publish.
type Report struct {
	// BatchId tags all log lines and outcomes of one invocation
	BatchId  string
	Outcomes []Outcome
	Stats    Stats
}

// Failed reports whether any item in the batch failed.
func (r *Report) Failed() bool {
	return r.Stats.Failed > 0
}

// Publisher drives batch publishes against one store.
type Publisher struct {
	store   store.Store
	workers int
}

// NewPublisher creates a publisher with the given worker count.
// Non-positive counts default to NumCPU.
func NewPublisher(s store.Store, workers int) *Publisher {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Publisher{store: s, workers: workers}
}

// Run discovers every atom manifest under roots and publishes each
// slice. Per-atom pipelines are independent and run in parallel; the
// store serializes only the per-atom ref advance. Cancelling ctx stops
// pickup of new work; items not yet processed are reported as failed
// with the context error.
func (p *Publisher) Run(ctx context.Context, roots ...string) (*Report, error) {
	manifests, err := manifest.Discover(roots...)
	if err != nil {
		return nil, err
	}

	report := &Report{BatchId: uuid.NewString()}
	logger.Debugw("Starting batch publish",
		"batch_id", report.BatchId,
		"atoms", len(manifests),
		"workers", p.workers)

	jobs := make(chan string)
	results := make(chan Outcome)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx, jobs, results)
		}()
	}
	go func() {
		for _, path := range manifests {
			jobs <- filepath.Dir(path)
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	for outcome := range results {
		switch {
		case outcome.Err != nil:
			report.Stats.Failed++
			logger.Warnw("Atom publish failed",
				"batch_id", report.BatchId,
				"path", outcome.Path,
				"error", outcome.Err)
		case outcome.Skipped:
			report.Stats.Skipped++
		default:
			report.Stats.Published++
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	sort.Slice(report.Outcomes, func(i, j int) bool {
		return report.Outcomes[i].Path < report.Outcomes[j].Path
	})

	logger.Infow("Batch publish complete",
		"batch_id", report.BatchId,
		"published", report.Stats.Published,
		"skipped", report.Stats.Skipped,
		"failed", report.Stats.Failed)
	return report, nil
}

func (p *Publisher) worker(ctx context.Context, jobs <-chan string, results chan<- Outcome) {
	for dir := range jobs {
		select {
		case <-ctx.Done():
			results <- Outcome{Path: dir, Err: ctx.Err()}
			continue
		default:
		}

		rec, written, err := p.store.Publish(ctx, dir)
		if err != nil {
			results <- Outcome{Path: dir, Err: err}
			continue
		}
		results <- Outcome{Path: dir, Record: rec, Skipped: !written}
	}
}
