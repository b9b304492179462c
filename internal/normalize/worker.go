package normalize

import (
	"context"
	"log"
	"time"

	"github.com/Clark-Hu/content-rating/internal/repository"
)

// Worker is the periodic trigger that walks normalization candidates and
// recomputes their normalized means. It is the in-process embodiment of an
// external scheduler; the engine's operations carry no schedule of their own.
type Worker struct {
	normalizer *Normalizer
	repo       *repository.Repository
	logger     *log.Logger
	interval   time.Duration
	threshold  float64
	batchSize  int
}

// WorkerOptions configures the normalization loop.
type WorkerOptions struct {
	Interval  time.Duration
	Threshold float64
	BatchSize int
}

// NewWorker constructs the periodic normalization worker.
func NewWorker(normalizer *Normalizer, repo *repository.Repository, logger *log.Logger, opts WorkerOptions) *Worker {
	if logger == nil {
		logger = log.Default()
	}
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	return &Worker{
		normalizer: normalizer,
		repo:       repo,
		logger:     logger,
		interval:   opts.Interval,
		threshold:  opts.Threshold,
		batchSize:  opts.BatchSize,
	}
}

// Run executes one pass immediately and then one per interval tick until the
// context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.RunPass(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.RunPass(ctx)
		}
	}
}

// RunPass walks every current normalization candidate in id order and
// normalizes each. Per-candidate failures are logged and skipped; the
// candidate predicate will pick them up again next pass.
func (w *Worker) RunPass(ctx context.Context) {
	w.logger.Println("normalize: starting candidate pass")

	var afterID *string
	var normalized, failed int
	for {
		ids, err := w.repo.Contents.Candidates(ctx, w.threshold, afterID, w.batchSize)
		if err != nil {
			w.logger.Printf("normalize: list candidates: %v", err)
			return
		}
		if len(ids) == 0 {
			break
		}
		for _, id := range ids {
			if ctx.Err() != nil {
				return
			}
			if err := w.normalizer.Normalize(ctx, id); err != nil {
				failed++
				w.logger.Printf("normalize: content %s: %v", id, err)
				continue
			}
			normalized++
		}
		last := ids[len(ids)-1]
		afterID = &last
	}

	w.logger.Printf("normalize: pass complete (normalized=%d, failed=%d)", normalized, failed)
}
