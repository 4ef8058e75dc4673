package workers

import (
	"context"
	"time"

	"dropnest_backend/internal/logger"
	"dropnest_backend/internal/repositories"
)

// BatchWorker fails batches abandoned mid-upload so they stop blocking
// their links' ingestion bookkeeping.
type BatchWorker struct {
	batchRepo repositories.BatchRepository
	interval  time.Duration
	maxAge    time.Duration
}

func NewBatchWorker(batchRepo repositories.BatchRepository) *BatchWorker {
	return &BatchWorker{
		batchRepo: batchRepo,
		interval:  15 * time.Minute,
		maxAge:    24 * time.Hour,
	}
}

func (w *BatchWorker) Start(ctx context.Context) {
	go w.failStuckBatches(ctx)
}

func (w *BatchWorker) failStuckBatches(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("batch worker stopped")
			return
		case <-ticker.C:
			count, err := w.batchRepo.FailStuck(time.Now().Add(-w.maxAge))
			if err != nil {
				logger.Error("failed to fail stuck batches", "error", err)
				continue
			}
			if count > 0 {
				logger.Info("failed stuck batches", "count", count)
			}
		}
	}
}
