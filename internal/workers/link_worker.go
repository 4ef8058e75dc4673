package workers

import (
	"context"
	"time"

	"dropnest_backend/internal/logger"
	"dropnest_backend/internal/repositories"
)

// LinkWorker sweeps expired collection links and flips them inactive so the
// public surface stops accepting uploads without waiting for the next read.
type LinkWorker struct {
	linkRepo repositories.LinkRepository
	interval time.Duration
}

func NewLinkWorker(linkRepo repositories.LinkRepository) *LinkWorker {
	return &LinkWorker{
		linkRepo: linkRepo,
		interval: 5 * time.Minute,
	}
}

func (w *LinkWorker) Start(ctx context.Context) {
	go w.deactivateExpired(ctx)
}

func (w *LinkWorker) deactivateExpired(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("link worker stopped")
			return
		case <-ticker.C:
			count, err := w.linkRepo.DeactivateExpired(time.Now())
			if err != nil {
				logger.Error("failed to deactivate expired links", "error", err)
				continue
			}
			if count > 0 {
				logger.Info("deactivated expired links", "count", count)
			}
		}
	}
}
