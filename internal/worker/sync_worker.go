package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/S3OD177/trendyolxsync/internal/cache"
	"github.com/S3OD177/trendyolxsync/pkg/trendyol"
)

// SyncWorker runs a sync job periodically.
type SyncWorker struct {
	job      *Job
	interval time.Duration
}

// NewSyncWorker constructs a SyncWorker.
func NewSyncWorker(job *Job, interval time.Duration) *SyncWorker {
	return &SyncWorker{
		job:      job,
		interval: interval,
	}
}

// Start runs the job immediately and then on every tick until ctx is
// cancelled or the credentials are rejected. It returns the error that
// stopped it, or nil on cancellation.
func (w *SyncWorker) Start(ctx context.Context) error {
	log.Info().Str("kind", w.job.Kind).Dur("interval", w.interval).Msg("Starting sync worker")

	if err := w.run(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.run(ctx); err != nil {
				return err
			}
		case <-ctx.Done():
			log.Info().Str("kind", w.job.Kind).Msg("Sync worker stopped")
			return nil
		}
	}
}

// run executes one round. Failures are logged and retried on the next tick,
// except rejected credentials, which no retry can fix.
func (w *SyncWorker) run(ctx context.Context) error {
	start := time.Now()
	summary, err := w.job.Execute(ctx)
	switch {
	case err == nil:
		log.Info().
			Str("kind", w.job.Kind).
			Int("fetched", summary.Fetched).
			Int("upserted", summary.Upserted).
			Dur("duration", time.Since(start)).
			Msg("Sync round completed")
	case errors.Is(err, cache.ErrLockHeld):
		log.Warn().Str("kind", w.job.Kind).Msg("Another run holds the lock, skipping round")
	case errors.Is(err, trendyol.ErrUnauthorized):
		return err
	case ctx.Err() != nil:
		// Shutting down; the loop exits on the next select.
	default:
		log.Error().Err(err).Str("kind", w.job.Kind).Msg("Sync round failed")
	}
	return nil
}
