package worker

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/S3OD177/trendyolxsync/internal/cache"
	"github.com/S3OD177/trendyolxsync/internal/models"
)

// RunFunc performs one sync run.
type RunFunc func(ctx context.Context) (*models.RunSummary, error)

// Job wraps a sync run with the optional Redis run lock and last-run store.
// Lock and Store may be nil when Redis is not configured.
type Job struct {
	Kind     string
	SellerID int64
	Run      RunFunc
	Lock     *cache.RunLock
	Store    *cache.RunStore
}

// Execute runs the job once. It returns cache.ErrLockHeld without running
// when another process holds the lock.
func (j *Job) Execute(ctx context.Context) (*models.RunSummary, error) {
	logger := log.With().Str("kind", j.Kind).Int64("seller_id", j.SellerID).Logger()

	if j.Lock != nil {
		lease, err := j.Lock.Acquire(ctx, j.Kind, j.SellerID)
		if err != nil {
			return nil, err
		}
		defer func() {
			// Release on a fresh context so a cancelled run still frees the lock.
			if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
				logger.Warn().Err(err).Msg("Failed to release run lock")
			}
		}()
	}

	if j.Store != nil {
		last, err := j.Store.Last(ctx, j.Kind, j.SellerID)
		switch {
		case err == nil:
			logger.Info().
				Str("last_run_id", last.RunID).
				Str("last_state", last.State).
				Time("last_finished_at", last.FinishedAt).
				Int("last_upserted", last.Upserted).
				Msg("Previous run")
		case !errors.Is(err, cache.ErrNotFound):
			logger.Warn().Err(err).Msg("Failed to read previous run")
		}
	}

	summary, runErr := j.Run(ctx)

	if j.Store != nil && summary != nil {
		if err := j.Store.Save(context.WithoutCancel(ctx), summary); err != nil {
			logger.Warn().Err(err).Msg("Failed to store run summary")
		}
	}
	return summary, runErr
}
