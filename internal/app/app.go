// Package app wires configuration, storage and the Trendyol client for the
// sync commands.
package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/S3OD177/trendyolxsync/internal/cache"
	"github.com/S3OD177/trendyolxsync/internal/config"
	"github.com/S3OD177/trendyolxsync/internal/database"
	"github.com/S3OD177/trendyolxsync/internal/models"
	"github.com/S3OD177/trendyolxsync/internal/worker"
	"github.com/S3OD177/trendyolxsync/pkg/trendyol"
)

// SetupLogger configures the global zerolog logger for env.
func SetupLogger(env string, out io.Writer) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// NewTrendyolClient builds the API client from configuration.
func NewTrendyolClient(cfg *config.TrendyolConfig) *trendyol.Client {
	return trendyol.NewClient(trendyol.Config{
		BaseURL:           cfg.BaseURL,
		SellerID:          cfg.SellerID,
		APIToken:          cfg.APIToken,
		UserAgent:         cfg.UserAgent,
		StoreFrontCode:    cfg.StoreFrontCode,
		Timeout:           cfg.Timeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
	})
}

// OpenDatabase connects to PostgreSQL and applies migrations when enabled.
func OpenDatabase(ctx context.Context, cfg *config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	if cfg.AutoMigrate {
		if err := database.RunMigrations(db.DB, cfg.Migrations); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migration failed: %w", err)
		}
		log.Info().Msg("migrations completed successfully")
	}
	return db, nil
}

// Coordination holds the optional Redis-backed run lock and run store.
type Coordination struct {
	Lock  *cache.RunLock
	Store *cache.RunStore
	redis *cache.RedisClient
}

// OpenCoordination connects to Redis when configured. Without Redis it
// returns an empty Coordination. A configured but unreachable Redis is an
// error.
func OpenCoordination(cfg *config.Config) (*Coordination, error) {
	if !cfg.Redis.Enabled() {
		return &Coordination{}, nil
	}
	rc, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		return nil, err
	}
	log.Info().Msg("redis connected successfully")
	return &Coordination{
		Lock:  cache.NewRunLock(rc, cfg.Sync.LockTTL),
		Store: cache.NewRunStore(rc),
		redis: rc,
	}, nil
}

// Close releases the Redis connection, if any.
func (c *Coordination) Close() error {
	if c == nil || c.redis == nil {
		return nil
	}
	return c.redis.Close()
}

// Execute runs job once, or repeatedly every interval when interval > 0.
// A held run lock is not a failure. The returned summary is from the single
// run and nil in interval mode.
func Execute(ctx context.Context, job *worker.Job, interval time.Duration) (*models.RunSummary, error) {
	if interval > 0 {
		return nil, worker.NewSyncWorker(job, interval).Start(ctx)
	}

	summary, err := job.Execute(ctx)
	if errors.Is(err, cache.ErrLockHeld) {
		log.Warn().Str("kind", job.Kind).Int64("seller_id", job.SellerID).Msg("Another sync run holds the lock, exiting")
		return nil, nil
	}
	return summary, err
}

// Report prints the one-line outcome of a single run to w.
func Report(w io.Writer, summary *models.RunSummary) {
	if summary == nil {
		return
	}
	if summary.DryRun {
		fmt.Fprintf(w, "Dry-run complete. Total fetched: %d\n", summary.Fetched)
		return
	}
	fmt.Fprintf(w, "Sync complete. Total fetched: %d, total upserted: %d\n", summary.Fetched, summary.Upserted)
}

// Fail prints a one-line diagnostic to stderr and returns exit code 1.
func Fail(format string, args ...any) int {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	return 1
}

// FallbackTo stores v in *p unless the flag name was given on fs. Flags are
// parsed before configuration loads, so settings from the environment are
// applied afterwards this way.
func FallbackTo[T any](fs *flag.FlagSet, name string, p *T, v T) {
	given := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			given = true
		}
	})
	if !given {
		*p = v
	}
}

// OptionalBool is a flag.Value that stays nil unless set on the command line.
type OptionalBool struct {
	Value *bool
}

// String implements flag.Value.
func (b *OptionalBool) String() string {
	if b == nil || b.Value == nil {
		return ""
	}
	return strconv.FormatBool(*b.Value)
}

// Set implements flag.Value.
func (b *OptionalBool) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	b.Value = &v
	return nil
}

// IsBoolFlag lets "-archived" be given without a value.
func (b *OptionalBool) IsBoolFlag() bool { return true }
