package app

import (
	"bytes"
	"context"
	"flag"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/S3OD177/trendyolxsync/internal/cache"
	"github.com/S3OD177/trendyolxsync/internal/config"
	"github.com/S3OD177/trendyolxsync/internal/models"
	"github.com/S3OD177/trendyolxsync/internal/worker"
)

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	Report(&buf, &models.RunSummary{DryRun: true, Fetched: 7})
	Report(&buf, &models.RunSummary{Fetched: 7, Upserted: 5})
	Report(&buf, nil)

	assert.Equal(t,
		"Dry-run complete. Total fetched: 7\nSync complete. Total fetched: 7, total upserted: 5\n",
		buf.String())
}

func TestOptionalBoolFlag(t *testing.T) {
	var archived, onSale OptionalBool
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Var(&archived, "archived", "")
	fs.Var(&onSale, "on-sale", "")

	require.NoError(t, fs.Parse([]string{"-archived", "-on-sale=false"}))
	require.NotNil(t, archived.Value)
	assert.True(t, *archived.Value)
	require.NotNil(t, onSale.Value)
	assert.False(t, *onSale.Value)

	var unset OptionalBool
	assert.Nil(t, unset.Value)
	assert.Equal(t, "", unset.String())
	assert.Error(t, unset.Set("maybe"))
}

func TestFallbackToKeepsGivenFlags(t *testing.T) {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	pageSize := fs.Int("page-size", 0, "")
	maxPages := fs.Int("max-pages", 0, "")
	status := fs.String("status", "", "")
	require.NoError(t, fs.Parse([]string{"-page-size", "25", "-status", ""}))

	FallbackTo(fs, "page-size", pageSize, 100)
	FallbackTo(fs, "max-pages", maxPages, 10)
	FallbackTo(fs, "status", status, "Created")

	assert.Equal(t, 25, *pageSize)
	assert.Equal(t, 10, *maxPages)
	assert.Equal(t, "", *status, "an explicit empty value is kept")
}

func TestSetupLoggerLevels(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	SetupLogger("production", &buf)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	SetupLogger("development", &buf)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestOpenCoordinationWithoutRedis(t *testing.T) {
	coord, err := OpenCoordination(&config.Config{})
	require.NoError(t, err)
	assert.Nil(t, coord.Lock)
	assert.Nil(t, coord.Store)
	assert.NoError(t, coord.Close())
}

func TestExecuteTreatsHeldLockAsSuccess(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{
		Redis: config.RedisConfig{Host: mr.Host(), Port: mr.Port()},
		Sync:  config.SyncConfig{LockTTL: time.Minute},
	}
	coord, err := OpenCoordination(cfg)
	require.NoError(t, err)
	defer coord.Close()

	held, err := coord.Lock.Acquire(context.Background(), models.KindProducts, 3)
	require.NoError(t, err)
	defer held.Release(context.Background())

	job := &worker.Job{Kind: models.KindProducts, SellerID: 3, Lock: coord.Lock, Run: func(context.Context) (*models.RunSummary, error) {
		t.Fatal("run must not start while the lock is held")
		return nil, nil
	}}

	summary, err := Execute(context.Background(), job, 0)
	assert.NoError(t, err)
	assert.Nil(t, summary)
}

func TestExecuteOnce(t *testing.T) {
	job := &worker.Job{Kind: models.KindShipments, Run: func(context.Context) (*models.RunSummary, error) {
		return &models.RunSummary{Fetched: 2}, nil
	}}
	summary, err := Execute(context.Background(), job, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Fetched)
	assert.NotErrorIs(t, err, cache.ErrLockHeld)
}
