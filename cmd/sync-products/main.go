package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/S3OD177/trendyolxsync/internal/app"
	"github.com/S3OD177/trendyolxsync/internal/config"
	"github.com/S3OD177/trendyolxsync/internal/models"
	"github.com/S3OD177/trendyolxsync/internal/repository"
	"github.com/S3OD177/trendyolxsync/internal/service"
	"github.com/S3OD177/trendyolxsync/internal/worker"
)

// main syncs the seller's Trendyol catalog, with buy-box status, into PostgreSQL.
func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// 1. Parse flags; unset ones fall back to config below
	fs := flag.NewFlagSet("sync-products", flag.ContinueOnError)
	var (
		archived app.OptionalBool
		onSale   app.OptionalBool
	)
	pageSize := fs.Int("page-size", 0, "products per page (default TRENDYOL_PAGE_SIZE or 100)")
	maxPages := fs.Int("max-pages", 0, "maximum pages to fetch in one run (default TRENDYOL_MAX_PAGES or 10)")
	includeUnapproved := fs.Bool("include-unapproved", false, "also fetch products that are not approved")
	fs.Var(&archived, "archived", "filter by archived status (true|false)")
	fs.Var(&onSale, "on-sale", "filter by on-sale status (true|false)")
	dryRun := fs.Bool("dry-run", false, "fetch and evaluate without writing to the database")
	interval := fs.Duration("interval", 0, "repeat the sync at this interval until interrupted (0 runs once)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	// 2. Load config
	cfg, err := config.Load()
	if err != nil {
		return app.Fail("Configuration error: %v", err)
	}
	app.FallbackTo(fs, "page-size", pageSize, cfg.Sync.ProductPageSize)
	app.FallbackTo(fs, "max-pages", maxPages, cfg.Sync.ProductMaxPages)

	if *pageSize <= 0 || *maxPages <= 0 {
		return app.Fail("Argument error: -page-size and -max-pages must be positive")
	}

	// 3. Setup logger
	app.SetupLogger(cfg.Env, os.Stdout)
	log.Info().Str("env", cfg.Env).Int64("seller_id", cfg.Trendyol.SellerID).Msg("starting product sync")

	ctx, stop := app.SignalContext()
	defer stop()

	// 4. Connect database unless dry run
	var store service.ProductStore
	if !*dryRun {
		db, err := app.OpenDatabase(ctx, &cfg.DB)
		if err != nil {
			return app.Fail("Database connection/schema error: %v", err)
		}
		defer db.Close()
		store = repository.NewProductRepository(db)
	}

	// 5. Optional Redis coordination
	coord, err := app.OpenCoordination(cfg)
	if err != nil {
		return app.Fail("Redis error: %v", err)
	}
	defer coord.Close()

	// 6. Wire services
	client := app.NewTrendyolClient(&cfg.Trendyol)
	svc := service.NewProductSyncService(
		cfg.Trendyol.SellerID,
		client,
		service.NewPricingService(client),
		store,
	)
	opts := service.ProductSyncOptions{
		PageSize:          *pageSize,
		MaxPages:          *maxPages,
		IncludeUnapproved: *includeUnapproved,
		Archived:          archived.Value,
		OnSale:            onSale.Value,
		DryRun:            *dryRun,
	}

	job := &worker.Job{
		Kind:     models.KindProducts,
		SellerID: cfg.Trendyol.SellerID,
		Lock:     coord.Lock,
		Store:    coord.Store,
		Run: func(ctx context.Context) (*models.RunSummary, error) {
			return svc.Run(ctx, opts)
		},
	}

	// 7. Run once or periodically
	summary, err := app.Execute(ctx, job, *interval)
	if err != nil {
		return app.Fail("Sync failed: %v", err)
	}
	app.Report(os.Stdout, summary)
	return 0
}
