package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/S3OD177/trendyolxsync/internal/app"
	"github.com/S3OD177/trendyolxsync/internal/config"
	"github.com/S3OD177/trendyolxsync/internal/models"
	"github.com/S3OD177/trendyolxsync/internal/repository"
	"github.com/S3OD177/trendyolxsync/internal/service"
	"github.com/S3OD177/trendyolxsync/internal/worker"
)

// main syncs the seller's Trendyol shipment packages into PostgreSQL.
func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// 1. Parse flags; unset ones fall back to config below
	fs := flag.NewFlagSet("sync-shipments", flag.ContinueOnError)
	pageSize := fs.Int("page-size", 0, "packages per page (default TRENDYOL_SHIPMENT_PAGE_SIZE or 200)")
	maxPages := fs.Int("max-pages", 0, "maximum pages to fetch in one run (default TRENDYOL_SHIPMENT_MAX_PAGES or 20)")
	status := fs.String("status", "", "optional shipmentPackageStatus filter, e.g. Created or Shipped (default TRENDYOL_SHIPMENT_PACKAGE_STATUS)")
	orderByField := fs.String("order-by-field", "", "sort field (default TRENDYOL_ORDER_BY_FIELD or PackageLastModifiedDate)")
	orderByDirection := fs.String("order-by-direction", "", "sort direction ASC|DESC (default TRENDYOL_ORDER_BY_DIRECTION or DESC)")
	lookbackHours := fs.Int("lookback-hours", 0, "window length when -start-date-ms is omitted (default TRENDYOL_SHIPMENT_LOOKBACK_HOURS or 24)")
	startDateMs := fs.Int64("start-date-ms", 0, "window start, epoch ms inclusive (default: now - lookback)")
	endDateMs := fs.Int64("end-date-ms", 0, "window end, epoch ms inclusive (default: now)")
	dryRun := fs.Bool("dry-run", false, "fetch without writing to the database")
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
	app.FallbackTo(fs, "page-size", pageSize, cfg.Sync.ShipmentPageSize)
	app.FallbackTo(fs, "max-pages", maxPages, cfg.Sync.ShipmentMaxPages)
	app.FallbackTo(fs, "status", status, cfg.Sync.ShipmentStatus)
	app.FallbackTo(fs, "order-by-field", orderByField, cfg.Sync.ShipmentOrderByField)
	app.FallbackTo(fs, "order-by-direction", orderByDirection, cfg.Sync.ShipmentOrderByDirection)
	app.FallbackTo(fs, "lookback-hours", lookbackHours, cfg.Sync.ShipmentLookbackHours)

	direction := strings.ToUpper(strings.TrimSpace(*orderByDirection))
	switch {
	case *pageSize <= 0 || *maxPages <= 0:
		return app.Fail("Argument error: -page-size and -max-pages must be positive")
	case direction != "ASC" && direction != "DESC":
		return app.Fail("Argument error: -order-by-direction must be ASC or DESC")
	case *lookbackHours < 0:
		return app.Fail("Argument error: -lookback-hours must be >= 0")
	case *interval > 0 && (*startDateMs != 0 || *endDateMs != 0):
		return app.Fail("Argument error: -interval cannot be combined with a fixed date window")
	}

	opts := service.ShipmentSyncOptions{
		PageSize:         *pageSize,
		MaxPages:         *maxPages,
		Status:           strings.TrimSpace(*status),
		OrderByField:     strings.TrimSpace(*orderByField),
		OrderByDirection: direction,
		LookbackHours:    *lookbackHours,
		StartDateMs:      *startDateMs,
		EndDateMs:        *endDateMs,
		DryRun:           *dryRun,
	}

	// 3. Setup logger
	app.SetupLogger(cfg.Env, os.Stdout)
	log.Info().Str("env", cfg.Env).Int64("seller_id", cfg.Trendyol.SellerID).Msg("starting shipment sync")

	ctx, stop := app.SignalContext()
	defer stop()

	// 4. Connect database unless dry run
	var store service.ShipmentStore
	if !*dryRun {
		db, err := app.OpenDatabase(ctx, &cfg.DB)
		if err != nil {
			return app.Fail("Database connection/schema error: %v", err)
		}
		defer db.Close()
		store = repository.NewShipmentRepository(db)
	}

	// 5. Optional Redis coordination
	coord, err := app.OpenCoordination(cfg)
	if err != nil {
		return app.Fail("Redis error: %v", err)
	}
	defer coord.Close()

	// 6. Wire services
	client := app.NewTrendyolClient(&cfg.Trendyol)
	svc := service.NewShipmentSyncService(cfg.Trendyol.SellerID, client, store)

	// Validate the window up front so a bad range fails before any network use.
	if _, _, err := svc.Window(opts); err != nil {
		return app.Fail("Argument error: %v", err)
	}

	job := &worker.Job{
		Kind:     models.KindShipments,
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
