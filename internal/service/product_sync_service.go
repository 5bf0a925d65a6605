package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/S3OD177/trendyolxsync/internal/models"
	"github.com/S3OD177/trendyolxsync/pkg/trendyol"
)

// CatalogSource fetches pages of the seller's products.
type CatalogSource interface {
	GetProducts(ctx context.Context, q trendyol.ProductQuery) (*trendyol.Page, error)
}

// Enricher resolves buy-box entries for barcodes.
type Enricher interface {
	Enrich(ctx context.Context, barcodes []string) (map[string]models.PricingEntry, error)
}

// ProductStore persists merged product records.
type ProductStore interface {
	UpsertBatch(ctx context.Context, sellerID int64, records []models.MergedRecord) (int, error)
}

// ProductSyncOptions controls one product sync run.
type ProductSyncOptions struct {
	PageSize          int
	MaxPages          int
	IncludeUnapproved bool
	Archived          *bool
	OnSale            *bool
	DryRun            bool
}

// ProductSyncService pulls the catalog page by page, enriches it with buy-box
// data and upserts the merged records.
type ProductSyncService struct {
	sellerID int64
	catalog  CatalogSource
	pricing  Enricher
	store    ProductStore // nil in dry-run-only setups
	now      func() time.Time
}

// NewProductSyncService constructs a ProductSyncService.
func NewProductSyncService(sellerID int64, catalog CatalogSource, pricing Enricher, store ProductStore) *ProductSyncService {
	return &ProductSyncService{
		sellerID: sellerID,
		catalog:  catalog,
		pricing:  pricing,
		store:    store,
		now:      time.Now,
	}
}

// Run executes one sync. The returned summary is always non-nil and reflects
// the pages completed before any failure.
func (s *ProductSyncService) Run(ctx context.Context, opts ProductSyncOptions) (*models.RunSummary, error) {
	summary := &models.RunSummary{
		RunID:     uuid.NewString(),
		Kind:      models.KindProducts,
		SellerID:  s.sellerID,
		DryRun:    opts.DryRun || s.store == nil,
		StartedAt: s.now(),
		Statuses:  map[models.BuyboxStatus]int{},
	}
	logger := log.With().Str("run_id", summary.RunID).Str("kind", summary.Kind).Logger()
	ctx = logger.WithContext(ctx)

	logger.Info().
		Int64("seller_id", s.sellerID).
		Int("page_size", opts.PageSize).
		Int("max_pages", opts.MaxPages).
		Bool("dry_run", summary.DryRun).
		Msg("Product sync started")

	fetch := func(ctx context.Context, page int) (*trendyol.Page, error) {
		return s.catalog.GetProducts(ctx, trendyol.ProductQuery{
			Page:         page,
			Size:         opts.PageSize,
			ApprovedOnly: !opts.IncludeUnapproved,
			Archived:     opts.Archived,
			OnSale:       opts.OnSale,
		})
	}
	handle := func(ctx context.Context, page int, items []json.RawMessage) (int, error) {
		return s.processPage(ctx, page, items, summary)
	}

	stats, err := RunPages(ctx, opts.MaxPages, fetch, handle)
	finish(summary, stats, err, s.now())

	event := logger.Info()
	if err != nil {
		event = logger.Error().Err(err)
	}
	event.
		Str("state", summary.State).
		Str("stop_reason", summary.StopReason).
		Int("pages", summary.Pages).
		Int("fetched", summary.Fetched).
		Int("upserted", summary.Upserted).
		Int("skipped", summary.Skipped).
		Int("win", summary.Statuses[models.BuyboxWin]).
		Int("lose", summary.Statuses[models.BuyboxLose]).
		Int("unknown", summary.Statuses[models.BuyboxUnknown]).
		Dur("duration", summary.Duration()).
		Msg("Product sync finished")

	return summary, err
}

// processPage maps, enriches, infers and persists one page.
func (s *ProductSyncService) processPage(ctx context.Context, page int, items []json.RawMessage, summary *models.RunSummary) (int, error) {
	logger := log.Ctx(ctx)

	catalog := make([]models.CatalogItem, 0, len(items))
	barcodes := make([]string, 0, len(items))
	for i, raw := range items {
		item, err := models.ParseCatalogItem(raw)
		if err != nil {
			summary.Skipped++
			logger.Warn().Err(err).Int("page", page).Int("index", i).Msg("Skipping malformed product")
			continue
		}
		catalog = append(catalog, item)
		barcodes = append(barcodes, item.BarcodeKey())
	}

	entries, err := s.pricing.Enrich(ctx, barcodes)
	if err != nil {
		return 0, err
	}

	records := make([]models.MergedRecord, 0, len(catalog))
	for _, item := range catalog {
		rec := Merge(item, entries)
		summary.Statuses[rec.Status]++
		if !item.HasBusinessKey() {
			summary.Skipped++
			logger.Warn().Int("page", page).Msg("Product without business key, not persisted")
		}
		records = append(records, rec)
	}

	if summary.DryRun {
		return 0, nil
	}
	return s.store.UpsertBatch(ctx, s.sellerID, records)
}

// finish copies loop stats onto summary.
func finish(summary *models.RunSummary, stats LoopStats, err error, now time.Time) {
	summary.State = string(stats.State)
	summary.StopReason = stats.StopReason
	summary.Pages = stats.Pages
	summary.Fetched = stats.Fetched
	summary.Upserted = stats.Written
	summary.FinishedAt = now
	if err != nil {
		summary.Error = err.Error()
	}
}
