package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/S3OD177/trendyolxsync/internal/models"
	"github.com/S3OD177/trendyolxsync/pkg/trendyol"
)

// ErrInvalidWindow is returned when the shipment window starts after it ends.
var ErrInvalidWindow = errors.New("INVALID_WINDOW")

// ShipmentSource fetches pages of shipment packages.
type ShipmentSource interface {
	GetShipmentPackages(ctx context.Context, q trendyol.ShipmentQuery) (*trendyol.Page, error)
}

// ShipmentStore persists shipment packages.
type ShipmentStore interface {
	UpsertBatch(ctx context.Context, sellerID int64, packages []models.ShipmentPackage) (int, error)
}

// ShipmentSyncOptions controls one shipment sync run. A zero StartDateMs
// means now minus LookbackHours; a zero EndDateMs means now.
type ShipmentSyncOptions struct {
	PageSize         int
	MaxPages         int
	Status           string
	OrderByField     string
	OrderByDirection string
	LookbackHours    int
	StartDateMs      int64
	EndDateMs        int64
	DryRun           bool
}

// ShipmentSyncService pulls shipment packages for a time window and upserts them.
type ShipmentSyncService struct {
	sellerID int64
	source   ShipmentSource
	store    ShipmentStore
	now      func() time.Time
}

// NewShipmentSyncService constructs a ShipmentSyncService.
func NewShipmentSyncService(sellerID int64, source ShipmentSource, store ShipmentStore) *ShipmentSyncService {
	return &ShipmentSyncService{sellerID: sellerID, source: source, store: store, now: time.Now}
}

// Window resolves the [start, end] epoch-millisecond window for opts.
func (s *ShipmentSyncService) Window(opts ShipmentSyncOptions) (int64, int64, error) {
	now := s.now()
	end := opts.EndDateMs
	if end == 0 {
		end = now.UnixMilli()
	}
	start := opts.StartDateMs
	if start == 0 {
		start = now.Add(-time.Duration(opts.LookbackHours) * time.Hour).UnixMilli()
	}
	if start > end {
		return 0, 0, fmt.Errorf("%w: start-date-ms must be <= end-date-ms", ErrInvalidWindow)
	}
	return start, end, nil
}

// Run executes one shipment sync.
func (s *ShipmentSyncService) Run(ctx context.Context, opts ShipmentSyncOptions) (*models.RunSummary, error) {
	summary := &models.RunSummary{
		RunID:     uuid.NewString(),
		Kind:      models.KindShipments,
		SellerID:  s.sellerID,
		DryRun:    opts.DryRun || s.store == nil,
		StartedAt: s.now(),
	}
	logger := log.With().Str("run_id", summary.RunID).Str("kind", summary.Kind).Logger()
	ctx = logger.WithContext(ctx)

	start, end, err := s.Window(opts)
	if err != nil {
		finish(summary, LoopStats{State: LoopFailed}, err, s.now())
		return summary, err
	}

	logger.Info().
		Int64("seller_id", s.sellerID).
		Int64("start_date_ms", start).
		Int64("end_date_ms", end).
		Str("status", opts.Status).
		Bool("dry_run", summary.DryRun).
		Msg("Shipment sync started")

	fetch := func(ctx context.Context, page int) (*trendyol.Page, error) {
		return s.source.GetShipmentPackages(ctx, trendyol.ShipmentQuery{
			Page:             page,
			Size:             opts.PageSize,
			StartDate:        start,
			EndDate:          end,
			Status:           opts.Status,
			OrderByField:     opts.OrderByField,
			OrderByDirection: opts.OrderByDirection,
		})
	}
	handle := func(ctx context.Context, page int, items []json.RawMessage) (int, error) {
		packages := make([]models.ShipmentPackage, 0, len(items))
		for i, raw := range items {
			pkg, err := models.ParseShipmentPackage(raw)
			if err != nil {
				summary.Skipped++
				log.Ctx(ctx).Warn().Err(err).Int("page", page).Int("index", i).Msg("Skipping malformed shipment package")
				continue
			}
			if !pkg.HasBusinessKey() {
				summary.Skipped++
			}
			packages = append(packages, pkg)
		}
		if summary.DryRun {
			return 0, nil
		}
		return s.store.UpsertBatch(ctx, s.sellerID, packages)
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
		Dur("duration", summary.Duration()).
		Msg("Shipment sync finished")

	return summary, err
}
