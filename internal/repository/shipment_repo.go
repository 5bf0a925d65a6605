package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/S3OD177/trendyolxsync/internal/database"
	"github.com/S3OD177/trendyolxsync/internal/models"
)

var shipmentUpsert = upsertPlan{
	table: "trendyol_shipment_packages",
	columns: []string{
		"seller_id",
		"package_number",
		"order_number",
		"shipment_package_status",
		"cargo_provider_name",
		"cargo_tracking_number",
		"cargo_tracking_link",
		"package_last_modified_date",
		"shipment_package_creation_date",
		"estimated_delivery_start_date",
		"estimated_delivery_end_date",
		"lines_count",
		"raw",
	},
	conflict: []string{"seller_id", "package_number"},
	casts:    map[string]string{"raw": "jsonb"},
}

// ShipmentRepository handles data access for synced shipment packages.
type ShipmentRepository struct {
	db *sqlx.DB
}

// NewShipmentRepository creates a new ShipmentRepository.
func NewShipmentRepository(db *sqlx.DB) *ShipmentRepository {
	return &ShipmentRepository{db: db}
}

// UpsertBatch writes packages for sellerID in one transaction. It follows the
// same rules as ProductRepository.UpsertBatch.
func (r *ShipmentRepository) UpsertBatch(ctx context.Context, sellerID int64, packages []models.ShipmentPackage) (int, error) {
	packages = lastByKey(packages, func(p models.ShipmentPackage) string { return p.PackageNumber })
	if len(packages) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(packages))
	for _, p := range packages {
		rows = append(rows, []any{
			sellerID,
			p.PackageNumber,
			p.OrderNumber,
			p.Status,
			p.CargoProviderName,
			p.CargoTrackingNumber,
			p.CargoTrackingLink,
			p.PackageLastModifiedDate,
			p.ShipmentPackageCreationDate,
			p.EstimatedDeliveryStartDate,
			p.EstimatedDeliveryEndDate,
			p.LinesCount,
			rawJSON(p.Raw),
		})
	}

	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return shipmentUpsert.exec(ctx, tx, rows)
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}
