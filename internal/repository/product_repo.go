package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/S3OD177/trendyolxsync/internal/database"
	"github.com/S3OD177/trendyolxsync/internal/models"
)

var productUpsert = upsertPlan{
	table: "trendyol_products",
	columns: []string{
		"seller_id",
		"product_code",
		"barcode",
		"stock_code",
		"title",
		"brand",
		"category_name",
		"quantity",
		"list_price",
		"sale_price",
		"approved",
		"on_sale",
		"archived",
		"rejected",
		"blacklisted",
		"last_update_epoch_ms",
		"buybox_status",
		"buybox_competitor_count",
		"buybox_price",
		"buybox_order",
		"raw",
	},
	conflict: []string{"seller_id", "product_code"},
	casts:    map[string]string{"raw": "jsonb"},
}

// ProductRepository handles data access for synced Trendyol products.
type ProductRepository struct {
	db *sqlx.DB
}

// NewProductRepository creates a new ProductRepository.
func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// UpsertBatch writes records for sellerID in one transaction and returns the
// number of rows written. Records without a business key are dropped; when a
// key repeats, the last record wins. An empty batch touches nothing.
func (r *ProductRepository) UpsertBatch(ctx context.Context, sellerID int64, records []models.MergedRecord) (int, error) {
	records = lastByKey(records, func(rec models.MergedRecord) string { return rec.ProductCode })
	if len(records) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		rows = append(rows, productRow(sellerID, rec))
	}

	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return productUpsert.exec(ctx, tx, rows)
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// productRow returns the bind values in productUpsert column order.
func productRow(sellerID int64, rec models.MergedRecord) []any {
	return []any{
		sellerID,
		rec.ProductCode,
		rec.Barcode,
		rec.StockCode,
		rec.Title,
		rec.Brand,
		rec.CategoryName,
		rec.Quantity,
		rec.ListPrice,
		rec.SalePrice,
		rec.Approved,
		rec.OnSale,
		rec.Archived,
		rec.Rejected,
		rec.Blacklisted,
		rec.LastUpdateEpochMs,
		string(rec.Status),
		rec.CompetitorCount,
		rec.EffectivePrice,
		rec.BuyboxOrder,
		rawJSON(rec.Raw),
	}
}

// rawJSON returns payload as text so lib/pq sends it as a jsonb literal
// rather than bytea.
func rawJSON(payload []byte) string {
	if len(payload) == 0 {
		return "{}"
	}
	return string(payload)
}
