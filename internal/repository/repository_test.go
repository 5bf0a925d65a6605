package repository

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/S3OD177/trendyolxsync/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	return sqlx.NewDb(raw, "postgres"), mock
}

// recorder matches any value and remembers it.
type recorder struct {
	values *[]driver.Value
}

func (r recorder) Match(v driver.Value) bool {
	*r.values = append(*r.values, v)
	return true
}

func recordArgs(n int, into *[]driver.Value) []driver.Value {
	args := make([]driver.Value, n)
	for i := range args {
		args[i] = recorder{values: into}
	}
	return args
}

func strPtr(s string) *string { return &s }

func mergedRecord(code string, price string, status models.BuyboxStatus) models.MergedRecord {
	count := 2
	rec := models.MergedRecord{
		CatalogItem: models.CatalogItem{
			ProductCode: code,
			Barcode:     strPtr("BC-" + code),
			Title:       strPtr("Title " + code),
			SalePrice:   decimal.NewNullDecimal(decimal.RequireFromString(price)),
			Raw:         json.RawMessage(`{"productCode":"` + code + `"}`),
		},
		BuyboxResult: models.BuyboxResult{
			Status:          status,
			CompetitorCount: &count,
			EffectivePrice:  decimal.NewNullDecimal(decimal.RequireFromString(price)),
		},
	}
	return rec
}

func TestUpsertStatementShape(t *testing.T) {
	plan := upsertPlan{
		table:    "things",
		columns:  []string{"seller_id", "code", "name", "raw"},
		conflict: []string{"seller_id", "code"},
		casts:    map[string]string{"raw": "jsonb"},
	}

	got := plan.statement(2)
	want := "INSERT INTO things (seller_id, code, name, raw, synced_at) VALUES " +
		"($1, $2, $3, $4::jsonb, NOW()), ($5, $6, $7, $8::jsonb, NOW()) " +
		"ON CONFLICT (seller_id, code) DO UPDATE SET name = EXCLUDED.name, raw = EXCLUDED.raw, synced_at = NOW()"
	assert.Equal(t, want, got)
}

func TestLastByKey(t *testing.T) {
	type item struct{ key, val string }
	in := []item{{"a", "1"}, {"", "x"}, {"b", "2"}, {"a", "3"}, {"  ", "y"}}

	out := lastByKey(in, func(i item) string { return i.key })
	assert.Equal(t, []item{{"a", "3"}, {"b", "2"}}, out)
}

func TestProductUpsertEmptyBatchWritesNothing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProductRepository(db)

	n, err := repo.UpsertBatch(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = repo.UpsertBatch(context.Background(), 1, []models.MergedRecord{{}})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductUpsertWritesOneStatementPerPage(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProductRepository(db)

	records := []models.MergedRecord{
		mergedRecord("P1", "10", models.BuyboxWin),
		{CatalogItem: models.CatalogItem{Title: strPtr("keyless")}},
		mergedRecord("P2", "20", models.BuyboxLose),
		mergedRecord("P1", "11", models.BuyboxLose),
	}

	var args []driver.Value
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO trendyol_products (seller_id, product_code,")).
		WithArgs(recordArgs(2*len(productUpsert.columns), &args)...).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	n, err := repo.UpsertBatch(context.Background(), 99, records)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, mock.ExpectationsWereMet())

	width := len(productUpsert.columns)
	first := args[:width]
	assert.Equal(t, int64(99), first[0])
	assert.Equal(t, "P1", first[1])
	assert.Equal(t, "BC-P1", first[2])
	assert.Nil(t, first[3], "missing stock code is NULL")
	assert.Equal(t, "11", first[9], "last duplicate wins")
	assert.Equal(t, "LOSE", first[16])
	assert.Equal(t, int64(2), first[17])
	assert.Nil(t, first[19])
	assert.JSONEq(t, `{"productCode":"P1"}`, first[20].(string))
	assert.Equal(t, "P2", args[width+1])
}

func TestProductUpsertIsIdempotent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProductRepository(db)
	records := []models.MergedRecord{mergedRecord("P1", "10", models.BuyboxWin)}

	var firstArgs, secondArgs []driver.Value
	for _, into := range []*[]driver.Value{&firstArgs, &secondArgs} {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO trendyol_products").
			WithArgs(recordArgs(len(productUpsert.columns), into)...).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
	}

	for i := 0; i < 2; i++ {
		n, err := repo.UpsertBatch(context.Background(), 5, records)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	}
	require.NoError(t, mock.ExpectationsWereMet())

	// synced_at is NOW() in SQL, so identical bind values mean identical rows
	// apart from the timestamp.
	assert.Equal(t, firstArgs, secondArgs)
	assert.Len(t, firstArgs, len(productUpsert.columns))
}

func TestProductUpsertRollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO trendyol_products").WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	n, err := repo.UpsertBatch(context.Background(), 5, []models.MergedRecord{mergedRecord("P1", "1", models.BuyboxWin)})
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Contains(t, err.Error(), "deadlock detected")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSplitsLargeBatches(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProductRepository(db)

	records := make([]models.MergedRecord, maxRowsPerStatement+3)
	for i := range records {
		records[i] = mergedRecord(fmt.Sprintf("P%04d", i), "1", models.BuyboxWin)
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO trendyol_products").WillReturnResult(sqlmock.NewResult(0, maxRowsPerStatement))
	mock.ExpectExec("INSERT INTO trendyol_products").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	n, err := repo.UpsertBatch(context.Background(), 5, records)
	require.NoError(t, err)
	assert.Equal(t, len(records), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShipmentUpsert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewShipmentRepository(db)

	lines := 3
	packages := []models.ShipmentPackage{
		{PackageNumber: "PKG-1", Status: strPtr("Created"), LinesCount: &lines, Raw: json.RawMessage(`{"id":1}`)},
		{PackageNumber: " "},
	}

	var args []driver.Value
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO trendyol_shipment_packages")).
		WithArgs(recordArgs(len(shipmentUpsert.columns), &args)...).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := repo.UpsertBatch(context.Background(), 7, packages)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, "PKG-1", args[1])
	assert.Equal(t, "Created", args[3])
	assert.Equal(t, int64(3), args[11])
	assert.Equal(t, `{"id":1}`, args[12])
}
