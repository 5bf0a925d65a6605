package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/S3OD177/trendyolxsync/internal/models"
	"github.com/S3OD177/trendyolxsync/pkg/trendyol"
)

type fakeShipmentSource struct {
	pages   map[int]*trendyol.Page
	queries []trendyol.ShipmentQuery
}

func (f *fakeShipmentSource) GetShipmentPackages(_ context.Context, q trendyol.ShipmentQuery) (*trendyol.Page, error) {
	f.queries = append(f.queries, q)
	if p, ok := f.pages[q.Page]; ok {
		return p, nil
	}
	return &trendyol.Page{}, nil
}

type fakeShipmentStore struct {
	batches [][]models.ShipmentPackage
}

func (f *fakeShipmentStore) UpsertBatch(_ context.Context, _ int64, packages []models.ShipmentPackage) (int, error) {
	f.batches = append(f.batches, packages)
	n := 0
	for _, p := range packages {
		if p.HasBusinessKey() {
			n++
		}
	}
	return n, nil
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestShipmentWindowDefaults(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := NewShipmentSyncService(7, &fakeShipmentSource{}, nil)
	svc.now = fixedClock(now)

	start, end, err := svc.Window(ShipmentSyncOptions{LookbackHours: 24})
	require.NoError(t, err)
	assert.Equal(t, now.UnixMilli(), end)
	assert.Equal(t, now.Add(-24*time.Hour).UnixMilli(), start)

	start, end, err = svc.Window(ShipmentSyncOptions{StartDateMs: 1000, EndDateMs: 2000})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), start)
	assert.Equal(t, int64(2000), end)

	_, _, err = svc.Window(ShipmentSyncOptions{StartDateMs: 3000, EndDateMs: 2000})
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestShipmentSyncPersistsPages(t *testing.T) {
	two := 2
	source := &fakeShipmentSource{pages: map[int]*trendyol.Page{
		0: {TotalPages: &two, Content: []json.RawMessage{
			json.RawMessage(`{"shipmentPackageId": 1, "lines": []}`),
			json.RawMessage(`{"orderNumber": "no key"}`),
		}},
		1: {TotalPages: &two, Content: []json.RawMessage{
			json.RawMessage(`{"packageNumber": "PKG-2"}`),
		}},
	}}
	store := &fakeShipmentStore{}
	svc := NewShipmentSyncService(7, source, store)
	svc.now = fixedClock(time.UnixMilli(50_000))

	summary, err := svc.Run(context.Background(), ShipmentSyncOptions{
		PageSize:         200,
		MaxPages:         20,
		Status:           "Shipped",
		OrderByField:     "PackageLastModifiedDate",
		OrderByDirection: "DESC",
		StartDateMs:      10_000,
	})
	require.NoError(t, err)

	require.Len(t, source.queries, 2)
	q := source.queries[0]
	assert.Equal(t, int64(10_000), q.StartDate)
	assert.Equal(t, int64(50_000), q.EndDate)
	assert.Equal(t, "Shipped", q.Status)
	assert.Len(t, store.batches, 2)
	assert.Equal(t, 3, summary.Fetched)
	assert.Equal(t, 2, summary.Upserted)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, StopLastPage, summary.StopReason)
}

func TestShipmentSyncInvalidWindowFailsBeforeFetch(t *testing.T) {
	source := &fakeShipmentSource{}
	summary, err := NewShipmentSyncService(7, source, nil).
		Run(context.Background(), ShipmentSyncOptions{StartDateMs: 5, EndDateMs: 1, MaxPages: 1})
	assert.ErrorIs(t, err, ErrInvalidWindow)
	assert.Empty(t, source.queries)
	assert.Equal(t, string(LoopFailed), summary.State)
}

func TestShipmentSyncDryRun(t *testing.T) {
	source := &fakeShipmentSource{pages: map[int]*trendyol.Page{
		0: {Content: []json.RawMessage{json.RawMessage(`{"id": 9}`)}},
	}}
	store := &fakeShipmentStore{}

	summary, err := NewShipmentSyncService(7, source, store).
		Run(context.Background(), ShipmentSyncOptions{MaxPages: 1, DryRun: true, LookbackHours: 1})
	require.NoError(t, err)
	assert.Empty(t, store.batches)
	assert.Equal(t, 1, summary.Fetched)
	assert.Equal(t, StopMaxPages, summary.StopReason)
}
