package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/S3OD177/trendyolxsync/internal/models"
)

// summaryTTL bounds how long a last-run summary is kept.
const summaryTTL = 30 * 24 * time.Hour

// RunStore keeps the summary of the last run per job kind and seller.
type RunStore struct {
	redis *RedisClient
}

// NewRunStore creates a new RunStore.
func NewRunStore(redis *RedisClient) *RunStore {
	return &RunStore{redis: redis}
}

func (s *RunStore) key(kind string, sellerID int64) string {
	return fmt.Sprintf("trendyol:sync:last:%s:%d", kind, sellerID)
}

// Save stores summary as the last run for its kind and seller.
func (s *RunStore) Save(ctx context.Context, summary *models.RunSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}
	return s.redis.Set(ctx, s.key(summary.Kind, summary.SellerID), string(data), summaryTTL)
}

// Last returns the last stored run, or ErrNotFound.
func (s *RunStore) Last(ctx context.Context, kind string, sellerID int64) (*models.RunSummary, error) {
	data, err := s.redis.Get(ctx, s.key(kind, sellerID))
	if err != nil {
		return nil, err
	}

	var summary models.RunSummary
	if err := json.Unmarshal([]byte(data), &summary); err != nil {
		return nil, fmt.Errorf("unmarshal run summary: %w", err)
	}
	return &summary, nil
}
