package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/S3OD177/trendyolxsync/pkg/trendyol"
)

// LoopState is the state of a page loop.
type LoopState string

const (
	LoopRunning LoopState = "RUNNING"
	LoopDone    LoopState = "DONE"
	LoopFailed  LoopState = "FAILED"
)

// Why a loop reached LoopDone.
const (
	StopEmptyPage = "empty_page"
	StopLastPage  = "last_page"
	StopMaxPages  = "max_pages"
)

// PageFetcher fetches the page with the given zero-based index.
type PageFetcher func(ctx context.Context, page int) (*trendyol.Page, error)

// PageHandler processes the items of one page and returns how many rows it
// persisted. Each call is its own commit boundary.
type PageHandler func(ctx context.Context, page int, items []json.RawMessage) (int, error)

// LoopStats summarizes a page loop.
type LoopStats struct {
	State      LoopState
	StopReason string
	Pages      int // pages handled successfully
	Fetched    int // items received, including the failing page
	Written    int
	TotalPages *int // last value reported by the API
}

// RunPages fetches pages in order starting at 0 and hands each non-empty page
// to handle. It stops after an empty page, the last page reported by the API,
// or maxPages pages, whichever comes first. Errors from fetch or handle stop
// the loop in LoopFailed; pages handled before the failure stay committed.
func RunPages(ctx context.Context, maxPages int, fetch PageFetcher, handle PageHandler) (LoopStats, error) {
	stats := LoopStats{State: LoopRunning}
	if maxPages <= 0 {
		stats.State = LoopDone
		stats.StopReason = StopMaxPages
		return stats, nil
	}

	for page := 0; stats.State == LoopRunning; page++ {
		if err := ctx.Err(); err != nil {
			stats.State = LoopFailed
			return stats, err
		}

		result, err := fetch(ctx, page)
		if err != nil {
			stats.State = LoopFailed
			return stats, fmt.Errorf("fetch page %d: %w", page, err)
		}
		if result.TotalPages != nil {
			stats.TotalPages = result.TotalPages
		}
		stats.Fetched += len(result.Content)

		if result.Empty() {
			stats.State = LoopDone
			stats.StopReason = StopEmptyPage
			break
		}

		written, err := handle(ctx, page, result.Content)
		if err != nil {
			stats.State = LoopFailed
			return stats, fmt.Errorf("process page %d: %w", page, err)
		}
		stats.Pages++
		stats.Written += written

		event := log.Info().Int("page", page).Int("items", len(result.Content)).Int("written", written)
		if result.TotalPages != nil {
			event = event.Int("total_pages", *result.TotalPages)
		}
		event.Msg("Page processed")

		switch {
		case result.IsLast(page):
			stats.State = LoopDone
			stats.StopReason = StopLastPage
		case page+1 >= maxPages:
			stats.State = LoopDone
			stats.StopReason = StopMaxPages
		}
	}
	return stats, nil
}
