package models

import "time"

// Sync job kinds.
const (
	KindProducts  = "products"
	KindShipments = "shipments"
)

// RunSummary describes one finished sync run.
type RunSummary struct {
	RunID      string    `json:"runId"`
	Kind       string    `json:"kind"`
	SellerID   int64     `json:"sellerId"`
	DryRun     bool      `json:"dryRun"`
	State      string    `json:"state"`
	StopReason string    `json:"stopReason,omitempty"`
	Pages      int       `json:"pages"`
	Fetched    int       `json:"fetched"`
	Upserted   int       `json:"upserted"`
	Skipped    int       `json:"skipped"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`

	// Buy-box status counts; products only.
	Statuses map[BuyboxStatus]int `json:"statuses,omitempty"`
}

// Duration returns how long the run took.
func (r RunSummary) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
