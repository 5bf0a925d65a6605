package models

import "github.com/shopspring/decimal"

// BuyboxStatus is the derived competitive status of a product.
type BuyboxStatus string

const (
	BuyboxWin     BuyboxStatus = "WIN"
	BuyboxLose    BuyboxStatus = "LOSE"
	BuyboxUnknown BuyboxStatus = "UNKNOWN"
)

// PricingEntry is one buy-box comparison result, keyed by barcode.
type PricingEntry struct {
	Barcode           string
	BuyboxPrice       decimal.NullDecimal
	HasMultipleSeller bool
	BuyboxOrder       *int // 1 means the seller currently holds the buy box
}

// BuyboxResult holds the fields derived for one item.
type BuyboxResult struct {
	Status BuyboxStatus
	// CompetitorCount is approximate: the platform never reports an exact count.
	CompetitorCount *int
	EffectivePrice  decimal.NullDecimal
	BuyboxOrder     *int
}

// MergedRecord is the unit of persistence: a catalog item plus its derived
// buy-box fields. It is built fresh on every run.
type MergedRecord struct {
	CatalogItem
	BuyboxResult
}
