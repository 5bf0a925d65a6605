package service

import (
	"github.com/S3OD177/trendyolxsync/internal/models"
)

// The buy-box endpoint never reports how many sellers compete for a barcode,
// only whether there is more than one. These counts are stand-ins.
const (
	// CompetitorsWhenShared is the approximate count when hasMultipleSeller is true.
	CompetitorsWhenShared = 2
	// CompetitorsWhenAlone is the approximate count when a comparison entry
	// exists but hasMultipleSeller is false.
	CompetitorsWhenAlone = 1
	// CompetitorsWhenUnlisted is assumed for items the endpoint returned nothing for.
	CompetitorsWhenUnlisted = 0

	// winningOrder is the buyboxOrder of the offer that holds the buy box.
	winningOrder = 1
)

// InferBuybox derives the buy-box status of item from its comparison entry.
// It is pure and total.
//
// Without an entry, an item with a sale price is assumed to be a solo listing
// that wins by default; this is a heuristic and can misclassify delisted or
// restricted items. With an entry, the status follows buyboxOrder and the
// effective price is the reported buy-box price. Only a winning item falls
// back to its own sale price; a losing item without a buy-box price keeps the
// price unset because the sale price is not the winning offer.
func InferBuybox(item models.CatalogItem, entry *models.PricingEntry) models.BuyboxResult {
	if entry == nil {
		if !item.SalePrice.Valid {
			return models.BuyboxResult{Status: models.BuyboxUnknown}
		}
		return models.BuyboxResult{
			Status:          models.BuyboxWin,
			CompetitorCount: intPtr(CompetitorsWhenUnlisted),
			EffectivePrice:  item.SalePrice,
		}
	}

	status := models.BuyboxLose
	if entry.BuyboxOrder != nil && *entry.BuyboxOrder == winningOrder {
		status = models.BuyboxWin
	}

	price := entry.BuyboxPrice
	if !price.Valid && status == models.BuyboxWin {
		if !item.SalePrice.Valid {
			// A win is never reported without a price.
			return models.BuyboxResult{Status: models.BuyboxUnknown, BuyboxOrder: copyInt(entry.BuyboxOrder)}
		}
		price = item.SalePrice
	}

	count := CompetitorsWhenAlone
	if entry.HasMultipleSeller {
		count = CompetitorsWhenShared
	}

	return models.BuyboxResult{
		Status:          status,
		CompetitorCount: intPtr(count),
		EffectivePrice:  price,
		BuyboxOrder:     copyInt(entry.BuyboxOrder),
	}
}

// Merge combines item with its entry (looked up by barcode) into a record.
func Merge(item models.CatalogItem, entries map[string]models.PricingEntry) models.MergedRecord {
	var entry *models.PricingEntry
	if e, ok := entries[item.BarcodeKey()]; ok && item.BarcodeKey() != "" {
		entry = &e
	}
	return models.MergedRecord{CatalogItem: item, BuyboxResult: InferBuybox(item, entry)}
}

func intPtr(v int) *int {
	return &v
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	return intPtr(*v)
}
