package models

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// productKeyFields is the business key priority for catalog items.
var productKeyFields = []string{"productCode", "stockCode", "barcode", "id"}

// CatalogItem is one product as reported by the catalog endpoint.
// Optional fields are nil when the platform omitted them.
type CatalogItem struct {
	// ProductCode is the resolved business key; empty when unresolvable.
	ProductCode       string
	Barcode           *string
	StockCode         *string
	Title             *string
	Brand             *string
	CategoryName      *string
	Quantity          *int
	ListPrice         decimal.NullDecimal
	SalePrice         decimal.NullDecimal
	Approved          *bool
	OnSale            *bool
	Archived          *bool
	Rejected          *bool
	Blacklisted       *bool
	LastUpdateEpochMs *int64

	// Raw is the received payload, stored verbatim.
	Raw json.RawMessage
	// Defaulted lists wire fields that were absent or unusable.
	Defaulted []string
}

// ParseCatalogItem maps one catalog payload onto a CatalogItem. Every field
// is optional; the only error is a payload that is not a JSON object.
func ParseCatalogItem(raw json.RawMessage) (CatalogItem, error) {
	p, err := newPayload(raw)
	if err != nil {
		return CatalogItem{}, err
	}

	item := CatalogItem{
		ProductCode:       p.firstNonBlank(productKeyFields...),
		Barcode:           p.textField("barcode"),
		StockCode:         p.textField("stockCode"),
		Title:             p.textField("title"),
		Brand:             p.textField("brand"),
		CategoryName:      p.textField("categoryName"),
		Quantity:          p.intField("quantity"),
		ListPrice:         p.decimalField("listPrice"),
		SalePrice:         p.decimalField("salePrice"),
		Approved:          p.boolField("approved"),
		OnSale:            p.boolField("onSale"),
		Archived:          p.boolField("archived"),
		Rejected:          p.boolField("rejected"),
		Blacklisted:       p.boolField("blacklisted"),
		LastUpdateEpochMs: p.int64Field("lastUpdateDate"),
		Raw:               append(json.RawMessage(nil), raw...),
	}
	item.Defaulted = p.defaulted
	return item, nil
}

// HasBusinessKey reports whether the item can be persisted.
func (c CatalogItem) HasBusinessKey() bool {
	return strings.TrimSpace(c.ProductCode) != ""
}

// BarcodeKey returns the trimmed barcode used for buy-box lookups, or "".
func (c CatalogItem) BarcodeKey() string {
	if c.Barcode == nil {
		return ""
	}
	return strings.TrimSpace(*c.Barcode)
}
