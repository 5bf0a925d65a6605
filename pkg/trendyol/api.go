package trendyol

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// ProductQuery selects one page of the seller's product listing.
type ProductQuery struct {
	Page         int // zero-based
	Size         int
	ApprovedOnly bool
	Archived     *bool
	OnSale       *bool
	Barcode      string
}

// ShipmentQuery selects one page of shipment packages modified in [StartDate, EndDate].
type ShipmentQuery struct {
	Page             int
	Size             int
	StartDate        int64 // epoch ms, inclusive
	EndDate          int64 // epoch ms, inclusive
	Status           string
	OrderByField     string
	OrderByDirection string
}

// GetProducts fetches one page of products for the configured seller.
func (c *Client) GetProducts(ctx context.Context, q ProductQuery) (*Page, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("size", strconv.Itoa(q.Size))
	params.Set("supplierId", strconv.FormatInt(c.config.SellerID, 10))
	if q.ApprovedOnly {
		params.Set("approved", "true")
	}
	if q.Archived != nil {
		params.Set("archived", strconv.FormatBool(*q.Archived))
	}
	if q.OnSale != nil {
		params.Set("onSale", strconv.FormatBool(*q.OnSale))
	}
	if q.Barcode != "" {
		params.Set("barcode", q.Barcode)
	}

	body, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   fmt.Sprintf("/integration/product/sellers/%d/products", c.config.SellerID),
		query:  params,
	})
	if err != nil {
		return nil, err
	}
	return decodePage(body)
}

// buyboxRequest is the body of the buy-box information call.
type buyboxRequest struct {
	Barcodes   []string `json:"barcodes"`
	SupplierID int64    `json:"supplierId"`
}

// GetBuyboxInformation returns buy-box entries for the given barcodes. The
// platform may omit barcodes it has no data for.
func (c *Client) GetBuyboxInformation(ctx context.Context, barcodes []string) ([]BuyboxInfo, error) {
	headers := map[string]string{}
	if c.config.StoreFrontCode != "" {
		headers["storeFrontCode"] = c.config.StoreFrontCode
	}

	body, err := c.do(ctx, request{
		method:  http.MethodPost,
		path:    fmt.Sprintf("/integration/product/sellers/%d/products/buybox-information", c.config.SellerID),
		body:    buyboxRequest{Barcodes: barcodes, SupplierID: c.config.SellerID},
		headers: headers,
	})
	if err != nil {
		return nil, err
	}
	return decodeBuybox(body)
}

// GetShipmentPackages fetches one page of shipment packages.
func (c *Client) GetShipmentPackages(ctx context.Context, q ShipmentQuery) (*Page, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("size", strconv.Itoa(q.Size))
	params.Set("startDate", strconv.FormatInt(q.StartDate, 10))
	params.Set("endDate", strconv.FormatInt(q.EndDate, 10))
	if q.OrderByField != "" {
		params.Set("orderByField", q.OrderByField)
	}
	if q.OrderByDirection != "" {
		params.Set("orderByDirection", q.OrderByDirection)
	}
	if q.Status != "" {
		params.Set("shipmentPackageStatus", q.Status)
	}

	body, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   fmt.Sprintf("/integration/order/sellers/%d/shipment-packages", c.config.SellerID),
		query:  params,
	})
	if err != nil {
		return nil, err
	}
	return decodePage(body)
}
