package models

import (
	"encoding/json"
	"strings"
)

var packageKeyFields = []string{"packageNumber", "shipmentPackageId", "id"}

// ShipmentPackage is one shipment package from the order endpoint.
type ShipmentPackage struct {
	PackageNumber               string // resolved business key
	OrderNumber                 *string
	Status                      *string
	CargoProviderName           *string
	CargoTrackingNumber         *string
	CargoTrackingLink           *string
	PackageLastModifiedDate     *int64
	ShipmentPackageCreationDate *int64
	EstimatedDeliveryStartDate  *int64
	EstimatedDeliveryEndDate    *int64
	LinesCount                  *int

	Raw       json.RawMessage
	Defaulted []string
}

// ParseShipmentPackage maps one shipment payload onto a ShipmentPackage.
func ParseShipmentPackage(raw json.RawMessage) (ShipmentPackage, error) {
	p, err := newPayload(raw)
	if err != nil {
		return ShipmentPackage{}, err
	}

	pkg := ShipmentPackage{
		PackageNumber:               p.firstNonBlank(packageKeyFields...),
		OrderNumber:                 p.textField("orderNumber"),
		Status:                      p.textField("shipmentPackageStatus"),
		CargoProviderName:           p.textField("cargoProviderName"),
		CargoTrackingNumber:         p.textField("cargoTrackingNumber"),
		CargoTrackingLink:           p.textField("cargoTrackingLink"),
		PackageLastModifiedDate:     p.int64Field("packageLastModifiedDate"),
		ShipmentPackageCreationDate: p.int64Field("shipmentPackageCreationDate"),
		EstimatedDeliveryStartDate:  p.int64Field("estimatedDeliveryStartDate"),
		EstimatedDeliveryEndDate:    p.int64Field("estimatedDeliveryEndDate"),
		LinesCount:                  p.lenOfArray("lines"),
		Raw:                         append(json.RawMessage(nil), raw...),
	}
	pkg.Defaulted = p.defaulted
	return pkg, nil
}

// HasBusinessKey reports whether the package can be persisted.
func (s ShipmentPackage) HasBusinessKey() bool {
	return strings.TrimSpace(s.PackageNumber) != ""
}
