package grpcserver

import (
	"freightDeliveryManagement/internal/delivery"
	"freightDeliveryManagement/models"
)

type CreateShipmentRequest struct {
	VehicleType         string        `json:"vehicle_type"`
	Pickup              delivery.Stop `json:"pickup"`
	Dropoff             delivery.Stop `json:"dropoff"`
	PackageInstructions string        `json:"package_instructions"`
	ServiceLevel        string        `json:"service_level"`
	DeclaredValue       float64       `json:"declared_value"`
	TermsAcknowledged   bool          `json:"terms_acknowledged"`
	RecipientMobile     string        `json:"recipient_mobile"`
	Images              []string      `json:"images"`
}

type CreateShipmentResponse struct {
	Shipment   *models.Shipment `json:"shipment"`
	PaymentURL string           `json:"payment_url"`
}

type ShipmentRequest struct {
	ShipmentID int64 `json:"shipment_id"`
}

type ShipmentResponse struct {
	Shipment *models.Shipment `json:"shipment"`
}

type ListShipmentsRequest struct {
	PageSize int   `json:"page_size"`
	AfterID  int64 `json:"after_id"`
}

type ListShipmentsResponse struct {
	Shipments []models.Shipment `json:"shipments"`
	// NextAfterID is the cursor for the following page, zero on the last page.
	NextAfterID int64 `json:"next_after_id,omitempty"`
}

type GetSummaryRequest struct{}

type GetSummaryResponse struct {
	Counts []models.StatusCount `json:"counts"`
}

type CancelShipmentRequest struct {
	ShipmentID int64  `json:"shipment_id"`
	Reason     string `json:"reason"`
}

type DeliveryQRResponse struct {
	Token      string `json:"token"`
	ConfirmURL string `json:"confirm_url"`
	PNG        []byte `json:"png"`
}

type LocationResponse struct {
	Location *models.LocationPing `json:"location"`
}

type ListAvailableRequest struct {
	Lat         *float64 `json:"lat,omitempty"`
	Lng         *float64 `json:"lng,omitempty"`
	RadiusMiles float64  `json:"radius_miles,omitempty"`
}

type ListAvailableResponse struct {
	Shipments []delivery.AvailableShipment `json:"shipments"`
}

type AdvanceStatusRequest struct {
	ShipmentID int64 `json:"shipment_id"`
	// Status is the target status. Empty advances to the next one.
	Status models.ShipmentStatus `json:"status,omitempty"`
}

type AdvanceStatusResponse struct {
	Shipment      *models.Shipment `json:"shipment"`
	DeliveryToken string           `json:"delivery_token,omitempty"`
	ConfirmURL    string           `json:"confirm_url,omitempty"`
}

type PostLocationRequest struct {
	ShipmentID int64   `json:"shipment_id"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
}
