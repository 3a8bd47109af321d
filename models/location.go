package models

import "time"

// LocationPing is an append-only position report from the driver carrying a shipment.
// The current location of a shipment is its most recent ping.
type LocationPing struct {
	ID         int64     `db:"id" json:"id"`
	ShipmentID int64     `db:"shipment_id" json:"shipment_id"`
	DriverID   int64     `db:"driver_id" json:"driver_id"`
	Lat        float64   `db:"lat" json:"lat"`
	Lng        float64   `db:"lng" json:"lng"`
	RecordedAt time.Time `db:"recorded_at" json:"recorded_at"`
}
