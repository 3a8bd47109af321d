package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ShipmentStatus represents the lifecycle position of a shipment.
type ShipmentStatus string

const (
	ShipmentStatusPending              ShipmentStatus = "pending"
	ShipmentStatusAccepted             ShipmentStatus = "accepted"
	ShipmentStatusPickedUp             ShipmentStatus = "picked_up"
	ShipmentStatusInTransit            ShipmentStatus = "in_transit"
	ShipmentStatusAwaitingConfirmation ShipmentStatus = "awaiting_confirmation"
	ShipmentStatusDelivered            ShipmentStatus = "delivered"
	ShipmentStatusCancelled            ShipmentStatus = "cancelled"
)

// AllShipmentStatuses lists statuses in lifecycle order.
var AllShipmentStatuses = []ShipmentStatus{
	ShipmentStatusPending,
	ShipmentStatusAccepted,
	ShipmentStatusPickedUp,
	ShipmentStatusInTransit,
	ShipmentStatusAwaitingConfirmation,
	ShipmentStatusDelivered,
	ShipmentStatusCancelled,
}

// IsTerminal reports whether no further transition can leave this status.
func (s ShipmentStatus) IsTerminal() bool {
	return s == ShipmentStatusDelivered || s == ShipmentStatusCancelled
}

// PaymentStatus tracks the external checkout session of a shipment.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// ConfirmationMethod records how the recipient proved identity.
type ConfirmationMethod string

const (
	ConfirmedByMobile ConfirmationMethod = "mobile"
	ConfirmedByOTP    ConfirmationMethod = "otp"
)

// Shipment is a single freight job owned by a shipper.
// DriverID stays nil until a driver accepts it and never changes afterwards.
type Shipment struct {
	ID   int64   `db:"id" json:"id"`
	Code *string `db:"shipment_code" json:"shipment_code"`

	ShipperID int64  `db:"shipper_id" json:"shipper_id"`
	DriverID  *int64 `db:"driver_id" json:"driver_id"`

	VehicleType         string  `db:"vehicle_type" json:"vehicle_type"`
	PickupLat           float64 `db:"pickup_lat" json:"pickup_lat"`
	PickupLng           float64 `db:"pickup_lng" json:"pickup_lng"`
	PickupName          string  `db:"pickup_name" json:"pickup_name"`
	PickupLocationName  string  `db:"pickup_location_name" json:"pickup_location_name"`
	PickupZip           string  `db:"pickup_zip" json:"pickup_zip"`
	DropoffLat          float64 `db:"dropoff_lat" json:"dropoff_lat"`
	DropoffLng          float64 `db:"dropoff_lng" json:"dropoff_lng"`
	DropoffName         string  `db:"dropoff_name" json:"dropoff_name"`
	DropoffLocationName string  `db:"dropoff_location_name" json:"dropoff_location_name"`
	DropoffZip          string  `db:"dropoff_zip" json:"dropoff_zip"`
	PackageInstructions string  `db:"package_instructions" json:"package_instructions"`

	ServiceLevel       string        `db:"service_level" json:"service_level"`
	DeclaredValueCents int64         `db:"declared_value_cents" json:"declared_value_cents"`
	TermsAcknowledged  bool          `db:"terms_acknowledged" json:"terms_acknowledged"`
	PaymentStatus      PaymentStatus `db:"payment_status" json:"payment_status"`
	PaymentSessionID   string        `db:"payment_session_id" json:"-"`
	PaymentURL         string        `db:"payment_url" json:"payment_url,omitempty"`

	Status       ShipmentStatus      `db:"status" json:"status"`
	CancelReason *string             `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CancelledBy  *int64              `db:"cancelled_by" json:"cancelled_by,omitempty"`
	ConfirmedVia *ConfirmationMethod `db:"confirmed_via" json:"confirmed_via,omitempty"`

	// Recipient verification. The qr token is never exposed in JSON; it only travels
	// inside a signed delivery token.
	RecipientMobile string     `db:"recipient_mobile" json:"recipient_mobile"`
	QRToken         *string    `db:"qr_token" json:"-"`
	QRExpiresAt     *time.Time `db:"qr_expires_at" json:"qr_expires_at,omitempty"`

	Images ImageRefs `db:"images" json:"images"`

	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
	PaidAt      *time.Time `db:"paid_at" json:"paid_at,omitempty"`
	AcceptedAt  *time.Time `db:"accepted_at" json:"accepted_at,omitempty"`
	DeliveredAt *time.Time `db:"delivered_at" json:"delivered_at,omitempty"`
	CancelledAt *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
}

// CodeString returns the human-readable identifier or "" when not yet assigned.
func (s *Shipment) CodeString() string {
	if s == nil || s.Code == nil {
		return ""
	}
	return *s.Code
}

// IsAssignedTo reports whether driverID is the shipment's driver.
func (s *Shipment) IsAssignedTo(driverID int64) bool {
	return s != nil && s.DriverID != nil && *s.DriverID == driverID
}

// FormatShipmentCode derives the human-readable identifier from the creation date and id.
func FormatShipmentCode(createdAt time.Time, id int64) string {
	return fmt.Sprintf("shipment-%s-%05d", createdAt.UTC().Format("20060102"), id)
}

// ImageRefs is an ordered list of image references stored as a JSON array.
type ImageRefs []string

// Value implements driver.Valuer.
func (r ImageRefs) Value() (driver.Value, error) {
	if r == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(r))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (r *ImageRefs) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*r = ImageRefs{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return errors.New("images: unsupported column type")
	}
	if len(raw) == 0 {
		*r = ImageRefs{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("images: %w", err)
	}
	*r = out
	return nil
}

// StatusCount is one row of a shipper's summary.
type StatusCount struct {
	Status ShipmentStatus `db:"status" json:"status"`
	Count  int64          `db:"n" json:"count"`
}
