package models

import "time"

// Message is a chat line between two users about a shipment.
type Message struct {
	ID         int64     `db:"id" json:"id"`
	SenderID   int64     `db:"sender_id" json:"sender_id"`
	ReceiverID int64     `db:"receiver_id" json:"receiver_id"`
	ShipmentID *int64    `db:"shipment_id" json:"shipment_id,omitempty"`
	Body       string    `db:"body" json:"message"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Notification is a persisted lifecycle message for a user.
type Notification struct {
	ID         int64     `db:"id" json:"id"`
	UserID     int64     `db:"user_id" json:"user_id"`
	ShipmentID *int64    `db:"shipment_id" json:"shipment_id,omitempty"`
	Event      string    `db:"event" json:"event"`
	Message    string    `db:"message" json:"message"`
	IsRead     bool      `db:"is_read" json:"is_read"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
