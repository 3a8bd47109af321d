package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/georgysavva/scany/sqlscan"

	"freightDeliveryManagement/models"
)

// MessageRepository persists chat messages exchanged over the realtime channel.
type MessageRepository struct {
	db *sql.DB
}

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create stores a message and returns it with its id.
func (r *MessageRepository) Create(ctx context.Context, m *models.Message) (*models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO messages (sender_id, receiver_id, shipment_id, body, created_at) VALUES (?,?,?,?,?)`,
		m.SenderID, m.ReceiverID, m.ShipmentID, m.Body, m.CreatedAt)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	out := *m
	out.ID = id
	return &out, nil
}

// ListByShipment returns the conversation attached to a shipment, oldest first.
func (r *MessageRepository) ListByShipment(ctx context.Context, shipmentID int64, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var out []models.Message
	err := sqlscan.Select(ctx, r.db, &out, `SELECT id, sender_id, receiver_id, shipment_id, body, created_at FROM messages
WHERE shipment_id = ? ORDER BY created_at ASC, id ASC LIMIT ?`, shipmentID, limit)
	return out, err
}

// ListBetween returns messages exchanged between two users, oldest first.
func (r *MessageRepository) ListBetween(ctx context.Context, a, b int64, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var out []models.Message
	err := sqlscan.Select(ctx, r.db, &out, `SELECT id, sender_id, receiver_id, shipment_id, body, created_at FROM messages
WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
ORDER BY created_at ASC, id ASC LIMIT ?`, a, b, b, a, limit)
	return out, err
}
