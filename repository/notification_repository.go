package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/georgysavva/scany/sqlscan"

	"freightDeliveryManagement/models"
)

// NotificationRepository persists per-user lifecycle notifications.
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository creates a new NotificationRepository.
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO notifications (user_id, shipment_id, event, message, is_read, created_at) VALUES (?,?,?,?,?,?)`,
		n.UserID, n.ShipmentID, n.Event, n.Message, n.IsRead, n.CreatedAt)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	out := *n
	out.ID = id
	return &out, nil
}

// ListByUser returns the user's notifications, newest first.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	q := `SELECT id, user_id, shipment_id, event, message, is_read, created_at FROM notifications WHERE user_id = ?`
	if unreadOnly {
		q += ` AND is_read = 0`
	}
	q += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	var out []models.Notification
	err := sqlscan.Select(ctx, r.db, &out, q, userID, limit)
	return out, err
}

// MarkRead flags the given notifications of userID as read.
func (r *NotificationRepository) MarkRead(ctx context.Context, userID int64, ids ...int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var total int64
	for _, id := range ids {
		res, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?`, id, userID)
		if err != nil {
			return total, err
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}
