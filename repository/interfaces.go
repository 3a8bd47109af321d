package repository

import (
	"context"
	"time"

	"freightDeliveryManagement/models"
)

// UserRepositoryI defines operations on User entities.
type UserRepositoryI interface {
	Create(ctx context.Context, username string, role models.Role, phone string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetOrCreate(ctx context.Context, username string, role models.Role, phone string) (*models.User, error)
}

// ShipmentRepositoryI defines operations on Shipment entities. Mutations report whether
// their conditional write matched a row.
type ShipmentRepositoryI interface {
	Create(ctx context.Context, s *models.Shipment) (*models.Shipment, error)
	GetByID(ctx context.Context, id int64) (*models.Shipment, error)
	GetByPaymentSession(ctx context.Context, sessionID string) (*models.Shipment, error)
	ListByShipper(ctx context.Context, shipperID int64, pageSize int, afterID int64) ([]models.Shipment, error)
	ListByDriver(ctx context.Context, driverID int64) ([]models.Shipment, error)
	ListAvailable(ctx context.Context) ([]models.Shipment, error)
	MarkPaid(ctx context.Context, sessionID string, at time.Time) (bool, error)
	Assign(ctx context.Context, id, driverID int64, at time.Time) (bool, error)
	Advance(ctx context.Context, id, driverID int64, from, to models.ShipmentStatus, at time.Time) (bool, error)
	AwaitConfirmation(ctx context.Context, id, driverID int64, qrToken string, expiresAt, at time.Time) (bool, error)
	MarkDelivered(ctx context.Context, id int64, qrToken string, via models.ConfirmationMethod, at time.Time) (bool, error)
	Cancel(ctx context.Context, id int64, from models.ShipmentStatus, actorID int64, reason string, at time.Time) (bool, error)
	CountByStatus(ctx context.Context, shipperID int64) ([]models.StatusCount, error)
}

// LocationRepositoryI defines operations on location pings.
type LocationRepositoryI interface {
	Append(ctx context.Context, p *models.LocationPing) (*models.LocationPing, error)
	Latest(ctx context.Context, shipmentID int64) (*models.LocationPing, error)
}

// OTPRepositoryI defines operations on one-time codes.
type OTPRepositoryI interface {
	Insert(ctx context.Context, phone, code string, expiresAt, createdAt time.Time) error
	Latest(ctx context.Context, phone string) (*models.OTPCode, error)
	DeleteByPhone(ctx context.Context, phone string) error
}

// MessageRepositoryI defines operations on chat messages.
type MessageRepositoryI interface {
	Create(ctx context.Context, m *models.Message) (*models.Message, error)
	ListByShipment(ctx context.Context, shipmentID int64, limit int) ([]models.Message, error)
	ListBetween(ctx context.Context, a, b int64, limit int) ([]models.Message, error)
}

// NotificationRepositoryI defines operations on persisted notifications.
type NotificationRepositoryI interface {
	Create(ctx context.Context, n *models.Notification) (*models.Notification, error)
	ListByUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID int64, ids ...int64) (int64, error)
}

// RevocationRepositoryI defines operations on revoked access tokens.
type RevocationRepositoryI interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

var (
	_ UserRepositoryI         = (*UserRepository)(nil)
	_ ShipmentRepositoryI     = (*ShipmentRepository)(nil)
	_ LocationRepositoryI     = (*LocationRepository)(nil)
	_ OTPRepositoryI          = (*OTPRepository)(nil)
	_ MessageRepositoryI      = (*MessageRepository)(nil)
	_ NotificationRepositoryI = (*NotificationRepository)(nil)
	_ RevocationRepositoryI   = (*RevocationRepository)(nil)
)
