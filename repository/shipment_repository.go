package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/sqlscan"

	"freightDeliveryManagement/internal/db"
	"freightDeliveryManagement/models"
)

const shipmentColumns = `id, shipment_code, shipper_id, driver_id, vehicle_type,
pickup_lat, pickup_lng, pickup_name, pickup_location_name, pickup_zip,
dropoff_lat, dropoff_lng, dropoff_name, dropoff_location_name, dropoff_zip,
package_instructions, service_level, declared_value_cents, terms_acknowledged,
payment_status, payment_session_id, payment_url, status, cancel_reason, cancelled_by,
confirmed_via, recipient_mobile, qr_token, qr_expires_at, images,
created_at, updated_at, paid_at, accepted_at, delivered_at, cancelled_at`

// ShipmentRepository owns the shipments table. Every state change is a conditional UPDATE
// whose rows-affected count tells the caller whether it won.
type ShipmentRepository struct {
	db *sql.DB
}

// NewShipmentRepository creates a new ShipmentRepository.
func NewShipmentRepository(db *sql.DB) *ShipmentRepository {
	return &ShipmentRepository{db: db}
}

// Create inserts the shipment and assigns its human-readable code in one transaction.
// The code needs the generated id, so it is written by a second statement guarded by
// shipment_code IS NULL.
func (r *ShipmentRepository) Create(ctx context.Context, s *models.Shipment) (*models.Shipment, error) {
	if s == nil {
		return nil, errors.New("shipment is nil")
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	if s.Status == "" {
		s.Status = models.ShipmentStatusPending
	}
	if s.PaymentStatus == "" {
		s.PaymentStatus = models.PaymentStatusPending
	}
	s.UpdatedAt = s.CreatedAt

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	err := db.InTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO shipments (
shipper_id, vehicle_type,
pickup_lat, pickup_lng, pickup_name, pickup_location_name, pickup_zip,
dropoff_lat, dropoff_lng, dropoff_name, dropoff_location_name, dropoff_zip,
package_instructions, service_level, declared_value_cents, terms_acknowledged,
payment_status, payment_session_id, payment_url, status, recipient_mobile, images,
created_at, updated_at
) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			s.ShipperID, s.VehicleType,
			s.PickupLat, s.PickupLng, s.PickupName, s.PickupLocationName, s.PickupZip,
			s.DropoffLat, s.DropoffLng, s.DropoffName, s.DropoffLocationName, s.DropoffZip,
			s.PackageInstructions, s.ServiceLevel, s.DeclaredValueCents, s.TermsAcknowledged,
			string(s.PaymentStatus), s.PaymentSessionID, s.PaymentURL, string(s.Status), s.RecipientMobile, s.Images,
			s.CreatedAt, s.UpdatedAt)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		code := models.FormatShipmentCode(s.CreatedAt, id)
		res, err = tx.ExecContext(ctx, `UPDATE shipments SET shipment_code = ? WHERE id = ? AND shipment_code IS NULL`, code, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return fmt.Errorf("assign shipment code: id=%d", id)
		}
		s.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	out, err := r.GetByID(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("created shipment not found: id=%d", s.ID)
	}
	return out, nil
}

// GetByID fetches a shipment by its ID. Returns nil, nil when absent.
func (r *ShipmentRepository) GetByID(ctx context.Context, id int64) (*models.Shipment, error) {
	return r.getOne(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE id = ?`, id)
}

// GetByPaymentSession fetches a shipment by its checkout session id.
func (r *ShipmentRepository) GetByPaymentSession(ctx context.Context, sessionID string) (*models.Shipment, error) {
	return r.getOne(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE payment_session_id = ?`, sessionID)
}

func (r *ShipmentRepository) getOne(ctx context.Context, query string, args ...any) (*models.Shipment, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var s models.Shipment
	if err := sqlscan.Get(ctx, r.db, &s, query, args...); err != nil {
		if sqlscan.NotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// ListByShipper returns a page of the shipper's shipments, newest first.
// Uses keyset pagination on id: pass the last id of the previous page as afterID.
func (r *ShipmentRepository) ListByShipper(ctx context.Context, shipperID int64, pageSize int, afterID int64) ([]models.Shipment, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var out []models.Shipment
	var err error
	if afterID > 0 {
		err = sqlscan.Select(ctx, r.db, &out, `SELECT `+shipmentColumns+` FROM shipments
WHERE shipper_id = ? AND id < ?
ORDER BY id DESC LIMIT ?`, shipperID, afterID, pageSize)
	} else {
		err = sqlscan.Select(ctx, r.db, &out, `SELECT `+shipmentColumns+` FROM shipments
WHERE shipper_id = ?
ORDER BY id DESC LIMIT ?`, shipperID, pageSize)
	}
	return out, err
}

// ListByDriver returns the shipments assigned to a driver, newest first.
func (r *ShipmentRepository) ListByDriver(ctx context.Context, driverID int64) ([]models.Shipment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var out []models.Shipment
	err := sqlscan.Select(ctx, r.db, &out, `SELECT `+shipmentColumns+` FROM shipments WHERE driver_id = ? ORDER BY id DESC`, driverID)
	return out, err
}

// ListAvailable returns paid, unassigned shipments that are still pending, oldest first.
func (r *ShipmentRepository) ListAvailable(ctx context.Context) ([]models.Shipment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var out []models.Shipment
	err := sqlscan.Select(ctx, r.db, &out, `SELECT `+shipmentColumns+` FROM shipments
WHERE payment_status = 'paid' AND driver_id IS NULL AND status = 'pending'
ORDER BY id ASC`)
	return out, err
}

// MarkPaid flips payment_status to paid for the given checkout session.
// Returns false when no pending shipment carries that session id.
func (r *ShipmentRepository) MarkPaid(ctx context.Context, sessionID string, at time.Time) (bool, error) {
	return r.execOne(ctx, `UPDATE shipments SET payment_status = 'paid', paid_at = ?, updated_at = ?
WHERE payment_session_id = ? AND payment_status = 'pending'`, at, at, sessionID)
}

// Assign sets the driver on a paid, pending, unassigned shipment.
// Returns false when another driver won or the shipment is not eligible.
func (r *ShipmentRepository) Assign(ctx context.Context, id, driverID int64, at time.Time) (bool, error) {
	return r.execOne(ctx, `UPDATE shipments SET driver_id = ?, status = 'accepted', accepted_at = ?, updated_at = ?
WHERE id = ? AND driver_id IS NULL AND status = 'pending' AND payment_status = 'paid'`, driverID, at, at, id)
}

// Advance moves a shipment held by driverID from one status to the next.
func (r *ShipmentRepository) Advance(ctx context.Context, id, driverID int64, from, to models.ShipmentStatus, at time.Time) (bool, error) {
	return r.execOne(ctx, `UPDATE shipments SET status = ?, updated_at = ?
WHERE id = ? AND status = ? AND driver_id = ?`, string(to), at, id, string(from), driverID)
}

// AwaitConfirmation moves an in-transit shipment to awaiting_confirmation and stores the
// fresh qr token with its expiry.
func (r *ShipmentRepository) AwaitConfirmation(ctx context.Context, id, driverID int64, qrToken string, expiresAt, at time.Time) (bool, error) {
	return r.execOne(ctx, `UPDATE shipments SET status = 'awaiting_confirmation', qr_token = ?, qr_expires_at = ?, updated_at = ?
WHERE id = ? AND status = 'in_transit' AND driver_id = ?`, qrToken, expiresAt, at, id, driverID)
}

// MarkDelivered completes a shipment if it is still awaiting confirmation with qrToken.
// The qr token is cleared so the delivery token cannot be replayed.
func (r *ShipmentRepository) MarkDelivered(ctx context.Context, id int64, qrToken string, via models.ConfirmationMethod, at time.Time) (bool, error) {
	return r.execOne(ctx, `UPDATE shipments SET status = 'delivered', qr_token = NULL, confirmed_via = ?, delivered_at = ?, updated_at = ?
WHERE id = ? AND status = 'awaiting_confirmation' AND qr_token = ?`, string(via), at, at, id, qrToken)
}

// Cancel marks a shipment cancelled if it is still in status from.
func (r *ShipmentRepository) Cancel(ctx context.Context, id int64, from models.ShipmentStatus, actorID int64, reason string, at time.Time) (bool, error) {
	return r.execOne(ctx, `UPDATE shipments SET status = 'cancelled', cancel_reason = ?, cancelled_by = ?, cancelled_at = ?, updated_at = ?
WHERE id = ? AND status = ?`, reason, actorID, at, at, id, string(from))
}

// CountByStatus returns how many of the shipper's shipments sit in each status.
func (r *ShipmentRepository) CountByStatus(ctx context.Context, shipperID int64) ([]models.StatusCount, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var out []models.StatusCount
	err := sqlscan.Select(ctx, r.db, &out, `SELECT status, COUNT(*) AS n FROM shipments WHERE shipper_id = ? GROUP BY status ORDER BY status`, shipperID)
	return out, err
}

func (r *ShipmentRepository) execOne(ctx context.Context, query string, args ...any) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
