package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/georgysavva/scany/sqlscan"

	"freightDeliveryManagement/models"
)

// LocationRepository stores append-only driver position reports.
type LocationRepository struct {
	db *sql.DB
}

// NewLocationRepository creates a new LocationRepository.
func NewLocationRepository(db *sql.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// Append records a position for a shipment.
func (r *LocationRepository) Append(ctx context.Context, p *models.LocationPing) (*models.LocationPing, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if p.RecordedAt.IsZero() {
		p.RecordedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO locations (shipment_id, driver_id, lat, lng, recorded_at) VALUES (?,?,?,?,?)`,
		p.ShipmentID, p.DriverID, p.Lat, p.Lng, p.RecordedAt)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	out := *p
	out.ID = id
	return &out, nil
}

// Latest returns the most recent ping of a shipment, or nil when none was recorded.
func (r *LocationRepository) Latest(ctx context.Context, shipmentID int64) (*models.LocationPing, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var p models.LocationPing
	err := sqlscan.Get(ctx, r.db, &p, `SELECT id, shipment_id, driver_id, lat, lng, recorded_at FROM locations
WHERE shipment_id = ? ORDER BY recorded_at DESC, id DESC LIMIT 1`, shipmentID)
	if err != nil {
		if sqlscan.NotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// Track returns up to limit pings of a shipment in recording order.
func (r *LocationRepository) Track(ctx context.Context, shipmentID int64, limit int) ([]models.LocationPing, error) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var out []models.LocationPing
	err := sqlscan.Select(ctx, r.db, &out, `SELECT id, shipment_id, driver_id, lat, lng, recorded_at FROM locations
WHERE shipment_id = ? ORDER BY recorded_at ASC, id ASC LIMIT ?`, shipmentID, limit)
	return out, err
}
