package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/georgysavva/scany/sqlscan"

	"freightDeliveryManagement/models"
)

// OTPRepository stores one-time codes per phone number.
type OTPRepository struct {
	db *sql.DB
}

// NewOTPRepository creates a new OTPRepository.
func NewOTPRepository(db *sql.DB) *OTPRepository {
	return &OTPRepository{db: db}
}

// Insert stores a new code. Older codes for the phone stay until consumed or purged.
func (r *OTPRepository) Insert(ctx context.Context, phone, code string, expiresAt, createdAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `INSERT INTO otp_codes (phone, code, expires_at, created_at) VALUES (?,?,?,?)`,
		phone, code, expiresAt, createdAt)
	return err
}

// Latest returns the most recently created code for phone, expired or not.
func (r *OTPRepository) Latest(ctx context.Context, phone string) (*models.OTPCode, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var c models.OTPCode
	err := sqlscan.Get(ctx, r.db, &c, `SELECT id, phone, code, expires_at, created_at FROM otp_codes
WHERE phone = ? ORDER BY created_at DESC, id DESC LIMIT 1`, phone)
	if err != nil {
		if sqlscan.NotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// DeleteByPhone removes every code for phone. Called once a code was accepted.
func (r *OTPRepository) DeleteByPhone(ctx context.Context, phone string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `DELETE FROM otp_codes WHERE phone = ?`, phone)
	return err
}

// PurgeExpired deletes codes that expired before now and reports how many were removed.
func (r *OTPRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `DELETE FROM otp_codes WHERE expires_at < ?`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
