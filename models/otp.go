package models

import "time"

// OTPCode is a one-time code sent to a phone. The most recent code per phone wins.
type OTPCode struct {
	ID        int64     `db:"id"`
	Phone     string    `db:"phone"`
	Code      string    `db:"code"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}
