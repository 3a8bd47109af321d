// Package token issues and verifies the signed delivery tokens a recipient scans at the door.
//
// A token is base64url(JSON payload) + "." + the first 32 hex characters of
// HMAC-SHA256(payload, secret). The payload never leaves the token, so verification needs no
// storage access.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"freightDeliveryManagement/internal/apperr"
)

// TTL is the fixed validity window of a delivery token, counted from its issue time.
const TTL = 24 * time.Hour

const sigLen = 32

// Payload is the content signed into a delivery token.
type Payload struct {
	ShipmentID int64  `json:"s"`
	QRToken    string `json:"t"`
	IssuedAt   int64  `json:"ts"`
}

// IssuedTime returns the issue timestamp as a time.Time.
func (p Payload) IssuedTime() time.Time {
	return time.Unix(p.IssuedAt, 0).UTC()
}

// Codec signs and checks delivery tokens with a server secret.
type Codec struct {
	secret []byte
	now    func() time.Time
}

// NewCodec returns a codec keyed by secret.
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("delivery token secret is empty")
	}
	return &Codec{secret: []byte(secret), now: time.Now}, nil
}

// WithClock replaces the time source. Used by tests and by callers re-signing a stored qr token.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	cp := *c
	cp.now = now
	return &cp
}

// Issue signs a token binding shipmentID to qrToken at the current time.
func (c *Codec) Issue(shipmentID int64, qrToken string) (string, error) {
	return c.IssueAt(shipmentID, qrToken, c.now())
}

// IssueAt signs a token with an explicit issue time.
func (c *Codec) IssueAt(shipmentID int64, qrToken string, at time.Time) (string, error) {
	raw, err := json.Marshal(Payload{ShipmentID: shipmentID, QRToken: qrToken, IssuedAt: at.Unix()})
	if err != nil {
		return "", err
	}
	payload := base64.RawURLEncoding.EncodeToString(raw)
	return payload + "." + c.sign(payload), nil
}

// Verify checks format, signature and age, in that order, and returns the payload.
func (c *Codec) Verify(tok string) (Payload, error) {
	var p Payload
	i := strings.LastIndex(tok, ".")
	if i <= 0 || i == len(tok)-1 {
		return p, apperr.ErrInvalidFormat
	}
	payload, sig := tok[:i], tok[i+1:]
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return p, fmt.Errorf("%w: payload encoding", apperr.ErrInvalidFormat)
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, fmt.Errorf("%w: payload json", apperr.ErrInvalidFormat)
	}
	if !hmac.Equal([]byte(sig), []byte(c.sign(payload))) {
		return Payload{}, apperr.ErrSignatureMismatch
	}
	if c.now().Sub(p.IssuedTime()) > TTL {
		return p, apperr.ErrExpired
	}
	return p, nil
}

func (c *Codec) sign(payload string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))[:sigLen]
}
