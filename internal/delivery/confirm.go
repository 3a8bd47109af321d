package delivery

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"freightDeliveryManagement/internal/apperr"
	"freightDeliveryManagement/internal/metrics"
	"freightDeliveryManagement/internal/token"
	"freightDeliveryManagement/models"
)

// ConfirmStatus is the outcome of a mobile confirmation attempt.
type ConfirmStatus string

const (
	ConfirmDelivered   ConfirmStatus = "delivered"
	ConfirmOTPRequired ConfirmStatus = "otp_required"
)

// ConfirmResult is returned by ConfirmMobile and ConfirmOTP.
type ConfirmResult struct {
	Status   ConfirmStatus    `json:"status"`
	Shipment *models.Shipment `json:"shipment,omitempty"`
}

// Preview is what a recipient sees after scanning a delivery token, before confirming.
type Preview struct {
	ShipmentCode string                `json:"shipment_code"`
	Status       models.ShipmentStatus `json:"status"`
	DropoffName  string                `json:"dropoff_name"`
	DropoffZip   string                `json:"dropoff_zip"`
	MaskedMobile string                `json:"masked_mobile"`
}

// DeliveryQR is a delivery token rendered for the driver to show at the door.
type DeliveryQR struct {
	Token      string `json:"token"`
	ConfirmURL string `json:"confirm_url"`
	PNG        []byte `json:"png"`
}

// NormalizePhone strips everything but digits and drops a leading "00" international
// access prefix.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return strings.TrimPrefix(b.String(), "00")
}

// CanonicalPhone returns phone in E.164 form. Ten-digit numbers are taken as North American
// and get the +1 country code. It returns "" when phone has no digits.
func CanonicalPhone(phone string) string {
	d := NormalizePhone(phone)
	if d == "" {
		return ""
	}
	if len(d) == 10 {
		d = "1" + d
	}
	return "+" + d
}

// PhonesMatch compares two numbers digit for digit. The only tolerated difference is a
// missing North American country code: "1" plus ten digits matches the same ten digits.
func PhonesMatch(a, b string) bool {
	da, db := NormalizePhone(a), NormalizePhone(b)
	if da == "" || db == "" {
		return false
	}
	if len(da) == 11 && da[0] == '1' && len(db) == 10 {
		da = da[1:]
	}
	if len(db) == 11 && db[0] == '1' && len(da) == 10 {
		db = db[1:]
	}
	return subtle.ConstantTimeCompare([]byte(da), []byte(db)) == 1
}

// resolve verifies a delivery token against the stored shipment. A missing shipment is
// reported as an invalid token.
func (s *Service) resolve(ctx context.Context, tok string) (*models.Shipment, token.Payload, error) {
	p, err := s.codec.WithClock(s.clock).Verify(tok)
	if err != nil {
		return nil, p, err
	}
	sh, err := s.shipments.GetByID(ctx, p.ShipmentID)
	if err != nil {
		return nil, p, fmt.Errorf("load shipment: %w", err)
	}
	if sh == nil {
		return nil, p, fmt.Errorf("%w: unknown shipment", apperr.ErrInvalidToken)
	}
	if sh.Status != models.ShipmentStatusAwaitingConfirmation {
		return nil, p, fmt.Errorf("%w: shipment is %s", apperr.ErrNotAwaitingConfirmation, sh.Status)
	}
	if sh.QRToken == nil || subtle.ConstantTimeCompare([]byte(*sh.QRToken), []byte(p.QRToken)) != 1 {
		return nil, p, fmt.Errorf("%w: token superseded", apperr.ErrInvalidToken)
	}
	if sh.QRExpiresAt != nil && !s.clock().Before(*sh.QRExpiresAt) {
		return nil, p, fmt.Errorf("%w: delivery window closed", apperr.ErrExpired)
	}
	return sh, p, nil
}

// Preview returns the shipment summary behind a valid delivery token.
func (s *Service) Preview(ctx context.Context, tok string) (*Preview, error) {
	sh, _, err := s.resolve(ctx, tok)
	if err != nil {
		return nil, err
	}
	return &Preview{
		ShipmentCode: sh.CodeString(),
		Status:       sh.Status,
		DropoffName:  sh.DropoffName,
		DropoffZip:   sh.DropoffZip,
		MaskedMobile: maskPhone(sh.RecipientMobile),
	}, nil
}

// ConfirmMobile delivers the shipment when mobile matches the recipient number on file.
// Otherwise a one-time code goes to the number on file and the caller must continue with
// ConfirmOTP.
func (s *Service) ConfirmMobile(ctx context.Context, tok, mobile string) (*ConfirmResult, error) {
	if NormalizePhone(mobile) == "" {
		return nil, apperr.Validation("mobile is required")
	}
	sh, p, err := s.resolve(ctx, tok)
	if err != nil {
		metrics.ConfirmationsTotal.WithLabelValues(string(models.ConfirmedByMobile), apperr.Reason(err)).Inc()
		return nil, err
	}
	if PhonesMatch(mobile, sh.RecipientMobile) {
		return s.deliver(ctx, sh, p.QRToken, models.ConfirmedByMobile)
	}

	metrics.ConfirmationsTotal.WithLabelValues(string(models.ConfirmedByMobile), "mismatch").Inc()
	err = s.otp.Dispatch(ctx, CanonicalPhone(sh.RecipientMobile))
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrTooManyRequests):
		// A code sent moments ago is still valid.
		s.log.Info("otp already pending", zap.Int64("shipment_id", sh.ID))
	default:
		return nil, err
	}
	return &ConfirmResult{Status: ConfirmOTPRequired}, nil
}

// ConfirmOTP delivers the shipment when code is the latest valid code sent to the recipient.
func (s *Service) ConfirmOTP(ctx context.Context, tok, code string) (*ConfirmResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperr.Validation("otp is required")
	}
	sh, p, err := s.resolve(ctx, tok)
	if err == nil {
		err = s.otp.Verify(ctx, CanonicalPhone(sh.RecipientMobile), code)
	}
	if err != nil {
		metrics.ConfirmationsTotal.WithLabelValues(string(models.ConfirmedByOTP), apperr.Reason(err)).Inc()
		return nil, err
	}
	return s.deliver(ctx, sh, p.QRToken, models.ConfirmedByOTP)
}

func (s *Service) deliver(ctx context.Context, sh *models.Shipment, qr string, via models.ConfirmationMethod) (*ConfirmResult, error) {
	ok, err := s.shipments.MarkDelivered(ctx, sh.ID, qr, via, s.clock())
	if err != nil {
		return nil, fmt.Errorf("mark delivered: %w", err)
	}
	if !ok {
		cur, err := s.shipments.GetByID(ctx, sh.ID)
		if err != nil {
			return nil, fmt.Errorf("load shipment: %w", err)
		}
		if cur != nil && cur.Status != models.ShipmentStatusAwaitingConfirmation {
			return nil, fmt.Errorf("%w: shipment is %s", apperr.ErrNotAwaitingConfirmation, cur.Status)
		}
		return nil, fmt.Errorf("%w: token superseded", apperr.ErrInvalidToken)
	}
	out, err := s.load(ctx, sh.ID)
	if err != nil {
		return nil, err
	}
	metrics.ConfirmationsTotal.WithLabelValues(string(via), "delivered").Inc()
	metrics.TransitionsTotal.WithLabelValues(string(models.ShipmentStatusDelivered)).Inc()
	s.log.Info("shipment delivered", zap.Int64("shipment_id", out.ID), zap.String("via", string(via)))
	s.notifyParties(ctx, out, string(models.ShipmentStatusDelivered), fmt.Sprintf("Shipment %s was delivered.", out.CodeString()))
	return &ConfirmResult{Status: ConfirmDelivered, Shipment: out}, nil
}

// GetDeliveryQR re-signs the current delivery token and renders it as a PNG QR code.
// Only the shipper and the assigned driver can fetch it.
func (s *Service) GetDeliveryQR(ctx context.Context, shipmentID int64, actor Actor) (*DeliveryQR, error) {
	sh, err := s.load(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleAdmin || !isParty(sh, actor) {
		return nil, fmt.Errorf("%w: user %d is not a party of shipment %d", apperr.ErrUnauthorized, actor.UserID, shipmentID)
	}
	if sh.Status != models.ShipmentStatusAwaitingConfirmation || sh.QRToken == nil {
		return nil, fmt.Errorf("%w: shipment is %s", apperr.ErrNotAwaitingConfirmation, sh.Status)
	}
	now := s.clock()
	if sh.QRExpiresAt != nil && !now.Before(*sh.QRExpiresAt) {
		return nil, fmt.Errorf("%w: delivery window closed", apperr.ErrExpired)
	}
	// The token keeps its original issue time so it cannot outlive the stored window.
	issued := now
	if sh.QRExpiresAt != nil {
		issued = sh.QRExpiresAt.Add(-token.TTL)
	}
	tok, err := s.codec.IssueAt(sh.ID, *sh.QRToken, issued)
	if err != nil {
		return nil, err
	}
	link := s.confirmURL(tok)
	png, err := qrcode.Encode(link, qrcode.Medium, s.qrSize)
	if err != nil {
		return nil, fmt.Errorf("render qr: %w", err)
	}
	return &DeliveryQR{Token: tok, ConfirmURL: link, PNG: png}, nil
}

func (s *Service) confirmURL(tok string) string {
	return s.baseURL + "/api/confirm?token=" + url.QueryEscape(tok)
}

func maskPhone(phone string) string {
	d := NormalizePhone(phone)
	if len(d) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(d)-4) + d[len(d)-4:]
}
