// Package delivery runs the shipment lifecycle: creation behind a payment session, driver
// matching, status advancement, cancellation and recipient confirmation.
//
// Shipments are never locked in process. Every mutation is a conditional write in the
// repository and the rows-affected result decides the outcome.
package delivery

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"freightDeliveryManagement/internal/apperr"
	"freightDeliveryManagement/internal/geo"
	"freightDeliveryManagement/internal/metrics"
	"freightDeliveryManagement/internal/notify"
	"freightDeliveryManagement/internal/payment"
	"freightDeliveryManagement/internal/token"
	"freightDeliveryManagement/models"
	"freightDeliveryManagement/repository"
)

// OTPService sends and checks one-time codes.
type OTPService interface {
	Dispatch(ctx context.Context, phone string) error
	Verify(ctx context.Context, phone, code string) error
}

// Actor identifies the authenticated caller of an operation.
type Actor struct {
	UserID int64
	Role   models.Role
}

// Deps are the collaborators of a Service.
type Deps struct {
	Shipments repository.ShipmentRepositoryI
	Locations repository.LocationRepositoryI
	Users     repository.UserRepositoryI
	Payments  payment.Gateway
	Codec     *token.Codec
	OTP       OTPService
	Notifier  notify.Sink
	Realtime  notify.Emitter

	PublicBaseURL string
	QRSize        int
	Log           *zap.Logger
	Now           func() time.Time
}

// Service implements the shipment lifecycle.
type Service struct {
	shipments repository.ShipmentRepositoryI
	locations repository.LocationRepositoryI
	users     repository.UserRepositoryI
	payments  payment.Gateway
	codec     *token.Codec
	otp       OTPService
	notifier  notify.Sink
	realtime  notify.Emitter

	baseURL string
	qrSize  int
	log     *zap.Logger
	now     func() time.Time
}

// NewService creates a Service. Log, Now and QRSize fall back to a no-op logger, time.Now
// and 256 pixels.
func NewService(d Deps) *Service {
	s := &Service{
		shipments: d.Shipments,
		locations: d.Locations,
		users:     d.Users,
		payments:  d.Payments,
		codec:     d.Codec,
		otp:       d.OTP,
		notifier:  d.Notifier,
		realtime:  d.Realtime,
		baseURL:   strings.TrimRight(d.PublicBaseURL, "/"),
		qrSize:    d.QRSize,
		log:       d.Log,
		now:       d.Now,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.qrSize <= 0 {
		s.qrSize = 256
	}
	return s
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// Stop is one end of a route.
type Stop struct {
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	Name         string  `json:"name"`
	LocationName string  `json:"location_name"`
	Zip          string  `json:"zip"`
}

// CreateInput carries everything a shipper submits for a new shipment.
type CreateInput struct {
	ShipperID           int64
	VehicleType         string
	Pickup              Stop
	Dropoff             Stop
	PackageInstructions string
	ServiceLevel        string
	DeclaredValue       float64 // in currency units, e.g. 100.00
	TermsAcknowledged   bool
	RecipientMobile     string
	Images              []string
}

func (in *CreateInput) validate() error {
	switch {
	case in.ShipperID <= 0:
		return apperr.Validation("shipper is required")
	case strings.TrimSpace(in.VehicleType) == "":
		return apperr.Validation("vehicle_type is required")
	case strings.TrimSpace(in.ServiceLevel) == "":
		return apperr.Validation("service_level is required")
	case strings.TrimSpace(in.Pickup.Zip) == "":
		return apperr.Validation("pickup zip is required")
	case strings.TrimSpace(in.Dropoff.Zip) == "":
		return apperr.Validation("dropoff zip is required")
	case !(geo.Point{Lat: in.Pickup.Lat, Lng: in.Pickup.Lng}).Valid():
		return apperr.Validation("pickup coordinates out of range")
	case !(geo.Point{Lat: in.Dropoff.Lat, Lng: in.Dropoff.Lng}).Valid():
		return apperr.Validation("dropoff coordinates out of range")
	case math.IsNaN(in.DeclaredValue) || in.DeclaredValue <= 0:
		return apperr.Validation("declared_value must be positive")
	case !in.TermsAcknowledged:
		return apperr.Validation("terms must be acknowledged")
	case len(NormalizePhone(in.RecipientMobile)) < 7:
		return apperr.Validation("recipient_mobile is required")
	}
	return nil
}

// Create validates the input, opens a payment session and stores the shipment. No row is
// written when the payment provider fails.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Shipment, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	cents := int64(math.Round(in.DeclaredValue * 100))

	session, err := s.payments.CreateCheckoutSession(ctx, cents,
		fmt.Sprintf("Freight shipment %s to %s", in.Pickup.Zip, in.Dropoff.Zip),
		map[string]string{"shipper_id": strconv.FormatInt(in.ShipperID, 10)})
	if err != nil {
		s.log.Warn("payment session failed", zap.Int64("shipper_id", in.ShipperID), zap.Error(err))
		return nil, fmt.Errorf("%w: payment session: %v", apperr.ErrUpstream, err)
	}

	sh, err := s.shipments.Create(ctx, &models.Shipment{
		ShipperID:           in.ShipperID,
		VehicleType:         strings.TrimSpace(in.VehicleType),
		PickupLat:           in.Pickup.Lat,
		PickupLng:           in.Pickup.Lng,
		PickupName:          in.Pickup.Name,
		PickupLocationName:  in.Pickup.LocationName,
		PickupZip:           strings.TrimSpace(in.Pickup.Zip),
		DropoffLat:          in.Dropoff.Lat,
		DropoffLng:          in.Dropoff.Lng,
		DropoffName:         in.Dropoff.Name,
		DropoffLocationName: in.Dropoff.LocationName,
		DropoffZip:          strings.TrimSpace(in.Dropoff.Zip),
		PackageInstructions: in.PackageInstructions,
		ServiceLevel:        strings.TrimSpace(in.ServiceLevel),
		DeclaredValueCents:  cents,
		TermsAcknowledged:   in.TermsAcknowledged,
		PaymentSessionID:    session.ID,
		PaymentURL:          session.URL,
		RecipientMobile:     strings.TrimSpace(in.RecipientMobile),
		Images:              models.ImageRefs(in.Images),
		CreatedAt:           s.clock(),
	})
	if err != nil {
		s.log.Error("shipment insert failed after payment session", zap.String("session_id", session.ID), zap.Error(err))
		return nil, fmt.Errorf("create shipment: %w", err)
	}
	metrics.ShipmentsCreatedTotal.Inc()
	s.log.Info("shipment created",
		zap.Int64("shipment_id", sh.ID),
		zap.String("code", sh.CodeString()),
		zap.Int64("shipper_id", sh.ShipperID))
	return sh, nil
}

// HandlePaymentWebhook verifies a provider webhook and marks the matching shipment paid.
// Redelivered or unrelated events are acknowledged without effect.
func (s *Service) HandlePaymentWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.payments.ParseWebhook(payload, signature)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrSignatureMismatch, err)
	}
	if ev.Type != payment.EventCheckoutCompleted {
		s.log.Debug("payment webhook ignored", zap.String("type", ev.Type))
		return nil
	}
	return s.MarkPaid(ctx, ev.SessionID)
}

// MarkPaid flips a shipment to paid by checkout session id. Idempotent.
func (s *Service) MarkPaid(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return apperr.Validation("session id is required")
	}
	ok, err := s.shipments.MarkPaid(ctx, sessionID, s.clock())
	if err != nil {
		return fmt.Errorf("mark paid: %w", err)
	}
	if !ok {
		s.log.Info("payment webhook without pending shipment", zap.String("session_id", sessionID))
		return nil
	}
	sh, err := s.shipments.GetByPaymentSession(ctx, sessionID)
	if err != nil || sh == nil {
		return err
	}
	metrics.PaymentsConfirmedTotal.Inc()
	s.notify(ctx, sh.ShipperID, sh, "paid", fmt.Sprintf("Payment received for %s. Drivers can now accept it.", sh.CodeString()))
	return nil
}

// Get returns a shipment visible to actor. Shipments outside the actor's reach are reported
// as missing.
func (s *Service) Get(ctx context.Context, id int64, actor Actor) (*models.Shipment, error) {
	sh, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(sh, actor) {
		return nil, fmt.Errorf("%w: shipment %d", apperr.ErrNotFound, id)
	}
	return sh, nil
}

// List returns the actor's shipments: owned ones for shippers (paged, newest first),
// assigned ones for drivers.
func (s *Service) List(ctx context.Context, actor Actor, pageSize int, afterID int64) ([]models.Shipment, error) {
	switch actor.Role {
	case models.RoleShipper:
		return s.shipments.ListByShipper(ctx, actor.UserID, pageSize, afterID)
	case models.RoleDriver:
		return s.shipments.ListByDriver(ctx, actor.UserID)
	default:
		return nil, fmt.Errorf("%w: role %q has no shipments", apperr.ErrUnauthorized, actor.Role)
	}
}

// Summary counts the shipper's shipments per status, including zero counts.
func (s *Service) Summary(ctx context.Context, shipperID int64) ([]models.StatusCount, error) {
	rows, err := s.shipments.CountByStatus(ctx, shipperID)
	if err != nil {
		return nil, err
	}
	byStatus := make(map[models.ShipmentStatus]int64, len(rows))
	for _, r := range rows {
		byStatus[r.Status] = r.Count
	}
	out := make([]models.StatusCount, 0, len(models.AllShipmentStatuses))
	for _, st := range models.AllShipmentStatuses {
		out = append(out, models.StatusCount{Status: st, Count: byStatus[st]})
	}
	return out, nil
}

func (s *Service) load(ctx context.Context, id int64) (*models.Shipment, error) {
	sh, err := s.shipments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load shipment: %w", err)
	}
	if sh == nil {
		return nil, fmt.Errorf("%w: shipment %d", apperr.ErrNotFound, id)
	}
	return sh, nil
}

func isParty(sh *models.Shipment, actor Actor) bool {
	switch actor.Role {
	case models.RoleShipper:
		return sh.ShipperID == actor.UserID
	case models.RoleDriver:
		return sh.IsAssignedTo(actor.UserID)
	case models.RoleAdmin:
		return true
	}
	return false
}

func canView(sh *models.Shipment, actor Actor) bool {
	if isParty(sh, actor) {
		return true
	}
	// Drivers browsing the pool may open an available shipment before accepting it.
	return actor.Role == models.RoleDriver && sh.DriverID == nil &&
		sh.PaymentStatus == models.PaymentStatusPaid && sh.Status == models.ShipmentStatusPending
}

// notify sends one notification. Failures are logged and never returned.
func (s *Service) notify(ctx context.Context, userID int64, sh *models.Shipment, event, text string) {
	if s.notifier == nil || userID <= 0 {
		return
	}
	err := s.notifier.Notify(ctx, notify.Notification{
		UserID:     userID,
		ShipmentID: sh.ID,
		Event:      event,
		Text:       text,
		At:         s.clock(),
	})
	if err != nil {
		s.log.Warn("notification failed",
			zap.Int64("user_id", userID),
			zap.Int64("shipment_id", sh.ID),
			zap.String("event", event),
			zap.Error(err))
	}
}

// notifyParties notifies the shipper and, when assigned, the driver.
func (s *Service) notifyParties(ctx context.Context, sh *models.Shipment, event, text string) {
	s.notify(ctx, sh.ShipperID, sh, event, text)
	if sh.DriverID != nil {
		s.notify(ctx, *sh.DriverID, sh, event, text)
	}
}

func (s *Service) displayName(ctx context.Context, userID int64) string {
	if s.users != nil {
		if u, err := s.users.GetByID(ctx, userID); err == nil && u != nil {
			return u.Username
		}
	}
	return "#" + strconv.FormatInt(userID, 10)
}
