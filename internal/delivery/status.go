package delivery

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"freightDeliveryManagement/internal/apperr"
	"freightDeliveryManagement/internal/lifecycle"
	"freightDeliveryManagement/internal/metrics"
	"freightDeliveryManagement/internal/token"
	"freightDeliveryManagement/models"
)

// AdvanceResult is the outcome of a driver status update. DeliveryToken and ConfirmURL are
// set only when the shipment entered awaiting_confirmation.
type AdvanceResult struct {
	Shipment      *models.Shipment `json:"shipment"`
	DeliveryToken string           `json:"delivery_token,omitempty"`
	ConfirmURL    string           `json:"confirm_url,omitempty"`
}

var transitionText = map[models.ShipmentStatus]string{
	models.ShipmentStatusPickedUp:             "Shipment %s was picked up.",
	models.ShipmentStatusInTransit:            "Shipment %s is in transit.",
	models.ShipmentStatusAwaitingConfirmation: "Shipment %s arrived. Waiting for the recipient to confirm.",
}

// Advance moves a shipment held by driverID to status to. An empty to means the next status
// in the lifecycle. Entering awaiting_confirmation issues a fresh delivery token.
func (s *Service) Advance(ctx context.Context, shipmentID, driverID int64, to models.ShipmentStatus) (*AdvanceResult, error) {
	sh, err := s.load(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	if !sh.IsAssignedTo(driverID) {
		return nil, fmt.Errorf("%w: driver %d is not assigned to shipment %d", apperr.ErrUnauthorized, driverID, shipmentID)
	}
	if to == "" {
		next, ok := lifecycle.Next(sh.Status)
		if !ok {
			return nil, fmt.Errorf("%w: no next status after %s", apperr.ErrIllegalTransition, sh.Status)
		}
		to = next
	}
	if err := lifecycle.Check(sh.Status, to, lifecycle.ActorAssignedDriver); err != nil {
		return nil, err
	}

	now := s.clock()
	res := &AdvanceResult{}
	var ok bool
	if to == models.ShipmentStatusAwaitingConfirmation {
		qr, err := newQRToken()
		if err != nil {
			return nil, err
		}
		ok, err = s.shipments.AwaitConfirmation(ctx, sh.ID, driverID, qr, now.Add(token.TTL), now)
		if err != nil {
			return nil, fmt.Errorf("await confirmation: %w", err)
		}
		if ok {
			if res.DeliveryToken, err = s.codec.IssueAt(sh.ID, qr, now); err != nil {
				return nil, err
			}
			res.ConfirmURL = s.confirmURL(res.DeliveryToken)
		}
	} else {
		ok, err = s.shipments.Advance(ctx, sh.ID, driverID, sh.Status, to, now)
		if err != nil {
			return nil, fmt.Errorf("advance: %w", err)
		}
	}
	if !ok {
		// Someone else moved the shipment between the read and the write.
		return nil, fmt.Errorf("%w: shipment %d changed concurrently", apperr.ErrIllegalTransition, sh.ID)
	}

	if res.Shipment, err = s.load(ctx, sh.ID); err != nil {
		return nil, err
	}
	metrics.TransitionsTotal.WithLabelValues(string(to)).Inc()
	s.log.Info("shipment advanced",
		zap.Int64("shipment_id", sh.ID),
		zap.Int64("driver_id", driverID),
		zap.String("from", string(sh.Status)),
		zap.String("to", string(to)))
	s.notify(ctx, sh.ShipperID, res.Shipment, string(to), fmt.Sprintf(transitionText[to], sh.CodeString()))
	return res, nil
}

// Cancel ends a shipment before delivery. Only the shipper or the assigned driver may cancel,
// and a reason is mandatory.
func (s *Service) Cancel(ctx context.Context, shipmentID int64, actor Actor, reason string) (*models.Shipment, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Validation("reason is required")
	}
	sh, err := s.load(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	var who lifecycle.Actor
	switch {
	case actor.Role == models.RoleShipper && sh.ShipperID == actor.UserID:
		who = lifecycle.ActorShipper
	case actor.Role == models.RoleDriver && sh.IsAssignedTo(actor.UserID):
		who = lifecycle.ActorAssignedDriver
	default:
		return nil, fmt.Errorf("%w: user %d may not cancel shipment %d", apperr.ErrUnauthorized, actor.UserID, shipmentID)
	}
	if err := lifecycle.Check(sh.Status, models.ShipmentStatusCancelled, who); err != nil {
		return nil, err
	}
	ok, err := s.shipments.Cancel(ctx, sh.ID, sh.Status, actor.UserID, reason, s.clock())
	if err != nil {
		return nil, fmt.Errorf("cancel: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: shipment %d changed concurrently", apperr.ErrIllegalTransition, sh.ID)
	}
	out, err := s.load(ctx, sh.ID)
	if err != nil {
		return nil, err
	}
	metrics.TransitionsTotal.WithLabelValues(string(models.ShipmentStatusCancelled)).Inc()
	s.log.Info("shipment cancelled", zap.Int64("shipment_id", sh.ID), zap.Int64("actor_id", actor.UserID), zap.String("reason", reason))
	s.notifyParties(ctx, out, "cancelled", fmt.Sprintf("Shipment %s was cancelled: %s", out.CodeString(), reason))
	return out, nil
}

func newQRToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("qr token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
