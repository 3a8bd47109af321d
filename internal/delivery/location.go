package delivery

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"freightDeliveryManagement/internal/apperr"
	"freightDeliveryManagement/internal/geo"
	"freightDeliveryManagement/models"
)

// EventLocationUpdate is the realtime event carrying a new position.
const EventLocationUpdate = "location_update"

// PostLocation appends a position report from the assigned driver and pushes it to both parties.
func (s *Service) PostLocation(ctx context.Context, shipmentID, driverID int64, pos geo.Point) (*models.LocationPing, error) {
	if !pos.Valid() {
		return nil, apperr.Validation("position out of range")
	}
	sh, err := s.load(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	if !sh.IsAssignedTo(driverID) {
		return nil, fmt.Errorf("%w: driver %d is not assigned to shipment %d", apperr.ErrUnauthorized, driverID, shipmentID)
	}
	if sh.Status.IsTerminal() || sh.Status == models.ShipmentStatusPending {
		return nil, fmt.Errorf("%w: shipment is %s", apperr.ErrIllegalTransition, sh.Status)
	}
	ping, err := s.locations.Append(ctx, &models.LocationPing{
		ShipmentID: sh.ID,
		DriverID:   driverID,
		Lat:        pos.Lat,
		Lng:        pos.Lng,
		RecordedAt: s.clock(),
	})
	if err != nil {
		return nil, fmt.Errorf("append location: %w", err)
	}
	if s.realtime != nil {
		n := s.realtime.Emit(sh.ShipperID, EventLocationUpdate, ping)
		n += s.realtime.Emit(driverID, EventLocationUpdate, ping)
		s.log.Debug("location pushed", zap.Int64("shipment_id", sh.ID), zap.Int("connections", n))
	}
	return ping, nil
}

// GetLocation returns the latest position of a shipment to one of its parties.
func (s *Service) GetLocation(ctx context.Context, shipmentID int64, actor Actor) (*models.LocationPing, error) {
	sh, err := s.load(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	if !isParty(sh, actor) {
		return nil, fmt.Errorf("%w: shipment %d", apperr.ErrNotFound, shipmentID)
	}
	ping, err := s.locations.Latest(ctx, sh.ID)
	if err != nil {
		return nil, fmt.Errorf("latest location: %w", err)
	}
	if ping == nil {
		return nil, fmt.Errorf("%w: no location for shipment %d", apperr.ErrNotFound, shipmentID)
	}
	return ping, nil
}
