package delivery

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"freightDeliveryManagement/internal/apperr"
	"freightDeliveryManagement/internal/geo"
	"freightDeliveryManagement/internal/metrics"
	"freightDeliveryManagement/models"
)

// AvailableFilter narrows the pool to shipments picked up near a driver.
type AvailableFilter struct {
	Near        *geo.Point
	RadiusMiles float64 // ignored without Near; <= 0 means no limit
}

// AvailableShipment is a pool entry. DistanceMiles is set when the filter had a position.
type AvailableShipment struct {
	models.Shipment
	DistanceMiles *float64 `json:"distance_miles,omitempty"`
}

// ListAvailable returns paid shipments no driver has accepted yet. With a position the
// result is limited to the radius and sorted nearest first.
func (s *Service) ListAvailable(ctx context.Context, f AvailableFilter) ([]AvailableShipment, error) {
	if f.Near != nil && !f.Near.Valid() {
		return nil, apperr.Validation("position out of range")
	}
	rows, err := s.shipments.ListAvailable(ctx)
	if err != nil {
		return nil, fmt.Errorf("list available: %w", err)
	}
	out := make([]AvailableShipment, 0, len(rows))
	for _, sh := range rows {
		item := AvailableShipment{Shipment: sh}
		if f.Near != nil {
			pickup := geo.Point{Lat: sh.PickupLat, Lng: sh.PickupLng}
			if !geo.WithinMiles(*f.Near, pickup, f.RadiusMiles) {
				continue
			}
			d := geo.HaversineMiles(*f.Near, pickup)
			item.DistanceMiles = &d
		}
		out = append(out, item)
	}
	if f.Near != nil {
		sort.SliceStable(out, func(i, j int) bool { return *out[i].DistanceMiles < *out[j].DistanceMiles })
	}
	return out, nil
}

// Accept assigns driverID to the shipment. Exactly one of any number of concurrent callers
// wins; the others get ErrAlreadyAssigned.
func (s *Service) Accept(ctx context.Context, shipmentID, driverID int64) (*models.Shipment, error) {
	ok, err := s.shipments.Assign(ctx, shipmentID, driverID, s.clock())
	if err != nil {
		return nil, fmt.Errorf("assign driver: %w", err)
	}
	sh, err := s.shipments.GetByID(ctx, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("load shipment: %w", err)
	}
	if !ok {
		return nil, s.explainAcceptFailure(sh, shipmentID, driverID)
	}
	if sh == nil {
		return nil, fmt.Errorf("%w: shipment %d", apperr.ErrNotFound, shipmentID)
	}

	metrics.TransitionsTotal.WithLabelValues(string(models.ShipmentStatusAccepted)).Inc()
	s.log.Info("shipment accepted", zap.Int64("shipment_id", sh.ID), zap.Int64("driver_id", driverID))
	driver := s.displayName(ctx, driverID)
	s.notify(ctx, sh.ShipperID, sh, "accepted", fmt.Sprintf("Shipment %s accepted by driver %s.", sh.CodeString(), driver))
	s.notify(ctx, driverID, sh, "accepted", fmt.Sprintf("You accepted shipment %s.", sh.CodeString()))
	return sh, nil
}

// explainAcceptFailure maps a lost conditional write to the reason the row did not match.
func (s *Service) explainAcceptFailure(sh *models.Shipment, shipmentID, driverID int64) error {
	switch {
	case sh == nil, sh.PaymentStatus != models.PaymentStatusPaid:
		return fmt.Errorf("%w: shipment %d", apperr.ErrNotFound, shipmentID)
	case sh.DriverID != nil:
		metrics.AcceptConflictsTotal.Inc()
		s.log.Info("accept lost", zap.Int64("shipment_id", shipmentID), zap.Int64("driver_id", driverID))
		return fmt.Errorf("%w: shipment %d", apperr.ErrAlreadyAssigned, shipmentID)
	default:
		return fmt.Errorf("%w: shipment %d is %s", apperr.ErrIllegalTransition, shipmentID, sh.Status)
	}
}
