// Package lifecycle defines the legal status transitions of a shipment and who may perform them.
package lifecycle

import (
	"fmt"

	"freightDeliveryManagement/internal/apperr"
	"freightDeliveryManagement/models"
)

// Actor is the party requesting a transition.
type Actor string

const (
	ActorDriver         Actor = "driver"          // any driver, before assignment
	ActorAssignedDriver Actor = "assigned_driver" // the driver recorded on the shipment
	ActorRecipient      Actor = "recipient"       // holder of a valid delivery token
	ActorShipper        Actor = "shipper"         // owner of the shipment
)

type rule struct {
	from, to models.ShipmentStatus
	actors   []Actor
}

var rules = []rule{
	{from: models.ShipmentStatusPending, to: models.ShipmentStatusAccepted, actors: []Actor{ActorDriver}},
	{from: models.ShipmentStatusAccepted, to: models.ShipmentStatusPickedUp, actors: []Actor{ActorAssignedDriver}},
	{from: models.ShipmentStatusPickedUp, to: models.ShipmentStatusInTransit, actors: []Actor{ActorAssignedDriver}},
	{from: models.ShipmentStatusInTransit, to: models.ShipmentStatusAwaitingConfirmation, actors: []Actor{ActorAssignedDriver}},
	{from: models.ShipmentStatusAwaitingConfirmation, to: models.ShipmentStatusDelivered, actors: []Actor{ActorRecipient}},
	{from: models.ShipmentStatusPending, to: models.ShipmentStatusCancelled, actors: []Actor{ActorShipper, ActorAssignedDriver}},
	{from: models.ShipmentStatusAccepted, to: models.ShipmentStatusCancelled, actors: []Actor{ActorShipper, ActorAssignedDriver}},
	{from: models.ShipmentStatusPickedUp, to: models.ShipmentStatusCancelled, actors: []Actor{ActorShipper, ActorAssignedDriver}},
	{from: models.ShipmentStatusInTransit, to: models.ShipmentStatusCancelled, actors: []Actor{ActorShipper, ActorAssignedDriver}},
}

func find(from, to models.ShipmentStatus) (rule, bool) {
	for _, r := range rules {
		if r.from == from && r.to == to {
			return r, true
		}
	}
	return rule{}, false
}

// Check returns nil when actor may move a shipment from one status to another.
// Skipped states and actors not listed for the edge both yield ErrIllegalTransition.
// Whether a driver is the assigned one is an identity question the caller answers with
// ErrUnauthorized before asking Check.
func Check(from, to models.ShipmentStatus, actor Actor) error {
	r, ok := find(from, to)
	if !ok {
		return fmt.Errorf("%w: %s -> %s", apperr.ErrIllegalTransition, from, to)
	}
	for _, a := range r.actors {
		if a == actor {
			return nil
		}
	}
	return fmt.Errorf("%w: %s may not move %s -> %s", apperr.ErrIllegalTransition, actor, from, to)
}

// Allowed reports whether from -> to is a known edge for any actor.
func Allowed(from, to models.ShipmentStatus) bool {
	_, ok := find(from, to)
	return ok
}

// Next returns the single forward status the assigned driver can move to, if any.
func Next(from models.ShipmentStatus) (models.ShipmentStatus, bool) {
	for _, r := range rules {
		if r.from != from || r.to == models.ShipmentStatusCancelled {
			continue
		}
		for _, a := range r.actors {
			if a == ActorAssignedDriver {
				return r.to, true
			}
		}
	}
	return "", false
}

// Cancellable reports whether a shipment in status s can still be cancelled.
func Cancellable(s models.ShipmentStatus) bool {
	return Allowed(s, models.ShipmentStatusCancelled)
}
