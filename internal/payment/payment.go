// Package payment creates checkout sessions for shipments and decodes the provider webhooks
// that confirm them.
package payment

import (
	"context"
	"errors"
)

// EventCheckoutCompleted is the webhook event that marks a shipment paid.
const EventCheckoutCompleted = "checkout.session.completed"

// ErrBadSignature is returned by ParseWebhook when the payload was not signed by the provider.
var ErrBadSignature = errors.New("webhook signature invalid")

// Session is a hosted checkout the shipper is redirected to.
type Session struct {
	ID  string
	URL string
}

// Event is the part of a webhook the service acts on.
type Event struct {
	Type      string
	SessionID string
	Metadata  map[string]string
}

// Gateway is the payment provider seen by the delivery service.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, amountCents int64, description string, metadata map[string]string) (Session, error)
	ParseWebhook(payload []byte, signatureHeader string) (Event, error)
}
