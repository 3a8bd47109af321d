// Package notify relays lifecycle events to the users a shipment concerns.
// Delivery is best-effort: a failing sink is logged and counted, never surfaced to the
// transition that triggered it.
package notify

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"freightDeliveryManagement/internal/events"
	"freightDeliveryManagement/internal/metrics"
	"freightDeliveryManagement/models"
	"freightDeliveryManagement/repository"
)

//go:generate mockgen -destination=mocks/mock_sink.go -package=mock_notify freightDeliveryManagement/internal/notify Sink

// Notification is one message for one user.
type Notification struct {
	UserID     int64
	ShipmentID int64
	Event      string
	Text       string
	At         time.Time
}

// Sink receives notifications.
type Sink interface {
	Notify(ctx context.Context, n Notification) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, n Notification) error

func (f SinkFunc) Notify(ctx context.Context, n Notification) error { return f(ctx, n) }

type named struct {
	name string
	sink Sink
}

// Fanout delivers each notification to every registered sink.
type Fanout struct {
	sinks []named
	log   *zap.Logger
}

// NewFanout creates an empty Fanout. Register sinks with Add.
func NewFanout(log *zap.Logger) *Fanout {
	if log == nil {
		log = zap.NewNop()
	}
	return &Fanout{log: log}
}

// Add registers a sink under name, used in logs and metrics.
func (f *Fanout) Add(name string, s Sink) *Fanout {
	f.sinks = append(f.sinks, named{name: name, sink: s})
	return f
}

// Notify calls every sink. Failures are logged and joined into the returned error so callers
// may inspect them, but callers in the delivery flow ignore it.
func (f *Fanout) Notify(ctx context.Context, n Notification) error {
	if n.At.IsZero() {
		n.At = time.Now().UTC()
	}
	var errs []error
	for _, s := range f.sinks {
		if err := s.sink.Notify(ctx, n); err != nil {
			metrics.NotifyFailuresTotal.WithLabelValues(s.name).Inc()
			f.log.Warn("notification not delivered",
				zap.String("sink", s.name),
				zap.Int64("user_id", n.UserID),
				zap.Int64("shipment_id", n.ShipmentID),
				zap.String("event", n.Event),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StoreSink persists notifications so users can list them later.
type StoreSink struct {
	repo repository.NotificationRepositoryI
}

// NewStoreSink creates a StoreSink backed by repo.
func NewStoreSink(repo repository.NotificationRepositoryI) *StoreSink {
	return &StoreSink{repo: repo}
}

func (s *StoreSink) Notify(ctx context.Context, n Notification) error {
	rec := &models.Notification{UserID: n.UserID, Event: n.Event, Message: n.Text, CreatedAt: n.At}
	if n.ShipmentID > 0 {
		id := n.ShipmentID
		rec.ShipmentID = &id
	}
	_, err := s.repo.Create(ctx, rec)
	return err
}

// Emitter pushes an event to every live connection of a user.
type Emitter interface {
	Emit(userID int64, event string, payload any) int
}

// RealtimeSink pushes notifications to connected clients as "notification" events.
type RealtimeSink struct {
	emitter Emitter
}

// NewRealtimeSink creates a RealtimeSink that pushes through e.
func NewRealtimeSink(e Emitter) *RealtimeSink {
	return &RealtimeSink{emitter: e}
}

func (s *RealtimeSink) Notify(_ context.Context, n Notification) error {
	s.emitter.Emit(n.UserID, "notification", map[string]any{
		"event":       n.Event,
		"shipment_id": n.ShipmentID,
		"message":     n.Text,
		"at":          n.At,
	})
	return nil
}

// BrokerSink publishes notifications as lifecycle events.
type BrokerSink struct {
	pub events.Publisher
}

// NewBrokerSink creates a BrokerSink publishing to pub.
func NewBrokerSink(pub events.Publisher) *BrokerSink {
	return &BrokerSink{pub: pub}
}

func (s *BrokerSink) Notify(ctx context.Context, n Notification) error {
	return s.pub.Publish(ctx, events.Envelope{
		Event:      n.Event,
		ShipmentID: n.ShipmentID,
		UserID:     n.UserID,
		Text:       n.Text,
		At:         n.At,
	})
}
