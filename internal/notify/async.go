package notify

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"freightDeliveryManagement/internal/metrics"
)

// ErrQueueFull is returned when the async buffer cannot take another notification.
var ErrQueueFull = errors.New("notification queue full")

// Async hands notifications to a background worker so slow sinks (brokers) never delay a
// request. Run must be started for anything to be delivered.
type Async struct {
	next  Sink
	queue chan Notification
	log   *zap.Logger
}

// NewAsync wraps next in a queue of the given size; a non-positive buffer means 256.
func NewAsync(next Sink, buffer int, log *zap.Logger) *Async {
	if buffer <= 0 {
		buffer = 256
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Async{next: next, queue: make(chan Notification, buffer), log: log}
}

// Notify enqueues n without blocking. A full queue drops n and counts it against the
// "queue" sink.
func (a *Async) Notify(_ context.Context, n Notification) error {
	select {
	case a.queue <- n:
		return nil
	default:
		metrics.NotifyFailuresTotal.WithLabelValues("queue").Inc()
		a.log.Warn("notification dropped",
			zap.Int64("user_id", n.UserID),
			zap.Int64("shipment_id", n.ShipmentID),
			zap.String("event", n.Event),
			zap.Error(ErrQueueFull))
		return ErrQueueFull
	}
}

// Run delivers queued notifications until ctx is cancelled, then drains what is left
// with a short deadline.
func (a *Async) Run(ctx context.Context) error {
	for {
		select {
		case n := <-a.queue:
			a.deliver(ctx, n)
		case <-ctx.Done():
			a.drain()
			return nil
		}
	}
}

func (a *Async) deliver(ctx context.Context, n Notification) {
	if err := a.next.Notify(ctx, n); err != nil {
		a.log.Debug("async notification failed", zap.Int64("user_id", n.UserID), zap.Error(err))
	}
}

func (a *Async) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case n := <-a.queue:
			a.deliver(ctx, n)
		default:
			return
		}
	}
}
