// Package events publishes shipment lifecycle events to a message broker so other systems
// can follow shipments without polling.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Envelope is the message body published for each lifecycle event.
type Envelope struct {
	Event      string    `json:"event"`
	ShipmentID int64     `json:"shipment_id,omitempty"`
	UserID     int64     `json:"user_id"`
	Text       string    `json:"text"`
	At         time.Time `json:"at"`
}

// RoutingKey is "shipment.<event>" and doubles as the Kafka message key prefix.
func (e Envelope) RoutingKey() string {
	return "shipment." + e.Event
}

// Marshal encodes the envelope as JSON.
func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher sends envelopes to a broker.
type Publisher interface {
	Publish(ctx context.Context, e Envelope) error
	Close() error
}

// Config selects and configures a broker.
type Config struct {
	Broker       string // none | amqp | kafka
	AMQPURL      string
	Exchange     string
	KafkaBrokers []string
	KafkaTopic   string
}

// New connects to the configured broker. "none" or "" returns a publisher that drops events.
func New(ctx context.Context, cfg Config, log *zap.Logger) (Publisher, error) {
	switch cfg.Broker {
	case "", "none":
		return Nop{}, nil
	case "amqp":
		return NewAMQPPublisher(ctx, cfg.AMQPURL, cfg.Exchange, log)
	case "kafka":
		return NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic), nil
	default:
		return nil, fmt.Errorf("unknown broker %q", cfg.Broker)
	}
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Envelope) error { return nil }
func (Nop) Close() error                            { return nil }
