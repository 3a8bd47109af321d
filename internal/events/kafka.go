package events

import (
	"context"
	"strconv"

	"github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes envelopes to a topic keyed by shipment id, so all events of one
// shipment land on the same partition in order.
type KafkaPublisher struct {
	w messageWriter
}

// NewKafkaPublisher writes envelopes to topic, keyed by shipment id so one shipment stays
// on one partition.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{w: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Envelope) error {
	body, err := e.Marshal()
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(e.ShipmentID, 10)),
		Value: body,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(e.RoutingKey())},
		},
		Time: e.At,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}
