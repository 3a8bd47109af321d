package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisherKeysByShipment(t *testing.T) {
	w := &recordingWriter{}
	p := &KafkaPublisher{w: w}
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, p.Publish(context.Background(), Envelope{Event: "accepted", ShipmentID: 42, UserID: 7, Text: "accepted", At: at}))
	require.Len(t, w.msgs, 1)
	m := w.msgs[0]
	assert.Equal(t, "42", string(m.Key))
	assert.Equal(t, "shipment.accepted", string(m.Headers[0].Value))

	var got Envelope
	require.NoError(t, json.Unmarshal(m.Value, &got))
	assert.Equal(t, int64(7), got.UserID)
	assert.True(t, got.At.Equal(at))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestNewSelectsBroker(t *testing.T) {
	p, err := New(context.Background(), Config{Broker: "none"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, Nop{}, p)

	p, err = New(context.Background(), Config{Broker: "kafka", KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "t"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &KafkaPublisher{}, p)

	_, err = New(context.Background(), Config{Broker: "carrier-pigeon"}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewAMQPPublisher(context.Background(), "", "x", zap.NewNop())
	assert.Error(t, err)
}
