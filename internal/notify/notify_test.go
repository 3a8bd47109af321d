package notify_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"freightDeliveryManagement/internal/events"
	"freightDeliveryManagement/internal/metrics"
	"freightDeliveryManagement/internal/notify"
	mock_notify "freightDeliveryManagement/internal/notify/mocks"
	"freightDeliveryManagement/internal/testutil"
	"freightDeliveryManagement/models"
	"freightDeliveryManagement/repository"
)

func TestFanoutContinuesPastFailingSink(t *testing.T) {
	ctrl := gomock.NewController(t)
	broken := mock_notify.NewMockSink(ctrl)
	healthy := mock_notify.NewMockSink(ctrl)

	n := notify.Notification{UserID: 1, ShipmentID: 2, Event: "accepted", Text: "accepted by driver 3"}
	broken.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(errors.New("down"))
	healthy.EXPECT().Notify(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, got notify.Notification) error {
			assert.Equal(t, n.Text, got.Text)
			assert.False(t, got.At.IsZero(), "timestamp filled in")
			return nil
		})

	f := notify.NewFanout(nil).Add("broken", broken).Add("healthy", healthy)
	err := f.Notify(context.Background(), n)
	assert.Error(t, err)
}

func TestStoreSinkPersists(t *testing.T) {
	d := testutil.OpenTestDB(t)
	u := testutil.SeedUser(t, d, "shipper", models.RoleShipper)
	repo := repository.NewNotificationRepository(d)

	sink := notify.NewStoreSink(repo)
	require.NoError(t, sink.Notify(context.Background(), notify.Notification{UserID: u.ID, Event: "paid", Text: "payment received", At: time.Now().UTC()}))

	list, err := repo.ListByUser(context.Background(), u.ID, true, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "payment received", list[0].Message)
	assert.Nil(t, list[0].ShipmentID)
}

type emitted struct {
	user  int64
	event string
}

type fakeEmitter struct {
	mu  sync.Mutex
	got []emitted
}

func (f *fakeEmitter) Emit(userID int64, event string, _ any) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, emitted{userID, event})
	return 1
}

func TestRealtimeSinkEmits(t *testing.T) {
	e := &fakeEmitter{}
	require.NoError(t, notify.NewRealtimeSink(e).Notify(context.Background(), notify.Notification{UserID: 9, Event: "delivered"}))
	assert.Equal(t, []emitted{{9, "notification"}}, e.got)
}

type capturePublisher struct {
	got []events.Envelope
}

func (c *capturePublisher) Publish(_ context.Context, e events.Envelope) error {
	c.got = append(c.got, e)
	return nil
}

func (c *capturePublisher) Close() error { return nil }

func TestBrokerSinkPublishesEnvelope(t *testing.T) {
	pub := &capturePublisher{}
	require.NoError(t, notify.NewBrokerSink(pub).Notify(context.Background(), notify.Notification{UserID: 4, ShipmentID: 5, Event: "picked_up", Text: "picked up"}))
	require.Len(t, pub.got, 1)
	assert.Equal(t, "shipment.picked_up", pub.got[0].RoutingKey())
	assert.Equal(t, int64(5), pub.got[0].ShipmentID)
}

func TestAsyncDeliversInBackground(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mock_notify.NewMockSink(ctrl)
	done := make(chan struct{})
	next.EXPECT().Notify(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, notify.Notification) error {
		close(done)
		return nil
	})

	a := notify.NewAsync(next, 1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		_ = a.Run(ctx)
		close(stopped)
	}()

	require.NoError(t, a.Notify(context.Background(), notify.Notification{UserID: 1}))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("notification not delivered")
	}
	cancel()
	<-stopped
}

func TestAsyncQueueFull(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	a := notify.NewAsync(notify.SinkFunc(func(context.Context, notify.Notification) error { return nil }), 1, zap.New(core))
	dropped := promtest.ToFloat64(metrics.NotifyFailuresTotal.WithLabelValues("queue"))

	require.NoError(t, a.Notify(context.Background(), notify.Notification{UserID: 1, Event: "accepted"}))
	assert.ErrorIs(t, a.Notify(context.Background(), notify.Notification{UserID: 2, Event: "picked_up"}), notify.ErrQueueFull)

	assert.Equal(t, dropped+1, promtest.ToFloat64(metrics.NotifyFailuresTotal.WithLabelValues("queue")))
	entries := logs.FilterMessage("notification dropped").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.EqualValues(t, 2, fields["user_id"])
	assert.Equal(t, "picked_up", fields["event"])
}
