package delivery_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freightDeliveryManagement/internal/apperr"
	"freightDeliveryManagement/internal/delivery"
	"freightDeliveryManagement/internal/payment"
	"freightDeliveryManagement/models"
)

func TestCreateStoresPendingShipment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sh, err := f.svc.Create(ctx, createInput(f.shipper.ID))
	require.NoError(t, err)

	assert.Equal(t, fmt.Sprintf("shipment-20240517-%05d", sh.ID), sh.CodeString())
	assert.Equal(t, models.ShipmentStatusPending, sh.Status)
	assert.Equal(t, models.PaymentStatusPending, sh.PaymentStatus)
	assert.EqualValues(t, 12550, sh.DeclaredValueCents)
	assert.NotEmpty(t, sh.PaymentURL)
	assert.Equal(t, models.ImageRefs{"/uploads/1.jpg"}, sh.Images)

	// Unpaid shipments are not offered to drivers.
	pool, err := f.svc.ListAvailable(ctx, delivery.AvailableFilter{})
	require.NoError(t, err)
	assert.Empty(t, pool)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := map[string]func(in *delivery.CreateInput){
		"no terms":        func(in *delivery.CreateInput) { in.TermsAcknowledged = false },
		"zero value":      func(in *delivery.CreateInput) { in.DeclaredValue = 0 },
		"missing zip":     func(in *delivery.CreateInput) { in.Dropoff.Zip = " " },
		"bad latitude":    func(in *delivery.CreateInput) { in.Pickup.Lat = 91 },
		"no vehicle":      func(in *delivery.CreateInput) { in.VehicleType = "" },
		"no mobile":       func(in *delivery.CreateInput) { in.RecipientMobile = "n/a" },
		"no service tier": func(in *delivery.CreateInput) { in.ServiceLevel = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := createInput(f.shipper.ID)
			mutate(&in)
			_, err := f.svc.Create(ctx, in)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestCreatePaymentFailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := delivery.NewService(delivery.Deps{
		Shipments: f.shipments,
		Payments:  failingGateway{},
		Codec:     f.codec,
	})

	_, err := svc.Create(ctx, createInput(f.shipper.ID))
	require.ErrorIs(t, err, apperr.ErrUpstream)

	rows, err := f.shipments.ListByShipper(ctx, f.shipper.ID, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestPaymentWebhook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sh, err := f.svc.Create(ctx, createInput(f.shipper.ID))
	require.NoError(t, err)

	body := []byte(fmt.Sprintf(`{"type":%q,"session_id":%q}`, payment.EventCheckoutCompleted, sh.PaymentSessionID))
	err = f.svc.HandlePaymentWebhook(ctx, body, "forged")
	require.ErrorIs(t, err, apperr.ErrSignatureMismatch)

	require.NoError(t, f.svc.HandlePaymentWebhook(ctx, body, f.gateway.Sign(body)))
	// Redelivery is a no-op.
	require.NoError(t, f.svc.HandlePaymentWebhook(ctx, body, f.gateway.Sign(body)))
	assert.Equal(t, []string{"paid"}, f.notes.events(f.shipper.ID))

	other := []byte(`{"type":"checkout.session.expired","session_id":"cs_x"}`)
	require.NoError(t, f.svc.HandlePaymentWebhook(ctx, other, f.gateway.Sign(other)))

	got, err := f.svc.Get(ctx, sh.ID, shipperActor(f.shipper))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, got.PaymentStatus)
	require.NotNil(t, got.PaidAt)
}

func TestGetHidesForeignShipments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sh, err := f.svc.Create(ctx, createInput(f.shipper.ID))
	require.NoError(t, err)

	stranger := delivery.Actor{UserID: f.shipper.ID + 100, Role: models.RoleShipper}
	_, err = f.svc.Get(ctx, sh.ID, stranger)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	// Unpaid shipments are not visible to drivers yet.
	_, err = f.svc.Get(ctx, sh.ID, driverActor(f.driver))
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.Get(ctx, sh.ID+100, shipperActor(f.shipper))
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListAndSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.paidShipment(t)
	second := f.paidShipment(t)
	_, err := f.svc.Accept(ctx, second.ID, f.driver.ID)
	require.NoError(t, err)

	mine, err := f.svc.List(ctx, shipperActor(f.shipper), 1, 0)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, second.ID, mine[0].ID, "newest first")

	next, err := f.svc.List(ctx, shipperActor(f.shipper), 1, mine[0].ID)
	require.NoError(t, err)
	require.Len(t, next, 1)
	assert.Equal(t, first.ID, next[0].ID)

	assigned, err := f.svc.List(ctx, driverActor(f.driver), 0, 0)
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, second.ID, assigned[0].ID)

	_, err = f.svc.List(ctx, delivery.Actor{UserID: 1, Role: "guest"}, 0, 0)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	summary, err := f.svc.Summary(ctx, f.shipper.ID)
	require.NoError(t, err)
	require.Len(t, summary, len(models.AllShipmentStatuses))
	counts := map[models.ShipmentStatus]int64{}
	for _, c := range summary {
		counts[c.Status] = c.Count
	}
	assert.EqualValues(t, 1, counts[models.ShipmentStatusPending])
	assert.EqualValues(t, 1, counts[models.ShipmentStatusAccepted])
	assert.EqualValues(t, 0, counts[models.ShipmentStatusDelivered])
}

func TestLocationUpdates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sh := f.paidShipment(t)

	_, err := f.svc.GetLocation(ctx, sh.ID, shipperActor(f.shipper))
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.PostLocation(ctx, sh.ID, f.driver.ID, geoPoint(37.78, -122.41))
	require.ErrorIs(t, err, apperr.ErrUnauthorized, "no driver assigned yet")

	_, err = f.svc.Accept(ctx, sh.ID, f.driver.ID)
	require.NoError(t, err)

	_, err = f.svc.PostLocation(ctx, sh.ID, f.driver.ID, geoPoint(120, 0))
	require.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.svc.PostLocation(ctx, sh.ID, f.other.ID, geoPoint(37.78, -122.41))
	require.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = f.svc.PostLocation(ctx, sh.ID, f.driver.ID, geoPoint(37.78, -122.41))
	require.NoError(t, err)
	f.now = f.now.Add(time.Minute)
	ping, err := f.svc.PostLocation(ctx, sh.ID, f.driver.ID, geoPoint(37.79, -122.40))
	require.NoError(t, err)

	latest, err := f.svc.GetLocation(ctx, sh.ID, shipperActor(f.shipper))
	require.NoError(t, err)
	assert.Equal(t, ping.ID, latest.ID)
	assert.InDelta(t, 37.79, latest.Lat, 1e-9)

	_, err = f.svc.GetLocation(ctx, sh.ID, driverActor(f.other))
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	f.emitter.mu.Lock()
	defer f.emitter.mu.Unlock()
	require.Len(t, f.emitter.sent, 4)
	assert.Equal(t, emitted{userID: f.shipper.ID, event: delivery.EventLocationUpdate}, f.emitter.sent[0])
	assert.Equal(t, emitted{userID: f.driver.ID, event: delivery.EventLocationUpdate}, f.emitter.sent[1])
}
