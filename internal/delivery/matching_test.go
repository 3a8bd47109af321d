package delivery_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"freightDeliveryManagement/internal/apperr"
	"freightDeliveryManagement/internal/delivery"
	"freightDeliveryManagement/internal/testutil"
	"freightDeliveryManagement/models"
)

func TestConcurrentAcceptExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	sh := f.paidShipment(t)

	const drivers = 8
	ids := make([]int64, drivers)
	for i := range ids {
		ids[i] = testutil.SeedUser(t, f.db, fmt.Sprintf("racer-%d", i), models.RoleDriver).ID
	}

	errs := make([]error, drivers)
	var g errgroup.Group
	for i := range ids {
		i := i
		g.Go(func() error {
			_, errs[i] = f.svc.Accept(context.Background(), sh.ID, ids[i])
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var won int
	var winner int64
	for i, err := range errs {
		switch {
		case err == nil:
			won++
			winner = ids[i]
		case errors.Is(err, apperr.ErrAlreadyAssigned):
		default:
			t.Fatalf("driver %d: unexpected error %v", ids[i], err)
		}
	}
	require.Equal(t, 1, won)

	got, err := f.shipments.GetByID(context.Background(), sh.ID)
	require.NoError(t, err)
	require.NotNil(t, got.DriverID)
	assert.Equal(t, winner, *got.DriverID)
	assert.Equal(t, models.ShipmentStatusAccepted, got.Status)
}

func TestAcceptFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	unpaid, err := f.svc.Create(ctx, createInput(f.shipper.ID))
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, unpaid.ID, f.driver.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.Accept(ctx, unpaid.ID+100, f.driver.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	sh := f.paidShipment(t)
	accepted, err := f.svc.Accept(ctx, sh.ID, f.driver.ID)
	require.NoError(t, err)
	assert.True(t, accepted.IsAssignedTo(f.driver.ID))
	assert.Contains(t, f.notes.events(f.shipper.ID), "accepted")
	assert.Contains(t, f.notes.events(f.driver.ID), "accepted")

	_, err = f.svc.Accept(ctx, sh.ID, f.other.ID)
	assert.ErrorIs(t, err, apperr.ErrAlreadyAssigned)

	cancelled := f.paidShipment(t)
	_, err = f.svc.Cancel(ctx, cancelled.ID, shipperActor(f.shipper), "changed plans")
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, cancelled.ID, f.driver.ID)
	assert.ErrorIs(t, err, apperr.ErrIllegalTransition)
}

func TestListAvailableNearestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	far := createInput(f.shipper.ID)
	far.Pickup.Lat, far.Pickup.Lng = 34.0522, -118.2437 // Los Angeles
	near := createInput(f.shipper.ID)
	near.Pickup.Lat, near.Pickup.Lng = 37.7790, -122.4190

	for _, in := range []delivery.CreateInput{far, near} {
		sh, err := f.svc.Create(ctx, in)
		require.NoError(t, err)
		require.NoError(t, f.svc.MarkPaid(ctx, sh.PaymentSessionID))
	}

	sf := geoPoint(37.7749, -122.4194)
	all, err := f.svc.ListAvailable(ctx, delivery.AvailableFilter{Near: &sf})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.InDelta(t, 37.7790, all[0].PickupLat, 1e-9)
	require.NotNil(t, all[0].DistanceMiles)
	assert.Less(t, *all[0].DistanceMiles, *all[1].DistanceMiles)

	local, err := f.svc.ListAvailable(ctx, delivery.AvailableFilter{Near: &sf, RadiusMiles: 25})
	require.NoError(t, err)
	require.Len(t, local, 1)

	plain, err := f.svc.ListAvailable(ctx, delivery.AvailableFilter{})
	require.NoError(t, err)
	require.Len(t, plain, 2)
	assert.Nil(t, plain[0].DistanceMiles)

	bad := geoPoint(100, 0)
	_, err = f.svc.ListAvailable(ctx, delivery.AvailableFilter{Near: &bad})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
