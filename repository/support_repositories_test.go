package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freightDeliveryManagement/internal/testutil"
	"freightDeliveryManagement/models"
)

func TestLocationRepository_LatestWins(t *testing.T) {
	d := testutil.OpenTestDB(t)
	shipper := testutil.SeedUser(t, d, "shipper", models.RoleShipper)
	driver := testutil.SeedUser(t, d, "driver", models.RoleDriver)
	ctx := context.Background()
	s, err := NewShipmentRepository(d).Create(ctx, newShipment(shipper.ID, "cs_loc", time.Now().UTC()))
	require.NoError(t, err)

	locs := NewLocationRepository(d)
	none, err := locs.Latest(ctx, s.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	base := time.Now().UTC()
	for i, lat := range []float64{1, 2, 3} {
		_, err := locs.Append(ctx, &models.LocationPing{ShipmentID: s.ID, DriverID: driver.ID, Lat: lat, Lng: 10, RecordedAt: base.Add(time.Duration(i) * time.Second)})
		require.NoError(t, err)
	}
	latest, err := locs.Latest(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 3.0, latest.Lat)

	track, err := locs.Track(ctx, s.ID, 0)
	require.NoError(t, err)
	assert.Len(t, track, 3)
}

func TestOTPRepository_MostRecentAndPurge(t *testing.T) {
	d := testutil.OpenTestDB(t)
	repo := NewOTPRepository(d)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Insert(ctx, "5551234567", "111111", now.Add(-time.Minute), now.Add(-6*time.Minute)))
	require.NoError(t, repo.Insert(ctx, "5551234567", "222222", now.Add(5*time.Minute), now))

	c, err := repo.Latest(ctx, "5551234567")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "222222", c.Code)

	n, err := repo.PurgeExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, repo.DeleteByPhone(ctx, "5551234567"))
	c, err = repo.Latest(ctx, "5551234567")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestRevocationRepository(t *testing.T) {
	d := testutil.OpenTestDB(t)
	repo := NewRevocationRepository(d)
	ctx := context.Background()
	now := time.Now().UTC()

	revoked, err := repo.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, repo.Revoke(ctx, "jti-1", now.Add(time.Hour)))
	require.NoError(t, repo.Revoke(ctx, "jti-1", now.Add(time.Hour)))
	require.NoError(t, repo.Revoke(ctx, "jti-old", now.Add(-time.Hour)))
	assert.Error(t, repo.Revoke(ctx, "", now))

	revoked, err = repo.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	n, err := repo.PurgeExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMessageAndNotificationRepositories(t *testing.T) {
	d := testutil.OpenTestDB(t)
	shipper := testutil.SeedUser(t, d, "shipper", models.RoleShipper)
	driver := testutil.SeedUser(t, d, "driver", models.RoleDriver)
	ctx := context.Background()
	s, err := NewShipmentRepository(d).Create(ctx, newShipment(shipper.ID, "cs_chat", time.Now().UTC()))
	require.NoError(t, err)

	msgs := NewMessageRepository(d)
	m1, err := msgs.Create(ctx, &models.Message{SenderID: shipper.ID, ReceiverID: driver.ID, ShipmentID: &s.ID, Body: "gate code 4411"})
	require.NoError(t, err)
	assert.NotZero(t, m1.ID)
	_, err = msgs.Create(ctx, &models.Message{SenderID: driver.ID, ReceiverID: shipper.ID, ShipmentID: &s.ID, Body: "thanks"})
	require.NoError(t, err)

	history, err := msgs.ListByShipment(ctx, s.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "gate code 4411", history[0].Body)
	between, err := msgs.ListBetween(ctx, driver.ID, shipper.ID, 0)
	require.NoError(t, err)
	assert.Len(t, between, 2)

	notes := NewNotificationRepository(d)
	n1, err := notes.Create(ctx, &models.Notification{UserID: shipper.ID, ShipmentID: &s.ID, Event: "shipment.paid", Message: "paid"})
	require.NoError(t, err)
	_, err = notes.Create(ctx, &models.Notification{UserID: shipper.ID, Event: "shipment.accepted", Message: "accepted"})
	require.NoError(t, err)

	marked, err := notes.MarkRead(ctx, shipper.ID, n1.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), marked)
	unread, err := notes.ListByUser(ctx, shipper.ID, true, 0)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "shipment.accepted", unread[0].Event)
	all, err := notes.ListByUser(ctx, shipper.ID, false, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
