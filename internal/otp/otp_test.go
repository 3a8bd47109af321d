package otp

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"freightDeliveryManagement/internal/apperr"
	mock_otp "freightDeliveryManagement/internal/otp/mocks"
	"freightDeliveryManagement/internal/testutil"
	"freightDeliveryManagement/repository"
)

func newTestService(t *testing.T, sender Sender) (*Service, *time.Time) {
	t.Helper()
	store := repository.NewOTPRepository(testutil.OpenTestDB(t))
	svc := NewService(store, sender, Options{}, nil)
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return svc, &now
}

func TestDispatchAndVerify(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mock_otp.NewMockSender(ctrl)
	svc, _ := newTestService(t, sender)
	ctx := context.Background()

	var sent string
	sender.EXPECT().Send(gomock.Any(), "5551234567", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, code string) error {
			sent = code
			return nil
		})

	require.NoError(t, svc.Dispatch(ctx, "5551234567"))
	assert.Regexp(t, regexp.MustCompile(`^[1-9][0-9]{5}$`), sent)

	err := svc.Verify(ctx, "5551234567", "000000")
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)

	require.NoError(t, svc.Verify(ctx, "5551234567", sent))
	err = svc.Verify(ctx, "5551234567", sent)
	assert.ErrorIs(t, err, apperr.ErrInvalidToken, "codes are single use")
}

func TestDispatchThrottlesResend(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mock_otp.NewMockSender(ctrl)
	svc, now := newTestService(t, sender)
	ctx := context.Background()

	sender.EXPECT().Send(gomock.Any(), "5550000000", gomock.Any()).Return(nil).Times(2)

	require.NoError(t, svc.Dispatch(ctx, "5550000000"))
	*now = now.Add(30 * time.Second)
	assert.ErrorIs(t, svc.Dispatch(ctx, "5550000000"), apperr.ErrTooManyRequests)
	*now = now.Add(31 * time.Second)
	assert.NoError(t, svc.Dispatch(ctx, "5550000000"))
}

func TestVerifyExpiredCode(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mock_otp.NewMockSender(ctrl)
	svc, now := newTestService(t, sender)
	ctx := context.Background()

	var sent string
	sender.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, code string) error {
			sent = code
			return nil
		})
	require.NoError(t, svc.Dispatch(ctx, "5551112222"))
	*now = now.Add(5 * time.Minute)
	assert.ErrorIs(t, svc.Verify(ctx, "5551112222", sent), apperr.ErrExpired)
}

func TestDispatchSenderFailureIsUpstream(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mock_otp.NewMockSender(ctrl)
	svc, _ := newTestService(t, sender)

	sender.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("carrier down"))
	assert.ErrorIs(t, svc.Dispatch(context.Background(), "5553334444"), apperr.ErrUpstream)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "****4567", mask("5551234567"))
	assert.Equal(t, "****", mask("12"))
}
