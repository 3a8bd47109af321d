package delivery_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"freightDeliveryManagement/internal/delivery"
	"freightDeliveryManagement/internal/geo"
	"freightDeliveryManagement/internal/notify"
	"freightDeliveryManagement/internal/otp"
	mock_otp "freightDeliveryManagement/internal/otp/mocks"
	"freightDeliveryManagement/internal/payment"
	"freightDeliveryManagement/internal/testutil"
	"freightDeliveryManagement/internal/token"
	"freightDeliveryManagement/models"
	"freightDeliveryManagement/repository"
)

const recipientMobile = "5551234567"

type recorder struct {
	mu    sync.Mutex
	notes []notify.Notification
}

func (r *recorder) Notify(_ context.Context, n notify.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
	return nil
}

func (r *recorder) events(userID int64) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.notes {
		if n.UserID == userID {
			out = append(out, n.Event)
		}
	}
	return out
}

type emitted struct {
	userID int64
	event  string
}

type fakeEmitter struct {
	mu   sync.Mutex
	sent []emitted
}

func (f *fakeEmitter) Emit(userID int64, event string, _ any) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, emitted{userID: userID, event: event})
	return 1
}

type failingGateway struct{}

func (failingGateway) CreateCheckoutSession(context.Context, int64, string, map[string]string) (payment.Session, error) {
	return payment.Session{}, errors.New("provider down")
}

func (failingGateway) ParseWebhook([]byte, string) (payment.Event, error) {
	return payment.Event{}, payment.ErrBadSignature
}

type fixture struct {
	db        *sql.DB
	svc       *delivery.Service
	shipments *repository.ShipmentRepository
	gateway   *payment.OfflineGateway
	codec     *token.Codec
	sender    *mock_otp.MockSender
	notes     *recorder
	notifyErr error
	emitter   *fakeEmitter
	now       time.Time

	shipper *models.User
	driver  *models.User
	other   *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	d := testutil.OpenTestDB(t)
	codec, err := token.NewCodec("delivery-secret")
	require.NoError(t, err)

	f := &fixture{
		db:        d,
		shipments: repository.NewShipmentRepository(d),
		gateway:   payment.NewOfflineGateway("http://localhost:8081", "whsec"),
		codec:     codec,
		sender:    mock_otp.NewMockSender(gomock.NewController(t)),
		notes:     &recorder{},
		emitter:   &fakeEmitter{},
		now:       time.Date(2024, 5, 17, 9, 0, 0, 0, time.UTC),
	}
	f.shipper = testutil.SeedUser(t, d, "shipper", models.RoleShipper)
	f.driver = testutil.SeedUser(t, d, "driver", models.RoleDriver)
	f.other = testutil.SeedUser(t, d, "other-driver", models.RoleDriver)

	f.svc = delivery.NewService(delivery.Deps{
		Shipments:     f.shipments,
		Locations:     repository.NewLocationRepository(d),
		Users:         repository.NewUserRepository(d),
		Payments:      f.gateway,
		Codec:         codec,
		OTP:           otp.NewService(repository.NewOTPRepository(d), f.sender, otp.Options{}, nil),
		Notifier: notify.SinkFunc(func(ctx context.Context, n notify.Notification) error {
			_ = f.notes.Notify(ctx, n)
			return f.notifyErr
		}),
		Realtime:      f.emitter,
		PublicBaseURL: "https://freight.example/",
		QRSize:        128,
		Now:           func() time.Time { return f.now },
	})
	return f
}

func createInput(shipperID int64) delivery.CreateInput {
	return delivery.CreateInput{
		ShipperID:           shipperID,
		VehicleType:         "box_truck",
		Pickup:              delivery.Stop{Lat: 37.7749, Lng: -122.4194, Name: "Warehouse", LocationName: "SoMa", Zip: "94107"},
		Dropoff:             delivery.Stop{Lat: 37.8044, Lng: -122.2712, Name: "Store", LocationName: "Downtown", Zip: "94612"},
		PackageInstructions: "fragile",
		ServiceLevel:        "standard",
		DeclaredValue:       125.50,
		TermsAcknowledged:   true,
		RecipientMobile:     recipientMobile,
		Images:              []string{"/uploads/1.jpg"},
	}
}

// paidShipment creates a shipment and runs the payment webhook for it.
func (f *fixture) paidShipment(t *testing.T) *models.Shipment {
	t.Helper()
	return f.paidShipmentFrom(t, createInput(f.shipper.ID))
}

func (f *fixture) paidShipmentFrom(t *testing.T, in delivery.CreateInput) *models.Shipment {
	t.Helper()
	ctx := context.Background()
	sh, err := f.svc.Create(ctx, in)
	require.NoError(t, err)
	body := []byte(fmt.Sprintf(`{"type":%q,"session_id":%q}`, payment.EventCheckoutCompleted, sh.PaymentSessionID))
	require.NoError(t, f.svc.HandlePaymentWebhook(ctx, body, f.gateway.Sign(body)))
	return sh
}

// awaiting drives a paid shipment to awaiting_confirmation and returns the delivery token.
func (f *fixture) awaiting(t *testing.T) (*models.Shipment, string) {
	t.Helper()
	return f.awaitingFor(t, recipientMobile)
}

// awaitingFor is awaiting with a given recipient mobile on file.
func (f *fixture) awaitingFor(t *testing.T, mobile string) (*models.Shipment, string) {
	t.Helper()
	ctx := context.Background()
	in := createInput(f.shipper.ID)
	in.RecipientMobile = mobile
	sh := f.paidShipmentFrom(t, in)
	_, err := f.svc.Accept(ctx, sh.ID, f.driver.ID)
	require.NoError(t, err)
	var res *delivery.AdvanceResult
	for i := 0; i < 3; i++ {
		res, err = f.svc.Advance(ctx, sh.ID, f.driver.ID, "")
		require.NoError(t, err)
	}
	require.Equal(t, models.ShipmentStatusAwaitingConfirmation, res.Shipment.Status)
	require.NotEmpty(t, res.DeliveryToken)
	return res.Shipment, res.DeliveryToken
}

func shipperActor(u *models.User) delivery.Actor { return delivery.Actor{UserID: u.ID, Role: models.RoleShipper} }
func driverActor(u *models.User) delivery.Actor  { return delivery.Actor{UserID: u.ID, Role: models.RoleDriver} }

func geoPoint(lat, lng float64) geo.Point { return geo.Point{Lat: lat, Lng: lng} }
