package grpcserver

import (
	"context"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"freightDeliveryManagement/internal/auth"
	"freightDeliveryManagement/internal/testutil"
	"freightDeliveryManagement/models"
)

func newDriverSuite(t *testing.T) (*testEnv, *ShipperServer, *DriverServer, *models.User) {
	t.Helper()
	env := newTestEnv(t)
	shipper := testutil.SeedUser(t, env.db, "acme", models.RoleShipper)
	return env, &ShipperServer{Users: env.users, Delivery: env.svc}, &DriverServer{Users: env.users, Delivery: env.svc}, shipper
}

func TestDriver_RejectsNonDriverPrincipal(t *testing.T) {
	_, _, ds, shipper := newDriverSuite(t)

	_, err := ds.ListAvailable(principalCtx(shipper), &ListAvailableRequest{})
	if status.Code(err) != codes.PermissionDenied {
		t.Fatalf("code=%v want=%v", status.Code(err), codes.PermissionDenied)
	}

	_, err = ds.ListAvailable(context.Background(), &ListAvailableRequest{})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("code=%v want=%v", status.Code(err), codes.Unauthenticated)
	}
}

func TestDriver_ListAvailable_RequiresBothCoordinates(t *testing.T) {
	env, _, ds, _ := newDriverSuite(t)
	driver := testutil.SeedUser(t, env.db, "dana", models.RoleDriver)

	lat := 37.7
	_, err := ds.ListAvailable(principalCtx(driver), &ListAvailableRequest{Lat: &lat})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code=%v want=%v", status.Code(err), codes.InvalidArgument)
	}
}

func TestDriver_AcceptTwiceIsAborted(t *testing.T) {
	env, ss, ds, shipper := newDriverSuite(t)
	first := testutil.SeedUser(t, env.db, "dana", models.RoleDriver)
	second := testutil.SeedUser(t, env.db, "eli", models.RoleDriver)

	created, err := ss.CreateShipment(principalCtx(shipper), createRequest())
	if err != nil {
		t.Fatalf("CreateShipment: %v", err)
	}
	id := created.Shipment.ID

	_, err = ds.AcceptShipment(principalCtx(first), &ShipmentRequest{ShipmentID: id})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("unpaid accept code=%v want=%v", status.Code(err), codes.NotFound)
	}

	env.markPaid(t, id)
	if _, err := ds.AcceptShipment(principalCtx(first), &ShipmentRequest{ShipmentID: id}); err != nil {
		t.Fatalf("AcceptShipment: %v", err)
	}
	_, err = ds.AcceptShipment(principalCtx(second), &ShipmentRequest{ShipmentID: id})
	if status.Code(err) != codes.Aborted {
		t.Fatalf("code=%v want=%v", status.Code(err), codes.Aborted)
	}

	_, err = ds.AdvanceStatus(principalCtx(second), &AdvanceStatusRequest{ShipmentID: id})
	if status.Code(err) != codes.PermissionDenied {
		t.Fatalf("stranger advance code=%v want=%v", status.Code(err), codes.PermissionDenied)
	}
}

func TestDriver_PostAndGetLocation(t *testing.T) {
	env, ss, ds, shipper := newDriverSuite(t)
	driver := testutil.SeedUser(t, env.db, "dana", models.RoleDriver)

	created, err := ss.CreateShipment(principalCtx(shipper), createRequest())
	if err != nil {
		t.Fatalf("CreateShipment: %v", err)
	}
	id := created.Shipment.ID
	env.markPaid(t, id)
	if _, err := ds.AcceptShipment(principalCtx(driver), &ShipmentRequest{ShipmentID: id}); err != nil {
		t.Fatalf("AcceptShipment: %v", err)
	}

	_, err = ds.PostLocation(principalCtx(driver), &PostLocationRequest{ShipmentID: id, Lat: 95, Lng: 0})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("bad position code=%v want=%v", status.Code(err), codes.InvalidArgument)
	}
	if _, err := ds.PostLocation(principalCtx(driver), &PostLocationRequest{ShipmentID: id, Lat: 37.78, Lng: -122.40}); err != nil {
		t.Fatalf("PostLocation: %v", err)
	}

	resp, err := ss.GetLocation(principalCtx(shipper), &ShipmentRequest{ShipmentID: id})
	if err != nil {
		t.Fatalf("GetLocation: %v", err)
	}
	if resp.Location == nil || resp.Location.Lat != 37.78 {
		t.Fatalf("unexpected location %+v", resp.Location)
	}

	ctx := auth.WithPrincipal(context.Background(), &auth.Principal{UserID: driver.ID, Name: driver.Username, Kind: "driver"})
	if _, err := ds.GetLocation(ctx, &ShipmentRequest{ShipmentID: id}); err != nil {
		t.Fatalf("driver GetLocation: %v", err)
	}
}
