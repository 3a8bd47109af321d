package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"freightDeliveryManagement/internal/apperr"
	"freightDeliveryManagement/internal/auth"
	"freightDeliveryManagement/internal/delivery"
	"freightDeliveryManagement/internal/geo"
	"freightDeliveryManagement/models"
	"freightDeliveryManagement/repository"
)

const driverServiceName = "freight.v1.DriverService"

// DriverService is the server API for freight.v1.DriverService.
type DriverService interface {
	ListAvailable(context.Context, *ListAvailableRequest) (*ListAvailableResponse, error)
	AcceptShipment(context.Context, *ShipmentRequest) (*ShipmentResponse, error)
	AdvanceStatus(context.Context, *AdvanceStatusRequest) (*AdvanceStatusResponse, error)
	CancelShipment(context.Context, *CancelShipmentRequest) (*ShipmentResponse, error)
	PostLocation(context.Context, *PostLocationRequest) (*LocationResponse, error)
	GetDeliveryQR(context.Context, *ShipmentRequest) (*DeliveryQRResponse, error)
	GetLocation(context.Context, *ShipmentRequest) (*LocationResponse, error)
}

// DriverServer implements DriverService RPCs.
type DriverServer struct {
	Users    repository.UserRepositoryI
	Delivery *delivery.Service
}

// DriverServiceDesc registers a DriverService on a grpc.Server.
var DriverServiceDesc = grpc.ServiceDesc{
	ServiceName: driverServiceName,
	HandlerType: (*DriverService)(nil),
	Methods: []grpc.MethodDesc{
		unary(driverServiceName, "ListAvailable", DriverService.ListAvailable),
		unary(driverServiceName, "AcceptShipment", DriverService.AcceptShipment),
		unary(driverServiceName, "AdvanceStatus", DriverService.AdvanceStatus),
		unary(driverServiceName, "CancelShipment", DriverService.CancelShipment),
		unary(driverServiceName, "PostLocation", DriverService.PostLocation),
		unary(driverServiceName, "GetDeliveryQR", DriverService.GetDeliveryQR),
		unary(driverServiceName, "GetLocation", DriverService.GetLocation),
	},
	Streams: []grpc.StreamDesc{},
}

var _ DriverService = (*DriverServer)(nil)

func (s *DriverServer) driver(ctx context.Context) (delivery.Actor, error) {
	p, err := auth.RequireRegistered(ctx, s.Users, models.RoleDriver)
	if err != nil {
		return delivery.Actor{}, err
	}
	return delivery.Actor{UserID: p.UserID, Role: models.RoleDriver}, nil
}

// ListAvailable returns paid, unassigned shipments. With lat/lng the list is sorted by
// pickup distance and limited to radius_miles when set.
func (s *DriverServer) ListAvailable(ctx context.Context, req *ListAvailableRequest) (*ListAvailableResponse, error) {
	if _, err := s.driver(ctx); err != nil {
		return nil, err
	}
	var f delivery.AvailableFilter
	if req.Lat != nil || req.Lng != nil {
		if req.Lat == nil || req.Lng == nil {
			return nil, status.Error(codes.InvalidArgument, "lat and lng must be set together")
		}
		f.Near = &geo.Point{Lat: *req.Lat, Lng: *req.Lng}
		f.RadiusMiles = req.RadiusMiles
	}
	rows, err := s.Delivery.ListAvailable(ctx, f)
	if err != nil {
		return nil, apperr.GRPCStatus(err)
	}
	return &ListAvailableResponse{Shipments: rows}, nil
}

// AcceptShipment claims a shipment for the caller. Losing a race yields Aborted.
func (s *DriverServer) AcceptShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error) {
	actor, err := s.driver(ctx)
	if err != nil {
		return nil, err
	}
	sh, err := s.Delivery.Accept(ctx, req.ShipmentID, actor.UserID)
	if err != nil {
		return nil, apperr.GRPCStatus(err)
	}
	return &ShipmentResponse{Shipment: sh}, nil
}

// AdvanceStatus moves an assigned shipment forward. Reaching awaiting_confirmation returns
// the delivery token for the recipient.
func (s *DriverServer) AdvanceStatus(ctx context.Context, req *AdvanceStatusRequest) (*AdvanceStatusResponse, error) {
	actor, err := s.driver(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.Delivery.Advance(ctx, req.ShipmentID, actor.UserID, req.Status)
	if err != nil {
		return nil, apperr.GRPCStatus(err)
	}
	return &AdvanceStatusResponse{Shipment: res.Shipment, DeliveryToken: res.DeliveryToken, ConfirmURL: res.ConfirmURL}, nil
}

func (s *DriverServer) CancelShipment(ctx context.Context, req *CancelShipmentRequest) (*ShipmentResponse, error) {
	actor, err := s.driver(ctx)
	if err != nil {
		return nil, err
	}
	sh, err := s.Delivery.Cancel(ctx, req.ShipmentID, actor, req.Reason)
	if err != nil {
		return nil, apperr.GRPCStatus(err)
	}
	return &ShipmentResponse{Shipment: sh}, nil
}

func (s *DriverServer) PostLocation(ctx context.Context, req *PostLocationRequest) (*LocationResponse, error) {
	actor, err := s.driver(ctx)
	if err != nil {
		return nil, err
	}
	ping, err := s.Delivery.PostLocation(ctx, req.ShipmentID, actor.UserID, geo.Point{Lat: req.Lat, Lng: req.Lng})
	if err != nil {
		return nil, apperr.GRPCStatus(err)
	}
	return &LocationResponse{Location: ping}, nil
}

func (s *DriverServer) GetDeliveryQR(ctx context.Context, req *ShipmentRequest) (*DeliveryQRResponse, error) {
	actor, err := s.driver(ctx)
	if err != nil {
		return nil, err
	}
	return deliveryQR(ctx, s.Delivery, req.ShipmentID, actor)
}

func (s *DriverServer) GetLocation(ctx context.Context, req *ShipmentRequest) (*LocationResponse, error) {
	actor, err := s.driver(ctx)
	if err != nil {
		return nil, err
	}
	return location(ctx, s.Delivery, req.ShipmentID, actor)
}
