package grpcserver

import (
	"context"

	"google.golang.org/grpc"

	"freightDeliveryManagement/internal/apperr"
	"freightDeliveryManagement/internal/auth"
	"freightDeliveryManagement/internal/delivery"
	"freightDeliveryManagement/models"
	"freightDeliveryManagement/repository"
)

const shipperServiceName = "freight.v1.ShipperService"

// ShipperService is the server API for freight.v1.ShipperService.
type ShipperService interface {
	CreateShipment(context.Context, *CreateShipmentRequest) (*CreateShipmentResponse, error)
	GetShipment(context.Context, *ShipmentRequest) (*ShipmentResponse, error)
	ListShipments(context.Context, *ListShipmentsRequest) (*ListShipmentsResponse, error)
	GetSummary(context.Context, *GetSummaryRequest) (*GetSummaryResponse, error)
	CancelShipment(context.Context, *CancelShipmentRequest) (*ShipmentResponse, error)
	GetDeliveryQR(context.Context, *ShipmentRequest) (*DeliveryQRResponse, error)
	GetLocation(context.Context, *ShipmentRequest) (*LocationResponse, error)
}

// ShipperServer implements ShipperService RPCs.
type ShipperServer struct {
	Users    repository.UserRepositoryI
	Delivery *delivery.Service
}

// ShipperServiceDesc registers a ShipperService on a grpc.Server.
var ShipperServiceDesc = grpc.ServiceDesc{
	ServiceName: shipperServiceName,
	HandlerType: (*ShipperService)(nil),
	Methods: []grpc.MethodDesc{
		unary(shipperServiceName, "CreateShipment", ShipperService.CreateShipment),
		unary(shipperServiceName, "GetShipment", ShipperService.GetShipment),
		unary(shipperServiceName, "ListShipments", ShipperService.ListShipments),
		unary(shipperServiceName, "GetSummary", ShipperService.GetSummary),
		unary(shipperServiceName, "CancelShipment", ShipperService.CancelShipment),
		unary(shipperServiceName, "GetDeliveryQR", ShipperService.GetDeliveryQR),
		unary(shipperServiceName, "GetLocation", ShipperService.GetLocation),
	},
	Streams: []grpc.StreamDesc{},
}

var _ ShipperService = (*ShipperServer)(nil)

// shipper resolves the calling shipper from the token and the users table.
func (s *ShipperServer) shipper(ctx context.Context) (delivery.Actor, error) {
	p, err := auth.RequireRegistered(ctx, s.Users, models.RoleShipper)
	if err != nil {
		return delivery.Actor{}, err
	}
	return delivery.Actor{UserID: p.UserID, Role: models.RoleShipper}, nil
}

// CreateShipment opens a payment session and stores a pending shipment.
func (s *ShipperServer) CreateShipment(ctx context.Context, req *CreateShipmentRequest) (*CreateShipmentResponse, error) {
	actor, err := s.shipper(ctx)
	if err != nil {
		return nil, err
	}
	sh, err := s.Delivery.Create(ctx, delivery.CreateInput{
		ShipperID:           actor.UserID,
		VehicleType:         req.VehicleType,
		Pickup:              req.Pickup,
		Dropoff:             req.Dropoff,
		PackageInstructions: req.PackageInstructions,
		ServiceLevel:        req.ServiceLevel,
		DeclaredValue:       req.DeclaredValue,
		TermsAcknowledged:   req.TermsAcknowledged,
		RecipientMobile:     req.RecipientMobile,
		Images:              req.Images,
	})
	if err != nil {
		return nil, apperr.GRPCStatus(err)
	}
	return &CreateShipmentResponse{Shipment: sh, PaymentURL: sh.PaymentURL}, nil
}

func (s *ShipperServer) GetShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error) {
	actor, err := s.shipper(ctx)
	if err != nil {
		return nil, err
	}
	sh, err := s.Delivery.Get(ctx, req.ShipmentID, actor)
	if err != nil {
		return nil, apperr.GRPCStatus(err)
	}
	return &ShipmentResponse{Shipment: sh}, nil
}

// ListShipments pages through the caller's shipments, newest first.
func (s *ShipperServer) ListShipments(ctx context.Context, req *ListShipmentsRequest) (*ListShipmentsResponse, error) {
	actor, err := s.shipper(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.Delivery.List(ctx, actor, req.PageSize, req.AfterID)
	if err != nil {
		return nil, apperr.GRPCStatus(err)
	}
	resp := &ListShipmentsResponse{Shipments: rows}
	if req.PageSize > 0 && len(rows) == req.PageSize {
		resp.NextAfterID = rows[len(rows)-1].ID
	}
	return resp, nil
}

func (s *ShipperServer) GetSummary(ctx context.Context, _ *GetSummaryRequest) (*GetSummaryResponse, error) {
	actor, err := s.shipper(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.Delivery.Summary(ctx, actor.UserID)
	if err != nil {
		return nil, apperr.GRPCStatus(err)
	}
	return &GetSummaryResponse{Counts: counts}, nil
}

func (s *ShipperServer) CancelShipment(ctx context.Context, req *CancelShipmentRequest) (*ShipmentResponse, error) {
	actor, err := s.shipper(ctx)
	if err != nil {
		return nil, err
	}
	sh, err := s.Delivery.Cancel(ctx, req.ShipmentID, actor, req.Reason)
	if err != nil {
		return nil, apperr.GRPCStatus(err)
	}
	return &ShipmentResponse{Shipment: sh}, nil
}

func (s *ShipperServer) GetDeliveryQR(ctx context.Context, req *ShipmentRequest) (*DeliveryQRResponse, error) {
	actor, err := s.shipper(ctx)
	if err != nil {
		return nil, err
	}
	return deliveryQR(ctx, s.Delivery, req.ShipmentID, actor)
}

func (s *ShipperServer) GetLocation(ctx context.Context, req *ShipmentRequest) (*LocationResponse, error) {
	actor, err := s.shipper(ctx)
	if err != nil {
		return nil, err
	}
	return location(ctx, s.Delivery, req.ShipmentID, actor)
}

func deliveryQR(ctx context.Context, svc *delivery.Service, shipmentID int64, actor delivery.Actor) (*DeliveryQRResponse, error) {
	qr, err := svc.GetDeliveryQR(ctx, shipmentID, actor)
	if err != nil {
		return nil, apperr.GRPCStatus(err)
	}
	return &DeliveryQRResponse{Token: qr.Token, ConfirmURL: qr.ConfirmURL, PNG: qr.PNG}, nil
}

func location(ctx context.Context, svc *delivery.Service, shipmentID int64, actor delivery.Actor) (*LocationResponse, error) {
	ping, err := svc.GetLocation(ctx, shipmentID, actor)
	if err != nil {
		return nil, apperr.GRPCStatus(err)
	}
	return &LocationResponse{Location: ping}, nil
}
