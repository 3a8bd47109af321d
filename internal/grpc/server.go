package grpcserver

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"freightDeliveryManagement/internal/auth"
	"freightDeliveryManagement/internal/config"
	"freightDeliveryManagement/internal/delivery"
	"freightDeliveryManagement/repository"
)

const healthCheckMethod = "/grpc.health.v1.Health/Check"

// Deps are what the gRPC services need.
type Deps struct {
	Users     repository.UserRepositoryI
	Delivery  *delivery.Service
	Revoked   auth.RevocationChecker
	JWTSecret string
	Log       *zap.Logger
}

// NewGRPCServer builds a server exposing ShipperService, DriverService and the standard
// health service. Every call except the health check requires a bearer JWT.
func NewGRPCServer(d Deps) *grpc.Server {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		loggingInterceptor(log),
		auth.NewUnaryAuthInterceptor(d.JWTSecret, d.Revoked, healthCheckMethod),
	))

	srv.RegisterService(&ShipperServiceDesc, &ShipperServer{Users: d.Users, Delivery: d.Delivery})
	srv.RegisterService(&DriverServiceDesc, &DriverServer{Users: d.Users, Delivery: d.Delivery})

	hs := health.NewServer()
	hs.SetServingStatus(shipperServiceName, healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(driverServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return srv
}

// StartGRPC listens on the configured address, serves in the background and returns a
// shutdown function.
func StartGRPC(cfg *config.Config, d Deps) (func(context.Context) error, error) {
	if cfg == nil {
		panic("config is required")
	}

	addr := cfg.GRPC.Address
	if addr == "" {
		addr = ":50051"
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	srv := NewGRPCServer(d)
	go func() {
		if err := srv.Serve(lis); err != nil && d.Log != nil {
			d.Log.Error("grpc serve", zap.Error(err))
		}
	}()

	return func(ctx context.Context) error {
		done := make(chan struct{})
		go func() { srv.GracefulStop(); close(done) }()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			srv.Stop()
			return ctx.Err()
		}
	}, nil
}

func loggingInterceptor(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("took", time.Since(start)),
		}
		if err != nil {
			log.Info("grpc call failed", append(fields, zap.Error(err))...)
		} else {
			log.Debug("grpc call", fields...)
		}
		return resp, err
	}
}
