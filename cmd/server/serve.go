package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"freightDeliveryManagement/internal/auth"
	"freightDeliveryManagement/internal/config"
	"freightDeliveryManagement/internal/db"
	"freightDeliveryManagement/internal/delivery"
	"freightDeliveryManagement/internal/events"
	grpcserver "freightDeliveryManagement/internal/grpc"
	"freightDeliveryManagement/internal/httpapi"
	"freightDeliveryManagement/internal/jobs"
	"freightDeliveryManagement/internal/logger"
	"freightDeliveryManagement/internal/notify"
	"freightDeliveryManagement/internal/otp"
	"freightDeliveryManagement/internal/payment"
	"freightDeliveryManagement/internal/realtime"
	"freightDeliveryManagement/internal/token"
	"freightDeliveryManagement/repository"
)

func serveCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gRPC and HTTP servers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log, err := logger.New(logger.Options{Level: cfg.Log.Level, Dir: cfg.Log.Dir})
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			log.Info("configuration loaded", zap.Stringer("config", cfg))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	d, err := db.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() {
		if err := d.Close(); err != nil {
			log.Warn("close db", zap.Error(err))
		}
	}()

	users := repository.NewUserRepository(d)
	shipments := repository.NewShipmentRepository(d)
	locations := repository.NewLocationRepository(d)
	otpCodes := repository.NewOTPRepository(d)
	messages := repository.NewMessageRepository(d)
	notifications := repository.NewNotificationRepository(d)
	revocations := repository.NewRevocationRepository(d)

	gateway, err := newGateway(cfg)
	if err != nil {
		return err
	}
	sender, err := newSender(cfg, log)
	if err != nil {
		return err
	}
	publisher, err := events.New(ctx, events.Config{
		Broker:       cfg.Events.Broker,
		AMQPURL:      cfg.Events.AMQPURL,
		Exchange:     cfg.Events.Exchange,
		KafkaBrokers: cfg.Events.KafkaBrokers,
		KafkaTopic:   cfg.Events.KafkaTopic,
	}, log.Named("events"))
	if err != nil {
		return fmt.Errorf("connect events broker: %w", err)
	}
	defer func() { _ = publisher.Close() }()

	codec, err := token.NewCodec(cfg.Delivery.TokenSecret)
	if err != nil {
		return err
	}

	hub := realtime.NewHub(func(ctx context.Context, tok string) (*auth.Principal, error) {
		return auth.Authenticate(ctx, tok, cfg.Auth.JWTSecret, revocations)
	}, messages, nil, log.Named("realtime"))

	fanout := notify.NewFanout(log.Named("notify")).
		Add("store", notify.NewStoreSink(notifications)).
		Add("realtime", notify.NewRealtimeSink(hub)).
		Add("broker", notify.NewBrokerSink(publisher))
	notifier := notify.NewAsync(fanout, 0, log.Named("notify"))

	svc := delivery.NewService(delivery.Deps{
		Shipments:     shipments,
		Locations:     locations,
		Users:         users,
		Payments:      gateway,
		Codec:         codec,
		OTP:           otp.NewService(otpCodes, sender, otp.Options{TTL: cfg.OTP.TTL, ResendInterval: cfg.OTP.ResendInterval}, log.Named("otp")),
		Notifier:      notifier,
		Realtime:      hub,
		PublicBaseURL: cfg.HTTP.PublicBaseURL,
		QRSize:        cfg.Delivery.QRSize,
		Log:           log.Named("delivery"),
	})
	hub.SetLocations(svc)

	shutdownGRPC, err := grpcserver.StartGRPC(cfg, grpcserver.Deps{
		Users:     users,
		Delivery:  svc,
		Revoked:   revocations,
		JWTSecret: cfg.Auth.JWTSecret,
		Log:       log.Named("grpc"),
	})
	if err != nil {
		return fmt.Errorf("start grpc: %w", err)
	}
	log.Info("gRPC server listening", zap.String("addr", cfg.GRPC.Address))

	httpSrv := httpapi.New(httpapi.Deps{
		Delivery:      svc,
		Notifications: notifications,
		Messages:      messages,
		Revocations:   revocations,
		Realtime:      http.HandlerFunc(hub.ServeWS),
		JWTSecret:     cfg.Auth.JWTSecret,
		Log:           log.Named("http"),
	})

	scheduler := jobs.NewScheduler(log.Named("jobs"),
		jobs.PurgeJob("otp_codes", cfg.Jobs.PurgeSchedule, otpCodes, log, nil),
		jobs.PurgeJob("revoked_tokens", cfg.Jobs.PurgeSchedule, revocations, log, nil),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return notifier.Run(gctx) })
	g.Go(func() error { return httpSrv.Run(gctx, cfg.HTTP.Address) })
	g.Go(func() error { return scheduler.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return shutdownGRPC(shutdownCtx)
	})

	err = g.Wait()
	log.Info("server stopped")
	return err
}

func newGateway(cfg *config.Config) (payment.Gateway, error) {
	if cfg.Payment.Provider == "stripe" {
		return payment.NewStripeGateway(payment.StripeConfig{
			SecretKey:     cfg.Payment.StripeSecretKey,
			WebhookSecret: cfg.Payment.WebhookSecret,
			Currency:      cfg.Payment.Currency,
			SuccessURL:    cfg.Payment.SuccessURL,
			CancelURL:     cfg.Payment.CancelURL,
		}, nil)
	}
	secret := cfg.Payment.WebhookSecret
	if secret == "" {
		secret = cfg.Delivery.TokenSecret
	}
	return payment.NewOfflineGateway(cfg.HTTP.PublicBaseURL, secret), nil
}

func newSender(cfg *config.Config, log *zap.Logger) (otp.Sender, error) {
	if cfg.OTP.Provider == "twilio" {
		return otp.NewTwilioSender(cfg.OTP.TwilioSID, cfg.OTP.TwilioToken, cfg.OTP.TwilioFrom)
	}
	return otp.NewLogSender(log.Named("otp")), nil
}
