// Package httpapi is the public HTTP surface: recipient confirmation pages, the payment
// webhook, per-user notification and chat history, logout, the websocket endpoint and
// operational endpoints.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"freightDeliveryManagement/internal/auth"
	"freightDeliveryManagement/internal/delivery"
	"freightDeliveryManagement/models"
	"freightDeliveryManagement/repository"
)

//go:generate mockgen -destination=mocks/mock_deliveries.go -package=mock_httpapi freightDeliveryManagement/internal/httpapi Deliveries

// Deliveries is the part of the delivery service the HTTP surface calls.
type Deliveries interface {
	Get(ctx context.Context, id int64, actor delivery.Actor) (*models.Shipment, error)
	Preview(ctx context.Context, tok string) (*delivery.Preview, error)
	ConfirmMobile(ctx context.Context, tok, mobile string) (*delivery.ConfirmResult, error)
	ConfirmOTP(ctx context.Context, tok, code string) (*delivery.ConfirmResult, error)
	HandlePaymentWebhook(ctx context.Context, payload []byte, signature string) error
}

// Deps are the collaborators of a Server.
type Deps struct {
	Delivery      Deliveries
	Notifications repository.NotificationRepositoryI
	Messages      repository.MessageRepositoryI
	Revocations   repository.RevocationRepositoryI
	Realtime      http.Handler
	JWTSecret     string
	Log           *zap.Logger
}

type Server struct {
	delivery      Deliveries
	notifications repository.NotificationRepositoryI
	messages      repository.MessageRepositoryI
	revocations   repository.RevocationRepositoryI
	realtime      http.Handler
	secret        string
	log           *zap.Logger
	server        *http.Server
}

// New creates a Server from d. Call Routes for the handler or Run to serve.
func New(d Deps) *Server {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		delivery:      d.Delivery,
		notifications: d.Notifications,
		messages:      d.Messages,
		revocations:   d.Revocations,
		realtime:      d.Realtime,
		secret:        d.JWTSecret,
		log:           log,
	}
}

// Routes builds the router. Confirmation and webhook routes are public; the token in the
// link or the provider signature authenticates them.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	if s.realtime != nil {
		r.Handle("/ws", s.realtime)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/confirm", s.handlePreview).Methods(http.MethodGet)
	api.HandleFunc("/confirm/mobile", s.handleConfirmMobile).Methods(http.MethodPost)
	api.HandleFunc("/confirm/otp", s.handleConfirmOTP).Methods(http.MethodPost)
	api.HandleFunc("/webhook/payment", s.handlePaymentWebhook).Methods(http.MethodPost)

	private := api.NewRoute().Subrouter()
	private.Use(auth.Middleware(s.secret, s.revocations))
	private.HandleFunc("/notifications", s.handleListNotifications).Methods(http.MethodGet)
	private.HandleFunc("/notifications/read", s.handleMarkRead).Methods(http.MethodPost)
	private.HandleFunc("/chat/history", s.handleChatHistory).Methods(http.MethodGet)
	private.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)

	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", addr))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("http server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
