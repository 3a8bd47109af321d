// Package otp issues and checks the six-digit codes recipients use when their mobile
// number does not match the one on file.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"freightDeliveryManagement/internal/apperr"
	"freightDeliveryManagement/internal/metrics"
	"freightDeliveryManagement/repository"
)

//go:generate mockgen -destination=mocks/mock_sender.go -package=mock_otp freightDeliveryManagement/internal/otp Sender

// Sender delivers a code to a phone number.
type Sender interface {
	Send(ctx context.Context, phone, code string) error
}

// Options tunes code lifetime and resend throttling.
type Options struct {
	TTL            time.Duration
	ResendInterval time.Duration
}

// Service generates, stores, sends and verifies one-time codes.
type Service struct {
	store  repository.OTPRepositoryI
	sender Sender
	opts   Options
	log    *zap.Logger
	now    func() time.Time
}

// NewService builds a Service. Zero options fall back to a 5 minute TTL and a 60 second
// resend interval.
func NewService(store repository.OTPRepositoryI, sender Sender, opts Options, log *zap.Logger) *Service {
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	if opts.ResendInterval <= 0 {
		opts.ResendInterval = time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, sender: sender, opts: opts, log: log, now: time.Now}
}

// Dispatch sends a fresh code to phone. A code sent less than ResendInterval ago that is
// still valid blocks a new one with ErrTooManyRequests.
func (s *Service) Dispatch(ctx context.Context, phone string) error {
	now := s.now().UTC()
	last, err := s.store.Latest(ctx, phone)
	if err != nil {
		return fmt.Errorf("load last otp: %w", err)
	}
	if last != nil && now.Sub(last.CreatedAt) < s.opts.ResendInterval && now.Before(last.ExpiresAt) {
		return fmt.Errorf("%w: otp recently sent", apperr.ErrTooManyRequests)
	}

	code, err := generate()
	if err != nil {
		return err
	}
	if err := s.store.Insert(ctx, phone, code, now.Add(s.opts.TTL), now); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	if err := s.sender.Send(ctx, phone, code); err != nil {
		return fmt.Errorf("%w: send otp: %v", apperr.ErrUpstream, err)
	}
	metrics.OTPDispatchedTotal.Inc()
	s.log.Info("otp dispatched", zap.String("phone", mask(phone)))
	return nil
}

// Verify checks code against the most recent code for phone and consumes it on success.
func (s *Service) Verify(ctx context.Context, phone, code string) error {
	last, err := s.store.Latest(ctx, phone)
	if err != nil {
		return fmt.Errorf("load otp: %w", err)
	}
	if last == nil {
		return fmt.Errorf("%w: no otp issued", apperr.ErrInvalidToken)
	}
	if !s.now().UTC().Before(last.ExpiresAt) {
		return fmt.Errorf("%w: otp", apperr.ErrExpired)
	}
	if subtle.ConstantTimeCompare([]byte(last.Code), []byte(code)) != 1 {
		return fmt.Errorf("%w: otp mismatch", apperr.ErrInvalidToken)
	}
	if err := s.store.DeleteByPhone(ctx, phone); err != nil {
		return fmt.Errorf("consume otp: %w", err)
	}
	return nil
}

func generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// mask keeps the last four digits of a phone number for logs.
func mask(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return "****" + phone[len(phone)-4:]
}
