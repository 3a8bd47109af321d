// Package apperr holds the error taxonomy shared by the delivery service and its transports.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrUnauthorized            = errors.New("unauthorized")
	ErrIllegalTransition       = errors.New("illegal transition")
	ErrAlreadyAssigned         = errors.New("already assigned")
	ErrNotFound                = errors.New("not found")
	ErrInvalidToken            = errors.New("invalid token")
	ErrExpired                 = errors.New("expired")
	ErrSignatureMismatch       = errors.New("signature mismatch")
	ErrInvalidFormat           = errors.New("invalid format")
	ErrNotAwaitingConfirmation = errors.New("not awaiting confirmation")
	ErrValidation              = errors.New("validation error")
	ErrUpstream                = errors.New("upstream failure")
	ErrTooManyRequests         = errors.New("too many requests")
)

type kind struct {
	err    error
	reason string
	code   codes.Code
	http   int
}

// Order matters: the first sentinel found in the chain decides the mapping.
var kinds = []kind{
	{ErrUnauthorized, "unauthorized", codes.PermissionDenied, http.StatusForbidden},
	{ErrIllegalTransition, "illegal_transition", codes.FailedPrecondition, http.StatusConflict},
	{ErrAlreadyAssigned, "already_assigned", codes.Aborted, http.StatusConflict},
	{ErrNotFound, "not_found", codes.NotFound, http.StatusNotFound},
	{ErrInvalidToken, "invalid_token", codes.InvalidArgument, http.StatusBadRequest},
	{ErrExpired, "expired", codes.FailedPrecondition, http.StatusGone},
	{ErrSignatureMismatch, "signature_mismatch", codes.InvalidArgument, http.StatusBadRequest},
	{ErrInvalidFormat, "invalid_format", codes.InvalidArgument, http.StatusBadRequest},
	{ErrNotAwaitingConfirmation, "not_awaiting_confirmation", codes.FailedPrecondition, http.StatusConflict},
	{ErrValidation, "validation_error", codes.InvalidArgument, http.StatusBadRequest},
	{ErrUpstream, "upstream_failure", codes.Unavailable, http.StatusBadGateway},
	{ErrTooManyRequests, "too_many_requests", codes.ResourceExhausted, http.StatusTooManyRequests},
}

func lookup(err error) (kind, bool) {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k, true
		}
	}
	return kind{}, false
}

// Validation wraps ErrValidation with a field-specific message.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Reason returns the stable machine-readable reason for err, "internal" when unknown.
func Reason(err error) string {
	if k, ok := lookup(err); ok {
		return k.reason
	}
	return "internal"
}

// HTTPStatus maps err to a response status code.
func HTTPStatus(err error) int {
	if k, ok := lookup(err); ok {
		return k.http
	}
	return http.StatusInternalServerError
}

// GRPCStatus converts err into a gRPC status error. Errors that already carry a status
// pass through.
func GRPCStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	if k, ok := lookup(err); ok {
		return status.Errorf(k.code, "%s: %v", k.reason, err)
	}
	return status.Errorf(codes.Internal, "internal: %v", err)
}

// Body is the JSON error payload returned by the HTTP surface.
type Body struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// ToBody builds the response payload for err. Internal errors do not leak their message.
func ToBody(err error) Body {
	if k, ok := lookup(err); ok {
		return Body{Reason: k.reason, Message: err.Error()}
	}
	return Body{Reason: "internal", Message: "internal error"}
}
