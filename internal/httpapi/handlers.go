package httpapi

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"freightDeliveryManagement/internal/apperr"
	"freightDeliveryManagement/internal/auth"
	"freightDeliveryManagement/internal/delivery"
	"freightDeliveryManagement/models"
)

// Webhook signature headers, in lookup order: Stripe's, then the offline gateway's.
var signatureHeaders = []string{"Stripe-Signature", "X-Webhook-Signature"}

type confirmMobileRequest struct {
	Token  string `json:"token"`
	Mobile string `json:"mobile"`
}

type confirmOTPRequest struct {
	Token string `json:"token"`
	OTP   string `json:"otp"`
}

type markReadRequest struct {
	IDs []int64 `json:"ids"`
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	tok := r.URL.Query().Get("token")
	if tok == "" {
		s.writeError(w, r, apperr.Validation("token is required"))
		return
	}
	p, err := s.delivery.Preview(r.Context(), tok)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleConfirmMobile(w http.ResponseWriter, r *http.Request) {
	var req confirmMobileRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.delivery.ConfirmMobile(r.Context(), req.Token, req.Mobile)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if res.Status == delivery.ConfirmOTPRequired {
		status = http.StatusAccepted
	}
	writeJSON(w, status, res)
}

func (s *Server) handleConfirmOTP(w http.ResponseWriter, r *http.Request) {
	var req confirmOTPRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.delivery.ConfirmOTP(r.Context(), req.Token, req.OTP)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 64<<10))
	if err != nil {
		s.writeError(w, r, apperr.Validation("read body: %v", err))
		return
	}
	var sig string
	for _, h := range signatureHeaders {
		if sig = r.Header.Get(h); sig != "" {
			break
		}
	}
	if err := s.delivery.HandlePaymentWebhook(r.Context(), payload, sig); err != nil {
		s.log.Warn("payment webhook rejected", zap.Error(err))
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	q := r.URL.Query()
	unread := q.Get("unread") == "true" || q.Get("unread") == "1"
	limit, err := intParam(q.Get("limit"), 50)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rows, err := s.notifications.ListByUser(r.Context(), p.UserID, unread, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if rows == nil {
		rows = []models.Notification{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": rows})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	var req markReadRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(req.IDs) == 0 {
		s.writeError(w, r, apperr.Validation("ids are required"))
		return
	}
	n, err := s.notifications.MarkRead(r.Context(), p.UserID, req.IDs...)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": n})
}

// handleChatHistory returns the conversation about one shipment (?shipment_id=) or with one
// user (?with=).
func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), 100)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var rows []models.Message
	switch {
	case q.Get("shipment_id") != "":
		id, err := strconv.ParseInt(q.Get("shipment_id"), 10, 64)
		if err != nil {
			s.writeError(w, r, apperr.Validation("shipment_id must be an integer"))
			return
		}
		actor := delivery.Actor{UserID: p.UserID, Role: models.Role(p.Kind)}
		if _, err := s.delivery.Get(r.Context(), id, actor); err != nil {
			s.writeError(w, r, err)
			return
		}
		rows, err = s.messages.ListByShipment(r.Context(), id, limit)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
	case q.Get("with") != "":
		other, err := strconv.ParseInt(q.Get("with"), 10, 64)
		if err != nil || other <= 0 {
			s.writeError(w, r, apperr.Validation("with must be a user id"))
			return
		}
		rows, err = s.messages.ListBetween(r.Context(), p.UserID, other, limit)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
	default:
		s.writeError(w, r, apperr.Validation("shipment_id or with is required"))
		return
	}
	if rows == nil {
		rows = []models.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": rows})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	if s.revocations == nil || p.TokenID == "" {
		s.writeError(w, r, apperr.Validation("token cannot be revoked"))
		return
	}
	if err := s.revocations.Revoke(r.Context(), p.TokenID, p.ExpiresAt); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.log.Info("user logged out", zap.Int64("user_id", p.UserID))
	w.WriteHeader(http.StatusNoContent)
}

func intParam(v string, def int) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, apperr.Validation("limit must be a positive integer")
	}
	return n, nil
}
