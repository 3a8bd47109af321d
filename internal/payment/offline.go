package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// OfflineGateway fakes a provider for local development. Sessions get random ids and the
// checkout URL points back at the service. Webhooks are JSON bodies signed with
// hex(HMAC-SHA256(secret, body)) in the signature header.
type OfflineGateway struct {
	baseURL string
	secret  []byte
}

// NewOfflineGateway creates an OfflineGateway whose checkout links point at baseURL.
func NewOfflineGateway(baseURL, secret string) *OfflineGateway {
	return &OfflineGateway{baseURL: baseURL, secret: []byte(secret)}
}

func (g *OfflineGateway) CreateCheckoutSession(_ context.Context, amountCents int64, _ string, _ map[string]string) (Session, error) {
	if amountCents <= 0 {
		return Session{}, fmt.Errorf("amount must be positive")
	}
	id := "cs_offline_" + uuid.NewString()
	return Session{ID: id, URL: g.baseURL + "/checkout/" + id}, nil
}

// Sign returns the signature header value for body. Used by tools that simulate webhooks.
func (g *OfflineGateway) Sign(body []byte) string {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (g *OfflineGateway) ParseWebhook(payload []byte, signatureHeader string) (Event, error) {
	if !hmac.Equal([]byte(g.Sign(payload)), []byte(signatureHeader)) {
		return Event{}, ErrBadSignature
	}
	var body struct {
		Type      string            `json:"type"`
		SessionID string            `json:"session_id"`
		Metadata  map[string]string `json:"metadata"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return Event{}, fmt.Errorf("decode webhook: %w", err)
	}
	return Event{Type: body.Type, SessionID: body.SessionID, Metadata: body.Metadata}, nil
}
