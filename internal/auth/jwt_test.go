package auth

import (
	"context"
	"testing"
	"time"

	"freightDeliveryManagement/internal/testutil"
)

const testSecret = "test-secret"

func TestParseFromMD_ValidBearer(t *testing.T) {
	tok := testutil.GenerateJWTHS256(t, testSecret, 7, "alice", "shipper")
	ctx := testutil.CtxWithBearer(context.Background(), tok)
	p, err := ParseFromMD(ctx, testSecret)
	if err != nil {
		t.Fatalf("ParseFromMD: %v", err)
	}
	if p.UserID != 7 || p.Name != "alice" || p.Kind != "shipper" || p.TokenID == "" {
		t.Fatalf("principal mismatch: %+v", p)
	}
}

func TestParseFromMD_MissingHeader(t *testing.T) {
	_, err := ParseFromMD(context.Background(), testSecret)
	if err == nil {
		t.Fatalf("expected error for missing metadata")
	}
}

func TestParseBearer_InvalidScheme(t *testing.T) {
	tok := testutil.GenerateJWTHS256(t, testSecret, 1, "bob", "driver")
	if _, err := ParseBearer("Basic "+tok, testSecret); err == nil {
		t.Fatalf("expected error for non-Bearer scheme")
	}
	if _, err := ParseToken(tok, "wrong"); err == nil {
		t.Fatalf("expected error for wrong secret")
	}
}

func TestParseToken_ClaimsValidation(t *testing.T) {
	// Missing uid/name/kind -> invalid
	tok := testutil.GenerateJWTHS256(t, testSecret, 0, "", "")
	if _, err := ParseToken(tok, testSecret); err == nil {
		t.Fatalf("expected invalid claims error")
	}
}

func TestIssue_RoundTrip(t *testing.T) {
	tok, err := Issue(testSecret, 3, "dana", "Driver", time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	p, err := ParseToken(tok, testSecret)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if p.UserID != 3 || p.Kind != "driver" || p.TokenID == "" {
		t.Fatalf("principal mismatch: %+v", p)
	}
	if time.Until(p.ExpiresAt) <= 0 {
		t.Fatalf("expiry not carried: %v", p.ExpiresAt)
	}

	expired, err := Issue(testSecret, 3, "dana", "driver", -time.Minute)
	if err != nil {
		t.Fatalf("Issue expired: %v", err)
	}
	if _, err := ParseToken(expired, testSecret); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}
