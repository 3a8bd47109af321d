package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"google.golang.org/grpc/metadata"

	"freightDeliveryManagement/internal/db"
	"freightDeliveryManagement/models"
)

// OpenTestDB opens a fresh SQLite database file under t.TempDir() and applies migrations.
// A file database lets concurrent writers queue on the busy timeout, which a shared-cache
// in-memory database does not. The DB is closed on cleanup.
func OpenTestDB(t *testing.T) *sql.DB {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// SeedUser creates a user and fails the test on error.
func SeedUser(t *testing.T, d *sql.DB, username string, role models.Role) *models.User {
	t.Helper()
	res, err := d.ExecContext(context.Background(), `INSERT INTO users (username, role) VALUES (?, ?)`, username, string(role))
	if err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return &models.User{ID: id, Username: username, Role: role}
}

// GenerateJWTHS256 returns a signed JWT string with the claims used by the app.
func GenerateJWTHS256(t *testing.T, secret string, uid int64, name, kind string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"uid":  uid,
		"name": name,
		"kind": kind,
		"jti":  uuid.NewString(),
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

// CtxWithBearer returns a context containing gRPC metadata Authorization header with the given token.
func CtxWithBearer(ctx context.Context, token string) context.Context {
	md := metadata.Pairs("authorization", "Bearer "+token)
	return metadata.NewIncomingContext(ctx, md)
}

// OutgoingBearer attaches the token to an outgoing client call.
func OutgoingBearer(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
}
