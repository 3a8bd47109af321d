package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var configEnv = []string{
	"CONFIG_FILE", "DB_PATH", "GRPC_ADDRESS", "HTTP_ADDRESS", "JWT_SECRET", "DELIVERY_TOKEN_SECRET",
	"PAYMENT_PROVIDER", "OTP_PROVIDER", "EVENTS_BROKER", "KAFKA_BROKERS", "OTP_TTL",
}

// clearEnv unsets the variables config reads and restores them after the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnv {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadWithDefaults_Succeeds(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadWithDefaults()
	if err != nil {
		t.Fatalf("LoadWithDefaults: %v", err)
	}
	if cfg.GRPC.Address == "" || cfg.Database.Path == "" || cfg.Auth.JWTSecret == "" || cfg.Delivery.TokenSecret == "" {
		t.Fatalf("unexpected empty defaults: %+v", cfg)
	}
	if cfg.OTP.TTL != 5*time.Minute || cfg.OTP.ResendInterval != time.Minute {
		t.Fatalf("otp defaults: %+v", cfg.OTP)
	}
	if cfg.Payment.Provider != "offline" || cfg.Events.Broker != "none" {
		t.Fatalf("provider defaults: %s %s", cfg.Payment.Provider, cfg.Events.Broker)
	}
}

func TestLoad_RequiresSecrets(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_PATH", "test.db")
	t.Setenv("GRPC_ADDRESS", ":1234")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error when JWT_SECRET is not set")
	}
	t.Setenv("JWT_SECRET", "x")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error when DELIVERY_TOKEN_SECRET is not set")
	}
	t.Setenv("DELIVERY_TOKEN_SECRET", "y")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load with secrets set: %v", err)
	}
	if cfg.Database.Path != "test.db" || cfg.GRPC.Address != ":1234" {
		t.Fatalf("env overrides not applied: %s", cfg)
	}
}

func TestLoad_ProviderCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "x")
	t.Setenv("DELIVERY_TOKEN_SECRET", "y")
	t.Setenv("PAYMENT_PROVIDER", "stripe")
	if _, err := Load(); err == nil {
		t.Fatalf("expected stripe credential error")
	}
	t.Setenv("PAYMENT_PROVIDER", "offline")
	t.Setenv("EVENTS_BROKER", "kafka")
	if _, err := Load(); err == nil {
		t.Fatalf("expected kafka brokers error")
	}
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load kafka: %v", err)
	}
	if len(cfg.Events.KafkaBrokers) != 2 || cfg.Events.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("kafka brokers: %v", cfg.Events.KafkaBrokers)
	}
}

func TestLoad_YAMLFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "freight.yaml")
	yml := `
database:
  path: /var/lib/freight.db
auth:
  jwt_secret: from-file
delivery:
  token_secret: file-delivery
otp:
  ttl: 2m
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("OTP_TTL", "3m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "/var/lib/freight.db" || cfg.Auth.JWTSecret != "from-file" {
		t.Fatalf("yaml not applied: %+v", cfg)
	}
	if cfg.OTP.TTL != 3*time.Minute {
		t.Fatalf("env must win over file, got %v", cfg.OTP.TTL)
	}
	if cfg.OTP.ResendInterval != time.Minute {
		t.Fatalf("defaults must survive partial yaml, got %v", cfg.OTP.ResendInterval)
	}
}

func TestString_MasksSecrets(t *testing.T) {
	cfg := defaults()
	cfg.Auth.JWTSecret = "super-secret"
	if s := cfg.String(); strings.Contains(s, "super-secret") {
		t.Fatalf("secret leaked: %s", s)
	}
}
