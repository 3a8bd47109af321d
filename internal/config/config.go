package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	HTTP     HTTPConfig     `yaml:"http"`
	Auth     AuthConfig     `yaml:"auth"`
	Delivery DeliveryConfig `yaml:"delivery"`
	Payment  PaymentConfig  `yaml:"payment"`
	OTP      OTPConfig      `yaml:"otp"`
	Events   EventsConfig   `yaml:"events"`
	Jobs     JobsConfig     `yaml:"jobs"`
	Log      LogConfig      `yaml:"log"`
}

// DatabaseConfig contains database-related settings.
type DatabaseConfig struct {
	Path string `yaml:"path"` // SQLite database file path
}

// GRPCConfig contains gRPC server settings.
type GRPCConfig struct {
	Address string `yaml:"address"` // gRPC server listen address (e.g., ":50051")
}

// HTTPConfig contains settings of the public HTTP surface.
type HTTPConfig struct {
	Address       string `yaml:"address"`
	PublicBaseURL string `yaml:"public_base_url"` // prefix of the confirmation links encoded in QR codes
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// DeliveryConfig contains delivery token settings.
type DeliveryConfig struct {
	TokenSecret string `yaml:"token_secret"`
	QRSize      int    `yaml:"qr_size"` // PNG edge length in pixels
}

// PaymentConfig selects and configures the payment gateway.
type PaymentConfig struct {
	Provider        string `yaml:"provider"` // stripe | offline
	StripeSecretKey string `yaml:"stripe_secret_key"`
	WebhookSecret   string `yaml:"webhook_secret"`
	Currency        string `yaml:"currency"`
	SuccessURL      string `yaml:"success_url"`
	CancelURL       string `yaml:"cancel_url"`
}

// OTPConfig configures one-time codes and their transport.
type OTPConfig struct {
	TTL            time.Duration `yaml:"ttl"`
	ResendInterval time.Duration `yaml:"resend_interval"`
	Provider       string        `yaml:"provider"` // twilio | log
	TwilioSID      string        `yaml:"twilio_account_sid"`
	TwilioToken    string        `yaml:"twilio_auth_token"`
	TwilioFrom     string        `yaml:"twilio_from"`
}

// EventsConfig selects the broker lifecycle events are published to.
type EventsConfig struct {
	Broker       string   `yaml:"broker"` // none | amqp | kafka
	AMQPURL      string   `yaml:"amqp_url"`
	Exchange     string   `yaml:"exchange"`
	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`
}

// JobsConfig contains background job schedules (cron syntax).
type JobsConfig struct {
	PurgeSchedule string `yaml:"purge_schedule"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// Load loads configuration from .env, an optional YAML file named by CONFIG_FILE and
// environment variables, in increasing priority. Secrets and provider credentials are required.
func Load() (*Config, error) {
	cfg, err := load(defaults())
	if err != nil {
		return nil, err
	}

	// Validate critical settings
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is not set; required for production")
	}
	if cfg.Delivery.TokenSecret == "" {
		return nil, fmt.Errorf("DELIVERY_TOKEN_SECRET environment variable is not set; required for production")
	}
	if err := cfg.validateProviders(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithDefaults is like Load but uses safe defaults for secrets and offline providers.
// WARNING: Only use in development! Use Load() in production.
func LoadWithDefaults() (*Config, error) {
	base := defaults()
	base.Auth.JWTSecret = "dev-secret-change-me"
	base.Delivery.TokenSecret = "dev-delivery-secret-change-me"
	cfg, err := load(base)
	if err != nil {
		return nil, err
	}
	if err := cfg.validateProviders(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "freight.db"},
		GRPC:     GRPCConfig{Address: ":50051"},
		HTTP:     HTTPConfig{Address: ":8080", PublicBaseURL: "http://localhost:8080"},
		Auth:     AuthConfig{TokenTTL: 24 * time.Hour},
		Delivery: DeliveryConfig{QRSize: 256},
		Payment: PaymentConfig{
			Provider:   "offline",
			Currency:   "usd",
			SuccessURL: "http://localhost:8080/payment/success",
			CancelURL:  "http://localhost:8080/payment/cancel",
		},
		OTP:    OTPConfig{TTL: 5 * time.Minute, ResendInterval: time.Minute, Provider: "log"},
		Events: EventsConfig{Broker: "none", Exchange: "freight.events", KafkaTopic: "freight.events"},
		Jobs:   JobsConfig{PurgeSchedule: "@every 10m"},
		Log:    LogConfig{Level: "info"},
	}
}

func load(cfg *Config) (*Config, error) {
	// A missing .env file is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if path := getEnv("CONFIG_FILE", ""); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(c *Config) error {
	var err error
	c.Database.Path = getEnv("DB_PATH", c.Database.Path)
	c.GRPC.Address = getEnv("GRPC_ADDRESS", c.GRPC.Address)
	c.HTTP.Address = getEnv("HTTP_ADDRESS", c.HTTP.Address)
	c.HTTP.PublicBaseURL = strings.TrimRight(getEnv("PUBLIC_BASE_URL", c.HTTP.PublicBaseURL), "/")
	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	if c.Auth.TokenTTL, err = getEnvDuration("JWT_TTL", c.Auth.TokenTTL); err != nil {
		return err
	}
	c.Delivery.TokenSecret = getEnv("DELIVERY_TOKEN_SECRET", c.Delivery.TokenSecret)
	if c.Delivery.QRSize, err = getEnvInt("QR_SIZE", c.Delivery.QRSize); err != nil {
		return err
	}

	c.Payment.Provider = strings.ToLower(getEnv("PAYMENT_PROVIDER", c.Payment.Provider))
	c.Payment.StripeSecretKey = getEnv("STRIPE_SECRET_KEY", c.Payment.StripeSecretKey)
	c.Payment.WebhookSecret = getEnv("STRIPE_WEBHOOK_SECRET", c.Payment.WebhookSecret)
	c.Payment.Currency = getEnv("PAYMENT_CURRENCY", c.Payment.Currency)
	c.Payment.SuccessURL = getEnv("PAYMENT_SUCCESS_URL", c.Payment.SuccessURL)
	c.Payment.CancelURL = getEnv("PAYMENT_CANCEL_URL", c.Payment.CancelURL)

	if c.OTP.TTL, err = getEnvDuration("OTP_TTL", c.OTP.TTL); err != nil {
		return err
	}
	if c.OTP.ResendInterval, err = getEnvDuration("OTP_RESEND_INTERVAL", c.OTP.ResendInterval); err != nil {
		return err
	}
	c.OTP.Provider = strings.ToLower(getEnv("OTP_PROVIDER", c.OTP.Provider))
	c.OTP.TwilioSID = getEnv("TWILIO_ACCOUNT_SID", c.OTP.TwilioSID)
	c.OTP.TwilioToken = getEnv("TWILIO_AUTH_TOKEN", c.OTP.TwilioToken)
	c.OTP.TwilioFrom = getEnv("TWILIO_FROM_NUMBER", c.OTP.TwilioFrom)

	c.Events.Broker = strings.ToLower(getEnv("EVENTS_BROKER", c.Events.Broker))
	c.Events.AMQPURL = getEnv("AMQP_URL", c.Events.AMQPURL)
	c.Events.Exchange = getEnv("AMQP_EXCHANGE", c.Events.Exchange)
	if v := getEnv("KAFKA_BROKERS", ""); v != "" {
		c.Events.KafkaBrokers = splitList(v)
	}
	c.Events.KafkaTopic = getEnv("KAFKA_TOPIC", c.Events.KafkaTopic)

	c.Jobs.PurgeSchedule = getEnv("JOBS_PURGE_SCHEDULE", c.Jobs.PurgeSchedule)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Dir = getEnv("LOG_DIR", c.Log.Dir)
	return nil
}

func (c *Config) validateProviders() error {
	switch c.Payment.Provider {
	case "offline":
	case "stripe":
		if c.Payment.StripeSecretKey == "" || c.Payment.WebhookSecret == "" {
			return errors.New("stripe payment provider requires STRIPE_SECRET_KEY and STRIPE_WEBHOOK_SECRET")
		}
	default:
		return fmt.Errorf("unknown payment provider %q", c.Payment.Provider)
	}
	switch c.OTP.Provider {
	case "log":
	case "twilio":
		if c.OTP.TwilioSID == "" || c.OTP.TwilioToken == "" || c.OTP.TwilioFrom == "" {
			return errors.New("twilio otp provider requires TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER")
		}
	default:
		return fmt.Errorf("unknown otp provider %q", c.OTP.Provider)
	}
	switch c.Events.Broker {
	case "none":
	case "amqp":
		if c.Events.AMQPURL == "" {
			return errors.New("amqp broker requires AMQP_URL")
		}
	case "kafka":
		if len(c.Events.KafkaBrokers) == 0 {
			return errors.New("kafka broker requires KAFKA_BROKERS")
		}
	default:
		return fmt.Errorf("unknown events broker %q", c.Events.Broker)
	}
	return nil
}

// getEnv retrieves an environment variable with a default fallback.
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

// getEnvInt retrieves an environment variable as an integer with a default fallback.
func getEnvInt(key string, defaultVal int) (int, error) {
	if value, exists := os.LookupEnv(key); exists {
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return intVal, nil
	}
	return defaultVal, nil
}

// getEnvDuration retrieves an environment variable as a time.Duration ("90s", "24h").
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	if value, exists := os.LookupEnv(key); exists {
		d, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		return d, nil
	}
	return defaultVal, nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// String returns a string representation of the config (sensitive values are masked).
func (c *Config) String() string {
	return fmt.Sprintf("Config{DB: %s, gRPC: %s, HTTP: %s, Payment: %s, OTP: %s, Events: %s, Auth: *** (masked) ***}",
		c.Database.Path, c.GRPC.Address, c.HTTP.Address, c.Payment.Provider, c.OTP.Provider, c.Events.Broker)
}
