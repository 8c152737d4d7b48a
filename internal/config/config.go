package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppName        = "SendrPay"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	defaultPendingTTL     = 10 * time.Minute
	defaultConfirmTimeout = 30 * time.Second
	defaultFeeRateBps     = 500
	defaultNetworkFee     = 5_000
	defaultRentReserve    = 890_880
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	RPCURL         string
	WebhookSecret  string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration

	// MasterKey protects custodial key material at rest. Absence is fatal.
	MasterKey []byte

	// FeeAccount receives the platform cut of every settlement.
	FeeAccount string
	// FeeRateBps is the platform fee in basis points (500 = 5%).
	FeeRateBps int64
	// RentReserve is the lamport balance a fresh account needs to persist
	// on the ledger; charged to the payer when the payee holds nothing.
	RentReserve int64
	// NetworkFee is the estimated per-transaction ledger fee in lamports.
	NetworkFee int64

	// ConfirmTimeout bounds the ledger confirmation wait.
	ConfirmTimeout time.Duration
	// PendingTTL bounds how long an unconfirmed payment intent survives.
	PendingTTL time.Duration
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         getEnv("APP_ENV", defaultAppEnv),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		RPCURL:         os.Getenv("RPC_URL"),
		WebhookSecret:  os.Getenv("WEBHOOK_SECRET"),
		FeeAccount:     os.Getenv("FEE_ACCOUNT"),
		ShutdownPeriod: defaultShutdownDelay,
		IdempotencyTTL: defaultIdempotencyTTL,
		FeeRateBps:     defaultFeeRateBps,
		RentReserve:    defaultRentReserve,
		NetworkFee:     defaultNetworkFee,
		ConfirmTimeout: defaultConfirmTimeout,
		PendingTTL:     defaultPendingTTL,
	}

	var err error
	if cfg.ShutdownPeriod, err = durationEnv("SHUTDOWN_TIMEOUT", cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv("IDEMPOTENCY_TTL", cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.ConfirmTimeout, err = durationEnv("CONFIRM_TIMEOUT", cfg.ConfirmTimeout); err != nil {
		return Config{}, err
	}
	if cfg.PendingTTL, err = durationEnv("PENDING_TTL", cfg.PendingTTL); err != nil {
		return Config{}, err
	}
	if cfg.FeeRateBps, err = int64Env("FEE_RATE_BPS", cfg.FeeRateBps); err != nil {
		return Config{}, err
	}
	if cfg.RentReserve, err = int64Env("RENT_RESERVE_LAMPORTS", cfg.RentReserve); err != nil {
		return Config{}, err
	}
	if cfg.NetworkFee, err = int64Env("NETWORK_FEE_LAMPORTS", cfg.NetworkFee); err != nil {
		return Config{}, err
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL must be set")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("REDIS_URL must be set")
	}
	if cfg.FeeAccount == "" {
		return Config{}, fmt.Errorf("FEE_ACCOUNT must be set")
	}
	if cfg.FeeRateBps < 0 || cfg.FeeRateBps > 10_000 {
		return Config{}, fmt.Errorf("FEE_RATE_BPS must be between 0 and 10000")
	}

	rawKey := os.Getenv("MASTER_KEY")
	if rawKey == "" {
		return Config{}, fmt.Errorf("MASTER_KEY must be set")
	}
	key, err := base64.StdEncoding.DecodeString(rawKey)
	if err != nil {
		return Config{}, fmt.Errorf("MASTER_KEY must be base64-encoded: %w", err)
	}
	if len(key) != 32 {
		return Config{}, fmt.Errorf("MASTER_KEY must decode to exactly 32 bytes")
	}
	cfg.MasterKey = key

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(key + "_SECONDS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s_SECONDS: %w", key, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return d, nil
	}
	return fallback, nil
}

func int64Env(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
