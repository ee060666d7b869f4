package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppName          = "KudiPay"
	defaultAppEnv           = "development"
	defaultPort             = "8080"
	defaultLogLevel         = "info"
	defaultShutdownDelay    = 10 * time.Second
	defaultGuardTTL         = 30 * time.Second
	defaultQueueName        = "wallet_settlements"
	defaultPinMaxAttempts   = 5
	defaultPinAttemptWindow = 5 * time.Minute
	defaultPinCacheTTL      = 10 * time.Minute
	defaultSettleAttempts   = 5
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName          string
	AppEnv           string
	Port             string
	LogLevel         string
	DatabaseURL      string
	RedisURL         string
	QueueName        string
	BlacklistFile    string
	ShutdownPeriod   time.Duration
	GuardTTL         time.Duration
	PinMaxAttempts   int
	PinAttemptWindow time.Duration
	PinCacheTTL      time.Duration
	SettleAttempts   int
}

// Load reads configuration values from the environment and populates a Config
// instance. A .env file in the working directory is applied first if present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppName:          getEnv("APP_NAME", defaultAppName),
		AppEnv:           getEnv("APP_ENV", defaultAppEnv),
		Port:             getEnv("PORT", defaultPort),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		QueueName:        getEnv("SETTLEMENT_QUEUE", defaultQueueName),
		BlacklistFile:    os.Getenv("BLACKLIST_FILE"),
		ShutdownPeriod:   defaultShutdownDelay,
		GuardTTL:         defaultGuardTTL,
		PinMaxAttempts:   defaultPinMaxAttempts,
		PinAttemptWindow: defaultPinAttemptWindow,
		PinCacheTTL:      defaultPinCacheTTL,
		SettleAttempts:   defaultSettleAttempts,
	}

	var err error
	if cfg.ShutdownPeriod, err = durationEnv("SHUTDOWN_TIMEOUT", cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.GuardTTL, err = durationEnv("GUARD_TTL", cfg.GuardTTL); err != nil {
		return Config{}, err
	}
	if cfg.PinAttemptWindow, err = durationEnv("PIN_ATTEMPT_WINDOW", cfg.PinAttemptWindow); err != nil {
		return Config{}, err
	}
	if cfg.PinCacheTTL, err = durationEnv("PIN_CACHE_TTL", cfg.PinCacheTTL); err != nil {
		return Config{}, err
	}
	if cfg.PinMaxAttempts, err = intEnv("PIN_MAX_ATTEMPTS", cfg.PinMaxAttempts); err != nil {
		return Config{}, err
	}
	if cfg.SettleAttempts, err = intEnv("SETTLEMENT_MAX_ATTEMPTS", cfg.SettleAttempts); err != nil {
		return Config{}, err
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL must be set")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("REDIS_URL must be set")
	}

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

// durationEnv accepts either a plain number of seconds or a Go duration string.
func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	if seconds, err := strconv.Atoi(v); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
