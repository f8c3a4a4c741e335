package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const minSecretLength = 32

// Config holds process configuration resolved from the environment.
type Config struct {
	HTTPAddr string
	GRPCAddr string
	PGDSN    string

	AuthSecret string
	AuthIssuer string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	BcryptCost int

	LogLevel  string
	LogFormat string

	RateBurst     int
	RatePerSecond int

	MigrateOnStart bool
}

// Load reads an optional .env file and then the process environment.
// A missing .env file is not an error.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config using lookup to resolve variables.
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, fallback string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return fallback
	}

	cfg := &Config{
		HTTPAddr:   get("ORGADMIN_HTTP_ADDR", ":8080"),
		GRPCAddr:   get("ORGADMIN_GRPC_ADDR", ":9090"),
		PGDSN:      get("ORGADMIN_PG_DSN", ""),
		AuthSecret: get("ORGADMIN_AUTH_SECRET", ""),
		AuthIssuer: get("ORGADMIN_AUTH_ISSUER", "orgadmin"),
		LogLevel:   get("ORGADMIN_LOG_LEVEL", "info"),
		LogFormat:  get("ORGADMIN_LOG_FORMAT", "json"),
	}
	if v, ok := lookup("ORGADMIN_GRPC_ADDR"); ok && strings.TrimSpace(v) == "" {
		cfg.GRPCAddr = ""
	}

	var err error
	if cfg.AccessTTL, err = parseDuration(get("ORGADMIN_ACCESS_TTL", "15m")); err != nil {
		return nil, fmt.Errorf("ORGADMIN_ACCESS_TTL: %w", err)
	}
	if cfg.RefreshTTL, err = parseDuration(get("ORGADMIN_REFRESH_TTL", "168h")); err != nil {
		return nil, fmt.Errorf("ORGADMIN_REFRESH_TTL: %w", err)
	}
	if cfg.BcryptCost, err = strconv.Atoi(get("ORGADMIN_BCRYPT_COST", strconv.Itoa(bcrypt.DefaultCost))); err != nil {
		return nil, fmt.Errorf("ORGADMIN_BCRYPT_COST: %w", err)
	}
	if cfg.RateBurst, err = strconv.Atoi(get("ORGADMIN_RATE_BURST", "20")); err != nil {
		return nil, fmt.Errorf("ORGADMIN_RATE_BURST: %w", err)
	}
	if cfg.RatePerSecond, err = strconv.Atoi(get("ORGADMIN_RATE_PER_SEC", "10")); err != nil {
		return nil, fmt.Errorf("ORGADMIN_RATE_PER_SEC: %w", err)
	}
	if cfg.MigrateOnStart, err = strconv.ParseBool(get("ORGADMIN_MIGRATE_ON_START", "true")); err != nil {
		return nil, fmt.Errorf("ORGADMIN_MIGRATE_ON_START: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if len(c.AuthSecret) < minSecretLength {
		return fmt.Errorf("ORGADMIN_AUTH_SECRET must be at least %d bytes", minSecretLength)
	}
	if c.AccessTTL <= 0 {
		return errors.New("access token ttl must be positive")
	}
	if c.RefreshTTL <= c.AccessTTL {
		return errors.New("refresh token ttl must exceed access token ttl")
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt cost must be within [%d,%d]", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.RateBurst <= 0 || c.RatePerSecond <= 0 {
		return errors.New("rate limit values must be positive")
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("unsupported log format %q", c.LogFormat)
	}
	return nil
}

func parseDuration(raw string) (time.Duration, error) {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, errors.New("duration must be positive")
	}
	return d, nil
}
