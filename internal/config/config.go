// Package config reads service settings from TASKLANE_* environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"tasklane.org/internal/auth"
)

const prefix = "TASKLANE_"

// Session backends.
const (
	SessionMemory = "memory"
	SessionRedis  = "redis"
)

// Config holds every runtime setting.
type Config struct {
	Env      string
	HTTPAddr string
	GRPCAddr string

	DBDriver string
	DBDSN    string

	AuthMode    auth.Mode
	AuthSecret  string
	TokenTTL    time.Duration
	TokenIssuer string

	SessionBackend     string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	SessionIdleTimeout time.Duration
	SessionMaxLifetime time.Duration
	CookieName         string
	CookieSecure       bool

	GateDefault auth.Requirement

	RateBurst   int
	RatePerSec  int
	CORSOrigins []string
}

// Load reads .env files (when present) and the environment.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var errs []error
	cfg := Config{
		Env:                getEnv("ENV", "prod"),
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		GRPCAddr:           getEnv("GRPC_ADDR", ":9090"),
		DBDriver:           getEnv("DB_DRIVER", "sqlite"),
		DBDSN:              getEnv("DB_DSN", "file:tasklane.db"),
		AuthSecret:         getEnv("AUTH_SECRET", ""),
		TokenTTL:           getDuration("TOKEN_TTL", time.Hour, &errs),
		TokenIssuer:        getEnv("TOKEN_ISSUER", auth.DefaultIssuer),
		SessionBackend:     strings.ToLower(getEnv("SESSION_BACKEND", SessionMemory)),
		RedisAddr:          getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getInt("REDIS_DB", 0, &errs),
		SessionIdleTimeout: getDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute, &errs),
		SessionMaxLifetime: getDuration("SESSION_MAX_LIFETIME", 12*time.Hour, &errs),
		CookieName:         getEnv("COOKIE_NAME", "tasklane_session"),
		CookieSecure:       getBool("COOKIE_SECURE", false, &errs),
		RateBurst:          getInt("RATE_BURST", 50, &errs),
		RatePerSec:         getInt("RATE_PER_SEC", 25, &errs),
		CORSOrigins:        getList("CORS_ORIGINS"),
	}

	mode, err := auth.ParseMode(getEnv("AUTH_MODE", string(auth.ModeToken)))
	if err != nil {
		errs = append(errs, fmt.Errorf("%sAUTH_MODE: %w", prefix, err))
	}
	cfg.AuthMode = mode

	gate, err := auth.ParseRequirement(getEnv("GATE_DEFAULT", "protected"))
	if err != nil {
		errs = append(errs, fmt.Errorf("%sGATE_DEFAULT: %w", prefix, err))
	}
	cfg.GateDefault = gate

	if len(errs) == 0 {
		if err := cfg.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.AuthMode {
	case auth.ModeToken:
		if len(c.AuthSecret) < auth.MinSecretBytes {
			return fmt.Errorf("%sAUTH_SECRET must be at least %d bytes in token mode", prefix, auth.MinSecretBytes)
		}
		if c.TokenTTL <= 0 {
			return fmt.Errorf("%sTOKEN_TTL must be positive", prefix)
		}
	case auth.ModeSession:
		if c.SessionBackend != SessionMemory && c.SessionBackend != SessionRedis {
			return fmt.Errorf("%sSESSION_BACKEND must be %q or %q", prefix, SessionMemory, SessionRedis)
		}
		if c.SessionIdleTimeout <= 0 && c.SessionMaxLifetime <= 0 {
			return fmt.Errorf("%sSESSION_IDLE_TIMEOUT or %sSESSION_MAX_LIFETIME must be set", prefix, prefix)
		}
	}
	if c.RateBurst < 0 || c.RatePerSec < 0 {
		return fmt.Errorf("%sRATE_BURST and %sRATE_PER_SEC must not be negative", prefix, prefix)
	}
	return nil
}

// IsDev reports whether the service runs in the dev environment.
func (c Config) IsDev() bool {
	return strings.EqualFold(c.Env, "dev")
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(prefix + key); ok {
		return strings.TrimSpace(v)
	}
	return def
}

func getInt(key string, def int, errs *[]error) int {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s%s: %w", prefix, key, err))
		return def
	}
	return v
}

func getBool(key string, def bool, errs *[]error) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s%s: %w", prefix, key, err))
		return def
	}
	return v
}

func getDuration(key string, def time.Duration, errs *[]error) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s%s: %w", prefix, key, err))
		return def
	}
	return v
}

func getList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
