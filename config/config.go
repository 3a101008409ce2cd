// Package config loads the process configuration once at start-up.
//
// The resulting Config is a plain value: modules receive it by injection and
// never re-read the environment per request.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// EnvDevelopment enables verbose diagnostics and relaxed cookie attributes.
	EnvDevelopment = "development"
	// EnvProduction enables secure cookies, HSTS and opaque 500 responses.
	EnvProduction = "production"

	// DriverSQLite and DriverPostgres are the supported DATABASE_DRIVER values.
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	minProductionSecretLength = 32
)

var weakSecretWords = []string{
	"secret",
	"password",
	"123456",
	"your-secret-key",
	"jwt-secret",
	"development",
}

// Config is the immutable process configuration.
type Config struct {
	Env         string
	Port        string
	APIPrefix   string
	CORSOrigins []string
	BcryptCost  int

	Database DatabaseConfig
	JWT      JWTConfig
	Redis    RedisConfig
	SignIn   SignInLimitConfig

	LedgerPruneInterval time.Duration
}

// DatabaseConfig selects the gorm dialector.
type DatabaseConfig struct {
	Driver string
	URL    string
}

// JWTConfig holds the token signing parameters.
type JWTConfig struct {
	AccessSecret    string
	RefreshSecret   string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Issuer          string
	Audience        string
}

// RedisConfig configures the optional Redis connection. An empty Addr disables it.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SignInLimitConfig bounds sign-in attempts per client and email.
type SignInLimitConfig struct {
	Limit  int
	Window time.Duration
}

// Load reads the given .env files (missing files are ignored), then the
// process environment, applies defaults and validates the result.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an arbitrary key lookup function.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	var err error
	cfg := Config{
		Env:         strings.ToLower(get("NODE_ENV", EnvDevelopment)),
		Port:        get("PORT", "8000"),
		APIPrefix:   strings.TrimRight(get("API_PREFIX", "/api/v1"), "/"),
		CORSOrigins: splitList(get("CORS_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")),
		Database: DatabaseConfig{
			Driver: strings.ToLower(get("DATABASE_DRIVER", DriverSQLite)),
			URL:    get("DATABASE_URL", "session_auth.db"),
		},
		JWT: JWTConfig{
			AccessSecret:  get("JWT_SECRET", ""),
			RefreshSecret: get("JWT_REFRESH_SECRET", ""),
			Issuer:        get("JWT_ISSUER", "jwt-auth-server"),
			Audience:      get("JWT_AUDIENCE", "jwt-auth-frontend"),
		},
		Redis: RedisConfig{
			Addr:     get("REDIS_ADDR", ""),
			Password: get("REDIS_PASSWORD", ""),
		},
	}

	if cfg.JWT.AccessTokenTTL, err = ParseDuration(get("JWT_ACCESS_TOKEN_EXPIRATION", "15m")); err != nil {
		return Config{}, fmt.Errorf("JWT_ACCESS_TOKEN_EXPIRATION: %w", err)
	}
	if cfg.JWT.RefreshTokenTTL, err = ParseDuration(get("JWT_REFRESH_TOKEN_EXPIRATION", "7d")); err != nil {
		return Config{}, fmt.Errorf("JWT_REFRESH_TOKEN_EXPIRATION: %w", err)
	}
	if cfg.SignIn.Window, err = ParseDuration(get("SIGN_IN_WINDOW", "15m")); err != nil {
		return Config{}, fmt.Errorf("SIGN_IN_WINDOW: %w", err)
	}
	if cfg.LedgerPruneInterval, err = ParseDuration(get("LEDGER_PRUNE_INTERVAL", "1h")); err != nil {
		return Config{}, fmt.Errorf("LEDGER_PRUNE_INTERVAL: %w", err)
	}
	if cfg.BcryptCost, err = strconv.Atoi(get("BCRYPT_COST", "10")); err != nil {
		return Config{}, fmt.Errorf("BCRYPT_COST: %w", err)
	}
	if cfg.Redis.DB, err = strconv.Atoi(get("REDIS_DB", "0")); err != nil {
		return Config{}, fmt.Errorf("REDIS_DB: %w", err)
	}
	if cfg.SignIn.Limit, err = strconv.Atoi(get("SIGN_IN_LIMIT", "10")); err != nil {
		return Config{}, fmt.Errorf("SIGN_IN_LIMIT: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every setting the token layer cannot run with.
func (c Config) Validate() error {
	var errs []error

	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		errs = append(errs, fmt.Errorf("NODE_ENV must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Env))
	}
	if c.JWT.AccessSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.JWT.RefreshSecret == "" {
		errs = append(errs, errors.New("JWT_REFRESH_SECRET is required"))
	}
	if c.JWT.AccessSecret != "" && c.JWT.AccessSecret == c.JWT.RefreshSecret {
		errs = append(errs, errors.New("JWT_SECRET and JWT_REFRESH_SECRET must differ"))
	}
	if c.IsProduction() {
		if err := CheckSecretStrength("JWT_SECRET", c.JWT.AccessSecret); err != nil {
			errs = append(errs, err)
		}
		if err := CheckSecretStrength("JWT_REFRESH_SECRET", c.JWT.RefreshSecret); err != nil {
			errs = append(errs, err)
		}
	}
	if c.JWT.AccessTokenTTL <= 0 || c.JWT.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("token expirations must be positive"))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be within 4..31, got %d", c.BcryptCost))
	}
	if c.Database.Driver != DriverSQLite && c.Database.Driver != DriverPostgres {
		errs = append(errs, fmt.Errorf("unsupported DATABASE_DRIVER %q", c.Database.Driver))
	}
	if c.SignIn.Limit <= 0 || c.SignIn.Window <= 0 {
		errs = append(errs, errors.New("sign-in limit and window must be positive"))
	}
	if c.LedgerPruneInterval < 0 {
		errs = append(errs, errors.New("LEDGER_PRUNE_INTERVAL must not be negative"))
	}

	return errors.Join(errs...)
}

// IsProduction reports whether the process runs in production mode.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Addr returns the HTTP listen address.
func (c Config) Addr() string {
	return ":" + c.Port
}

// CheckSecretStrength rejects short secrets and secrets built around common words.
func CheckSecretStrength(name, secret string) error {
	if len(secret) < minProductionSecretLength {
		return fmt.Errorf("%s should be at least %d characters long", name, minProductionSecretLength)
	}
	lower := strings.ToLower(secret)
	for _, weak := range weakSecretWords {
		if strings.Contains(lower, weak) {
			return fmt.Errorf("%s appears to be weak or common", name)
		}
	}
	return nil
}

// ParseDuration accepts Go durations plus a whole-day suffix, e.g. "7d".
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid day duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
