// Package config reads the server configuration from the environment.
//
// Outside production a .env file in the working directory is loaded first
// (github.com/joho/godotenv). Variables already set in the environment win
// over the file, so a deployment can always override it.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/foodshare/pickup-api/internal/auth"
	"github.com/foodshare/pickup-api/internal/mail"
	"github.com/foodshare/pickup-api/internal/repository/sqlstore"
)

type Config struct {
	Env      string // "development" | "production" | "test"
	Port     int
	LogLevel slog.Level
	// BaseURL is the public address of the web client; email links point here.
	BaseURL string

	Database DatabaseConfig
	Session  SessionConfig
	SMTP     SMTPConfig

	RateLimitRPS   float64
	RateLimitBurst int
	// TrustProxy takes the client address from X-Forwarded-For and friends.
	// Only enable it behind a proxy that overwrites those headers.
	TrustProxy bool
}

type DatabaseConfig struct {
	Driver string // "sqlite" | "postgres"

	// sqlite
	Path string

	// postgres
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type SessionConfig struct {
	Secret     string
	TTL        time.Duration
	BcryptCost int
}

// SMTPConfig is empty (Host == "") when mail should only be logged.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	SSL      bool
	From     string
	FromName string
}

// Load reads every setting, applying defaults, and validates the result.
func Load() (Config, error) {
	env := getEnv("ENV", "development")
	if env != "production" {
		// A missing .env is normal; only the variables matter.
		_ = godotenv.Load()
		env = getEnv("ENV", env)
	}

	var errs []error
	p := parser{errs: &errs}

	cfg := Config{
		Env:      env,
		Port:     p.intVar("PORT", 8080),
		LogLevel: p.levelVar("LOG_LEVEL", slog.LevelInfo),
		BaseURL:  strings.TrimRight(getEnv("BASE_URL", "http://localhost:5173"), "/"),
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "sqlite"),
			Path:     getEnv("DB_PATH", "data/foodshare.db"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     p.intVar("DB_PORT", 5432),
			User:     getEnv("DB_USER", "foodshare"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "foodshare"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Session: SessionConfig{
			Secret:     getEnv("SESSION_SECRET", ""),
			TTL:        p.durationVar("SESSION_TTL", 7*24*time.Hour),
			BcryptCost: p.intVar("BCRYPT_COST", 12),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     p.intVar("SMTP_PORT", 587),
			User:     getEnv("SMTP_USER", ""),
			Password: getEnv("SMTP_PASS", ""),
			SSL:      p.boolVar("SMTP_SSL", false),
			From:     getEnv("MAIL_FROM", "noreply@foodshare.local"),
			FromName: getEnv("MAIL_FROM_NAME", "FoodShare"),
		},
		RateLimitRPS:   p.floatVar("RATE_LIMIT_RPS", 1),
		RateLimitBurst: p.intVar("RATE_LIMIT_BURST", 10),
		TrustProxy:     p.boolVar("TRUST_PROXY", false),
	}

	errs = append(errs, cfg.validate()...)
	if len(errs) > 0 {
		return Config{}, fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) validate() []error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			errs = append(errs, errors.New("DB_PATH is required for sqlite"))
		}
	case "postgres":
		if c.Database.Host == "" || c.Database.Name == "" {
			errs = append(errs, errors.New("DB_HOST and DB_NAME are required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", c.Database.Driver))
	}
	// Same minimum as auth.NewTokenService.
	if len(c.Session.Secret) < 16 {
		errs = append(errs, errors.New("SESSION_SECRET must be at least 16 characters"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.Session.BcryptCost < auth.MinCost || c.Session.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between %d and 31, got %d", auth.MinCost, c.Session.BcryptCost))
	}
	if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("BASE_URL %q is not a URL", c.BaseURL))
	}
	if c.IsProduction() && c.SMTP.Host == "" {
		errs = append(errs, errors.New("SMTP_HOST is required in production"))
	}
	return errs
}

// Store returns the sqlstore settings for the configured driver.
func (c Config) Store() sqlstore.Config {
	if c.Database.Driver == "postgres" {
		return sqlstore.Config{Driver: sqlstore.DialectPostgres, DSN: c.Database.PostgresURL()}
	}
	return sqlstore.Config{Driver: sqlstore.DialectSQLite, DSN: c.Database.Path}
}

// PostgresURL builds a lib/pq connection URL.
func (d DatabaseConfig) PostgresURL() string {
	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		User:   url.UserPassword(d.User, d.Password),
		Path:   d.Name,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Mail returns the SMTP sender settings.
func (c Config) Mail() mail.SMTPConfig {
	return mail.SMTPConfig{
		Host:     c.SMTP.Host,
		Port:     c.SMTP.Port,
		Username: c.SMTP.User,
		Password: c.SMTP.Password,
		SSL:      c.SMTP.SSL,
		From:     c.SMTP.From,
		FromName: c.SMTP.FromName,
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// parser collects every malformed value instead of stopping at the first.
type parser struct {
	errs *[]error
}

func (p parser) fail(key, value, want string) {
	*p.errs = append(*p.errs, fmt.Errorf("%s=%q is not %s", key, value, want))
}

func (p parser) intVar(key string, defaultValue int) int {
	s := getEnv(key, "")
	if s == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		p.fail(key, s, "an integer")
		return defaultValue
	}
	return v
}

func (p parser) floatVar(key string, defaultValue float64) float64 {
	s := getEnv(key, "")
	if s == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.fail(key, s, "a number")
		return defaultValue
	}
	return v
}

func (p parser) boolVar(key string, defaultValue bool) bool {
	s := getEnv(key, "")
	if s == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		p.fail(key, s, "a boolean")
		return defaultValue
	}
	return v
}

func (p parser) durationVar(key string, defaultValue time.Duration) time.Duration {
	s := getEnv(key, "")
	if s == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		p.fail(key, s, "a duration such as 168h")
		return defaultValue
	}
	return v
}

func (p parser) levelVar(key string, defaultValue slog.Level) slog.Level {
	s := getEnv(key, "")
	if s == "" {
		return defaultValue
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		p.fail(key, s, "one of debug, info, warn, error")
		return defaultValue
	}
	return lvl
}
