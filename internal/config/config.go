package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/iliyamo/festival-ticketing/internal/database"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	StorageMySQL  = "mysql"
	StorageMemory = "memory"
)

// SMTPConfig holds outbound mail settings.  An empty Host disables
// delivery; reservations still succeed and report emailSent=false.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled reports whether enough settings are present to send mail.
func (s SMTPConfig) Enabled() bool { return s.Host != "" && s.From != "" }

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env            string           // application environment (e.g. "dev", "prod")
	Port           string           // HTTP port to listen on
	BaseURL        string           // absolute base URL used for ticket deep links
	StorageDriver  string           // "mysql" (default) or "memory"
	DB             database.Options // DB_USER, DB_PASS, DB_HOST, DB_PORT, DB_NAME
	JWTSecret      string           // secret used to sign session JWTs
	TicketSecret   string           // secret used to sign ticket tokens
	AccessTTLMin   int              // access token time‑to‑live in minutes
	RefreshTTLDays int              // refresh token time‑to‑live in days
	BcryptCost     int              // bcrypt cost for password hashing
	LogLevel       string           // debug, info, warn, error
	WebRoot        string           // optional directory with the built frontend
	RabbitMQURL    string           // when set, ticket mail is queued instead of sent inline
	SMTP           SMTPConfig
}

// IsProduction reports whether cookies should be marked Secure.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "prod") || strings.EqualFold(c.Env, "production")
}

// loader collects every missing or malformed variable so a broken
// deployment reports all problems at once.
type loader struct {
	errs []error
}

// must retrieves the value of a required environment variable.
func (l *loader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		l.errs = append(l.errs, fmt.Errorf("missing required env var: %s", key))
	}
	return v
}

// intOr is like envInt but records malformed values instead of
// silently falling back.
func (l *loader) intOr(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("invalid int for %s: %q", key, s))
		return def
	}
	return n
}

// Load reads configuration values from environment variables.  Missing
// required variables are reported together in the returned error.
func Load() (Config, error) {
	l := &loader{}
	cfg := Config{
		Env:            l.must("APP_ENV"),
		Port:           l.must("APP_PORT"),
		BaseURL:        strings.TrimRight(l.must("APP_BASE_URL"), "/"),
		StorageDriver:  strings.ToLower(envStr("STORAGE_DRIVER", StorageMySQL)),
		JWTSecret:      l.must("JWT_SECRET"),
		TicketSecret:   l.must("TICKET_SIGNING_SECRET"),
		AccessTTLMin:   l.intOr("ACCESS_TOKEN_TTL_MIN", 15),
		RefreshTTLDays: l.intOr("REFRESH_TOKEN_TTL_DAYS", 30),
		BcryptCost:     l.intOr("BCRYPT_COST", 12),
		LogLevel:       strings.ToLower(envStr("LOG_LEVEL", "info")),
		WebRoot:        os.Getenv("WEB_ROOT"),
		RabbitMQURL:    envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     l.intOr("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
		},
	}

	switch cfg.StorageDriver {
	case StorageMySQL:
		cfg.DB = database.Options{
			User: l.must("DB_USER"),
			Pass: os.Getenv("DB_PASS"), // empty allowed
			Host: l.must("DB_HOST"),
			Port: l.must("DB_PORT"),
			Name: l.must("DB_NAME"),
		}
	case StorageMemory:
	default:
		l.errs = append(l.errs, fmt.Errorf("invalid STORAGE_DRIVER %q (want mysql or memory)", cfg.StorageDriver))
	}
	if cfg.AccessTTLMin < 1 {
		l.errs = append(l.errs, errors.New("ACCESS_TOKEN_TTL_MIN must be positive"))
	}
	if cfg.RefreshTTLDays < 1 {
		l.errs = append(l.errs, errors.New("REFRESH_TOKEN_TTL_DAYS must be positive"))
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		l.errs = append(l.errs, fmt.Errorf("BCRYPT_COST %d out of range 4..31", cfg.BcryptCost))
	}
	return cfg, errors.Join(l.errs...)
}
