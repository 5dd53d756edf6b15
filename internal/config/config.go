package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	DbHost    string
	DbPort    string
	DbUser    string
	DbPass    string
	DbName    string
	DbSSLMode string

	// Store selects the persistence backend: postgres|memory.
	Store string

	SessionTTL          time.Duration
	PasswordResetTTL    time.Duration
	SessionCookieSecret string
	SessionCookieName   string

	// ResetRevealUnknownEmail surfaces "email not found" on reset requests.
	// Off by default so the endpoint does not leak which emails exist.
	ResetRevealUnknownEmail bool

	// SweepInterval enables the background purge of expired sessions and
	// reset requests. Zero disables it.
	SweepInterval time.Duration

	Log      string
	LogLevel string
	Env      string // dev|prod

	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string

	FrontendURL    string
	AllowedOrigins []string
}

// LoadConfig reads .env (if present) and the environment, applying defaults.
// Nothing is logged here so config stays independent of the logger.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	def := func(v, d string) string {
		v = strings.TrimSpace(v)
		if v == "" {
			return d
		}
		return v
	}

	sessionTTL, err := time.ParseDuration(def(os.Getenv("SESSION_TTL"), "24h"))
	if err != nil {
		return nil, fmt.Errorf("SESSION_TTL: %w", err)
	}
	resetTTL, err := time.ParseDuration(def(os.Getenv("PASSWORD_RESET_TTL"), "1h"))
	if err != nil {
		return nil, fmt.Errorf("PASSWORD_RESET_TTL: %w", err)
	}
	sweep, err := time.ParseDuration(def(os.Getenv("SWEEP_INTERVAL"), "0s"))
	if err != nil {
		return nil, fmt.Errorf("SWEEP_INTERVAL: %w", err)
	}
	reveal, err := strconv.ParseBool(def(os.Getenv("RESET_REVEAL_UNKNOWN_EMAIL"), "false"))
	if err != nil {
		return nil, fmt.Errorf("RESET_REVEAL_UNKNOWN_EMAIL: %w", err)
	}

	cfg := &Config{
		Port:      def(os.Getenv("PORT"), "8080"),
		DbHost:    os.Getenv("DB_HOST"),
		DbPort:    def(os.Getenv("DB_PORT"), "5432"),
		DbUser:    os.Getenv("DB_USER"),
		DbPass:    os.Getenv("DB_PASSWORD"),
		DbName:    os.Getenv("DB_NAME"),
		DbSSLMode: def(os.Getenv("DB_SSLMODE"), "disable"),

		Store: strings.ToLower(def(os.Getenv("STORE"), "postgres")),

		SessionTTL:              sessionTTL,
		PasswordResetTTL:        resetTTL,
		SessionCookieSecret:     os.Getenv("SESSION_COOKIE_SECRET"),
		SessionCookieName:       def(os.Getenv("SESSION_COOKIE_NAME"), "chatdesk_session"),
		ResetRevealUnknownEmail: reveal,
		SweepInterval:           sweep,

		Log:      os.Getenv("LOG"),
		LogLevel: strings.ToLower(def(os.Getenv("LOGLEVEL"), "info")),
		Env:      strings.ToLower(def(os.Getenv("ENV"), "prod")),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     def(os.Getenv("SMTP_PORT"), "587"),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),

		FrontendURL:    strings.TrimRight(os.Getenv("FRONTEND_URL"), "/"),
		AllowedOrigins: splitAndTrim(def(os.Getenv("ALLOWED_ORIGINS"), "*")),
	}

	return cfg, nil
}

// Validate returns non-fatal warnings, or an error when the config is unusable.
func (c *Config) Validate() (warnings []string, err error) {
	switch c.Store {
	case "postgres":
		if c.DbHost == "" || c.DbUser == "" || c.DbName == "" {
			return nil, fmt.Errorf("incomplete DB config (DB_HOST/DB_USER/DB_NAME)")
		}
	case "memory":
		warnings = append(warnings, "STORE=memory: accounts and sessions are lost on restart")
	default:
		return nil, fmt.Errorf("unknown STORE %q (postgres|memory)", c.Store)
	}

	if c.SessionTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.PasswordResetTTL <= 0 {
		return nil, fmt.Errorf("PASSWORD_RESET_TTL must be positive")
	}
	if c.PasswordResetTTL >= c.SessionTTL {
		warnings = append(warnings, "PASSWORD_RESET_TTL is not shorter than SESSION_TTL")
	}
	if c.SweepInterval < 0 {
		return nil, fmt.Errorf("SWEEP_INTERVAL cannot be negative")
	}

	if len(c.SessionCookieSecret) < 32 {
		warnings = append(warnings, "SESSION_COOKIE_SECRET is shorter than 32 bytes, a random key is used for this run")
	}

	if c.SMTPHost == "" || c.SMTPUser == "" {
		warnings = append(warnings, "SMTP is not fully configured, reset emails are dropped")
	}

	if c.FrontendURL == "" {
		warnings = append(warnings, "FRONTEND_URL is empty, reset links will be relative")
	}

	return warnings, nil
}

// GetDSN returns the full DSN including the password.
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DbUser, c.DbPass, c.DbHost, c.DbPort, c.DbName, c.DbSSLMode,
	)
}

// GetDSNSafe masks the password, for logs.
func (c *Config) GetDSNSafe() string {
	return fmt.Sprintf(
		"postgres://%s:***@%s:%s/%s?sslmode=%s",
		c.DbUser, c.DbHost, c.DbPort, c.DbName, c.DbSSLMode,
	)
}

func splitAndTrim(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
