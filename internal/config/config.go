package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"compliance-calendar/internal/tzutil"
)

// Server is the environment of cmd/server.
type Server struct {
	DatabaseURL  string
	Port         string
	JWTSecret    string
	StaticTokens []string
	LogLevel     string
	TimeZone     string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string
	OpenAITimeout time.Duration

	ReminderSpec    string
	EnableReminders bool
	MigrateOnStart  bool
	ShutdownTimeout time.Duration
}

// LoadEnvFiles reads .env files into the process environment. Variables
// already set win, and missing files are ignored.
func LoadEnvFiles(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		_ = godotenv.Load(p)
	}
}

func LoadServer() (Server, error) {
	cfg := Server{
		DatabaseURL:  strings.TrimSpace(os.Getenv("DATABASE_URL")),
		Port:         getenvDefault("PORT", "8080"),
		JWTSecret:    strings.TrimSpace(os.Getenv("JWT_HMAC_SECRET")),
		StaticTokens: getenvList("STATIC_TOKENS"),
		LogLevel:     getenvDefault("LOG_LEVEL", "info"),
		TimeZone:     tzutil.ResolveTimeZone(os.Getenv("CALENDAR_TZ")),

		GoogleClientID:     strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_ID")),
		GoogleClientSecret: strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_SECRET")),
		GoogleRedirectURL:  strings.TrimSpace(os.Getenv("GOOGLE_REDIRECT_URL")),

		OpenAIKey:     strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIModel:   getenvDefault("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL: getenvDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAITimeout: getenvDuration("OPENAI_TIMEOUT", 60*time.Second),

		ReminderSpec:    getenvDefault("REMINDER_CRON", "@every 1m"),
		EnableReminders: getenvBool("REMINDERS_ENABLED", true),
		MigrateOnStart:  getenvBool("DB_MIGRATE", true),
		ShutdownTimeout: getenvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func (c Server) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL required")
	}
	if c.Port == "" {
		return errors.New("PORT must not be empty")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("invalid PORT: %s", c.Port)
	}
	if c.JWTSecret == "" && len(c.StaticTokens) == 0 {
		return errors.New("either JWT_HMAC_SECRET or STATIC_TOKENS must be set")
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("invalid CALENDAR_TZ: %s", c.TimeZone)
	}
	if c.OpenAITimeout <= 0 {
		return errors.New("OPENAI_TIMEOUT must be > 0")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT must be > 0")
	}
	if c.EnableReminders && strings.TrimSpace(c.ReminderSpec) == "" {
		return errors.New("REMINDER_CRON is required when reminders are enabled")
	}
	return validLevel(c.LogLevel)
}

// GoogleConfigured reports whether the OAuth client is fully set up.
func (c Server) GoogleConfigured() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

func (c Server) Addr() string { return ":" + c.Port }

func validLevel(v string) error {
	switch strings.ToLower(v) {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("invalid log level: %s", v)
	}
}

func getenvDefault(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func getenvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
