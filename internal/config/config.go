package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"raccoon/internal/logger"
)

// InsecureEmailSecret is the fallback signing key. It must never be used in production.
const InsecureEmailSecret = "change-me"

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string
	To         string
}

// Enabled reports whether all chat credentials are present.
func (c TwilioConfig) Enabled() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.From != "" && c.To != ""
}

type Config struct {
	Env           string
	Port          string
	APIPrefix     string
	PublicBaseURL string

	DatabaseURL      string
	DBConnectRetries int
	DBConnectDelay   time.Duration

	SMTP             SMTPConfig
	SendGridAPIKey   string
	SendGridFromName string
	ContactReceiver  string
	EmailSecret      string
	NotifyTimeout    time.Duration

	Twilio TwilioConfig

	CORSAllowedOrigins []string
	RateLimit          string
	RedisURL           string

	JobCompleteSchedule string

	LogLevel string
	LogFile  string
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Env:           getEnvOrDefault("APP_ENV", "development"),
		Port:          getEnvOrDefault("PORT", "8080"),
		APIPrefix:     strings.TrimRight(getEnvOrDefault("API_PREFIX", "/api"), "/"),
		PublicBaseURL: strings.TrimRight(getEnvOrDefault("PUBLIC_BASE_URL", "https://staging.raccoon.bg/api"), "/"),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		DBConnectRetries: getEnvAsIntOrDefault("DB_CONNECT_RETRIES", 10),
		DBConnectDelay:   getEnvAsDurationOrDefault("DB_CONNECT_DELAY", 2*time.Second),

		SMTP: SMTPConfig{
			Host:     getEnvOrDefault("SMTP_HOST", "localhost"),
			Port:     getEnvAsIntOrDefault("SMTP_PORT", 1025),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			Sender:   getEnvOrDefault("SMTP_SENDER", "no-reply@raccoon.bg"),
		},
		SendGridAPIKey:   os.Getenv("SENDGRID_API_KEY"),
		SendGridFromName: getEnvOrDefault("SENDGRID_FROM_NAME", "Raccoon Cleaning"),
		ContactReceiver:  getEnvOrDefault("CONTACT_RECEIVER", "kmerev.raccoon@gmail.com"),
		EmailSecret:      os.Getenv("EMAIL_SECRET"),
		NotifyTimeout:    getEnvAsDurationOrDefault("NOTIFY_TIMEOUT", 10*time.Second),

		Twilio: TwilioConfig{
			AccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
			AuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
			From:       os.Getenv("CHAT_FROM"),
			To:         os.Getenv("CHAT_TO"),
		},

		CORSAllowedOrigins: splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		RateLimit:          getEnvOrDefault("RATE_LIMIT", "20-M"),
		RedisURL:           os.Getenv("REDIS_URL"),

		JobCompleteSchedule: os.Getenv("JOB_COMPLETE_SCHEDULE"),

		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		LogFile:  os.Getenv("LOG_FILE"),
	}
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Validate rejects configurations the server cannot start with. Outside
// production a missing EMAIL_SECRET falls back to the insecure default.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL not set")
	}
	if c.DBConnectRetries < 1 {
		return fmt.Errorf("DB_CONNECT_RETRIES must be at least 1, got %d", c.DBConnectRetries)
	}
	if c.EmailSecret == "" || c.EmailSecret == InsecureEmailSecret {
		if c.IsProduction() {
			return errors.New("EMAIL_SECRET must be set to a non-default value in production")
		}
		logger.WarnLogger.Warn("EMAIL_SECRET not set, decline links are signed with the insecure default key")
		c.EmailSecret = InsecureEmailSecret
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		logger.WarnLogger.Warnf("Environment variable %s is not an integer, using default value %d", key, defaultValue)
	}
	return defaultValue
}

func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		logger.WarnLogger.Warnf("Environment variable %s is not a duration, using default value %s", key, defaultValue)
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
