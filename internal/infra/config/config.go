package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Transport names accepted for NOTIFY_TRANSPORT.
const (
	TransportConsole  = "console"
	TransportEmail    = "email"
	TransportTelegram = "telegram"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseURL string
	LogLevel    string
	Environment string

	// Job cadences for the recurring scheduler.
	ExpirationCheckInterval time.Duration
	QueueProcessInterval    time.Duration
	RetryFailedInterval     time.Duration
	CleanupInterval         time.Duration
	AutoRenewalInterval     time.Duration

	// Retention horizon for old notifications, in days.
	NotificationRetentionDays int

	// Delivery transport selection and its settings.
	NotifyTransport string
	ResendAPIKey    string
	ResendAPIURL    string
	FromEmail       string
	TelegramToken   string
	AlertChatID     int64
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	cfg.ExpirationCheckInterval, err = durationEnv("EXPIRATION_CHECK_INTERVAL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.QueueProcessInterval, err = durationEnv("QUEUE_PROCESS_INTERVAL", 1*time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.RetryFailedInterval, err = durationEnv("RETRY_FAILED_INTERVAL", 4*time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.CleanupInterval, err = durationEnv("CLEANUP_INTERVAL", 7*24*time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.AutoRenewalInterval, err = durationEnv("AUTO_RENEWAL_INTERVAL", 6*time.Hour)
	if err != nil {
		return nil, err
	}

	retentionStr := os.Getenv("NOTIFICATION_RETENTION_DAYS")
	if retentionStr == "" {
		cfg.NotificationRetentionDays = 180
	} else {
		cfg.NotificationRetentionDays, err = strconv.Atoi(retentionStr)
		if err != nil || cfg.NotificationRetentionDays <= 0 {
			return nil, fmt.Errorf("invalid NOTIFICATION_RETENTION_DAYS: %q", retentionStr)
		}
	}

	cfg.NotifyTransport = strings.ToLower(os.Getenv("NOTIFY_TRANSPORT"))
	if cfg.NotifyTransport == "" {
		cfg.NotifyTransport = TransportConsole
	}

	switch cfg.NotifyTransport {
	case TransportConsole:
		// No further settings required.
	case TransportEmail:
		cfg.ResendAPIKey = os.Getenv("RESEND_API_KEY")
		cfg.ResendAPIURL = os.Getenv("RESEND_API_URL")
		cfg.FromEmail = os.Getenv("FROM_EMAIL")
		if cfg.ResendAPIKey == "" || cfg.ResendAPIURL == "" || cfg.FromEmail == "" {
			return nil, fmt.Errorf("NOTIFY_TRANSPORT=email requires RESEND_API_KEY, RESEND_API_URL and FROM_EMAIL")
		}
	case TransportTelegram:
		cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
		if cfg.TelegramToken == "" {
			return nil, fmt.Errorf("NOTIFY_TRANSPORT=telegram requires TELEGRAM_TOKEN")
		}
		chatIDStr := os.Getenv("ALERT_CHAT_ID")
		if chatIDStr == "" {
			return nil, fmt.Errorf("NOTIFY_TRANSPORT=telegram requires ALERT_CHAT_ID")
		}
		cfg.AlertChatID, err = strconv.ParseInt(chatIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ALERT_CHAT_ID: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown NOTIFY_TRANSPORT: %q", cfg.NotifyTransport)
	}

	return cfg, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}
