package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Reports trigger modes.
const (
	ReportsModeScheduled = "scheduled"
	ReportsModeReactive  = "reactive"
	ReportsModeOff       = "off"
)

// Config holds all configuration for the application.
type Config struct {
	Port    string `mapstructure:"PORT"`
	GinMode string `mapstructure:"GIN_MODE"`

	FirebaseProjectID                string `mapstructure:"FIREBASE_PROJECT_ID"`
	GoogleApplicationCredentials     string `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS"`
	FirebaseServiceAccountJSONBase64 string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64"`

	ClientURL string `mapstructure:"CLIENT_URL"`

	// Reports aggregation trigger policy. Schedule uses robfig/cron syntax,
	// e.g. "@every 24h" for the production cadence or "@every 3m" for the
	// lighter variant.
	ReportsMode     string `mapstructure:"REPORTS_MODE"`
	ReportsSchedule string `mapstructure:"REPORTS_SCHEDULE"`

	// RenewalRateVariant selects between the two historical renewal-rate
	// definitions: "active" (status == active) or "autorenew" (additionally
	// requires autoRenew).
	RenewalRateVariant string `mapstructure:"RENEWAL_RATE_VARIANT"`

	// WatchFlushIntervalSeconds controls how often buffered watch seconds are
	// flushed into whole-minute counter increments.
	WatchFlushIntervalSeconds int `mapstructure:"WATCH_FLUSH_INTERVAL_SECONDS"`

	// Optional Redis summary cache. Disabled when RedisAddr is empty.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// Optional RabbitMQ completion events. Disabled when empty.
	RabbitMQURL string `mapstructure:"RABBITMQ_URL"`

	// Optional SMTP alerting for aborted aggregation runs. Disabled when
	// SMTPHost or AlertEmailTo is empty.
	SMTPHost       string `mapstructure:"SMTP_HOST"`
	SMTPPort       string `mapstructure:"SMTP_PORT"`
	SMTPUser       string `mapstructure:"SMTP_USER"`
	SMTPPassword   string `mapstructure:"SMTP_PASSWORD"`
	AlertEmailTo   string `mapstructure:"ALERT_EMAIL_TO"`
	AlertEmailFrom string `mapstructure:"ALERT_EMAIL_FROM"`
}

// WatchFlushInterval returns the watch-time flush cadence as a duration.
func (c *Config) WatchFlushInterval() time.Duration {
	return time.Duration(c.WatchFlushIntervalSeconds) * time.Second
}

// LoadConfig loads configuration from the environment using Viper. A local
// .env file is loaded first when present; real environment variables win.
func LoadConfig() (*Config, error) {
	// Best effort: absent .env is the normal case in deployed environments.
	_ = godotenv.Load()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("GIN_MODE", "debug")
	viper.SetDefault("REPORTS_MODE", ReportsModeScheduled)
	viper.SetDefault("REPORTS_SCHEDULE", "@every 24h")
	viper.SetDefault("RENEWAL_RATE_VARIANT", "active")
	viper.SetDefault("WATCH_FLUSH_INTERVAL_SECONDS", 60)
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("SMTP_PORT", "587")

	for _, key := range []string{
		"PORT", "GIN_MODE",
		"FIREBASE_PROJECT_ID", "GOOGLE_APPLICATION_CREDENTIALS", "FIREBASE_SERVICE_ACCOUNT_JSON_BASE64",
		"CLIENT_URL",
		"REPORTS_MODE", "REPORTS_SCHEDULE", "RENEWAL_RATE_VARIANT",
		"WATCH_FLUSH_INTERVAL_SECONDS",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
		"RABBITMQ_URL",
		"SMTP_HOST", "SMTP_PORT", "SMTP_USER", "SMTP_PASSWORD",
		"ALERT_EMAIL_TO", "ALERT_EMAIL_FROM",
	} {
		viper.BindEnv(key)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.New("failed to unmarshal config: " + err.Error())
	}

	if cfg.FirebaseProjectID == "" {
		return nil, errors.New("FIREBASE_PROJECT_ID is required")
	}
	if cfg.GoogleApplicationCredentials == "" && cfg.FirebaseServiceAccountJSONBase64 == "" {
		return nil, errors.New("either GOOGLE_APPLICATION_CREDENTIALS or FIREBASE_SERVICE_ACCOUNT_JSON_BASE64 is required")
	}
	switch cfg.ReportsMode {
	case ReportsModeScheduled, ReportsModeReactive, ReportsModeOff:
	default:
		return nil, errors.New("REPORTS_MODE must be one of: scheduled, reactive, off")
	}
	switch cfg.RenewalRateVariant {
	case "active", "autorenew":
	default:
		return nil, errors.New("RENEWAL_RATE_VARIANT must be 'active' or 'autorenew'")
	}
	if cfg.WatchFlushIntervalSeconds <= 0 {
		return nil, errors.New("WATCH_FLUSH_INTERVAL_SECONDS must be positive")
	}

	return &cfg, nil
}
