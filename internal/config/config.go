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
	// Server configuration
	Port     string
	Mode     string
	LogLevel string

	// Database configuration
	DatabaseURL  string
	SQLitePath   string
	SeedDemoData bool

	// Redis configuration, empty disables redis-backed locks and sequences
	RedisURL string

	// Business calendar and scheduler configuration
	BusinessTimezone string
	SchedulerEnabled bool
	OrderCron        string
	ExpiryCron       string
	OrderLeadDays    int
	BatchLockTTL     time.Duration

	// Admin API
	AdminAPIToken string

	// Order event stream
	KafkaBrokers []string
	KafkaTopic   string

	// Vendor webhook for created orders
	OrderWebhookURL    string
	OrderWebhookSecret string

	// Brevo email configuration for batch reports
	BrevoAPIKey    string
	BrevoFromEmail string
	BrevoFromName  string
	ReportEmail    string

	// Order defaults
	DefaultCountry string
	SnowflakeNode  int64
}

var AppConfig *Config

// InitConfig loads configuration into AppConfig.
func InitConfig() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	AppConfig = cfg
	return nil
}

// Load reads configuration from the environment (and an optional .env file).
func Load() (*Config, error) {
	// Load .env file; a missing file is fine
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		Mode:               getEnv("GIN_MODE", "debug"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		SQLitePath:         getEnv("SQLITE_PATH", "tiffin.db"),
		RedisURL:           getEnv("REDIS_URL", ""),
		BusinessTimezone:   getEnv("BUSINESS_TIMEZONE", "Asia/Kolkata"),
		OrderCron:          getEnv("ORDER_CRON", "0 5 * * *"),
		ExpiryCron:         getEnv("EXPIRY_CRON", "5 0 * * *"),
		AdminAPIToken:      getEnv("ADMIN_API_TOKEN", "dev-admin-token"),
		KafkaBrokers:       splitCSV(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:         getEnv("KAFKA_TOPIC", "tiffin.orders"),
		OrderWebhookURL:    getEnv("ORDER_WEBHOOK_URL", ""),
		OrderWebhookSecret: getEnv("ORDER_WEBHOOK_SECRET", ""),
		BrevoAPIKey:        getEnv("BREVO_API_KEY", ""),
		BrevoFromEmail:     getEnv("BREVO_FROM_EMAIL", ""),
		BrevoFromName:      getEnv("BREVO_FROM_NAME", "Tiffin Orders"),
		ReportEmail:        getEnv("REPORT_EMAIL", ""),
		DefaultCountry:     getEnv("DEFAULT_COUNTRY", "India"),
	}

	var err error
	if cfg.SchedulerEnabled, err = getEnvBool("SCHEDULER_ENABLED", true); err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_ENABLED: %w", err)
	}
	if cfg.SeedDemoData, err = getEnvBool("SEED_DEMO_DATA", false); err != nil {
		return nil, fmt.Errorf("invalid SEED_DEMO_DATA: %w", err)
	}

	if cfg.OrderLeadDays, err = getEnvInt("ORDER_LEAD_DAYS", 0); err != nil {
		return nil, fmt.Errorf("invalid ORDER_LEAD_DAYS: %w", err)
	}
	if cfg.OrderLeadDays < 0 {
		return nil, fmt.Errorf("ORDER_LEAD_DAYS must be >= 0")
	}

	lockMinutes, err := getEnvInt("BATCH_LOCK_TTL_MINUTES", 30)
	if err != nil {
		return nil, fmt.Errorf("invalid BATCH_LOCK_TTL_MINUTES: %w", err)
	}
	if lockMinutes <= 0 {
		return nil, fmt.Errorf("BATCH_LOCK_TTL_MINUTES must be > 0")
	}
	cfg.BatchLockTTL = time.Duration(lockMinutes) * time.Minute

	node, err := getEnvInt("SNOWFLAKE_NODE", 1)
	if err != nil {
		return nil, fmt.Errorf("invalid SNOWFLAKE_NODE: %w", err)
	}
	if node < 0 || node > 1023 {
		return nil, fmt.Errorf("SNOWFLAKE_NODE must be within 0..1023")
	}
	cfg.SnowflakeNode = int64(node)

	if _, err := time.LoadLocation(cfg.BusinessTimezone); err != nil {
		return nil, fmt.Errorf("invalid BUSINESS_TIMEZONE %q: %w", cfg.BusinessTimezone, err)
	}
	if cfg.AdminAPIToken == "" {
		return nil, fmt.Errorf("ADMIN_API_TOKEN must not be empty")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, fmt.Errorf("KAFKA_TOPIC must not be empty when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// EmailReportsEnabled reports whether batch failure e-mails can be sent.
func (c *Config) EmailReportsEnabled() bool {
	return c.BrevoAPIKey != "" && c.BrevoFromEmail != "" && c.ReportEmail != ""
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(value)
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	return strconv.ParseBool(value)
}

// splitCSV parses a comma separated list, dropping empty items.
func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
