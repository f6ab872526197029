package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/gr-satt/bordem/internal/adapters/logger"
)

// Config holds all application configuration.
type Config struct {
	// BitMEX API
	APIKey     string
	APISecret  string
	UseTestnet bool

	// Trading Parameters
	Symbol    string
	Leverage  int
	Timeframe string // Candle bucket size: 1m, 5m, 1h or 1d

	// Indicator snapshot
	IndicatorName   string
	IndicatorPeriod int
	IndicatorSource string

	// Request Client
	RequestTimeout time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
	CacheDir       string

	// Failsafe
	FailsafeFloor float64 // BTC balance below which exposure is flattened (0 disables)

	// Schedule
	ScheduleEnabled bool
	ScheduleHour    int
	ScheduleMinute  int

	// SMTP Alerts
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string
	MailTo       []string

	// Database
	DBPath string

	// Logging
	LogLevel logger.LogLevel
}

// AlertsEnabled reports whether enough SMTP settings are present to send mail.
func (c *Config) AlertsEnabled() bool {
	return c.SMTPHost != "" && c.MailFrom != "" && len(c.MailTo) > 0
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// BitMEX API. Credentials are optional; public market data works without
	// them, but account and order operations will be rejected.
	cfg.APIKey = getEnv("BITMEX_API_KEY", "")
	cfg.APISecret = getEnv("BITMEX_API_SECRET", "")
	cfg.UseTestnet = getEnvAsBool("USE_TESTNET", true) // Default to testnet for safety
	if cfg.APIKey != "" && cfg.APISecret == "" {
		errs = append(errs, "BITMEX_API_SECRET must be set when BITMEX_API_KEY is set")
	}

	// Trading Parameters
	cfg.Symbol = getEnv("SYMBOL", "XBTUSD")
	if cfg.Symbol == "" {
		errs = append(errs, "SYMBOL must be set")
	}

	cfg.Leverage, err = getEnvAsIntRequired("LEVERAGE", 1)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid LEVERAGE: %v", err))
	} else if cfg.Leverage <= 0 {
		errs = append(errs, "LEVERAGE must be positive")
	}

	cfg.Timeframe = getEnv("TIMEFRAME", "1h")
	switch cfg.Timeframe {
	case "1m", "5m", "1h", "1d":
	default:
		errs = append(errs, "TIMEFRAME must be one of 1m, 5m, 1h, 1d")
	}

	// Indicator snapshot
	cfg.IndicatorName = getEnv("INDICATOR_NAME", "RSI")
	cfg.IndicatorPeriod = getEnvAsInt("INDICATOR_PERIOD", 14)
	if cfg.IndicatorPeriod <= 0 {
		errs = append(errs, "INDICATOR_PERIOD must be positive")
	}
	cfg.IndicatorSource = getEnv("INDICATOR_SOURCE", "close")
	if cfg.IndicatorSource != "open" && cfg.IndicatorSource != "close" {
		errs = append(errs, "INDICATOR_SOURCE must be open or close")
	}

	// Request Client
	requestTimeoutSeconds := getEnvAsInt("REQUEST_TIMEOUT_SECONDS", 10)
	if requestTimeoutSeconds <= 0 {
		errs = append(errs, "REQUEST_TIMEOUT_SECONDS must be positive")
	}
	cfg.RequestTimeout = time.Duration(requestTimeoutSeconds) * time.Second

	cfg.MaxRetries = getEnvAsInt("MAX_RETRIES", 3)
	if cfg.MaxRetries < 0 {
		errs = append(errs, "MAX_RETRIES cannot be negative")
	}

	retryDelaySeconds := getEnvAsInt("RETRY_DELAY_SECONDS", 3)
	if retryDelaySeconds <= 0 {
		errs = append(errs, "RETRY_DELAY_SECONDS must be positive")
	}
	cfg.RetryDelay = time.Duration(retryDelaySeconds) * time.Second

	cfg.CacheDir = getEnv("CACHE_DIR", "")

	// Failsafe
	cfg.FailsafeFloor, err = getEnvAsFloatRequired("FAILSAFE_FLOOR", 0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid FAILSAFE_FLOOR: %v", err))
	} else if cfg.FailsafeFloor < 0 {
		errs = append(errs, "FAILSAFE_FLOOR cannot be negative")
	}

	// Schedule
	cfg.ScheduleEnabled = getEnvAsBool("SCHEDULE_ENABLED", false)
	cfg.ScheduleHour = getEnvAsInt("SCHEDULE_HOUR", 0)
	cfg.ScheduleMinute = getEnvAsInt("SCHEDULE_MINUTE", 0)
	if cfg.ScheduleHour < 0 || cfg.ScheduleHour > 23 {
		errs = append(errs, "SCHEDULE_HOUR must be between 0 and 23")
	}
	if cfg.ScheduleMinute < 0 || cfg.ScheduleMinute > 59 {
		errs = append(errs, "SCHEDULE_MINUTE must be between 0 and 59")
	}

	// SMTP Alerts (optional; alerts are skipped when unset)
	cfg.SMTPHost = getEnv("SMTP_HOST", "")
	cfg.SMTPPort = getEnvAsInt("SMTP_PORT", 587)
	cfg.SMTPUsername = getEnv("SMTP_USERNAME", "")
	cfg.SMTPPassword = getEnv("SMTP_PASSWORD", "")
	cfg.MailFrom = getEnv("MAIL_FROM", "")
	if recipients := getEnv("MAIL_TO", ""); recipients != "" {
		for _, addr := range strings.Split(recipients, ",") {
			if addr = strings.TrimSpace(addr); addr != "" {
				cfg.MailTo = append(cfg.MailTo, addr)
			}
		}
	}
	if cfg.SMTPHost != "" && (cfg.MailFrom == "" || len(cfg.MailTo) == 0) {
		errs = append(errs, "MAIL_FROM and MAIL_TO must be set when SMTP_HOST is set")
	}

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/bordem.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
