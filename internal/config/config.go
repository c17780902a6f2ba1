package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"billdesk/internal/core"
	"billdesk/internal/services"
)

type Config struct {
	// HTTP Server
	Port string

	// Logging
	LogLevel  string
	LogFormat string

	// Backend API
	APIBaseURL  string
	APITimeout  time.Duration
	APIEmail    string
	APIPassword string

	// Display
	Locale        string
	Currency      string
	ProductSchema string

	// Local state
	SessionBackend   string
	SQLiteDBPath     string
	JournalRetention time.Duration

	// Report export
	ExportBackend            string
	GoogleSpreadsheetID      string
	GoogleReportSheet        string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Scheduler
	RefreshInterval time.Duration
	SweepInterval   time.Duration
	SweepPolicy     string
	SweepGraceDays  int
	SweepDryRun     bool

	// Dashboard
	CacheTTL          time.Duration
	CacheSize         int
	RecentPaymentDays int
}

func Load() *Config {
	cfg := &Config{
		Port:      getEnv("PORT", "8081"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		APIBaseURL:  getEnv("API_BASE_URL", "http://localhost:3000"),
		APITimeout:  getEnvDuration("API_TIMEOUT", 30*time.Second),
		APIEmail:    getEnv("API_EMAIL", ""),
		APIPassword: getEnv("API_PASSWORD", ""),

		Locale:        getEnv("LOCALE", "en-US"),
		Currency:      getEnv("CURRENCY", "USD"),
		ProductSchema: getEnv("PRODUCT_SCHEMA", "upper"),

		SessionBackend:   getEnv("SESSION_BACKEND", "sqlite"),
		SQLiteDBPath:     getEnv("SQLITE_DB_PATH", "./data/billdesk.db"),
		JournalRetention: getEnvDuration("JOURNAL_RETENTION", 30*24*time.Hour),

		ExportBackend:            getEnv("EXPORT_BACKEND", "memory"),
		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleReportSheet:        getEnv("GOOGLE_REPORT_SHEET", "Billing"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "billdesk"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "billdesk_changes"),

		RefreshInterval: getEnvDuration("REFRESH_INTERVAL", 5*time.Minute),
		SweepInterval:   getEnvDuration("SWEEP_INTERVAL", time.Hour),
		SweepPolicy:     getEnv("SWEEP_POLICY", services.PolicyStrict),
		SweepGraceDays:  getEnvInt("SWEEP_GRACE_DAYS", 0),
		SweepDryRun:     getEnvBool("SWEEP_DRY_RUN", false),

		CacheTTL:          getEnvDuration("CACHE_TTL", 2*time.Minute),
		CacheSize:         getEnvInt("CACHE_SIZE", 16),
		RecentPaymentDays: getEnvInt("RECENT_PAYMENT_DAYS", 30),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate backend API
	if parsedURL, err := url.Parse(c.APIBaseURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid API base URL '%s': %v", c.APIBaseURL, err))
	} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid API base URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
	}
	if c.APITimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid API timeout %v: must be positive", c.APITimeout))
	}

	// Validate display settings
	if _, err := core.NewFormatter(c.Locale, c.Currency); err != nil {
		errors = append(errors, fmt.Sprintf("invalid locale or currency: %v", err))
	}
	if _, err := core.ProductSchemaByName(c.ProductSchema); err != nil {
		errors = append(errors, fmt.Sprintf("invalid product schema '%s': must be 'upper' or 'lower'", c.ProductSchema))
	}

	// Validate session backend
	validSessionBackends := []string{"memory", "sqlite"}
	if !slices.Contains(validSessionBackends, c.SessionBackend) {
		errors = append(errors, fmt.Sprintf("invalid session backend '%s': must be one of %v", c.SessionBackend, validSessionBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.SessionBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// Validate export backend
	validExportBackends := []string{"memory", "sheets"}
	if !slices.Contains(validExportBackends, c.ExportBackend) {
		errors = append(errors, fmt.Sprintf("invalid export backend '%s': must be one of %v", c.ExportBackend, validExportBackends))
	}

	// Validate Google Sheets configuration if export goes to sheets
	if c.ExportBackend == "sheets" {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets export")
		}
		if c.GoogleReportSheet == "" {
			errors = append(errors, "Google report sheet name is required when using sheets export")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for sheets export")
		}
		if c.GoogleServiceAccountFile != "" && c.GoogleServiceAccountJSON == "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate scheduler configuration
	errors = append(errors, validateInterval("refresh", c.RefreshInterval)...)
	errors = append(errors, validateInterval("sweep", c.SweepInterval)...)
	if _, err := services.GetOverdueChecker(c.SweepPolicy, c.SweepGraceDays); err != nil {
		errors = append(errors, fmt.Sprintf("invalid sweep policy: %v", err))
	}

	// Validate dashboard configuration
	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}
	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}
	if c.RecentPaymentDays < 1 {
		errors = append(errors, fmt.Sprintf("invalid recent payment window %d: must be at least 1 day", c.RecentPaymentDays))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// HasCredentials reports whether a backend login can be attempted unattended.
func (c *Config) HasCredentials() bool {
	return c.APIEmail != "" && c.APIPassword != ""
}

func validateInterval(name string, d time.Duration) []string {
	if d < time.Second {
		return []string{fmt.Sprintf("invalid %s interval %v: must be at least 1 second", name, d)}
	}
	if d > 24*time.Hour {
		return []string{fmt.Sprintf("invalid %s interval %v: must be at most 24 hours", name, d)}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
