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

	"github.com/robfig/cron/v3"
)

type Config struct {
	// Household served by single-household commands
	HouseholdID string

	// Storage
	DataBackend  string
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Cloud sync
	SyncBackend              string
	SyncConcurrency          int
	GoogleSpreadsheetID      string
	GoogleRecordsSheet       string
	GoogleLedgerSheet        string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	SheetsCacheTTL           time.Duration

	// AI categorization
	AIAPIKey            string
	AIBaseURL           string
	AIModel             string
	AICacheSize         int
	AICacheTTL          time.Duration
	AIRequestsPerMinute int

	// Scheduling and housekeeping
	RecurringSchedule    string
	CacheCleanupInterval time.Duration

	LogLevel string
}

var (
	dataBackends = []string{"memory", "sqlite"}
	syncBackends = []string{"none", "memory", "sheets"}
)

func Load() *Config {
	return &Config{
		HouseholdID: getEnv("HOUSEHOLD_ID", "default"),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/casalfinance.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "casalfinance"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "sync_records"),

		SyncBackend:              getEnv("SYNC_BACKEND", "none"),
		SyncConcurrency:          getEnvInt("SYNC_CONCURRENCY", 4),
		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleRecordsSheet:       getEnv("GOOGLE_RECORDS_SHEET", "Records"),
		GoogleLedgerSheet:        getEnv("GOOGLE_LEDGER_SHEET", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		SheetsCacheTTL:           getEnvDuration("SHEETS_CACHE_TTL", 2*time.Minute),

		AIAPIKey:            getEnv("AI_API_KEY", ""),
		AIBaseURL:           getEnv("AI_BASE_URL", ""),
		AIModel:             getEnv("AI_MODEL", "gpt-4o-mini"),
		AICacheSize:         getEnvInt("AI_CACHE_SIZE", 256),
		AICacheTTL:          getEnvDuration("AI_CACHE_TTL", time.Hour),
		AIRequestsPerMinute: getEnvInt("AI_REQUESTS_PER_MINUTE", 20),

		RecurringSchedule:    getEnv("RECURRING_SCHEDULE", "5 0 1 * *"),
		CacheCleanupInterval: getEnvDuration("CACHE_CLEANUP_INTERVAL", 5*time.Minute),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// AIEnabled reports whether categorization credentials are configured.
func (c *Config) AIEnabled() bool {
	return strings.TrimSpace(c.AIAPIKey) != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if strings.TrimSpace(c.HouseholdID) == "" {
		errors = append(errors, "household id cannot be empty")
	}

	if !slices.Contains(dataBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, dataBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
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

	if !slices.Contains(syncBackends, c.SyncBackend) {
		errors = append(errors, fmt.Sprintf("invalid sync backend '%s': must be one of %v", c.SyncBackend, syncBackends))
	}

	if c.SyncBackend == "sheets" {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets sync")
		}
		if c.GoogleRecordsSheet == "" {
			errors = append(errors, "Google records sheet name is required when using sheets sync")
		}
		hasFile := c.GoogleServiceAccountFile != ""
		if !hasFile && c.GoogleServiceAccountJSON == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for sheets sync")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.SyncConcurrency < 1 || c.SyncConcurrency > 32 {
		errors = append(errors, fmt.Sprintf("invalid sync concurrency %d: must be between 1 and 32", c.SyncConcurrency))
	}

	if c.AIEnabled() {
		if c.AIModel == "" {
			errors = append(errors, "AI model cannot be empty when AI_API_KEY is set")
		}
		if c.AIBaseURL != "" {
			if u, err := url.Parse(c.AIBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
				errors = append(errors, fmt.Sprintf("invalid AI base URL '%s': must be http or https", c.AIBaseURL))
			}
		}
		if c.AICacheSize < 1 {
			errors = append(errors, fmt.Sprintf("invalid AI cache size %d: must be at least 1", c.AICacheSize))
		}
		if c.AIRequestsPerMinute < 1 {
			errors = append(errors, fmt.Sprintf("invalid AI requests per minute %d: must be at least 1", c.AIRequestsPerMinute))
		}
	}

	if _, err := cron.ParseStandard(c.RecurringSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("invalid recurring schedule '%s': %v", c.RecurringSchedule, err))
	}

	if c.CacheCleanupInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache cleanup interval %v: must be at least 1 second", c.CacheCleanupInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
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
