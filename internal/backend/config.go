package backend

import (
	"fmt"

	"casalfinance/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}
	syncType := SyncType(appConfig.SyncBackend)
	if !syncType.IsValid() {
		return Config{}, fmt.Errorf("invalid sync type in config: %s", appConfig.SyncBackend)
	}

	return Config{
		Type:         backendType,
		HouseholdID:  appConfig.HouseholdID,
		SQLiteDBPath: appConfig.SQLiteDBPath,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		Sync:                     syncType,
		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleRecordsSheet:       appConfig.GoogleRecordsSheet,
		GoogleLedgerSheet:        appConfig.GoogleLedgerSheet,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
		SheetsCacheTTL:           appConfig.SheetsCacheTTL,

		AIAPIKey:            appConfig.AIAPIKey,
		AIBaseURL:           appConfig.AIBaseURL,
		AIModel:             appConfig.AIModel,
		AICacheSize:         appConfig.AICacheSize,
		AICacheTTL:          appConfig.AICacheTTL,
		AIRequestsPerMinute: appConfig.AIRequestsPerMinute,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}

	sync := c.Sync
	if sync == "" {
		sync = SyncNone
	}
	if !sync.IsValid() {
		return fmt.Errorf("invalid sync type: %s", c.Sync)
	}
	if sync == SyncSheets {
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets sync")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			return fmt.Errorf("either GoogleServiceAccountJSON or GoogleServiceAccountFile must be provided for sheets sync")
		}
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{SQLiteBackend, MemoryBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
