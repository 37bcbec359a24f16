package backend

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"casalfinance/internal/config"
)

func quietFactory() Factory {
	return NewFactory(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		errorString string
	}{
		{
			name:   "memory store",
			config: Config{Type: MemoryBackend},
		},
		{
			name:        "unknown store",
			config:      Config{Type: "postgres"},
			errorString: "invalid backend type",
		},
		{
			name:        "sqlite without path",
			config:      Config{Type: SQLiteBackend},
			errorString: "SQLite database path is required",
		},
		{
			name:        "unknown sync",
			config:      Config{Type: MemoryBackend, Sync: "dropbox"},
			errorString: "invalid sync type",
		},
		{
			name:        "sheets without spreadsheet",
			config:      Config{Type: MemoryBackend, Sync: SyncSheets},
			errorString: "Google Spreadsheet ID is required",
		},
		{
			name:        "sheets without credentials",
			config:      Config{Type: MemoryBackend, Sync: SyncSheets, GoogleSpreadsheetID: "sheet"},
			errorString: "GoogleServiceAccountJSON or GoogleServiceAccountFile",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.errorString == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errorString) {
				t.Errorf("expected error containing %q, got %v", tt.errorString, err)
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}

	app := &config.Config{
		HouseholdID:         "home",
		DataBackend:         "memory",
		SyncBackend:         "memory",
		AIAPIKey:            "sk-test",
		AICacheSize:         16,
		AIRequestsPerMinute: 5,
	}
	cfg, err := FromAppConfig(app)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != MemoryBackend || cfg.Sync != SyncMemory || cfg.HouseholdID != "home" {
		t.Errorf("unexpected backend config %+v", cfg)
	}
	if cfg.AICacheSize != 16 || cfg.AIRequestsPerMinute != 5 {
		t.Errorf("AI settings not carried over: %+v", cfg)
	}

	app.SyncBackend = "ftp"
	if _, err := FromAppConfig(app); err == nil {
		t.Error("expected error for invalid sync backend")
	}
}

func TestCreateBackend_Memory(t *testing.T) {
	ctx := context.Background()
	result, err := quietFactory().CreateBackend(ctx, Config{Type: MemoryBackend, HouseholdID: "home"})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer result.Cleanup()

	if result.Store == nil || result.Caches == nil {
		t.Fatal("store and cache manager are always built")
	}
	if result.Syncer != nil || result.AMQP != nil || result.Classifier != nil {
		t.Errorf("optional collaborators should be nil: %+v", result)
	}
	if result.Publisher() != nil {
		t.Error("Publisher must be a nil interface without AMQP")
	}

	h := result.Household("home")
	if err := h.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if h.ID() != "home" {
		t.Errorf("unexpected household %q", h.ID())
	}
}

func TestCreateBackend_OptionalCollaborators(t *testing.T) {
	ctx := context.Background()
	result, err := quietFactory().CreateBackend(ctx, Config{
		Type:                MemoryBackend,
		HouseholdID:         "home",
		Sync:                SyncMemory,
		AIAPIKey:            "sk-test",
		AIModel:             "gpt-4o-mini",
		AICacheSize:         8,
		AICacheTTL:          time.Minute,
		AIRequestsPerMinute: 10,
	})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer result.Cleanup()

	if result.Syncer == nil {
		t.Error("memory sync should be configured")
	}
	if result.Classifier == nil {
		t.Error("classifier should be configured when a key is set")
	}
	if n := result.Caches.Sweep(ctx); n != 0 {
		t.Errorf("fresh caches should have nothing to expire, got %d", n)
	}
}

func TestCreateBackend_SQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	result, err := quietFactory().CreateBackend(context.Background(), Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: dbPath,
	})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}

	ctx := context.Background()
	if _, err := result.Store.Set(ctx, "home", "cf_goals", []byte(`[]`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := result.Cleanup(); err != nil {
		t.Errorf("Cleanup: %v", err)
	}
}

func TestCreateBackend_InvalidConfig(t *testing.T) {
	if _, err := quietFactory().CreateBackend(context.Background(), Config{Type: "postgres"}); err == nil {
		t.Error("expected error for invalid backend type")
	}
}

func TestGetBackendTypeStrings(t *testing.T) {
	got := GetBackendTypeStrings()
	if len(got) != 2 || got[0] != "sqlite" || got[1] != "memory" {
		t.Errorf("unexpected backend types %v", got)
	}
}
