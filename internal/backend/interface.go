package backend

import (
	"context"
	"time"

	"casalfinance/internal/amqp"
	"casalfinance/internal/cache"
	"casalfinance/internal/categorize"
	"casalfinance/internal/services"
	"casalfinance/internal/sheets"
	"casalfinance/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult holds the collaborators built from configuration. Optional
// collaborators are nil when not configured.
type BackendResult struct {
	Store      storage.Store
	Syncer     sheets.Syncer
	AMQP       *amqp.Client
	Classifier categorize.Classifier
	Caches     *cache.Manager
	Cleanup    CleanupFunc
}

// Publisher returns the AMQP client as a services.Publisher, or nil.
func (r *BackendResult) Publisher() services.Publisher {
	if r.AMQP == nil {
		return nil
	}
	return r.AMQP
}

// Household opens the session of one household on the configured store.
func (r *BackendResult) Household(id string) *services.Household {
	var opts []services.Option
	if p := r.Publisher(); p != nil {
		opts = append(opts, services.WithPublisher(p))
	}
	return services.NewHousehold(id, r.Store, opts...)
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type        BackendType
	HouseholdID string

	// SQLite specific
	SQLiteDBPath string

	// AMQP, optional
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Cloud sync
	Sync                     SyncType
	GoogleSpreadsheetID      string
	GoogleRecordsSheet       string
	GoogleLedgerSheet        string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	SheetsCacheTTL           time.Duration

	// AI categorization, enabled by a non-empty key
	AIAPIKey            string
	AIBaseURL           string
	AIModel             string
	AICacheSize         int
	AICacheTTL          time.Duration
	AIRequestsPerMinute int
}

// BackendType selects the record store.
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// SyncType selects the cloud sync backend.
type SyncType string

const (
	SyncNone   SyncType = "none"
	SyncMemory SyncType = "memory"
	SyncSheets SyncType = "sheets"
)

func (st SyncType) IsValid() bool {
	switch st {
	case SyncNone, SyncMemory, SyncSheets:
		return true
	default:
		return false
	}
}
