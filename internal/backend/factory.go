package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"casalfinance/internal/amqp"
	"casalfinance/internal/cache"
	"casalfinance/internal/categorize"
	"casalfinance/internal/ratelimit"
	"casalfinance/internal/sheets"
	gsheet "casalfinance/internal/sheets/google"
	"casalfinance/internal/sheets/memory"
	"casalfinance/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend builds the store and every configured optional collaborator.
// Optional collaborators that fail to initialize are logged and left nil.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := f.createStore(config)
	if err != nil {
		return nil, err
	}

	result := &BackendResult{
		Store:  store,
		Caches: cache.NewManager(),
	}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without sync", "error", err)
		} else {
			result.AMQP = client
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	syncer, err := f.createSyncer(ctx, config)
	if err != nil {
		f.logger.Warn("Failed to initialize sync backend, continuing without cloud sync", "error", err)
	}
	result.Syncer = syncer

	if config.AIAPIKey != "" {
		result.Classifier = f.createClassifier(config, result.Caches)
	}

	result.Cleanup = func() error {
		var errs []error
		if result.AMQP != nil {
			if err := result.AMQP.Close(); err != nil {
				errs = append(errs, fmt.Errorf("amqp: %w", err))
			}
		}
		if err := store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
		return errors.Join(errs...)
	}

	f.logger.Info("Initialized backend",
		"store", config.Type,
		"sync", result.Syncer != nil,
		"amqp_enabled", result.AMQP != nil,
		"ai_enabled", result.Classifier != nil)
	return result, nil
}

func (f *DefaultFactory) createStore(config Config) (storage.Store, error) {
	switch config.Type {
	case SQLiteBackend:
		store, err := storage.NewSQLiteStore(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		f.logger.Info("Initialized SQLite store", "db_path", config.SQLiteDBPath)
		return store, nil
	case MemoryBackend:
		f.logger.Info("Initialized memory store")
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSyncer(ctx context.Context, config Config) (sheets.Syncer, error) {
	switch config.Sync {
	case SyncSheets:
		cli, err := gsheet.New(ctx, gsheet.Options{
			SpreadsheetID:   config.GoogleSpreadsheetID,
			RecordsSheet:    config.GoogleRecordsSheet,
			LedgerSheet:     config.GoogleLedgerSheet,
			CredentialsJSON: config.GoogleServiceAccountJSON,
			CredentialsFile: config.GoogleServiceAccountFile,
			CacheTTL:        config.SheetsCacheTTL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		f.logger.Info("Initialized Google Sheets sync", "records_sheet", config.GoogleRecordsSheet)
		return cli, nil
	case SyncMemory:
		f.logger.Info("Initialized in-memory sync")
		return memory.New(), nil
	default:
		return nil, nil
	}
}

func (f *DefaultFactory) createClassifier(config Config, caches *cache.Manager) categorize.Classifier {
	var classifier categorize.Classifier = categorize.NewOpenAIClassifier(config.AIAPIKey, config.AIBaseURL, config.AIModel)

	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: config.AIRequestsPerMinute})
	caches.Register("ai_rate_limit", limiter)
	classifier = categorize.NewLimitedClassifier(classifier, limiter, config.HouseholdID)

	// Cache hits do not count against the rate limit
	if config.AICacheSize > 0 {
		ttl := config.AICacheTTL
		if ttl <= 0 {
			ttl = time.Hour
		}
		lru := cache.NewLRUCache[categorize.Suggestion](config.AICacheSize, ttl)
		caches.Register("suggestions", lru)
		classifier = categorize.NewCachedClassifier(classifier, lru)
	}
	f.logger.Info("Initialized AI categorization", "model", config.AIModel, "cache_size", config.AICacheSize)
	return classifier
}
