// Package storage persists household records as JSON documents under
// well-known keys, one document per key and household.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// Record keys. Each holds one JSON document per household.
const (
	KeyExpenses = "cf_expenses"
	KeyCards    = "cf_cards"
	KeyAccounts = "cf_accounts"
	KeyIncomeA  = "cf_incomeA"
	KeyIncomeB  = "cf_incomeB"
	KeyProfileA = "cf_profileA"
	KeyProfileB = "cf_profileB"
	KeyGoals    = "cf_goals"
	KeyDarkMode = "cf_darkmode"
)

// Keys lists every record key in backup order.
var Keys = []string{
	KeyExpenses,
	KeyCards,
	KeyAccounts,
	KeyIncomeA,
	KeyIncomeB,
	KeyProfileA,
	KeyProfileB,
	KeyGoals,
	KeyDarkMode,
}

var (
	ErrEmptyHousehold = errors.New("household id is required")
	ErrUnknownKey     = errors.New("unknown record key")
)

// Store is a key/value document store scoped by household. No atomicity is
// assumed across keys.
type Store interface {
	// Get returns the stored document and whether it exists.
	Get(ctx context.Context, household, key string) ([]byte, bool, error)
	// Set replaces the document and returns its new version.
	Set(ctx context.Context, household, key string, value []byte) (int64, error)
	Delete(ctx context.Context, household, key string) error
	// List returns the keys stored for a household.
	List(ctx context.Context, household string) ([]string, error)
	Households(ctx context.Context) ([]string, error)
	Close() error
}

// KnownKey reports whether key is one of the record keys.
func KnownKey(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}

func checkScope(household, key string) error {
	if household == "" {
		return ErrEmptyHousehold
	}
	if !KnownKey(key) {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return nil
}

// Load decodes the document at key into a T. An absent or unparsable
// document yields fallback; only store failures are returned as errors.
func Load[T any](ctx context.Context, s Store, household, key string, fallback T) (T, error) {
	raw, ok, err := s.Get(ctx, household, key)
	if err != nil {
		return fallback, fmt.Errorf("load %s: %w", key, err)
	}
	if !ok {
		return fallback, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		slog.WarnContext(ctx, "Discarding corrupt stored record",
			"household", household,
			"key", key,
			"error", err)
		return fallback, nil
	}
	return v, nil
}

// Save encodes v and stores it at key, returning the new version.
func Save[T any](ctx context.Context, s Store, household, key string, v T) (int64, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", key, err)
	}
	version, err := s.Set(ctx, household, key, raw)
	if err != nil {
		return 0, fmt.Errorf("save %s: %w", key, err)
	}
	return version, nil
}
