package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	BackupApp     = "CasalFinancas"
	BackupVersion = "2.0"
)

var ErrInvalidBackup = errors.New("invalid or incompatible backup")

// BackupMeta identifies a backup document.
type BackupMeta struct {
	App        string    `json:"app"`
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exportedAt"`
}

// Export collects every stored record of a household into one JSON document:
// a "meta" object plus one top-level field per record key. Records that fail
// to parse are left out.
func Export(ctx context.Context, s Store, household string, now time.Time) ([]byte, error) {
	doc := map[string]json.RawMessage{}
	meta, err := json.Marshal(BackupMeta{App: BackupApp, Version: BackupVersion, ExportedAt: now.UTC()})
	if err != nil {
		return nil, fmt.Errorf("encode backup meta: %w", err)
	}
	doc["meta"] = meta

	for _, key := range Keys {
		raw, ok, err := s.Get(ctx, household, key)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", key, err)
		}
		if !ok {
			continue
		}
		if !json.Valid(raw) {
			slog.WarnContext(ctx, "Skipping unparsable record in backup",
				"household", household,
				"key", key)
			continue
		}
		doc[key] = raw
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}
	return out, nil
}

// Import replaces all records of a household with those in a backup
// document. The document is validated before anything is removed; unknown
// top-level fields are ignored.
func Import(ctx context.Context, s Store, household string, data []byte) (int, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	rawMeta, ok := doc["meta"]
	if !ok {
		return 0, fmt.Errorf("%w: missing meta", ErrInvalidBackup)
	}
	var meta BackupMeta
	if err := json.Unmarshal(rawMeta, &meta); err != nil || meta.App != BackupApp {
		return 0, fmt.Errorf("%w: app %q", ErrInvalidBackup, meta.App)
	}

	if err := Reset(ctx, s, household); err != nil {
		return 0, err
	}

	restored := 0
	for _, key := range Keys {
		raw, ok := doc[key]
		if !ok {
			continue
		}
		if _, err := s.Set(ctx, household, key, raw); err != nil {
			return restored, fmt.Errorf("restore %s: %w", key, err)
		}
		restored++
	}

	slog.InfoContext(ctx, "Backup restored",
		"household", household,
		"records", restored,
		"exported_at", meta.ExportedAt)

	return restored, nil
}

// Reset removes every record of a household.
func Reset(ctx context.Context, s Store, household string) error {
	for _, key := range Keys {
		if err := s.Delete(ctx, household, key); err != nil {
			return fmt.Errorf("reset %s: %w", key, err)
		}
	}
	return nil
}
