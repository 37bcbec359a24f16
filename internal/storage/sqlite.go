package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps every record in a single table keyed by household and
// record key.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, household, key string) ([]byte, bool, error) {
	if err := checkScope(household, key); err != nil {
		return nil, false, err
	}
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM records WHERE household = ? AND record_key = ?`,
		household, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get record %s: %w", key, err)
	}
	return []byte(value), true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, household, key string, value []byte) (int64, error) {
	if err := checkScope(household, key); err != nil {
		return 0, err
	}
	var version int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO records (household, record_key, value, version, updated_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT (household, record_key) DO UPDATE SET
			value = excluded.value,
			version = records.version + 1,
			updated_at = excluded.updated_at
		RETURNING version`,
		household, key, string(value), time.Now().UTC()).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("set record %s: %w", key, err)
	}

	slog.DebugContext(ctx, "Record saved to SQLite",
		"household", household,
		"key", key,
		"version", version,
		"bytes", len(value))

	return version, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, household, key string) error {
	if err := checkScope(household, key); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM records WHERE household = ? AND record_key = ?`, household, key); err != nil {
		return fmt.Errorf("delete record %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, household string) ([]string, error) {
	if household == "" {
		return nil, ErrEmptyHousehold
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT record_key FROM records WHERE household = ? ORDER BY record_key`, household)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

func (s *SQLiteStore) Households(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT household FROM records ORDER BY household`)
	if err != nil {
		return nil, fmt.Errorf("list households: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}
