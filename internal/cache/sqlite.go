package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/odclab/dcmon/internal/lib/logger/sl"
)

type SQLiteStore struct {
	log *slog.Logger
	db  *sql.DB
}

func NewSQLiteStore(log *slog.Logger, dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{
		log: log,
		db:  db,
	}

	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	query := `
		CREATE TABLE IF NOT EXISTS snapshots (
			key TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_snapshots_updated_at ON snapshots(updated_at);
	`
	_, err := s.db.Exec(query)
	return err
}

func (s *SQLiteStore) Put(ctx context.Context, key string, data []byte) error {
	query := `
		INSERT INTO snapshots (key, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		key,
		string(data),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}

	s.log.Debug("snapshot stored", slog.String("key", key), slog.Int("bytes", len(data)))
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, time.Time, error) {
	var (
		data      string
		updatedAt string
	)

	query := "SELECT data, updated_at FROM snapshots WHERE key = ?"
	err := s.db.QueryRowContext(ctx, query, key).Scan(&data, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, ErrMiss
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to query snapshot: %w", err)
	}

	at, err := time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		s.log.Error("failed to parse snapshot timestamp", sl.Err(err))
		at = time.Time{}
	}

	return []byte(data), at, nil
}

// Cleanup drops snapshots older than maxAge.
func (s *SQLiteStore) Cleanup(ctx context.Context, maxAge time.Duration) error {
	cutoff := time.Now().UTC().Add(-maxAge).Format(time.RFC3339)

	result, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE updated_at < ?", cutoff)
	if err != nil {
		return fmt.Errorf("failed to cleanup old snapshots: %w", err)
	}

	deleted, _ := result.RowsAffected()
	if deleted > 0 {
		s.log.Info("cleaned up old snapshots", slog.Int64("deleted", deleted))
	}

	return nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM snapshots").Scan(&count)
	return count, err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
