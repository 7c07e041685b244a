package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	_ "modernc.org/sqlite"
)

// DefaultDSN keeps the cache in process memory.
const DefaultDSN = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS extraction_cache (
	set_key    TEXT PRIMARY KEY,
	records    TEXT NOT NULL,
	created_at TEXT NOT NULL
)`

// SQLiteStore is a Store in an SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLite opens (and migrates) the cache database at dsn.
func OpenSQLite(ctx context.Context, dsn string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dsn == "" {
		dsn = DefaultDSN
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	if strings.Contains(dsn, ":memory:") {
		// every new connection would see an empty database
		db.SetMaxOpenConns(1)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}
	logger.Info("cache.sqlite.opened", "dsn", dsn)
	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]entity.FieldRecord, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT records FROM extraction_cache WHERE set_key = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cache: %w", err)
	}
	var recs []entity.FieldRecord
	if err := json.Unmarshal([]byte(payload), &recs); err != nil {
		s.logger.Warn("cache.sqlite.corrupt", "key", key, "error", err)
		return nil, false, nil
	}
	return recs, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string, records []entity.FieldRecord) error {
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO extraction_cache (set_key, records, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(set_key) DO UPDATE SET records = excluded.records, created_at = excluded.created_at`,
		key, string(payload), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Invalidate(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM extraction_cache WHERE set_key = ?`, key); err != nil {
		return fmt.Errorf("invalidate cache: %w", err)
	}
	return nil
}
