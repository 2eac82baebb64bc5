package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/glabrego/newsbox-cli/internal/timeline"
)

const cacheKey = "timeline"

// Repository persists the timeline cache envelope as a JSON payload in a
// single-row sqlite key-value table. The envelope in memory stays the
// source of truth; persistence is best effort.
type Repository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewRepository(path string, logger *slog.Logger) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: db, logger: logger}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Repository) Init(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS timeline_cache (
  key TEXT PRIMARY KEY,
  payload TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// CheckWritable verifies the database accepts writes before the TUI starts,
// so a read-only cache file fails fast instead of mid-session.
func (r *Repository) CheckWritable(ctx context.Context) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := r.db.ExecContext(ctx, `
INSERT INTO timeline_cache (key, payload, updated_at) VALUES ('write_check', '{}', ?)
ON CONFLICT(key) DO UPDATE SET updated_at=excluded.updated_at
`, now)
	if err != nil {
		return fmt.Errorf("write check: %w", err)
	}
	return nil
}

// Load reads the persisted envelope. A missing row, unreadable payload, or
// payload without the expected shape all degrade to an empty envelope; a
// stale or corrupt cache is never a fatal condition.
func (r *Repository) Load(ctx context.Context) timeline.CacheEnvelope {
	var payload string
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM timeline_cache WHERE key = ?`, cacheKey).Scan(&payload)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			r.logger.Warn("could not read timeline cache, starting empty", "error", err)
		}
		return timeline.NewCacheEnvelope()
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		r.logger.Warn("timeline cache payload is corrupt, starting empty", "error", err)
		return timeline.NewCacheEnvelope()
	}
	for _, key := range []string{"folders", "pendingReadIds", "pendingSkipFolderIds"} {
		if _, ok := raw[key]; !ok {
			r.logger.Warn("timeline cache payload has unexpected shape, starting empty", "missing", key)
			return timeline.NewCacheEnvelope()
		}
	}

	var envelope timeline.CacheEnvelope
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		r.logger.Warn("timeline cache payload does not decode, starting empty", "error", err)
		return timeline.NewCacheEnvelope()
	}
	return envelope.Normalize()
}

// Store serializes and upserts the full envelope. Callers treat a failure
// as log-and-continue; the in-memory envelope remains authoritative.
func (r *Repository) Store(ctx context.Context, envelope timeline.CacheEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encode timeline cache: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = r.db.ExecContext(ctx, `
INSERT INTO timeline_cache (key, payload, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
  payload=excluded.payload,
  updated_at=excluded.updated_at
`, cacheKey, string(payload), now)
	if err != nil {
		return fmt.Errorf("write timeline cache: %w", err)
	}
	return nil
}
