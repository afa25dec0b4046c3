package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key           TEXT PRIMARY KEY,
	payload       BLOB NOT NULL,
	stored_at     INTEGER NOT NULL,
	ttl_seconds   REAL NOT NULL,
	hit_count     INTEGER NOT NULL DEFAULT 0,
	last_accessed INTEGER NOT NULL
)`

// SQLiteStore keeps one row per key. Timestamps are unix nanoseconds.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}
	// a single connection keeps writers serialized and avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Name() string {
	return "sqlite"
}

func (s *SQLiteStore) Load(ctx context.Context, key string) (Record, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT payload, stored_at, ttl_seconds, hit_count, last_accessed FROM cache_entries WHERE key = ?`,
		key,
	)

	var (
		payload      []byte
		storedAt     int64
		ttlSeconds   float64
		hitCount     int64
		lastAccessed int64
	)
	err := row.Scan(&payload, &storedAt, &ttlSeconds, &hitCount, &lastAccessed)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	if len(payload) == 0 || storedAt == 0 {
		return Record{}, true, fmt.Errorf("%w: %s: missing fields", ErrCorruptRecord, key)
	}

	return Record{
		Key:          key,
		Payload:      payload,
		StoredAt:     time.Unix(0, storedAt),
		TTL:          secondsToDuration(ttlSeconds),
		HitCount:     hitCount,
		LastAccessed: time.Unix(0, lastAccessed),
	}, true, nil
}

func (s *SQLiteStore) Save(ctx context.Context, record Record) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO cache_entries (key, payload, stored_at, ttl_seconds, hit_count, last_accessed)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
	payload = excluded.payload,
	stored_at = excluded.stored_at,
	ttl_seconds = excluded.ttl_seconds,
	hit_count = excluded.hit_count,
	last_accessed = excluded.last_accessed`,
		record.Key,
		record.Payload,
		record.StoredAt.UnixNano(),
		record.TTL.Seconds(),
		record.HitCount,
		record.LastAccessed.UnixNano(),
	)
	return err
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key)
	return err
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries`)
	return err
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cache_entries`).Scan(&n)
	return n, err
}

// PurgeExpired deletes rows whose TTL elapsed before now.
func (s *SQLiteStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE stored_at + CAST(ttl_seconds * 1e9 AS INTEGER) < ?`,
		now.UnixNano(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
