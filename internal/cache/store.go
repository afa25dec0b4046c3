package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Store is the persistent tier. Save replaces the whole record for a key in
// one write; Load reports a record it cannot decode with ErrCorruptRecord.
type Store interface {
	Name() string
	Load(ctx context.Context, key string) (Record, bool, error)
	Save(ctx context.Context, record Record) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int, error)
	Close() error
}

var (
	_ Store = (*BoltStore)(nil)
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*RedisStore)(nil)
)

// recordEnvelope is the value layout for key-value stores.
type recordEnvelope struct {
	Payload      json.RawMessage `json:"payload"`
	StoredAt     time.Time       `json:"storedAt"`
	TTLSeconds   float64         `json:"ttlSeconds"`
	HitCount     int64           `json:"hitCount"`
	LastAccessed time.Time       `json:"lastAccessed"`
}

func encodeRecord(record Record) ([]byte, error) {
	return json.Marshal(recordEnvelope{
		Payload:      record.Payload,
		StoredAt:     record.StoredAt,
		TTLSeconds:   record.TTL.Seconds(),
		HitCount:     record.HitCount,
		LastAccessed: record.LastAccessed,
	})
}

func decodeRecord(key string, data []byte) (Record, error) {
	var envelope recordEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return Record{}, fmt.Errorf("%w: %s: %v", ErrCorruptRecord, key, err)
	}
	if len(envelope.Payload) == 0 || envelope.StoredAt.IsZero() {
		return Record{}, fmt.Errorf("%w: %s: missing fields", ErrCorruptRecord, key)
	}
	return Record{
		Key:          key,
		Payload:      envelope.Payload,
		StoredAt:     envelope.StoredAt,
		TTL:          secondsToDuration(envelope.TTLSeconds),
		HitCount:     envelope.HitCount,
		LastAccessed: envelope.LastAccessed,
	}, nil
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
