package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var resultsBucket = []byte("results")

// BoltStore keeps records in a single bbolt file. bbolt serializes writers,
// so every Save is one atomic transaction.
type BoltStore struct {
	path string
	db   *bolt.DB
}

func OpenBoltStore(path string) (*BoltStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory for bolt store: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(resultsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &BoltStore{path: path, db: db}, nil
}

func (s *BoltStore) Name() string {
	return "bolt"
}

func (s *BoltStore) Load(ctx context.Context, key string) (Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, false, err
	}

	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(resultsBucket).Get([]byte(key)); v != nil {
			// v is only valid inside the transaction
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return Record{}, false, err
	}
	if data == nil {
		return Record{}, false, nil
	}

	record, err := decodeRecord(key, data)
	if err != nil {
		return Record{}, true, err
	}
	return record, true, nil
}

func (s *BoltStore) Save(ctx context.Context, record Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encodeRecord(record)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(resultsBucket).Put([]byte(record.Key), data)
	})
}

func (s *BoltStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(resultsBucket).Delete([]byte(key))
	})
}

func (s *BoltStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(resultsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(resultsBucket)
		return err
	})
}

func (s *BoltStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(resultsBucket).Stats().KeyN
		return nil
	})
	return n, err
}

// PurgeExpired deletes records whose TTL elapsed before now, along with
// records that no longer decode.
func (s *BoltStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var purged int64
	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(resultsBucket)
		var stale [][]byte
		err := bucket.ForEach(func(k, v []byte) error {
			record, err := decodeRecord(string(k), v)
			if err != nil || now.Sub(record.StoredAt) > record.TTL {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		purged = int64(len(stale))
		return nil
	})
	return purged, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
