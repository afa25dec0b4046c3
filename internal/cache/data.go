package cache

import (
	"time"

	"github.com/rohmanhakim/fetchkit/internal/fetcher"
)

type Strategy string

const (
	StrategyNone   Strategy = "none"
	StrategyMemory Strategy = "memory"
	StrategyDisk   Strategy = "disk"
	StrategyHybrid Strategy = "hybrid"
)

// Tier selects which cache layer an operation targets.
type Tier string

const (
	TierMemory     Tier = "memory"
	TierPersistent Tier = "persistent"
	TierAll        Tier = "all"
)

const DefaultMemoryCapacity = 100

// CachedContent is one cached fetch result and its bookkeeping.
type CachedContent struct {
	Key          string
	Payload      fetcher.FetchResult
	StoredAt     time.Time
	TTL          time.Duration
	HitCount     int64
	LastAccessed time.Time
}

// Expired reports whether the entry must no longer be served at now.
func (c CachedContent) Expired(now time.Time) bool {
	return now.Sub(c.StoredAt) > c.TTL
}

// Record is the persistent form of CachedContent. Payload holds the
// serialized fetch result.
type Record struct {
	Key          string
	Payload      []byte
	StoredAt     time.Time
	TTL          time.Duration
	HitCount     int64
	LastAccessed time.Time
}

type Stats struct {
	Strategy          Strategy
	MemoryEntries     int
	MemoryCapacity    int
	PersistentEntries int
	// SizeEstimate is the approximate payload size in bytes of the
	// memory tier.
	SizeEstimate int64
	Hits         int64
	Misses       int64
	Evictions    int64
}

// EntryCount is the number of entries held by both tiers. An entry present
// in both tiers counts twice.
func (s Stats) EntryCount() int {
	return s.MemoryEntries + s.PersistentEntries
}
