package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rohmanhakim/fetchkit/internal/fetcher"
	"github.com/rohmanhakim/fetchkit/internal/metadata"
)

/*
Responsibilities
- Serve fetch results that are still fresh
- Keep the memory tier bounded (LRU)
- Persist results across runs when a Store is configured
- Purge expired and corrupt entries lazily, on read

Caching is advisory: every failure inside the manager is recorded and
reported as a miss, never surfaced to the fetch path.
*/
type Manager struct {
	strategy     Strategy
	policy       tierPolicy
	memory       *memoryTier
	store        Store
	defaultTTL   time.Duration
	metadataSink metadata.MetadataSink
	now          func() time.Time

	// keyLocks serialize read-modify-write of one persistent key.
	keyLocks [64]sync.Mutex

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

type ManagerParam struct {
	Strategy       Strategy
	MemoryCapacity int
	// Store is required by the disk and hybrid strategies.
	Store        Store
	DefaultTTL   time.Duration
	MetadataSink metadata.MetadataSink
	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

// tierPolicy is the per-strategy lookup and write path, chosen once in
// NewManager.
type tierPolicy interface {
	get(ctx context.Context, m *Manager, key string) (CachedContent, bool)
	put(ctx context.Context, m *Manager, content CachedContent, payload []byte) error
}

func NewManager(param ManagerParam) (*Manager, error) {
	m := &Manager{
		strategy:     param.Strategy,
		store:        param.Store,
		defaultTTL:   param.DefaultTTL,
		metadataSink: param.MetadataSink,
		now:          param.Clock,
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.metadataSink == nil {
		m.metadataSink = &metadata.NoopSink{}
	}
	if m.defaultTTL <= 0 {
		m.defaultTTL = time.Hour
	}

	switch param.Strategy {
	case StrategyNone:
		m.policy = noCache{}
	case StrategyMemory:
		m.memory = newMemoryTier(param.MemoryCapacity)
		m.policy = memoryOnly{}
	case StrategyDisk:
		if param.Store == nil {
			return nil, &CacheError{Message: "disk strategy needs a store", Cause: ErrCauseStoreUnavailable}
		}
		m.policy = diskOnly{}
	case StrategyHybrid:
		if param.Store == nil {
			return nil, &CacheError{Message: "hybrid strategy needs a store", Cause: ErrCauseStoreUnavailable}
		}
		m.memory = newMemoryTier(param.MemoryCapacity)
		m.policy = hybrid{}
	default:
		return nil, &CacheError{
			Message: fmt.Sprintf("strategy %q", param.Strategy),
			Cause:   ErrCauseUnknownStrategy,
		}
	}
	return m, nil
}

func (m *Manager) Strategy() Strategy {
	return m.strategy
}

// Get returns the cached entry for key. Expired, corrupt and unreadable
// entries are reported as a miss.
func (m *Manager) Get(ctx context.Context, key string) (CachedContent, bool) {
	content, ok := m.policy.get(ctx, m, key)
	if ok {
		m.hits.Add(1)
	} else {
		m.misses.Add(1)
	}
	return content, ok
}

// Put stores result under key. A non-positive ttl uses the default TTL.
func (m *Manager) Put(ctx context.Context, key string, result fetcher.FetchResult, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = m.defaultTTL
	}
	payload, err := json.Marshal(result)
	if err != nil {
		cacheErr := &CacheError{Message: "serialize result", Cause: ErrCauseEncodeFailure, Err: err}
		m.recordError("Manager.Put", key, cacheErr)
		return cacheErr
	}

	now := m.now()
	content := CachedContent{
		Key:          key,
		Payload:      result,
		StoredAt:     now,
		TTL:          ttl,
		LastAccessed: now,
	}
	return m.policy.put(ctx, m, content, payload)
}

// Clear empties the given tier. Clearing a tier the strategy does not use
// is a no-op.
func (m *Manager) Clear(ctx context.Context, tier Tier) error {
	if (tier == TierMemory || tier == TierAll) && m.memory != nil {
		m.memory.clear()
	}
	if (tier == TierPersistent || tier == TierAll) && m.store != nil && m.strategy != StrategyNone && m.strategy != StrategyMemory {
		if err := m.store.Clear(ctx); err != nil {
			cacheErr := &CacheError{Message: "clear store", Retryable: true, Cause: ErrCauseStoreFailure, Err: err}
			m.recordError("Manager.Clear", "", cacheErr)
			return cacheErr
		}
	}
	return nil
}

// expiryPurger is implemented by stores that can drop expired records in
// one pass. Redis expires keys on its own.
type expiryPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// PurgeExpired removes expired entries from every tier the strategy uses
// and returns how many were dropped.
func (m *Manager) PurgeExpired(ctx context.Context) (int, error) {
	now := m.now()
	purged := 0
	if m.memory != nil && m.strategy != StrategyNone {
		for _, key := range m.memory.purgeExpired(now) {
			m.metadataSink.RecordCache(metadata.CacheExpired, string(TierMemory), key)
			purged++
		}
	}
	if m.strategy == StrategyDisk || m.strategy == StrategyHybrid {
		if purger, ok := m.store.(expiryPurger); ok {
			n, err := purger.PurgeExpired(ctx, now)
			if err != nil {
				cacheErr := &CacheError{Message: "purge expired", Retryable: true, Cause: ErrCauseStoreFailure, Err: err}
				m.recordError("Manager.PurgeExpired", "", cacheErr)
				return purged, cacheErr
			}
			purged += int(n)
		}
	}
	return purged, nil
}

func (m *Manager) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{
		Strategy:  m.strategy,
		Hits:      m.hits.Load(),
		Misses:    m.misses.Load(),
		Evictions: m.evictions.Load(),
	}
	if m.memory != nil {
		stats.MemoryEntries, stats.SizeEstimate = m.memory.stats()
		stats.MemoryCapacity = m.memory.capacity
	}
	if m.store != nil && (m.strategy == StrategyDisk || m.strategy == StrategyHybrid) {
		n, err := m.store.Count(ctx)
		if err != nil {
			return stats, &CacheError{Message: "count store", Retryable: true, Cause: ErrCauseStoreFailure, Err: err}
		}
		stats.PersistentEntries = n
	}
	return stats, nil
}

func (m *Manager) Close() error {
	if m.store != nil {
		return m.store.Close()
	}
	return nil
}

func (m *Manager) lockKey(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &m.keyLocks[h.Sum32()%uint32(len(m.keyLocks))]
}

func (m *Manager) getMemory(key string) (CachedContent, bool) {
	content, found, expired := m.memory.get(key, m.now())
	switch {
	case found:
		m.metadataSink.RecordCache(metadata.CacheHit, string(TierMemory), key)
	case expired:
		m.metadataSink.RecordCache(metadata.CacheExpired, string(TierMemory), key)
	default:
		m.metadataSink.RecordCache(metadata.CacheMiss, string(TierMemory), key)
	}
	return content, found
}

func (m *Manager) putMemory(content CachedContent, size int64) {
	for _, evicted := range m.memory.put(content, size) {
		m.evictions.Add(1)
		m.metadataSink.RecordCache(metadata.CacheEvict, string(TierMemory), evicted)
	}
	m.metadataSink.RecordCache(metadata.CacheStore, string(TierMemory), content.Key)
}

func (m *Manager) getPersistent(ctx context.Context, key string) (CachedContent, bool) {
	lock := m.lockKey(key)
	lock.Lock()
	defer lock.Unlock()

	record, found, err := m.store.Load(ctx, key)
	if err != nil {
		if errors.Is(err, ErrCorruptRecord) {
			m.purgeCorrupt(ctx, key, err)
		} else {
			m.recordError("Manager.Get", key, &CacheError{Message: "load", Retryable: true, Cause: ErrCauseStoreFailure, Err: err})
		}
		return CachedContent{}, false
	}
	if !found {
		m.metadataSink.RecordCache(metadata.CacheMiss, string(TierPersistent), key)
		return CachedContent{}, false
	}

	var result fetcher.FetchResult
	if err := json.Unmarshal(record.Payload, &result); err != nil {
		m.purgeCorrupt(ctx, key, fmt.Errorf("%w: %s: %v", ErrCorruptRecord, key, err))
		return CachedContent{}, false
	}

	now := m.now()
	content := CachedContent{
		Key:          key,
		Payload:      result,
		StoredAt:     record.StoredAt,
		TTL:          record.TTL,
		HitCount:     record.HitCount,
		LastAccessed: record.LastAccessed,
	}
	if content.Expired(now) {
		if err := m.store.Delete(ctx, key); err != nil {
			m.recordError("Manager.Get", key, &CacheError{Message: "delete expired", Retryable: true, Cause: ErrCauseStoreFailure, Err: err})
		}
		m.metadataSink.RecordCache(metadata.CacheExpired, string(TierPersistent), key)
		return CachedContent{}, false
	}

	content.HitCount++
	content.LastAccessed = now
	record.HitCount = content.HitCount
	record.LastAccessed = now
	if err := m.store.Save(ctx, record); err != nil {
		m.recordError("Manager.Get", key, &CacheError{Message: "update hit count", Retryable: true, Cause: ErrCauseStoreFailure, Err: err})
	}
	m.metadataSink.RecordCache(metadata.CacheHit, string(TierPersistent), key)
	return content, true
}

func (m *Manager) putPersistent(ctx context.Context, content CachedContent, payload []byte) error {
	lock := m.lockKey(content.Key)
	lock.Lock()
	defer lock.Unlock()

	err := m.store.Save(ctx, Record{
		Key:          content.Key,
		Payload:      payload,
		StoredAt:     content.StoredAt,
		TTL:          content.TTL,
		HitCount:     content.HitCount,
		LastAccessed: content.LastAccessed,
	})
	if err != nil {
		cacheErr := &CacheError{Message: "save", Retryable: true, Cause: ErrCauseStoreFailure, Err: err}
		m.recordError("Manager.Put", content.Key, cacheErr)
		return cacheErr
	}
	m.metadataSink.RecordCache(metadata.CacheStore, string(TierPersistent), content.Key)
	return nil
}

func (m *Manager) purgeCorrupt(ctx context.Context, key string, cause error) {
	m.recordError("Manager.Get", key, &CacheError{Message: "purging entry", Cause: ErrCauseCorruptRecord, Err: cause})
	if err := m.store.Delete(ctx, key); err != nil {
		m.recordError("Manager.Get", key, &CacheError{Message: "delete corrupt", Retryable: true, Cause: ErrCauseStoreFailure, Err: err})
	}
}

func (m *Manager) recordError(action string, key string, err *CacheError) {
	m.metadataSink.RecordError(
		time.Now(),
		"cache",
		action,
		mapCacheErrorToMetadataCause(err),
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrCacheKey, key),
		},
	)
}

type noCache struct{}

func (noCache) get(context.Context, *Manager, string) (CachedContent, bool) {
	return CachedContent{}, false
}

func (noCache) put(context.Context, *Manager, CachedContent, []byte) error {
	return nil
}

type memoryOnly struct{}

func (memoryOnly) get(_ context.Context, m *Manager, key string) (CachedContent, bool) {
	return m.getMemory(key)
}

func (memoryOnly) put(_ context.Context, m *Manager, content CachedContent, payload []byte) error {
	m.putMemory(content, int64(len(payload)))
	return nil
}

type diskOnly struct{}

func (diskOnly) get(ctx context.Context, m *Manager, key string) (CachedContent, bool) {
	return m.getPersistent(ctx, key)
}

func (diskOnly) put(ctx context.Context, m *Manager, content CachedContent, payload []byte) error {
	return m.putPersistent(ctx, content, payload)
}

// hybrid reads memory first and promotes persistent hits into memory.
type hybrid struct{}

func (hybrid) get(ctx context.Context, m *Manager, key string) (CachedContent, bool) {
	if content, ok := m.getMemory(key); ok {
		return content, true
	}
	content, ok := m.getPersistent(ctx, key)
	if !ok {
		return CachedContent{}, false
	}
	payload, err := json.Marshal(content.Payload)
	if err == nil {
		m.putMemory(content, int64(len(payload)))
	}
	return content, true
}

func (hybrid) put(ctx context.Context, m *Manager, content CachedContent, payload []byte) error {
	m.putMemory(content, int64(len(payload)))
	return m.putPersistent(ctx, content, payload)
}
