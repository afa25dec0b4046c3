package cache

import (
	"container/list"
	"sync"
	"time"
)

// memoryTier is a bounded LRU map. The list front holds the most recently
// used entry; eviction takes from the back.
type memoryTier struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	entries  map[string]*list.Element
	size     int64
}

type memoryEntry struct {
	content CachedContent
	size    int64
}

func newMemoryTier(capacity int) *memoryTier {
	if capacity < 1 {
		capacity = DefaultMemoryCapacity
	}
	return &memoryTier{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element, capacity),
	}
}

// get returns a copy of the entry after counting the hit. Expired entries
// are removed and reported with expired=true.
func (m *memoryTier) get(key string, now time.Time) (content CachedContent, found bool, expired bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.entries[key]
	if !ok {
		return CachedContent{}, false, false
	}
	entry := elem.Value.(*memoryEntry)
	if entry.content.Expired(now) {
		m.removeElement(elem)
		return CachedContent{}, false, true
	}

	entry.content.HitCount++
	entry.content.LastAccessed = now
	m.order.MoveToFront(elem)
	return entry.content, true, false
}

// put stores content and returns the keys evicted to make room.
func (m *memoryTier) put(content CachedContent, size int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, ok := m.entries[content.Key]; ok {
		entry := elem.Value.(*memoryEntry)
		m.size += size - entry.size
		entry.content = content
		entry.size = size
		m.order.MoveToFront(elem)
		return nil
	}

	var evicted []string
	for m.order.Len() >= m.capacity {
		oldest := m.order.Back()
		evicted = append(evicted, oldest.Value.(*memoryEntry).content.Key)
		m.removeElement(oldest)
	}

	m.entries[content.Key] = m.order.PushFront(&memoryEntry{content: content, size: size})
	m.size += size
	return evicted
}

// purgeExpired removes every entry expired at now and returns their keys.
func (m *memoryTier) purgeExpired(now time.Time) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var purged []string
	for elem := m.order.Back(); elem != nil; {
		prev := elem.Prev()
		if entry := elem.Value.(*memoryEntry); entry.content.Expired(now) {
			purged = append(purged, entry.content.Key)
			m.removeElement(elem)
		}
		elem = prev
	}
	return purged
}

func (m *memoryTier) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.order.Init()
	m.entries = make(map[string]*list.Element, m.capacity)
	m.size = 0
}

func (m *memoryTier) stats() (entries int, size int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len(), m.size
}

// caller holds mu
func (m *memoryTier) removeElement(elem *list.Element) {
	entry := elem.Value.(*memoryEntry)
	m.order.Remove(elem)
	delete(m.entries, entry.content.Key)
	m.size -= entry.size
}
