// internal/store/memory.go
//
// In-memory implementation of the KV interface.
// Used for tests and when durability is not required (STORAGE=memory).
//
// Characteristics:
//   - Entries keyed by string in a map, each with an optional expiry.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Expired entries are dropped lazily on Get.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value   string
	expires time.Time // zero = never
}

// memory is an in-memory map-based KV implementation.
type memory struct {
	mu      sync.RWMutex     // guards entries
	entries map[string]entry // keyed by full key
	now     Clock
}

// NewMemory constructs a new in-memory KV. A nil clock uses time.Now.
func NewMemory(now Clock) KV {
	if now == nil {
		now = time.Now
	}
	return &memory{entries: make(map[string]entry), now: now}
}

// Get looks up key, dropping it if it has expired.
func (m *memory) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if expired(m.now(), e.expires) {
		m.mu.Lock()
		if cur, ok := m.entries[key]; ok && cur == e {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return "", false, nil
	}
	return e.value, true, nil
}

// Set adds or replaces key.
func (m *memory) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry{value: value, expires: expiry(m.now(), ttl)}
	return nil
}

// Clear deletes key.
func (m *memory) Clear(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
