package store

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/airealcheck/realcheck/core"
)

// Memory implements an in-memory key/value store. State does not
// survive the process; it is the default store and the one tests use.
type Memory struct {
	data map[string]string
	mu   sync.RWMutex

	// counters
	hits    int64
	misses  int64
	sets    int64
	deletes int64
}

var _ core.KeyValueStore = (*Memory)(nil)

// NewMemory creates a new in-memory store
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

// Get retrieves a value
func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, exists := m.data[key]
	if !exists {
		atomic.AddInt64(&m.misses, 1)
		return "", core.ErrKeyNotFound
	}

	atomic.AddInt64(&m.hits, 1)
	return value, nil
}

// Set stores a value
func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	atomic.AddInt64(&m.sets, 1)
	return nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, existed := m.data[key]; existed {
		delete(m.data, key)
		atomic.AddInt64(&m.deletes, 1)
	}
	return nil
}

// Len returns the number of stored keys
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Stats tracks store usage counters
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Sets    int64 `json:"sets"`
	Deletes int64 `json:"deletes"`
	Size    int   `json:"size"`
}

// Stats returns usage statistics
func (m *Memory) Stats() Stats {
	return Stats{
		Hits:    atomic.LoadInt64(&m.hits),
		Misses:  atomic.LoadInt64(&m.misses),
		Sets:    atomic.LoadInt64(&m.sets),
		Deletes: atomic.LoadInt64(&m.deletes),
		Size:    m.Len(),
	}
}
