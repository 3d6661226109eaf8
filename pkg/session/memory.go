package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store with TTL expiry. It is the default
// backend for single-instance deployments; expired entries are dropped
// lazily on Get and swept periodically by a background janitor.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	stopCh  chan struct{}
	once    sync.Once
}

type memoryEntry struct {
	sess      *Session
	expiresAt time.Time
}

// NewMemoryStore creates a memory store with the given inactivity TTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	sweepInterval := ttl / 2
	if sweepInterval < 10*time.Second {
		sweepInterval = 10 * time.Second
	}

	store := &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}
	go store.sweep(sweepInterval)

	return store
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	entry, ok := m.entries[id]
	m.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return nil, ErrNotFound
	}

	// Return a copy so callers never share the stored value.
	copied := *entry.sess
	copied.Attempts = append([]Attempt(nil), entry.sess.Attempts...)
	copied.History = append([]Exchange(nil), entry.sess.History...)
	return &copied, nil
}

// Put implements Store.
func (m *MemoryStore) Put(_ context.Context, sess *Session) error {
	stored := *sess
	stored.Attempts = append([]Attempt(nil), sess.Attempts...)
	stored.History = append([]Exchange(nil), sess.History...)

	m.mu.Lock()
	m.entries[sess.ID] = memoryEntry{sess: &stored, expiresAt: time.Now().Add(m.ttl)}
	m.mu.Unlock()
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.entries, id)
	m.mu.Unlock()
	return nil
}

// Close stops the janitor. The store must not be used after Close.
func (m *MemoryStore) Close() error {
	m.once.Do(func() { close(m.stopCh) })
	return nil
}

// Len returns the number of live entries (including not-yet-swept expired
// ones). Used by tests and the status endpoint.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// sweep periodically removes expired entries.
func (m *MemoryStore) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			m.mu.Lock()
			for id, entry := range m.entries {
				if now.After(entry.expiresAt) {
					delete(m.entries, id)
				}
			}
			m.mu.Unlock()
		case <-m.stopCh:
			return
		}
	}
}
