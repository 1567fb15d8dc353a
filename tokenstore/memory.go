// Package tokenstore provides TokenStore implementations: an in-memory
// store for tests and short-lived processes, and a durable sqlite-backed
// file store standing in for origin-scoped browser storage.
package tokenstore

import (
	"sync"

	portal "github.com/carelink/portal-go"
)

// Memory is a process-local TokenStore. Safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]string
}

// compile-time check
var _ portal.TokenStore = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]string)}
}

// Get returns the stored value, and false if the entry is absent.
func (m *Memory) Get(name string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[name]
	return v, ok
}

// Set stores the value under the given name.
func (m *Memory) Set(name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[name] = value
	return nil
}

// Clear removes the entry. Clearing an absent entry is a no-op.
func (m *Memory) Clear(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, name)
	return nil
}
