// Package cache provides the small string cache used to memoize installment
// quotes. Redis when configured, an in-process map otherwise.
package cache

import "sync"

// Cache is a best-effort key/value store; a miss is never an error.
type Cache interface {
	Get(key string) (string, bool)
	Set(key string, value string) error
}

// Memory is the default Cache when no Redis address is configured. The HTTP
// server calls it from concurrent handlers, so access is guarded.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}
