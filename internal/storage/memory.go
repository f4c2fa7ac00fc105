package storage

import "sync"

// MemoryStore keeps values in process memory only.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get returns the value stored under key.
func (m *MemoryStore) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// GetMany returns the values present for keys.
func (m *MemoryStore) GetMany(keys ...string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	found := make(map[string]string, len(keys))
	for _, key := range keys {
		if v, ok := m.values[key]; ok {
			found[key] = v
		}
	}
	return found, nil
}

// Set stores value under key.
func (m *MemoryStore) Set(key, value string) error {
	return m.SetMany(map[string]string{key: value})
}

// SetMany stores every pair.
func (m *MemoryStore) SetMany(values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		m.values[k] = v
	}
	return nil
}

// Remove deletes keys. Removing a missing key is not an error.
func (m *MemoryStore) Remove(keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

// Len returns the number of stored keys.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}
