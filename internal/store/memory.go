package store

import "sync"

// Memory is an in-process Store. MaxBytes, when positive, bounds the sum of
// key and value lengths the way a browser bounds its per-origin storage.
type Memory struct {
	mu        sync.RWMutex
	items     map[string]string
	size      int64
	maxBytes  int64
	available bool
}

func NewMemory(maxBytes int64) *Memory {
	return &Memory{items: make(map[string]string), maxBytes: maxBytes, available: true}
}

// SetAvailable toggles availability, simulating an environment without storage.
func (m *Memory) SetAvailable(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = ok
}

func (m *Memory) Available() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.available
}

func (m *Memory) GetItem(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.available {
		return "", false, ErrUnavailable
	}
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *Memory) SetItem(key, value string) error {
	return m.SetItems([]Item{{Key: key, Value: value}})
}

func (m *Memory) RemoveItem(key string) error {
	return m.RemoveItems(key)
}

// SetItems writes all items or none of them.
func (m *Memory) SetItems(items []Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.available {
		return ErrUnavailable
	}
	size := m.size
	for _, it := range items {
		if old, ok := m.items[it.Key]; ok {
			size -= int64(len(it.Key) + len(old))
		}
		size += int64(len(it.Key) + len(it.Value))
	}
	if m.maxBytes > 0 && size > m.maxBytes {
		return ErrQuotaExceeded
	}
	for _, it := range items {
		m.items[it.Key] = it.Value
	}
	m.size = size
	return nil
}

func (m *Memory) RemoveItems(keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.available {
		return ErrUnavailable
	}
	for _, k := range keys {
		if old, ok := m.items[k]; ok {
			m.size -= int64(len(k) + len(old))
			delete(m.items, k)
		}
	}
	return nil
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
