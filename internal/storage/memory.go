package storage

import (
	"context"
	"sort"
	"sync"
)

type memoryRecord struct {
	value   []byte
	version int64
}

// MemoryStore is an in-process Store, used when no database is configured
// and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]map[string]memoryRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]map[string]memoryRecord)}
}

func (m *MemoryStore) Get(_ context.Context, household, key string) ([]byte, bool, error) {
	if err := checkScope(household, key); err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[household][key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(rec.value))
	copy(out, rec.value)
	return out, true, nil
}

func (m *MemoryStore) Set(_ context.Context, household, key string, value []byte) (int64, error) {
	if err := checkScope(household, key); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.records[household]
	if !ok {
		h = make(map[string]memoryRecord)
		m.records[household] = h
	}
	v := make([]byte, len(value))
	copy(v, value)
	rec := memoryRecord{value: v, version: h[key].version + 1}
	h[key] = rec
	return rec.version, nil
}

func (m *MemoryStore) Delete(_ context.Context, household, key string) error {
	if err := checkScope(household, key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records[household], key)
	if len(m.records[household]) == 0 {
		delete(m.records, household)
	}
	return nil
}

func (m *MemoryStore) List(_ context.Context, household string) ([]string, error) {
	if household == "" {
		return nil, ErrEmptyHousehold
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.records[household] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryStore) Households(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for h := range m.records {
		out = append(out, h)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
