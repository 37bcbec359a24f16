package memory

import (
	"context"
	"sync"

	ports "casalfinance/internal/sheets"
)

var _ ports.Syncer = (*Store)(nil)

// Store keeps pushed documents in memory. Used when no sync backend is
// configured and in tests.
type Store struct {
	mu     sync.Mutex
	docs   map[string][]byte
	pushes int
}

func New() *Store {
	return &Store{docs: make(map[string][]byte)}
}

func (s *Store) Push(_ context.Context, household, key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[household+"/"+key] = append([]byte(nil), payload...)
	s.pushes++
	return nil
}

func (s *Store) Pull(_ context.Context, household, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[household+"/"+key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), doc...), true, nil
}

// Pushes returns how many pushes the store has received.
func (s *Store) Pushes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pushes
}
