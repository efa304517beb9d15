package memory

import (
	"context"
	"sync"

	"token-dispenser/internal/storage"
)

// RoundStore is an in-memory implementation of storage.RoundStore.
type RoundStore struct {
	mu    sync.RWMutex
	round int64
	set   bool
}

// NewRoundStore creates a new in-memory round store.
func NewRoundStore() *RoundStore {
	return &RoundStore{}
}

// Current returns the last saved round. Returns ErrNotFound before the
// first save.
func (s *RoundStore) Current(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.set {
		return 0, storage.ErrNotFound
	}
	return s.round, nil
}

// Set saves the round counter.
func (s *RoundStore) Set(_ context.Context, round int64) error {
	if round < 1 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.round = round
	s.set = true
	return nil
}

// Verify interface compliance at compile time.
var _ storage.RoundStore = (*RoundStore)(nil)
