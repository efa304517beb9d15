package memory

import (
	"context"
	"sort"
	"sync"

	"token-dispenser/internal/storage"
)

// DistributionHistoryStore is an in-memory implementation of
// storage.DistributionHistoryStore.
type DistributionHistoryStore struct {
	mu   sync.RWMutex
	rows []*storage.DistributionRow
}

// NewDistributionHistoryStore creates a new in-memory history store.
func NewDistributionHistoryStore() *DistributionHistoryStore {
	return &DistributionHistoryStore{}
}

// InsertRows appends all rows of one round as a batch.
func (s *DistributionHistoryStore) InsertRows(_ context.Context, rows []*storage.DistributionRow) error {
	for _, r := range rows {
		if r == nil || r.PlanID == "" || r.TokenID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range rows {
		clone := *r
		s.rows = append(s.rows, &clone)
	}
	return nil
}

// GetByToken retrieves all rows for a token, ordered by round ASC.
func (s *DistributionHistoryStore) GetByToken(_ context.Context, tokenID string) ([]*storage.DistributionRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*storage.DistributionRow
	for _, r := range s.rows {
		if r.TokenID == tokenID {
			clone := *r
			result = append(result, &clone)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Round < result[j].Round
	})

	return result, nil
}

// GetByRound retrieves all rows for a round, ordered by token id ASC.
func (s *DistributionHistoryStore) GetByRound(_ context.Context, round int64) ([]*storage.DistributionRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*storage.DistributionRow
	for _, r := range s.rows {
		if r.Round == round {
			clone := *r
			result = append(result, &clone)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TokenID < result[j].TokenID
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.DistributionHistoryStore = (*DistributionHistoryStore)(nil)
