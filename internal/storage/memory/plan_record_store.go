package memory

import (
	"context"
	"sort"
	"sync"

	"token-dispenser/internal/storage"
)

// PlanRecordStore is an in-memory implementation of storage.PlanRecordStore.
type PlanRecordStore struct {
	mu   sync.RWMutex
	data map[string]*storage.PlanRecord // keyed by plan_id
}

// NewPlanRecordStore creates a new in-memory plan record store.
func NewPlanRecordStore() *PlanRecordStore {
	return &PlanRecordStore{
		data: make(map[string]*storage.PlanRecord),
	}
}

// Insert adds a new record. Returns ErrDuplicateKey if plan_id exists.
func (s *PlanRecordStore) Insert(_ context.Context, r *storage.PlanRecord) error {
	if r == nil || r.PlanID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.PlanID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[r.PlanID] = copyRecord(r)
	return nil
}

// UpdateStatus transitions an existing record.
func (s *PlanRecordStore) UpdateStatus(_ context.Context, planID, status, txID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.data[planID]
	if !exists {
		return storage.ErrNotFound
	}

	r.Status = status
	if txID != "" {
		r.TxID = txID
	}
	return nil
}

// GetByPlanID retrieves a record. Returns ErrNotFound if not exists.
func (s *PlanRecordStore) GetByPlanID(_ context.Context, planID string) (*storage.PlanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[planID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyRecord(r), nil
}

// GetByRound retrieves all records for a round, ordered by plan id.
func (s *PlanRecordStore) GetByRound(_ context.Context, round int64) ([]*storage.PlanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*storage.PlanRecord
	for _, r := range s.data {
		if r.Round == round {
			result = append(result, copyRecord(r))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].PlanID < result[j].PlanID
	})

	return result, nil
}

// copyRecord clones a record including the token totals map.
func copyRecord(r *storage.PlanRecord) *storage.PlanRecord {
	clone := *r
	clone.TokenTotals = make(map[string]int64, len(r.TokenTotals))
	for tokenID, amount := range r.TokenTotals {
		clone.TokenTotals[tokenID] = amount
	}
	return &clone
}

// Verify interface compliance at compile time.
var _ storage.PlanRecordStore = (*PlanRecordStore)(nil)
