package postgres

import (
	"context"
	"fmt"

	"token-dispenser/internal/storage"
)

// RoundStore implements storage.RoundStore using PostgreSQL. The round
// counter is a single row upserted in place, so it survives restarts.
type RoundStore struct {
	pool *Pool
}

// NewRoundStore creates a new RoundStore.
func NewRoundStore(pool *Pool) *RoundStore {
	return &RoundStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RoundStore = (*RoundStore)(nil)

// Current returns the last saved round. Returns ErrNotFound before the
// first save.
func (s *RoundStore) Current(ctx context.Context) (int64, error) {
	query := `
		SELECT round FROM dispense_round WHERE id = 1
	`

	var round int64
	err := s.pool.QueryRow(ctx, query).Scan(&round)
	if err != nil {
		if isNotFoundError(err) {
			return 0, storage.ErrNotFound
		}
		return 0, fmt.Errorf("get current round: %w", err)
	}
	return round, nil
}

// Set saves the round counter, overwriting any previous value.
func (s *RoundStore) Set(ctx context.Context, round int64) error {
	if round < 1 {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO dispense_round (id, round, updated_at)
		VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE SET round = EXCLUDED.round, updated_at = now()
	`

	if _, err := s.pool.Exec(ctx, query, round); err != nil {
		return fmt.Errorf("set current round: %w", err)
	}
	return nil
}
