package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"token-dispenser/internal/storage"
)

// DistributionHistoryStore implements storage.DistributionHistoryStore using
// ClickHouse. History rows are append-only, one row per token per round.
type DistributionHistoryStore struct {
	conn *Conn
}

// NewDistributionHistoryStore creates a new DistributionHistoryStore.
func NewDistributionHistoryStore(conn *Conn) *DistributionHistoryStore {
	return &DistributionHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.DistributionHistoryStore = (*DistributionHistoryStore)(nil)

// InsertRows appends all rows of one round as a single batch.
func (s *DistributionHistoryStore) InsertRows(ctx context.Context, rows []*storage.DistributionRow) error {
	if len(rows) == 0 {
		return nil
	}

	for _, r := range rows {
		if r == nil || r.PlanID == "" || r.TokenID == "" {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO distribution_history (
			plan_id, round, token_id, amount_per_recipient, total_amount, change_amount, recipients, timestamp
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rows {
		err = batch.Append(
			r.PlanID, uint64(r.Round), r.TokenID,
			r.AmountPerRecipient, r.TotalAmount, r.ChangeAmount,
			uint32(r.Recipients), r.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByToken retrieves all rows for a token, ordered by round ASC.
func (s *DistributionHistoryStore) GetByToken(ctx context.Context, tokenID string) ([]*storage.DistributionRow, error) {
	query := `
		SELECT plan_id, round, token_id, amount_per_recipient, total_amount, change_amount, recipients, timestamp
		FROM distribution_history
		WHERE token_id = ?
		ORDER BY round ASC
	`

	rows, err := s.conn.Query(ctx, query, tokenID)
	if err != nil {
		return nil, fmt.Errorf("query history by token: %w", err)
	}
	defer rows.Close()

	return scanDistributionRows(rows)
}

// GetByRound retrieves all rows for a round, ordered by token id ASC.
func (s *DistributionHistoryStore) GetByRound(ctx context.Context, round int64) ([]*storage.DistributionRow, error) {
	query := `
		SELECT plan_id, round, token_id, amount_per_recipient, total_amount, change_amount, recipients, timestamp
		FROM distribution_history
		WHERE round = ?
		ORDER BY token_id ASC
	`

	rows, err := s.conn.Query(ctx, query, uint64(round))
	if err != nil {
		return nil, fmt.Errorf("query history by round: %w", err)
	}
	defer rows.Close()

	return scanDistributionRows(rows)
}

// scanDistributionRows scans multiple rows.
func scanDistributionRows(rows driver.Rows) ([]*storage.DistributionRow, error) {
	var result []*storage.DistributionRow

	for rows.Next() {
		var r storage.DistributionRow
		var round uint64
		var recipients uint32

		err := rows.Scan(
			&r.PlanID, &round, &r.TokenID,
			&r.AmountPerRecipient, &r.TotalAmount, &r.ChangeAmount,
			&recipients, &r.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}

		r.Round = int64(round)
		r.Recipients = int(recipients)
		result = append(result, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}

	return result, nil
}
