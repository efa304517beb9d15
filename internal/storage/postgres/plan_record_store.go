package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"token-dispenser/internal/storage"
)

// PlanRecordStore implements storage.PlanRecordStore using PostgreSQL.
type PlanRecordStore struct {
	pool *Pool
}

// NewPlanRecordStore creates a new PlanRecordStore.
func NewPlanRecordStore(pool *Pool) *PlanRecordStore {
	return &PlanRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PlanRecordStore = (*PlanRecordStore)(nil)

// Insert adds a new record. Returns ErrDuplicateKey if plan_id exists.
func (s *PlanRecordStore) Insert(ctx context.Context, r *storage.PlanRecord) error {
	if r == nil || r.PlanID == "" {
		return storage.ErrInvalidInput
	}

	totals, err := json.Marshal(r.TokenTotals)
	if err != nil {
		return fmt.Errorf("marshal token totals: %w", err)
	}

	query := `
		INSERT INTO plan_records (
			plan_id, round, status, tx_id, input_count, recipients, total_value, token_totals, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = s.pool.Exec(ctx, query,
		r.PlanID,
		r.Round,
		r.Status,
		r.TxID,
		r.InputCount,
		r.Recipients,
		r.TotalValue,
		totals,
		r.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert plan record: %w", err)
	}
	return nil
}

// UpdateStatus transitions an existing record. The tx id is only
// overwritten when non-empty.
func (s *PlanRecordStore) UpdateStatus(ctx context.Context, planID, status, txID string) error {
	query := `
		UPDATE plan_records
		SET status = $2, tx_id = CASE WHEN $3 = '' THEN tx_id ELSE $3 END
		WHERE plan_id = $1
	`

	tag, err := s.pool.Exec(ctx, query, planID, status, txID)
	if err != nil {
		return fmt.Errorf("update plan status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByPlanID retrieves a record by its plan ID. Returns ErrNotFound if not exists.
func (s *PlanRecordStore) GetByPlanID(ctx context.Context, planID string) (*storage.PlanRecord, error) {
	query := `
		SELECT plan_id, round, status, tx_id, input_count, recipients, total_value, token_totals, created_at
		FROM plan_records
		WHERE plan_id = $1
	`

	row := s.pool.QueryRow(ctx, query, planID)
	r, err := scanPlanRecord(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get plan record by id: %w", err)
	}
	return r, nil
}

// GetByRound retrieves all records for a round, ordered by plan id.
func (s *PlanRecordStore) GetByRound(ctx context.Context, round int64) ([]*storage.PlanRecord, error) {
	query := `
		SELECT plan_id, round, status, tx_id, input_count, recipients, total_value, token_totals, created_at
		FROM plan_records
		WHERE round = $1
		ORDER BY plan_id ASC
	`

	rows, err := s.pool.Query(ctx, query, round)
	if err != nil {
		return nil, fmt.Errorf("get plan records by round: %w", err)
	}
	defer rows.Close()

	return scanPlanRecords(rows)
}

// scanPlanRecord scans a single row into a PlanRecord.
func scanPlanRecord(row pgx.Row) (*storage.PlanRecord, error) {
	var r storage.PlanRecord
	var totals []byte

	err := row.Scan(
		&r.PlanID,
		&r.Round,
		&r.Status,
		&r.TxID,
		&r.InputCount,
		&r.Recipients,
		&r.TotalValue,
		&totals,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(totals, &r.TokenTotals); err != nil {
		return nil, fmt.Errorf("unmarshal token totals: %w", err)
	}
	return &r, nil
}

// scanPlanRecords scans multiple rows into a slice of PlanRecord.
func scanPlanRecords(rows pgx.Rows) ([]*storage.PlanRecord, error) {
	var records []*storage.PlanRecord

	for rows.Next() {
		r, err := scanPlanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan record row: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plan record rows: %w", err)
	}

	return records, nil
}
