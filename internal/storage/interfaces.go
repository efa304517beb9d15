package storage

import (
	"context"
	"time"
)

// Plan record status values.
const (
	PlanStatusPlanned   = "PLANNED"
	PlanStatusSubmitted = "SUBMITTED"
	PlanStatusStale     = "STALE"
	PlanStatusFailed    = "FAILED"
)

// PlanRecord is the audit trail of one planning round: what was planned,
// whether it was handed off, and the resulting transaction id.
type PlanRecord struct {
	PlanID      string
	Round       int64
	Status      string
	TxID        string           // set once submitted
	InputCount  int
	Recipients  int
	TotalValue  int64            // reserve currency covered by the inputs
	TokenTotals map[string]int64 // token_id -> total paid to recipients
	CreatedAt   time.Time
}

// RoundStore persists the driver's round counter so a restart resumes
// the schedule instead of starting over.
type RoundStore interface {
	// Current returns the last saved round. Returns ErrNotFound before
	// the first save.
	Current(ctx context.Context) (int64, error)

	// Set saves the round counter.
	Set(ctx context.Context, round int64) error
}

// PlanRecordStore provides append-only persistence for plan records.
type PlanRecordStore interface {
	// Insert adds a new record. Returns ErrDuplicateKey if plan_id exists.
	Insert(ctx context.Context, r *PlanRecord) error

	// UpdateStatus transitions an existing record and attaches the
	// transaction id when present. Returns ErrNotFound for unknown plans.
	UpdateStatus(ctx context.Context, planID, status, txID string) error

	// GetByPlanID retrieves a record. Returns ErrNotFound if not exists.
	GetByPlanID(ctx context.Context, planID string) (*PlanRecord, error)

	// GetByRound retrieves all records for a round, ordered by plan id.
	GetByRound(ctx context.Context, round int64) ([]*PlanRecord, error)
}

// DistributionRow is one per-token line of a submitted round, written to
// the analytics store.
type DistributionRow struct {
	PlanID             string
	Round              int64
	TokenID            string
	AmountPerRecipient int64
	TotalAmount        int64
	ChangeAmount       int64
	Recipients         int
	Timestamp          time.Time
}

// DistributionHistoryStore records per-round, per-token distribution
// lines for analytics. Rows are append-only.
type DistributionHistoryStore interface {
	// InsertRows appends all rows of one round as a batch.
	InsertRows(ctx context.Context, rows []*DistributionRow) error

	// GetByToken retrieves all rows for a token, ordered by round ASC.
	GetByToken(ctx context.Context, tokenID string) ([]*DistributionRow, error)

	// GetByRound retrieves all rows for a round, ordered by token id ASC.
	GetByRound(ctx context.Context, round int64) ([]*DistributionRow, error)
}
