package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-dispenser/internal/storage"
)

func testRecord(planID string, round int64) *storage.PlanRecord {
	return &storage.PlanRecord{
		PlanID:     planID,
		Round:      round,
		Status:     storage.PlanStatusPlanned,
		InputCount: 2,
		Recipients: 3,
		TotalValue: 9_000_000,
		TokenTotals: map[string]int64{
			"tokenA": 90,
			"tokenB": 30,
		},
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestPlanRecordStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPlanRecordStore(pool)

	rec := testRecord("plan-1", 1)
	err := store.Insert(ctx, rec)
	require.NoError(t, err)

	got, err := store.GetByPlanID(ctx, "plan-1")
	require.NoError(t, err)

	assert.Equal(t, rec.PlanID, got.PlanID)
	assert.Equal(t, rec.Round, got.Round)
	assert.Equal(t, storage.PlanStatusPlanned, got.Status)
	assert.Equal(t, rec.TotalValue, got.TotalValue)
	assert.Equal(t, rec.TokenTotals, got.TokenTotals)
	assert.Equal(t, rec.CreatedAt, got.CreatedAt.UTC())
}

func TestPlanRecordStore_DuplicateKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPlanRecordStore(pool)

	require.NoError(t, store.Insert(ctx, testRecord("plan-1", 1)))

	err := store.Insert(ctx, testRecord("plan-1", 2))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestPlanRecordStore_GetNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPlanRecordStore(pool)

	_, err := store.GetByPlanID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPlanRecordStore_UpdateStatus(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPlanRecordStore(pool)

	require.NoError(t, store.Insert(ctx, testRecord("plan-1", 1)))

	err := store.UpdateStatus(ctx, "plan-1", storage.PlanStatusSubmitted, "tx-123")
	require.NoError(t, err)

	got, err := store.GetByPlanID(ctx, "plan-1")
	require.NoError(t, err)
	assert.Equal(t, storage.PlanStatusSubmitted, got.Status)
	assert.Equal(t, "tx-123", got.TxID)

	// Empty tx id keeps the previous one
	err = store.UpdateStatus(ctx, "plan-1", storage.PlanStatusFailed, "")
	require.NoError(t, err)

	got, err = store.GetByPlanID(ctx, "plan-1")
	require.NoError(t, err)
	assert.Equal(t, storage.PlanStatusFailed, got.Status)
	assert.Equal(t, "tx-123", got.TxID)
}

func TestPlanRecordStore_UpdateStatusNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPlanRecordStore(pool)

	err := store.UpdateStatus(ctx, "missing", storage.PlanStatusFailed, "")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPlanRecordStore_GetByRound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPlanRecordStore(pool)

	require.NoError(t, store.Insert(ctx, testRecord("plan-b", 7)))
	require.NoError(t, store.Insert(ctx, testRecord("plan-a", 7)))
	require.NoError(t, store.Insert(ctx, testRecord("plan-c", 8)))

	got, err := store.GetByRound(ctx, 7)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "plan-a", got[0].PlanID)
	assert.Equal(t, "plan-b", got[1].PlanID)
}

func TestPlanRecordStore_InsertInvalid(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPlanRecordStore(pool)

	assert.ErrorIs(t, store.Insert(ctx, nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.Insert(ctx, &storage.PlanRecord{}), storage.ErrInvalidInput)
}

func TestPlanRecordStore_EmptyTokenTotals(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPlanRecordStore(pool)

	rec := testRecord("plan-1", 1)
	rec.TokenTotals = nil
	require.NoError(t, store.Insert(ctx, rec))

	got, err := store.GetByPlanID(ctx, "plan-1")
	require.NoError(t, err)
	assert.Empty(t, got.TokenTotals)
}
