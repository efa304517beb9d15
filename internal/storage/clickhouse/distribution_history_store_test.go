package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-dispenser/internal/storage"
)

func testRow(planID, tokenID string, round int64) *storage.DistributionRow {
	return &storage.DistributionRow{
		PlanID:             planID,
		Round:              round,
		TokenID:            tokenID,
		AmountPerRecipient: 30,
		TotalAmount:        90,
		ChangeAmount:       10,
		Recipients:         3,
		Timestamp:          time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestDistributionHistoryStore_InsertAndGetByToken(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewDistributionHistoryStore(conn)

	rows := []*storage.DistributionRow{
		testRow("plan-2", "tokenA", 2),
		testRow("plan-1", "tokenA", 1),
		testRow("plan-1", "tokenB", 1),
	}
	err := store.InsertRows(ctx, rows)
	require.NoError(t, err)

	got, err := store.GetByToken(ctx, "tokenA")
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].Round)
	assert.Equal(t, int64(2), got[1].Round)
	assert.Equal(t, int64(30), got[0].AmountPerRecipient)
	assert.Equal(t, int64(90), got[0].TotalAmount)
	assert.Equal(t, int64(10), got[0].ChangeAmount)
	assert.Equal(t, 3, got[0].Recipients)
}

func TestDistributionHistoryStore_GetByRound(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewDistributionHistoryStore(conn)

	err := store.InsertRows(ctx, []*storage.DistributionRow{
		testRow("plan-1", "tokenB", 1),
		testRow("plan-1", "tokenA", 1),
		testRow("plan-2", "tokenA", 2),
	})
	require.NoError(t, err)

	got, err := store.GetByRound(ctx, 1)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "tokenA", got[0].TokenID)
	assert.Equal(t, "tokenB", got[1].TokenID)
}

func TestDistributionHistoryStore_EmptyBatch(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewDistributionHistoryStore(conn)

	err := store.InsertRows(ctx, nil)
	require.NoError(t, err)
}

func TestDistributionHistoryStore_InvalidRow(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewDistributionHistoryStore(conn)

	err := store.InsertRows(ctx, []*storage.DistributionRow{
		testRow("plan-1", "tokenA", 1),
		{PlanID: "plan-1", Round: 1}, // missing token id
	})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	// Invalid batch must not be partially applied
	got, err := store.GetByToken(ctx, "tokenA")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDistributionHistoryStore_UnknownToken(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewDistributionHistoryStore(conn)

	got, err := store.GetByToken(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, got)
}
