package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-dispenser/internal/storage"
)

func TestRoundStore_EmptyReturnsNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRoundStore(pool)

	_, err := store.Current(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRoundStore_SetAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRoundStore(pool)

	err := store.Set(ctx, 5)
	require.NoError(t, err)

	got, err := store.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got)
}

func TestRoundStore_Upsert(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRoundStore(pool)

	require.NoError(t, store.Set(ctx, 1))
	require.NoError(t, store.Set(ctx, 2))
	require.NoError(t, store.Set(ctx, 3))

	got, err := store.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got)
}

func TestRoundStore_RejectsNonPositive(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRoundStore(pool)

	err := store.Set(ctx, 0)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
