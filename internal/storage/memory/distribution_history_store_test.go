package memory

import (
	"context"
	"errors"
	"testing"
	"time"

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
		Timestamp:          time.Unix(1700000000, 0).UTC(),
	}
}

func TestDistributionHistoryStore_InsertAndGetByToken(t *testing.T) {
	store := NewDistributionHistoryStore()
	ctx := context.Background()

	rows := []*storage.DistributionRow{
		testRow("plan-2", "tokenA", 2),
		testRow("plan-1", "tokenA", 1),
		testRow("plan-1", "tokenB", 1),
	}
	if err := store.InsertRows(ctx, rows); err != nil {
		t.Fatalf("InsertRows failed: %v", err)
	}

	got, err := store.GetByToken(ctx, "tokenA")
	if err != nil {
		t.Fatalf("GetByToken failed: %v", err)
	}
	if len(got) != 2 || got[0].Round != 1 || got[1].Round != 2 {
		t.Errorf("unexpected token rows: %+v", got)
	}
}

func TestDistributionHistoryStore_GetByRound(t *testing.T) {
	store := NewDistributionHistoryStore()
	ctx := context.Background()

	_ = store.InsertRows(ctx, []*storage.DistributionRow{
		testRow("plan-1", "tokenB", 1),
		testRow("plan-1", "tokenA", 1),
		testRow("plan-2", "tokenA", 2),
	})

	got, err := store.GetByRound(ctx, 1)
	if err != nil {
		t.Fatalf("GetByRound failed: %v", err)
	}
	if len(got) != 2 || got[0].TokenID != "tokenA" || got[1].TokenID != "tokenB" {
		t.Errorf("unexpected round rows: %+v", got)
	}
}

func TestDistributionHistoryStore_InvalidInput(t *testing.T) {
	store := NewDistributionHistoryStore()
	ctx := context.Background()

	err := store.InsertRows(ctx, []*storage.DistributionRow{
		testRow("plan-1", "tokenA", 1),
		{PlanID: "plan-1", Round: 1}, // missing token id
	})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}

	// Invalid batch must not be partially applied.
	got, _ := store.GetByToken(ctx, "tokenA")
	if len(got) != 0 {
		t.Errorf("expected no rows after rejected batch, got %d", len(got))
	}
}

func TestDistributionHistoryStore_ReturnsCopies(t *testing.T) {
	store := NewDistributionHistoryStore()
	ctx := context.Background()

	_ = store.InsertRows(ctx, []*storage.DistributionRow{testRow("plan-1", "tokenA", 1)})

	got, _ := store.GetByToken(ctx, "tokenA")
	got[0].TotalAmount = 999

	again, _ := store.GetByToken(ctx, "tokenA")
	if again[0].TotalAmount != 90 {
		t.Error("store mutated through returned row")
	}
}
