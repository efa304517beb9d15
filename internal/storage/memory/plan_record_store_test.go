package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"token-dispenser/internal/storage"
)

func testRecord(planID string, round int64) *storage.PlanRecord {
	return &storage.PlanRecord{
		PlanID:      planID,
		Round:       round,
		Status:      storage.PlanStatusPlanned,
		InputCount:  2,
		Recipients:  3,
		TotalValue:  9_000_000,
		TokenTotals: map[string]int64{"tokenA": 90},
		CreatedAt:   time.Unix(1700000000, 0).UTC(),
	}
}

func TestPlanRecordStore_InsertAndGet(t *testing.T) {
	store := NewPlanRecordStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testRecord("plan-1", 1)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByPlanID(ctx, "plan-1")
	if err != nil {
		t.Fatalf("GetByPlanID failed: %v", err)
	}
	if got.Round != 1 || got.Status != storage.PlanStatusPlanned {
		t.Errorf("unexpected record: %+v", got)
	}
	if got.TokenTotals["tokenA"] != 90 {
		t.Errorf("expected tokenA total 90, got %d", got.TokenTotals["tokenA"])
	}
}

func TestPlanRecordStore_DuplicateKey(t *testing.T) {
	store := NewPlanRecordStore()
	ctx := context.Background()

	_ = store.Insert(ctx, testRecord("plan-1", 1))
	err := store.Insert(ctx, testRecord("plan-1", 2))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestPlanRecordStore_InvalidInput(t *testing.T) {
	store := NewPlanRecordStore()
	ctx := context.Background()

	if !errors.Is(store.Insert(ctx, nil), storage.ErrInvalidInput) {
		t.Error("expected ErrInvalidInput for nil record")
	}
	if !errors.Is(store.Insert(ctx, &storage.PlanRecord{}), storage.ErrInvalidInput) {
		t.Error("expected ErrInvalidInput for empty plan id")
	}
}

func TestPlanRecordStore_UpdateStatus(t *testing.T) {
	store := NewPlanRecordStore()
	ctx := context.Background()

	_ = store.Insert(ctx, testRecord("plan-1", 1))

	if err := store.UpdateStatus(ctx, "plan-1", storage.PlanStatusSubmitted, "tx-123"); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	got, _ := store.GetByPlanID(ctx, "plan-1")
	if got.Status != storage.PlanStatusSubmitted || got.TxID != "tx-123" {
		t.Errorf("unexpected record after update: %+v", got)
	}

	err := store.UpdateStatus(ctx, "missing", storage.PlanStatusFailed, "")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPlanRecordStore_GetByRound(t *testing.T) {
	store := NewPlanRecordStore()
	ctx := context.Background()

	_ = store.Insert(ctx, testRecord("plan-b", 7))
	_ = store.Insert(ctx, testRecord("plan-a", 7))
	_ = store.Insert(ctx, testRecord("plan-c", 8))

	got, err := store.GetByRound(ctx, 7)
	if err != nil {
		t.Fatalf("GetByRound failed: %v", err)
	}
	if len(got) != 2 || got[0].PlanID != "plan-a" || got[1].PlanID != "plan-b" {
		t.Errorf("unexpected round records: %+v", got)
	}
}

func TestPlanRecordStore_ReturnsCopies(t *testing.T) {
	store := NewPlanRecordStore()
	ctx := context.Background()

	_ = store.Insert(ctx, testRecord("plan-1", 1))

	got, _ := store.GetByPlanID(ctx, "plan-1")
	got.TokenTotals["tokenA"] = 999

	again, _ := store.GetByPlanID(ctx, "plan-1")
	if again.TokenTotals["tokenA"] != 90 {
		t.Error("store mutated through returned record")
	}
}
