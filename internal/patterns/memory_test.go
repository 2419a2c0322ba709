package patterns

import (
	"context"
	"errors"
	"testing"

	"github.com/shiftpulse/backend/internal/models"
)

func TestMemoryStoreCRUD(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore[models.DailyPattern]()

	p, _ := models.NewDailyPattern("r1", 1, 25, 70, 0.5, 1)
	if err := store.Save(ctx, p); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, p); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate save, got %v", err)
	}

	got, err := store.Get(ctx, p.Key())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.LaborPct != 25 {
		t.Fatalf("unexpected value %+v", got)
	}

	p.LaborPct = 30
	if err := store.Update(ctx, p); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = store.Get(ctx, p.Key())
	if got.LaborPct != 30 {
		t.Fatalf("update not applied: %+v", got)
	}

	missing, _ := models.NewDailyPattern("r1", 2, 25, 70, 0.5, 1)
	if err := store.Update(ctx, missing); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating missing key, got %v", err)
	}
	if err := store.Upsert(ctx, missing); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if err := store.Delete(ctx, missing.Key()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, missing.Key()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestMemoryStoreListSorted(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore[models.DailyPattern]()
	for _, dow := range []int{3, 0, 5} {
		p, _ := models.NewDailyPattern("r1", dow, 25, 70, 0.5, 1)
		if err := store.Save(ctx, p); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 items, got %d", len(list))
	}
	if list[0].DayOfWeek != 0 || list[1].DayOfWeek != 3 || list[2].DayOfWeek != 5 {
		t.Fatalf("expected key-sorted order, got %v %v %v", list[0].DayOfWeek, list[1].DayOfWeek, list[2].DayOfWeek)
	}

	if err := store.ClearAll(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	list, _ = store.List(ctx)
	if len(list) != 0 {
		t.Fatalf("expected empty store after clear, got %d", len(list))
	}
}
