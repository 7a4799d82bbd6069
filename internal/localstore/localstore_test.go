package localstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"todo_webapp/internal/domain"
)

func newTestSlot(t *testing.T) *SQLiteSlot {
	t.Helper()
	slot, err := OpenSQLiteSlot(":memory:")
	if err != nil {
		t.Fatalf("open slot: %v", err)
	}
	t.Cleanup(func() { _ = slot.Close() })
	return slot
}

type brokenSlot struct{}

func (brokenSlot) Get(context.Context, string) (string, error) { return "", errors.New("disk gone") }
func (brokenSlot) Set(context.Context, string, string) error   { return errors.New("disk full") }

func TestAdapterRoundTrip(t *testing.T) {
	ctx := context.Background()
	adapter := NewAdapter(newTestSlot(t))

	created := time.Date(2024, 5, 1, 9, 30, 0, 123456789, time.FixedZone("CEST", 2*3600))
	tasks := []domain.Task{
		{ID: "a", UserID: 1, Title: "Buy milk", Priority: domain.PriorityLow, Category: domain.CategoryShopping, CreatedAt: created, UpdatedAt: created},
		{ID: "b", UserID: 1, Title: "Report", Description: "Q2", Completed: true, Priority: domain.PriorityHigh, Category: domain.CategoryWork, CreatedAt: created.Add(-time.Hour), UpdatedAt: created},
	}

	if !adapter.Save(ctx, tasks) {
		t.Fatalf("expected save to succeed")
	}
	loaded := adapter.Load(ctx)

	if len(loaded) != len(tasks) {
		t.Fatalf("expected %d tasks, got %d", len(tasks), len(loaded))
	}
	for i := range tasks {
		want, got := tasks[i], loaded[i]
		if !want.CreatedAt.Equal(got.CreatedAt) || !want.UpdatedAt.Equal(got.UpdatedAt) {
			t.Fatalf("task %d: timestamps differ: %v/%v vs %v/%v", i, want.CreatedAt, want.UpdatedAt, got.CreatedAt, got.UpdatedAt)
		}
		got.CreatedAt, got.UpdatedAt = want.CreatedAt, want.UpdatedAt
		if got != want {
			t.Fatalf("task %d: expected %+v, got %+v", i, want, got)
		}
	}
}

func TestAdapterLoadWithoutPriorData(t *testing.T) {
	adapter := NewAdapter(newTestSlot(t))
	if got := adapter.Load(context.Background()); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil collection, got %#v", got)
	}
}

func TestAdapterSwallowsFailures(t *testing.T) {
	ctx := context.Background()
	adapter := NewAdapter(brokenSlot{})

	if adapter.Save(ctx, []domain.Task{{ID: "x"}}) {
		t.Fatalf("expected save to report failure")
	}
	if got := adapter.Load(ctx); len(got) != 0 {
		t.Fatalf("expected empty collection, got %d tasks", len(got))
	}
}

func TestAdapterLoadCorruptData(t *testing.T) {
	ctx := context.Background()
	slot := newTestSlot(t)
	if err := slot.Set(ctx, StorageKey, "{not json"); err != nil {
		t.Fatalf("seed slot: %v", err)
	}

	if got := NewAdapter(slot).Load(ctx); len(got) != 0 {
		t.Fatalf("expected empty collection, got %d tasks", len(got))
	}
}

func TestStoreCRUDPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	slot := newTestSlot(t)
	store := NewStore(ctx, NewAdapter(slot))

	now := time.Now()
	first, err := store.Insert(ctx, domain.Task{UserID: LocalUserID, Title: "first", CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if first.ID == "" {
		t.Fatalf("expected id to be assigned")
	}
	second, err := store.Insert(ctx, domain.Task{UserID: LocalUserID, Title: "second", CreatedAt: now.Add(time.Second), UpdatedAt: now.Add(time.Second)})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	done := true
	if _, err := store.Update(ctx, LocalUserID, first.ID, domain.Patch{Completed: &done}, now.Add(time.Minute)); err != nil {
		t.Fatalf("update: %v", err)
	}

	reopened := NewStore(ctx, NewAdapter(slot))
	tasks, err := reopened.ListByUser(ctx, LocalUserID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].ID != second.ID {
		t.Fatalf("expected newest task first")
	}
	if !tasks[1].Completed {
		t.Fatalf("expected update to be persisted")
	}

	if err := reopened.Delete(ctx, LocalUserID, second.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	tasks, _ = reopened.ListByUser(ctx, LocalUserID)
	if len(tasks) != 1 || tasks[0].ID != first.ID {
		t.Fatalf("expected only first task to remain, got %+v", tasks)
	}
}

func TestStoreUnknownIDIsNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewStore(ctx, NewAdapter(newTestSlot(t)))

	if _, err := store.Update(ctx, LocalUserID, "missing", domain.Patch{}, time.Now()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on update, got %v", err)
	}
	if err := store.Delete(ctx, LocalUserID, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on delete, got %v", err)
	}
}
