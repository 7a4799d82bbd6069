package integration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"todo_webapp/internal/db"
	"todo_webapp/internal/domain"
	"todo_webapp/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

func connect(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := db.Migrate(context.Background(), pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

func createUser(t *testing.T, pool *pgxpool.Pool) *domain.User {
	t.Helper()
	u := &domain.User{
		Username:     fmt.Sprintf("it_%d", time.Now().UnixNano()),
		PasswordHash: "x",
	}
	if err := repository.NewUserRepository(pool).Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestTaskRepository_CRUD(t *testing.T) {
	pool := connect(t)
	ctx := context.Background()
	u := createUser(t, pool)
	repo := repository.NewTaskRepository(pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	first, err := domain.NewTask(u.ID, domain.Draft{Title: "first"}, now)
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	created, err := repo.Insert(ctx, first)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected generated id")
	}
	if created.Priority != domain.PriorityMedium || created.Category != domain.CategoryPersonal {
		t.Fatalf("unexpected defaults: %+v", created)
	}

	second, _ := domain.NewTask(u.ID, domain.Draft{Title: "second", Description: "with notes"}, now.Add(time.Second))
	if _, err := repo.Insert(ctx, second); err != nil {
		t.Fatalf("insert second: %v", err)
	}

	list, err := repo.ListByUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Title != "second" || list[1].Title != "first" {
		t.Fatalf("expected newest first, got %+v", list)
	}

	done := true
	later := now.Add(time.Minute)
	updated, err := repo.Update(ctx, u.ID, created.ID, domain.Patch{Completed: &done}, later)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.Completed || !updated.UpdatedAt.Equal(later) || updated.Title != "first" {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	if err := repo.Delete(ctx, u.ID, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(ctx, u.ID, created.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestTaskRepository_ScopedToUser(t *testing.T) {
	pool := connect(t)
	ctx := context.Background()
	owner := createUser(t, pool)
	other := createUser(t, pool)
	repo := repository.NewTaskRepository(pool)

	task, _ := domain.NewTask(owner.ID, domain.Draft{Title: "private"}, time.Now())
	created, err := repo.Insert(ctx, task)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	title := "hijacked"
	if _, err := repo.Update(ctx, other.ID, created.ID, domain.Patch{Title: &title}, time.Now()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for foreign update, got %v", err)
	}
	if err := repo.Delete(ctx, other.ID, created.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for foreign delete, got %v", err)
	}

	list, err := repo.ListByUser(ctx, other.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list for other user, got %d", len(list))
	}
}

func TestAuditRepository_Newest(t *testing.T) {
	pool := connect(t)
	ctx := context.Background()
	u := createUser(t, pool)
	repo := repository.NewAuditRepository(pool)

	for _, action := range []string{domain.AuditActionTaskAdd, domain.AuditActionTaskToggle} {
		if err := repo.Create(ctx, &domain.AuditLog{
			UserID:   u.ID,
			Action:   action,
			Category: domain.AuditCategoryTask,
			Details:  map[string]interface{}{"task_id": "t1"},
		}); err != nil {
			t.Fatalf("create audit: %v", err)
		}
		time.Sleep(time.Millisecond)
	}

	logs, err := repo.GetByUserID(ctx, u.ID, 10)
	if err != nil {
		t.Fatalf("get audit: %v", err)
	}
	if len(logs) != 2 || logs[0].Action != domain.AuditActionTaskToggle {
		t.Fatalf("unexpected audit order: %+v", logs)
	}
	if logs[0].Details["task_id"] != "t1" {
		t.Fatalf("details not round-tripped: %+v", logs[0].Details)
	}
}
