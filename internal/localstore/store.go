package localstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"todo_webapp/internal/domain"

	"github.com/google/uuid"
)

// LocalUserID owns every task in local mode.
const LocalUserID int64 = 1

// Store is a task store over the local adapter. The collection is loaded once and
// kept in memory; every mutation writes the whole collection back on a best-effort basis.
type Store struct {
	adapter *Adapter

	mu    sync.Mutex
	tasks []domain.Task
}

func NewStore(ctx context.Context, adapter *Adapter) *Store {
	return &Store{adapter: adapter, tasks: adapter.Load(ctx)}
}

func (s *Store) Insert(ctx context.Context, t domain.Task) (domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return domain.Task{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t.ID = uuid.NewString()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}

	// newest first
	s.tasks = append([]domain.Task{t}, s.tasks...)
	s.adapter.Save(ctx, s.tasks)
	return t, nil
}

func (s *Store) ListByUser(ctx context.Context, userID int64) ([]domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) Update(ctx context.Context, userID int64, id string, p domain.Patch, updatedAt time.Time) (domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return domain.Task{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(userID, id)
	if idx == -1 {
		return domain.Task{}, domain.NotFound("update")
	}

	updated := s.tasks[idx].Apply(p, updatedAt)

	candidate := make([]domain.Task, len(s.tasks))
	copy(candidate, s.tasks)
	candidate[idx] = updated

	s.tasks = candidate
	s.adapter.Save(ctx, s.tasks)
	return updated, nil
}

func (s *Store) Delete(ctx context.Context, userID int64, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(userID, id)
	if idx == -1 {
		return domain.NotFound("delete")
	}

	candidate := make([]domain.Task, 0, len(s.tasks)-1)
	candidate = append(candidate, s.tasks[:idx]...)
	candidate = append(candidate, s.tasks[idx+1:]...)

	s.tasks = candidate
	s.adapter.Save(ctx, s.tasks)
	return nil
}

func (s *Store) indexOf(userID int64, id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id && s.tasks[i].UserID == userID {
			return i
		}
	}
	return -1
}
