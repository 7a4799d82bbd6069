package localstore

import (
	"context"
	"encoding/json"
	"errors"

	"todo_webapp/internal/domain"
	"todo_webapp/internal/logger"
)

// StorageKey is the namespace the collection is stored under.
const StorageKey = "todo-tasks"

// Adapter saves and loads a whole task collection. Failures never propagate:
// Save degrades to a no-op and Load to an empty collection, both logged.
type Adapter struct {
	slot Slot
}

func NewAdapter(slot Slot) *Adapter {
	return &Adapter{slot: slot}
}

// Save reports whether the collection was written, for callers that want to know.
func (a *Adapter) Save(ctx context.Context, tasks []domain.Task) bool {
	if tasks == nil {
		tasks = []domain.Task{}
	}

	data, err := json.Marshal(tasks)
	if err != nil {
		logger.Error("failed to save tasks to local slot", "error", domain.NewError(domain.KindSerialization, "save", err))
		return false
	}

	if err := a.slot.Set(ctx, StorageKey, string(data)); err != nil {
		logger.Error("failed to save tasks to local slot", "error", err)
		return false
	}
	return true
}

func (a *Adapter) Load(ctx context.Context) []domain.Task {
	raw, err := a.slot.Get(ctx, StorageKey)
	if err != nil {
		if !errors.Is(err, ErrSlotEmpty) {
			logger.Error("failed to load tasks from local slot", "error", err)
		}
		return []domain.Task{}
	}

	var tasks []domain.Task
	if err := json.Unmarshal([]byte(raw), &tasks); err != nil {
		logger.Error("failed to load tasks from local slot", "error", domain.NewError(domain.KindSerialization, "load", err))
		return []domain.Task{}
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks
}
