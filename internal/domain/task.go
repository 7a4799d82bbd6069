package domain

import (
	"strings"
	"time"
)

// Priority is the importance level of a task.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// Category groups tasks by area of life.
type Category string

const (
	CategoryPersonal Category = "personal"
	CategoryWork     Category = "work"
	CategoryShopping Category = "shopping"
	CategoryHealth   Category = "health"
	CategoryOther    Category = "other"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryPersonal, CategoryWork, CategoryShopping, CategoryHealth, CategoryOther:
		return true
	default:
		return false
	}
}

type Task struct {
	ID          string    `db:"id" json:"id"`
	UserID      int64     `db:"user_id" json:"user_id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description,omitempty"`
	Completed   bool      `db:"completed" json:"completed"`
	Priority    Priority  `db:"priority" json:"priority"`
	Category    Category  `db:"category" json:"category"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Draft is the payload of an add intent. Zero values fall back to defaults.
type Draft struct {
	Title       string   `json:"title" binding:"required,notblank,max=200"`
	Description string   `json:"description" binding:"max=2000"`
	Completed   bool     `json:"completed"`
	Priority    Priority `json:"priority" binding:"omitempty,oneof=high medium low"`
	Category    Category `json:"category" binding:"omitempty,oneof=personal work shopping health other"`
}

// Normalize trims the title and fills in default priority and category.
func (d Draft) Normalize() (Draft, error) {
	d.Title = strings.TrimSpace(d.Title)
	if d.Title == "" {
		return Draft{}, Errorf(KindInvalid, "normalize draft", "title is required")
	}
	if d.Priority == "" {
		d.Priority = PriorityMedium
	}
	if !d.Priority.Valid() {
		return Draft{}, Errorf(KindInvalid, "normalize draft", "unknown priority %q", d.Priority)
	}
	if d.Category == "" {
		d.Category = CategoryPersonal
	}
	if !d.Category.Valid() {
		return Draft{}, Errorf(KindInvalid, "normalize draft", "unknown category %q", d.Category)
	}
	return d, nil
}

// NewTask builds a not-yet-persisted task from a draft. ID is left empty;
// the store assigns it.
func NewTask(userID int64, d Draft, now time.Time) (Task, error) {
	d, err := d.Normalize()
	if err != nil {
		return Task{}, err
	}
	return Task{
		UserID:      userID,
		Title:       d.Title,
		Description: d.Description,
		Completed:   d.Completed,
		Priority:    d.Priority,
		Category:    d.Category,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Patch carries a partial edit. Nil fields are left untouched.
type Patch struct {
	Title       *string   `json:"title,omitempty" binding:"omitempty,notblank,max=200"`
	Description *string   `json:"description,omitempty" binding:"omitempty,max=2000"`
	Completed   *bool     `json:"completed,omitempty"`
	Priority    *Priority `json:"priority,omitempty" binding:"omitempty,oneof=high medium low"`
	Category    *Category `json:"category,omitempty" binding:"omitempty,oneof=personal work shopping health other"`
}

// Normalize trims the title and rejects values outside the enumerations.
func (p Patch) Normalize() (Patch, error) {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return Patch{}, Errorf(KindInvalid, "normalize patch", "title must not be empty")
		}
		p.Title = &title
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return Patch{}, Errorf(KindInvalid, "normalize patch", "unknown priority %q", *p.Priority)
	}
	if p.Category != nil && !p.Category.Valid() {
		return Patch{}, Errorf(KindInvalid, "normalize patch", "unknown category %q", *p.Category)
	}
	return p, nil
}

// Apply returns the edited copy of t. ID, owner and CreatedAt are preserved,
// UpdatedAt is always refreshed.
func (t Task) Apply(p Patch, now time.Time) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	t.UpdatedAt = now
	return t
}

// Toggled returns a copy of t with Completed negated.
func (t Task) Toggled(now time.Time) Task {
	t.Completed = !t.Completed
	t.UpdatedAt = now
	return t
}

// FindTask returns the task with the given id.
func FindTask(tasks []Task, id string) (Task, bool) {
	for _, t := range tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}
