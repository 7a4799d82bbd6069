package domain

import "strings"

// Status narrows a task list by completion.
type Status string

const (
	StatusAll       Status = "all"
	StatusCompleted Status = "completed"
	StatusPending   Status = "pending"
)

// FilterSpec describes which tasks a view shows. Empty Category and Priority
// mean no constraint. It only lives for the duration of a session.
type FilterSpec struct {
	Search   string `json:"search"`
	Category string `json:"category"`
	Priority string `json:"priority"`
	Status   Status `json:"status"`
}

func DefaultFilter() FilterSpec {
	return FilterSpec{Status: StatusAll}
}

// ParseFilterSpec builds a spec from raw query values. Search is kept verbatim;
// unknown statuses fall back to all.
func ParseFilterSpec(search, category, priority, status string) FilterSpec {
	spec := FilterSpec{
		Search:   search,
		Category: strings.TrimSpace(category),
		Priority: strings.TrimSpace(priority),
		Status:   StatusAll,
	}
	switch s := Status(strings.ToLower(strings.TrimSpace(status))); s {
	case StatusCompleted, StatusPending:
		spec.Status = s
	}
	return spec
}

// Matches reports whether t satisfies every constraint of spec.
func Matches(t Task, spec FilterSpec) bool {
	return matchesSearch(t, spec.Search) &&
		(spec.Category == "" || string(t.Category) == spec.Category) &&
		(spec.Priority == "" || string(t.Priority) == spec.Priority) &&
		matchesStatus(t, spec.Status)
}

func matchesSearch(t Task, search string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	if strings.Contains(strings.ToLower(t.Title), needle) {
		return true
	}
	return t.Description != "" && strings.Contains(strings.ToLower(t.Description), needle)
}

func matchesStatus(t Task, status Status) bool {
	switch status {
	case StatusCompleted:
		return t.Completed
	case StatusPending:
		return !t.Completed
	default:
		return true
	}
}

// Filter keeps the tasks matching spec, in input order.
func Filter(tasks []Task, spec FilterSpec) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if Matches(t, spec) {
			out = append(out, t)
		}
	}
	return out
}

type Counts struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}

// Count aggregates over the whole collection; Completed+Pending always equals Total.
func Count(tasks []Task) Counts {
	c := Counts{Total: len(tasks)}
	for _, t := range tasks {
		if t.Completed {
			c.Completed++
		}
	}
	c.Pending = c.Total - c.Completed
	return c
}

// View is what a list screen renders: the filtered subset plus counts over everything.
type View struct {
	Tasks  []Task     `json:"tasks"`
	Counts Counts     `json:"counts"`
	Filter FilterSpec `json:"filter"`
}

func BuildView(tasks []Task, spec FilterSpec) View {
	return View{
		Tasks:  Filter(tasks, spec),
		Counts: Count(tasks),
		Filter: spec,
	}
}
