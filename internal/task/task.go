package task

import (
	"fmt"
	"math"
	"time"
)

// Status is a task's lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusBlocked    Status = "blocked"
	StatusFailed     Status = "failed"
)

// validTransitions lists the states each status may move to.
// Completed is terminal; blocked and failed tasks go back to pending.
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusInProgress, StatusBlocked},
	StatusInProgress: {StatusCompleted, StatusBlocked, StatusFailed},
	StatusBlocked:    {StatusPending},
	StatusFailed:     {StatusPending},
	StatusCompleted:  {},
}

// Task is a unit of plannable work.
type Task struct {
	ID             string            `json:"id"`
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Status         Status            `json:"status"`
	Priority       int               `json:"priority"` // 1-5, 5 is highest
	EstimatedHours float64           `json:"estimated_hours"`
	ActualHours    float64           `json:"actual_hours"`
	Dependencies   []string          `json:"dependencies"`
	AssignedTo     string            `json:"assigned_to,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	StartedAt      *time.Time        `json:"started_at,omitempty"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// NewTask creates a pending task with the lowest priority.
func NewTask(id, title, description string) *Task {
	return &Task{
		ID:           id,
		Title:        title,
		Description:  description,
		Status:       StatusPending,
		Priority:     1,
		Dependencies: []string{},
		CreatedAt:    time.Now(),
		Metadata:     map[string]string{},
	}
}

func (t *Task) transition(to Status) error {
	for _, s := range validTransitions[t.Status] {
		if s == to {
			t.Status = to
			return nil
		}
	}
	return fmt.Errorf("invalid transition from %s to %s", t.Status, to)
}

// CanStart reports whether every dependency appears in completed.
func (t *Task) CanStart(completed []string) bool {
	for _, dep := range t.Dependencies {
		found := false
		for _, id := range completed {
			if id == dep {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Start moves the task to in_progress and stamps the start time.
func (t *Task) Start() error {
	if err := t.transition(StatusInProgress); err != nil {
		return err
	}
	now := time.Now()
	t.StartedAt = &now
	return nil
}

// Complete moves the task to completed and records the actual hours
// spent since Start.
func (t *Task) Complete() error {
	if err := t.transition(StatusCompleted); err != nil {
		return err
	}
	now := time.Now()
	t.CompletedAt = &now
	if t.StartedAt != nil {
		t.ActualHours = roundHours(now.Sub(*t.StartedAt).Hours())
	}
	return nil
}

// Block parks the task with a reason.
func (t *Task) Block(reason string) error {
	if err := t.transition(StatusBlocked); err != nil {
		return err
	}
	if t.Metadata == nil {
		t.Metadata = map[string]string{}
	}
	t.Metadata["blocking_reason"] = reason
	return nil
}

// Fail marks the task as failed with a reason.
func (t *Task) Fail(reason string) error {
	if err := t.transition(StatusFailed); err != nil {
		return err
	}
	if t.Metadata == nil {
		t.Metadata = map[string]string{}
	}
	t.Metadata["failure_reason"] = reason
	return nil
}

// Unblock returns a blocked or failed task to the pending pool.
func (t *Task) Unblock() error {
	return t.transition(StatusPending)
}

func roundHours(h float64) float64 {
	return math.Round(h*100) / 100
}
