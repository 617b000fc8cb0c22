package domain

import (
	"context"
	"time"
)

// Task is a single to-do record owned by one user.
type Task struct {
	ID          string
	UserID      string
	Title       string
	Description string
	StartTime   string // free-form "HH:MM"
	EndTime     string // free-form "HH:MM"
	CreatedAt   time.Time
}

// NewTask holds the fields supplied when creating a task.
type NewTask struct {
	Title       string
	Description string
	StartTime   string
	EndTime     string
}

// TaskPatch holds the fields replaced by an edit. Nil fields are left alone.
type TaskPatch struct {
	Title       *string
	Description *string
}

// TaskRepository defines persistence operations for tasks.
type TaskRepository interface {
	Create(ctx context.Context, task *Task) error
	GetByID(ctx context.Context, id string) (*Task, error)
	// ListByUser returns the user's tasks, newest first.
	ListByUser(ctx context.Context, userID string) ([]Task, error)
	Update(ctx context.Context, id string, patch TaskPatch) error
	Delete(ctx context.Context, id string) error
}
