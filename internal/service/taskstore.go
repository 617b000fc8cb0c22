package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/msomdec/cool-todo/internal/domain"
	"github.com/msomdec/cool-todo/internal/livequery"
)

// TaskStore is the live task collection: one-shot mutations plus
// subscriptions that receive the owner's complete list after every change.
type TaskStore struct {
	tasks domain.TaskRepository
	hub   *livequery.Hub[string, []domain.Task]

	mu     sync.Mutex
	owners map[string]*sync.Mutex
}

// NewTaskStore creates a new TaskStore.
func NewTaskStore(tasks domain.TaskRepository) *TaskStore {
	return &TaskStore{
		tasks:  tasks,
		hub:    livequery.NewHub[string, []domain.Task](),
		owners: make(map[string]*sync.Mutex),
	}
}

// ownerLock serializes the read-then-deliver steps of one owner so that a
// subscriber never ends on an older list than the one last published.
func (s *TaskStore) ownerLock(ownerID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.owners[ownerID]
	if !ok {
		l = &sync.Mutex{}
		s.owners[ownerID] = l
	}
	return l
}

// Subscribe opens a live query over ownerID's tasks, newest first. The
// current list is delivered immediately.
func (s *TaskStore) Subscribe(ctx context.Context, ownerID string) (*livequery.Subscription[[]domain.Task], error) {
	l := s.ownerLock(ownerID)
	l.Lock()
	defer l.Unlock()

	sub := s.hub.Subscribe(ctx, ownerID)
	tasks, err := s.tasks.ListByUser(ctx, ownerID)
	if err != nil {
		sub.Cancel()
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	sub.Send(tasks)
	return sub, nil
}

// List returns ownerID's tasks, newest first.
func (s *TaskStore) List(ctx context.Context, ownerID string) ([]domain.Task, error) {
	tasks, err := s.tasks.ListByUser(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Create adds a task owned by ownerID and returns its ID. A blank title is
// rejected and nothing is written.
func (s *TaskStore) Create(ctx context.Context, ownerID string, in domain.NewTask) (string, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return "", fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}

	task := &domain.Task{
		ID:          uuid.NewString(),
		UserID:      ownerID,
		Title:       title,
		Description: in.Description,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return "", fmt.Errorf("create task: %w", err)
	}

	s.publish(ctx, ownerID)
	return task.ID, nil
}

// Update replaces the title and/or description of one of ownerID's tasks.
func (s *TaskStore) Update(ctx context.Context, ownerID, taskID string, patch domain.TaskPatch) error {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
		}
		patch.Title = &title
	}

	if err := s.owned(ctx, ownerID, taskID); err != nil {
		return err
	}
	if err := s.tasks.Update(ctx, taskID, patch); err != nil {
		return fmt.Errorf("update task: %w", err)
	}

	s.publish(ctx, ownerID)
	return nil
}

// Delete removes one of ownerID's tasks.
func (s *TaskStore) Delete(ctx context.Context, ownerID, taskID string) error {
	if err := s.owned(ctx, ownerID, taskID); err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, taskID); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	s.publish(ctx, ownerID)
	return nil
}

// owned hides other users' tasks behind ErrNotFound.
func (s *TaskStore) owned(ctx context.Context, ownerID, taskID string) error {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return err
	}
	if task.UserID != ownerID {
		return domain.ErrNotFound
	}
	return nil
}

func (s *TaskStore) publish(ctx context.Context, ownerID string) {
	l := s.ownerLock(ownerID)
	l.Lock()
	defer l.Unlock()

	if s.hub.Subscribers(ownerID) == 0 {
		return
	}
	// Subscribers outlive the mutating request.
	tasks, err := s.tasks.ListByUser(context.WithoutCancel(ctx), ownerID)
	if err != nil {
		slog.Error("refresh task snapshot", "owner", ownerID, "error", err)
		return
	}
	s.hub.Publish(ownerID, tasks)
}
