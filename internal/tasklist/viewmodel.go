// Package tasklist holds the per-viewer state of the task page: the last
// pushed snapshot plus the create and manage overlays and their drafts.
package tasklist

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/msomdec/cool-todo/internal/domain"
)

// Mode is the overlay state of the task page.
type Mode int

const (
	Browsing Mode = iota
	Creating
	Managing
	Editing
)

func (m Mode) String() string {
	switch m {
	case Creating:
		return "creating"
	case Managing:
		return "managing"
	case Editing:
		return "editing"
	default:
		return "browsing"
	}
}

// Notices shown when a store call fails.
const (
	NoticeCreateFailed = "Could not create the task. Please try again."
	NoticeUpdateFailed = "Could not save the task. Please try again."
	NoticeDeleteFailed = "Could not delete the task. Please try again."
)

// Mutator is the write side of the task store.
type Mutator interface {
	Create(ctx context.Context, ownerID string, in domain.NewTask) (string, error)
	Update(ctx context.Context, ownerID, taskID string, patch domain.TaskPatch) error
	Delete(ctx context.Context, ownerID, taskID string) error
}

// Draft holds unsaved form input for one overlay.
type Draft struct {
	Title       string
	Description string
	StartTime   string
	EndTime     string
}

// State is a consistent copy of a ViewModel for rendering.
type State struct {
	Mode       Mode
	Tasks      []domain.Task
	CreateOpen bool
	ManageOpen bool
	EditingID  string
	Create     Draft
	Edit       Draft
	Notice     string
}

// ViewModel is the task page of one viewer. It is safe for concurrent use
// by the stream handler and the action handlers.
type ViewModel struct {
	store Mutator
	owner string

	mu         sync.Mutex
	tasks      []domain.Task
	createOpen bool
	manageOpen bool
	editingID  string
	create     Draft
	edit       Draft
	notice     string
	lastUsed   time.Time
	listeners  map[chan struct{}]struct{}
}

// New creates a ViewModel in Browsing mode for owner.
func New(store Mutator, owner string) *ViewModel {
	return &ViewModel{
		store:     store,
		owner:     owner,
		lastUsed:  time.Now(),
		listeners: make(map[chan struct{}]struct{}),
	}
}

// Owner returns the user whose tasks this view shows.
func (vm *ViewModel) Owner() string {
	return vm.owner
}

// State returns a copy of the current state.
func (vm *ViewModel) State() State {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return State{
		Mode:       vm.modeLocked(),
		Tasks:      append([]domain.Task(nil), vm.tasks...),
		CreateOpen: vm.createOpen,
		ManageOpen: vm.manageOpen,
		EditingID:  vm.editingID,
		Create:     vm.create,
		Edit:       vm.edit,
		Notice:     vm.notice,
	}
}

// Mode returns the derived overlay mode.
func (vm *ViewModel) Mode() Mode {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.modeLocked()
}

func (vm *ViewModel) modeLocked() Mode {
	switch {
	case vm.createOpen:
		return Creating
	case vm.manageOpen && vm.editingID != "":
		return Editing
	case vm.manageOpen:
		return Managing
	default:
		return Browsing
	}
}

// Apply replaces the list with a pushed snapshot as is.
func (vm *ViewModel) Apply(tasks []domain.Task) {
	vm.update(func() {
		vm.tasks = tasks
		if vm.editingID != "" && !containsTask(tasks, vm.editingID) {
			vm.editingID = ""
			vm.edit = Draft{}
		}
	})
}

func (vm *ViewModel) OpenCreate() {
	vm.update(func() { vm.createOpen = true })
}

// CloseCreate hides the create overlay and discards its draft.
func (vm *ViewModel) CloseCreate() {
	vm.update(func() {
		vm.createOpen = false
		vm.create = Draft{}
	})
}

// SetCreateDraft records the create form input.
func (vm *ViewModel) SetCreateDraft(d Draft) {
	vm.update(func() { vm.create = d })
}

// SubmitCreate sends the create draft to the store. A blank title leaves
// everything as it was and returns domain.ErrInvalidInput. Any other outcome
// closes the overlay and clears the draft; a store failure also sets a
// notice and is returned.
func (vm *ViewModel) SubmitCreate(ctx context.Context) error {
	vm.mu.Lock()
	draft := vm.create
	vm.mu.Unlock()

	_, err := vm.store.Create(ctx, vm.owner, domain.NewTask{
		Title:       draft.Title,
		Description: draft.Description,
		StartTime:   draft.StartTime,
		EndTime:     draft.EndTime,
	})
	if errors.Is(err, domain.ErrInvalidInput) {
		return err
	}

	vm.update(func() {
		vm.createOpen = false
		vm.create = Draft{}
		if err != nil {
			vm.notice = NoticeCreateFailed
		}
	})
	if err != nil {
		slog.Error("create task", "owner", vm.owner, "error", err)
	}
	return err
}

func (vm *ViewModel) OpenManage() {
	vm.update(func() { vm.manageOpen = true })
}

// CloseManage hides the manage overlay and abandons any edit in progress.
func (vm *ViewModel) CloseManage() {
	vm.update(func() {
		vm.manageOpen = false
		vm.editingID = ""
		vm.edit = Draft{}
	})
}

// BeginEdit marks taskID as being edited and copies its title and
// description into the edit draft.
func (vm *ViewModel) BeginEdit(taskID string) error {
	var err error
	vm.update(func() {
		for _, t := range vm.tasks {
			if t.ID == taskID {
				vm.manageOpen = true
				vm.editingID = taskID
				vm.edit = Draft{Title: t.Title, Description: t.Description}
				return
			}
		}
		err = domain.ErrNotFound
	})
	return err
}

// SetEditDraft records the edit form input.
func (vm *ViewModel) SetEditDraft(title, description string) {
	vm.update(func() {
		vm.edit.Title = title
		vm.edit.Description = description
	})
}

// SaveEdit writes the edit draft and leaves edit mode. A blank title keeps
// the row in edit mode and returns domain.ErrInvalidInput.
func (vm *ViewModel) SaveEdit(ctx context.Context) error {
	vm.mu.Lock()
	id, draft := vm.editingID, vm.edit
	vm.mu.Unlock()
	if id == "" {
		return domain.ErrNotFound
	}

	err := vm.store.Update(ctx, vm.owner, id, domain.TaskPatch{
		Title:       &draft.Title,
		Description: &draft.Description,
	})
	if errors.Is(err, domain.ErrInvalidInput) {
		return err
	}

	vm.update(func() {
		if vm.editingID == id {
			vm.editingID = ""
			vm.edit = Draft{}
		}
		if err != nil {
			vm.notice = NoticeUpdateFailed
		}
	})
	if err != nil {
		slog.Error("update task", "owner", vm.owner, "task", id, "error", err)
	}
	return err
}

// CancelEdit leaves edit mode without saving.
func (vm *ViewModel) CancelEdit() {
	vm.update(func() {
		vm.editingID = ""
		vm.edit = Draft{}
	})
}

// Delete removes taskID. The list changes when the next snapshot arrives.
func (vm *ViewModel) Delete(ctx context.Context, taskID string) error {
	err := vm.store.Delete(ctx, vm.owner, taskID)
	if err != nil {
		slog.Error("delete task", "owner", vm.owner, "task", taskID, "error", err)
		vm.update(func() { vm.notice = NoticeDeleteFailed })
		return err
	}

	vm.update(func() {
		if vm.editingID == taskID {
			vm.editingID = ""
			vm.edit = Draft{}
		}
	})
	return nil
}

// DismissNotice clears the failure notice.
func (vm *ViewModel) DismissNotice() {
	vm.update(func() { vm.notice = "" })
}

// Attach registers a live stream of the view. changes fires after every
// state transition until detach is called; bursts coalesce. Each stream has
// its own channel, so every tab of a session sees every change. Attached
// views are never swept.
func (vm *ViewModel) Attach() (changes <-chan struct{}, detach func()) {
	ch := make(chan struct{}, 1)
	vm.mu.Lock()
	vm.listeners[ch] = struct{}{}
	vm.lastUsed = time.Now()
	vm.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			vm.mu.Lock()
			delete(vm.listeners, ch)
			vm.lastUsed = time.Now()
			vm.mu.Unlock()
		})
	}
}

func (vm *ViewModel) idleSince(cutoff time.Time) bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return len(vm.listeners) == 0 && vm.lastUsed.Before(cutoff)
}

func (vm *ViewModel) update(fn func()) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	fn()
	vm.lastUsed = time.Now()

	for ch := range vm.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func containsTask(tasks []domain.Task, id string) bool {
	for _, t := range tasks {
		if t.ID == id {
			return true
		}
	}
	return false
}
