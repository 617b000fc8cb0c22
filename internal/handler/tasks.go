package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/msomdec/cool-todo/internal/domain"
	"github.com/msomdec/cool-todo/internal/form"
	"github.com/msomdec/cool-todo/internal/service"
	"github.com/msomdec/cool-todo/internal/session"
	"github.com/msomdec/cool-todo/internal/tasklist"
	"github.com/msomdec/cool-todo/internal/view"
	"github.com/starfederation/datastar-go/datastar"
)

// TaskHandler serves the live task page. Every browser session has a view
// model in the registry; actions change it and the stream re-renders the
// board whenever it or the task list changes.
type TaskHandler struct {
	store *service.TaskStore
	views *tasklist.Registry
	gate  *session.Gate

	create *form.Schema
	edit   *form.Schema
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(store *service.TaskStore, views *tasklist.Registry, gate *session.Gate) *TaskHandler {
	return &TaskHandler{
		store:  store,
		views:  views,
		gate:   gate,
		create: form.MustLookup(form.TaskCreate),
		edit:   form.MustLookup(form.TaskEdit),
	}
}

func (h *TaskHandler) view(r *http.Request) *tasklist.ViewModel {
	res := session.FromContext(r.Context())
	return h.views.Get(res.SessionID, res.User.UID)
}

// HandlePage renders the task page with the current list. The page opens
// the stream once loaded.
func (h *TaskHandler) HandlePage(w http.ResponseWriter, r *http.Request) {
	vm := h.view(r)
	tasks, err := h.store.List(r.Context(), vm.Owner())
	if err != nil {
		slog.Error("list tasks", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	vm.Apply(tasks)

	view.TasksPage(view.TasksData{
		Page:  view.Page{User: session.UserFromContext(r.Context())},
		State: vm.State(),
	}).Render(r.Context(), w)
}

// HandleStream keeps the board in sync until the browser goes away or the
// session ends.
func (h *TaskHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res := session.FromContext(ctx)
	vm := h.views.Get(res.SessionID, res.User.UID)
	changes, detach := vm.Attach()
	defer detach()

	tasks, err := h.store.Subscribe(ctx, vm.Owner())
	if err != nil {
		slog.Error("subscribe tasks", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	defer tasks.Cancel()

	identity, err := h.gate.Watch(ctx, res)
	if err != nil {
		slog.Error("watch session", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	defer identity.Cancel()

	sse := datastar.NewSSE(w, r)
	user := res.User
	for {
		select {
		case <-ctx.Done():
			return
		case list, ok := <-tasks.C():
			if !ok {
				return
			}
			vm.Apply(list)
		case u, ok := <-identity.C():
			if !ok {
				return
			}
			if u == nil {
				sse.Redirect("/")
				return
			}
			user = u
			if err := patchBoard(sse, user, vm); err != nil {
				return
			}
		case <-changes:
			if err := patchBoard(sse, user, vm); err != nil {
				return
			}
		}
	}
}

func patchBoard(sse *datastar.ServerSentEventGenerator, user *domain.User, vm *tasklist.ViewModel) error {
	return sse.PatchElementTempl(view.TaskBoard(view.TasksData{
		Page:  view.Page{User: user},
		State: vm.State(),
	}))
}

// respond reloads the list and patches the board after an action so that
// the page updates even without a stream.
func (h *TaskHandler) respond(sse *datastar.ServerSentEventGenerator, r *http.Request, vm *tasklist.ViewModel) {
	tasks, err := h.store.List(r.Context(), vm.Owner())
	if err != nil {
		slog.Error("list tasks", "error", err)
	} else {
		vm.Apply(tasks)
	}
	if err := patchBoard(sse, session.UserFromContext(r.Context()), vm); err != nil {
		slog.Error("patch task board", "error", err)
	}
}

// simple wraps a view model transition that takes no input.
func (h *TaskHandler) simple(fn func(*tasklist.ViewModel)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vm := h.view(r)
		fn(vm)
		h.respond(datastar.NewSSE(w, r), r, vm)
	}
}

// HandleOpenCreate shows the create overlay with a blank form.
func (h *TaskHandler) HandleOpenCreate(w http.ResponseWriter, r *http.Request) {
	vm := h.view(r)
	vm.OpenCreate()
	sse := datastar.NewSSE(w, r)
	if err := resetForm(sse, h.create); err != nil {
		slog.Error("reset create form", "error", err)
	}
	h.respond(sse, r, vm)
}

func (h *TaskHandler) HandleCloseCreate(w http.ResponseWriter, r *http.Request) {
	h.simple((*tasklist.ViewModel).CloseCreate)(w, r)
}

func (h *TaskHandler) HandleOpenManage(w http.ResponseWriter, r *http.Request) {
	h.simple((*tasklist.ViewModel).OpenManage)(w, r)
}

func (h *TaskHandler) HandleCloseManage(w http.ResponseWriter, r *http.Request) {
	h.simple((*tasklist.ViewModel).CloseManage)(w, r)
}

func (h *TaskHandler) HandleDismissNotice(w http.ResponseWriter, r *http.Request) {
	h.simple((*tasklist.ViewModel).DismissNotice)(w, r)
}

func (h *TaskHandler) HandleCancelEdit(w http.ResponseWriter, r *http.Request) {
	h.simple((*tasklist.ViewModel).CancelEdit)(w, r)
}

// HandleCreate submits the create form. A missing title keeps the overlay
// open with the field error shown.
func (h *TaskHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	vm := h.view(r)
	c, err := readForm(r, h.create)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	err = c.Submit(r.Context(), func(ctx context.Context, v map[string]string) error {
		vm.SetCreateDraft(tasklist.Draft{
			Title:       v["title"],
			Description: v["description"],
			StartTime:   v["startTime"],
			EndTime:     v["endTime"],
		})
		return vm.SubmitCreate(ctx)
	})

	sse := datastar.NewSSE(w, r)
	if errors.Is(err, form.ErrInvalid) || errors.Is(err, domain.ErrInvalidInput) {
		if err := patchFeedback(sse, c); err != nil {
			slog.Error("patch form feedback", "form", h.create.Name, "error", err)
		}
		return
	}
	if err := resetForm(sse, h.create); err != nil {
		slog.Error("reset create form", "error", err)
	}
	h.respond(sse, r, vm)
}

// HandleBeginEdit switches a row to edit mode and fills the edit form with
// its title and description.
func (h *TaskHandler) HandleBeginEdit(w http.ResponseWriter, r *http.Request) {
	vm := h.view(r)
	sse := datastar.NewSSE(w, r)
	if err := vm.BeginEdit(r.PathValue("id")); err != nil {
		if err := sse.PatchElementTempl(view.Toast("That task no longer exists.")); err != nil {
			slog.Error("patch toast", "error", err)
		}
		h.respond(sse, r, vm)
		return
	}

	draft := vm.State().Edit
	c := form.New(h.edit)
	c.Load(map[string]string{"title": draft.Title, "description": draft.Description}, nil)
	if err := sse.MarshalAndPatchSignals(map[string]form.Signals{h.edit.Name: c.Signals()}); err != nil {
		slog.Error("patch edit form", "error", err)
	}
	h.respond(sse, r, vm)
}

// HandleSaveEdit submits the edit form of the row being edited.
func (h *TaskHandler) HandleSaveEdit(w http.ResponseWriter, r *http.Request) {
	vm := h.view(r)
	if vm.State().EditingID != r.PathValue("id") {
		h.respond(datastar.NewSSE(w, r), r, vm)
		return
	}

	c, err := readForm(r, h.edit)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	err = c.Submit(r.Context(), func(ctx context.Context, v map[string]string) error {
		vm.SetEditDraft(v["title"], v["description"])
		return vm.SaveEdit(ctx)
	})

	sse := datastar.NewSSE(w, r)
	if errors.Is(err, form.ErrInvalid) || errors.Is(err, domain.ErrInvalidInput) {
		if err := patchFeedback(sse, c); err != nil {
			slog.Error("patch form feedback", "form", h.edit.Name, "error", err)
		}
		return
	}
	if err := resetForm(sse, h.edit); err != nil {
		slog.Error("reset edit form", "error", err)
	}
	h.respond(sse, r, vm)
}

// HandleDelete removes a task. Failures surface as the board notice.
func (h *TaskHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	vm := h.view(r)
	vm.Delete(r.Context(), r.PathValue("id"))
	h.respond(datastar.NewSSE(w, r), r, vm)
}

// HandleAPIList handles GET /api/tasks.
func (h *TaskHandler) HandleAPIList(w http.ResponseWriter, r *http.Request) {
	user := session.UserFromContext(r.Context())
	tasks, err := h.store.List(r.Context(), user.UID)
	if err != nil {
		slog.Error("list tasks", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list tasks.")
		return
	}
	writeJSON(w, http.StatusOK, toTaskDTOs(tasks))
}

// HandleAPICreate handles POST /api/tasks.
func (h *TaskHandler) HandleAPICreate(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	user := session.UserFromContext(r.Context())
	id, err := h.store.Create(r.Context(), user.UID, domain.NewTask{
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
	})
	if err != nil {
		h.writeTaskError(w, err, "create task")
		return
	}
	writeJSON(w, http.StatusCreated, CreatedResponse{ID: id})
}

// HandleAPIUpdate handles PATCH /api/tasks/{id}.
func (h *TaskHandler) HandleAPIUpdate(w http.ResponseWriter, r *http.Request) {
	var req UpdateTaskRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	user := session.UserFromContext(r.Context())
	err := h.store.Update(r.Context(), user.UID, r.PathValue("id"), domain.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		h.writeTaskError(w, err, "update task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAPIDelete handles DELETE /api/tasks/{id}.
func (h *TaskHandler) HandleAPIDelete(w http.ResponseWriter, r *http.Request) {
	user := session.UserFromContext(r.Context())
	if err := h.store.Delete(r.Context(), user.UID, r.PathValue("id")); err != nil {
		h.writeTaskError(w, err, "delete task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) writeTaskError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{
			Errors: map[string]string{"title": "Title is required"},
		})
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Task not found.")
	default:
		slog.Error(op, "error", err)
		writeError(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
	}
}
