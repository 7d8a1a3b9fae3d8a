package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/melanieperez26/unitrack/internal/auth"
	"github.com/melanieperez26/unitrack/internal/backend"
	"github.com/melanieperez26/unitrack/internal/editor"
	"github.com/melanieperez26/unitrack/internal/model"
	"github.com/melanieperez26/unitrack/internal/websocket"
)

type TaskHandler struct {
	docs   backend.DocumentStore
	editor *editor.Editor
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewTaskHandler(docs backend.DocumentStore, ed *editor.Editor, hub *websocket.Hub, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{docs: docs, editor: ed, hub: hub, logger: logger}
}

func (h *TaskHandler) broadcast(userID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Send(userID, msg)
	}
}

// List handles GET /api/tasks
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.docs.ListTasks(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list tasks", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// Get handles GET /api/tasks/{id}
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	task, err := h.docs.GetTask(r.Context(), auth.UserID(r.Context()), id)
	if errors.Is(err, backend.ErrNotFound) {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	if err != nil {
		h.logger.Error("get task", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Create handles POST /api/tasks
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, 0, http.StatusCreated)
}

// Update handles PUT /api/tasks/{id}
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	h.save(w, r, id, http.StatusOK)
}

func (h *TaskHandler) save(w http.ResponseWriter, r *http.Request, id int64, status int) {
	userID := auth.UserID(r.Context())

	var in editor.TaskInput
	if !decodeJSON(w, r, &in) {
		return
	}

	res, err := h.editor.SaveTask(r.Context(), userID, id, in)
	if err != nil {
		if writeEditorError(w, err) {
			return
		}
		h.logger.Error("save task", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save task")
		return
	}

	task, err := h.docs.GetTask(r.Context(), userID, res.ID)
	if err != nil {
		h.logger.Error("reload task", "id", res.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load task")
		return
	}

	action := "updated"
	if id == 0 {
		action = "created"
	}
	h.broadcast(userID, websocket.NewMessage("task", action, task.ID, nil))

	writeJSON(w, status, map[string]any{"task": task, "reminder": res.Reminder})
}

// Delete handles DELETE /api/tasks/{id}
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.editor.DeleteTask(r.Context(), userID, id); err != nil {
		if writeEditorError(w, err) {
			return
		}
		h.logger.Error("delete task", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete task")
		return
	}

	h.broadcast(userID, websocket.NewMessage("task", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}
