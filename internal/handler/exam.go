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

type ExamHandler struct {
	docs   backend.DocumentStore
	editor *editor.Editor
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewExamHandler(docs backend.DocumentStore, ed *editor.Editor, hub *websocket.Hub, logger *slog.Logger) *ExamHandler {
	return &ExamHandler{docs: docs, editor: ed, hub: hub, logger: logger}
}

func (h *ExamHandler) broadcast(userID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Send(userID, msg)
	}
}

// List handles GET /api/exams
func (h *ExamHandler) List(w http.ResponseWriter, r *http.Request) {
	exams, err := h.docs.ListExams(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list exams", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list exams")
		return
	}
	if exams == nil {
		exams = []model.Exam{}
	}
	writeJSON(w, http.StatusOK, exams)
}

// Get handles GET /api/exams/{id}
func (h *ExamHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	exam, err := h.docs.GetExam(r.Context(), auth.UserID(r.Context()), id)
	if errors.Is(err, backend.ErrNotFound) {
		writeError(w, http.StatusNotFound, "exam not found")
		return
	}
	if err != nil {
		h.logger.Error("get exam", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get exam")
		return
	}
	writeJSON(w, http.StatusOK, exam)
}

// Create handles POST /api/exams
func (h *ExamHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, 0, http.StatusCreated)
}

// Update handles PUT /api/exams/{id}
func (h *ExamHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	h.save(w, r, id, http.StatusOK)
}

func (h *ExamHandler) save(w http.ResponseWriter, r *http.Request, id int64, status int) {
	userID := auth.UserID(r.Context())

	var in editor.ExamInput
	if !decodeJSON(w, r, &in) {
		return
	}

	res, err := h.editor.SaveExam(r.Context(), userID, id, in)
	if err != nil {
		if writeEditorError(w, err) {
			return
		}
		h.logger.Error("save exam", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save exam")
		return
	}

	exam, err := h.docs.GetExam(r.Context(), userID, res.ID)
	if err != nil {
		h.logger.Error("reload exam", "id", res.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load exam")
		return
	}

	action := "updated"
	if id == 0 {
		action = "created"
	}
	h.broadcast(userID, websocket.NewMessage("exam", action, exam.ID, nil))

	writeJSON(w, status, map[string]any{"exam": exam, "reminder": res.Reminder})
}

// Delete handles DELETE /api/exams/{id}
func (h *ExamHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.editor.DeleteExam(r.Context(), userID, id); err != nil {
		if writeEditorError(w, err) {
			return
		}
		h.logger.Error("delete exam", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete exam")
		return
	}

	h.broadcast(userID, websocket.NewMessage("exam", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}
