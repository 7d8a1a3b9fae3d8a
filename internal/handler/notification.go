package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/melanieperez26/unitrack/internal/auth"
	"github.com/melanieperez26/unitrack/internal/model"
	"github.com/melanieperez26/unitrack/internal/notify"
)

// PendingLister lists the alarms a user has waiting.
type PendingLister interface {
	Pending(ownerID int64) ([]model.Alarm, error)
}

type NotificationHandler struct {
	tray    *notify.Tray
	pending PendingLister
	logger  *slog.Logger
}

func NewNotificationHandler(tray *notify.Tray, pending PendingLister, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{tray: tray, pending: pending, logger: logger}
}

// List handles GET /api/notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.tray.List(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list notifications", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	if list == nil {
		list = []model.Notification{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Dismiss handles DELETE /api/notifications/{id}
func (h *NotificationHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.tray.Dismiss(auth.UserID(r.Context()), int32(id)); err != nil {
		h.logger.Error("dismiss notification", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to dismiss notification")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Pending handles GET /api/reminders/pending
func (h *NotificationHandler) Pending(w http.ResponseWriter, r *http.Request) {
	alarms, err := h.pending.Pending(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list pending reminders", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list reminders")
		return
	}
	if alarms == nil {
		alarms = []model.Alarm{}
	}
	writeJSON(w, http.StatusOK, alarms)
}
