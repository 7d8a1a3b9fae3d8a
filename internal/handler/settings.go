package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/melanieperez26/unitrack/internal/auth"
	"github.com/melanieperez26/unitrack/internal/prefs"
)

type SettingsHandler struct {
	theme  *prefs.Theme
	logger *slog.Logger
}

func NewSettingsHandler(theme *prefs.Theme, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{theme: theme, logger: logger}
}

// GetTheme handles GET /api/settings/theme
func (h *SettingsHandler) GetTheme(w http.ResponseWriter, r *http.Request) {
	pref, err := h.theme.Get(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("get theme", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load theme")
		return
	}
	writeJSON(w, http.StatusOK, pref)
}

// StreamTheme handles GET /api/settings/theme/stream. It answers with
// server-sent events: the current theme first, then one event per change,
// until the client goes away.
func (h *SettingsHandler) StreamTheme(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	rc := http.NewResponseController(w)

	themes, err := h.theme.Read(r.Context(), userID)
	if err != nil {
		h.logger.Error("read theme", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load theme")
		return
	}

	// the stream outlives the server's write timeout
	rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	for pref := range themes {
		b, err := json.Marshal(pref)
		if err != nil {
			h.logger.Error("encode theme", "error", err)
			return
		}
		if _, err := fmt.Fprintf(w, "event: theme\ndata: %s\n\n", b); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

// themeRequest keeps fields raw so an absent field is left alone while an
// explicit null clears the stored value.
type themeRequest struct {
	DarkModeOverride    json.RawMessage `json:"dark_mode_override"`
	DynamicColorEnabled *bool           `json:"dynamic_color_enabled"`
	PrimaryColorARGB    json.RawMessage `json:"primary_color_argb"`
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// UpdateTheme handles PUT /api/settings/theme
func (h *SettingsHandler) UpdateTheme(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req themeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var (
		dark     *bool
		color    *int32
		setDark  = len(req.DarkModeOverride) > 0
		setColor = len(req.PrimaryColorARGB) > 0
	)
	if setDark && !isNull(req.DarkModeOverride) {
		var b bool
		if err := json.Unmarshal(req.DarkModeOverride, &b); err != nil {
			writeError(w, http.StatusBadRequest, "dark_mode_override must be a boolean or null")
			return
		}
		dark = &b
	}
	if setColor && !isNull(req.PrimaryColorARGB) {
		var c int32
		if err := json.Unmarshal(req.PrimaryColorARGB, &c); err != nil {
			writeError(w, http.StatusBadRequest, "primary_color_argb must be a 32-bit integer or null")
			return
		}
		color = &c
	}

	if setDark {
		if err := h.theme.SetDarkOverride(userID, dark); err != nil {
			h.logger.Error("set dark override", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to save theme")
			return
		}
	}
	if req.DynamicColorEnabled != nil {
		if err := h.theme.SetDynamicColor(userID, *req.DynamicColorEnabled); err != nil {
			h.logger.Error("set dynamic color", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to save theme")
			return
		}
	}
	if setColor {
		if err := h.theme.SetPrimaryColor(userID, color); err != nil {
			h.logger.Error("set primary color", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to save theme")
			return
		}
	}

	h.GetTheme(w, r)
}
