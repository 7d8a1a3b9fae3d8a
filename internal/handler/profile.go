package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/melanieperez26/unitrack/internal/auth"
	"github.com/melanieperez26/unitrack/internal/backend"
	"github.com/melanieperez26/unitrack/internal/prefs"
	"github.com/melanieperez26/unitrack/internal/websocket"
)

// maxUploadSize caps multipart uploads for photos and files.
const maxUploadSize = 10 << 20

type ProfileHandler struct {
	docs    backend.DocumentStore
	blobs   backend.BlobStore
	session *prefs.Session
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewProfileHandler(docs backend.DocumentStore, blobs backend.BlobStore, session *prefs.Session, hub *websocket.Hub, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{docs: docs, blobs: blobs, session: session, hub: hub, logger: logger}
}

func (h *ProfileHandler) broadcast(userID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Send(userID, msg)
	}
}

// Get handles GET /api/profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	profile, err := h.docs.GetProfile(r.Context(), auth.UserID(r.Context()))
	if errors.Is(err, backend.ErrNotFound) {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	if err != nil {
		h.logger.Error("get profile", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

type profileRequest struct {
	DisplayName *string `json:"display_name"`
}

// Update handles PUT /api/profile
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req profileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if name == "" {
			writeError(w, http.StatusBadRequest, "display_name cannot be empty")
			return
		}
		req.DisplayName = &name
	}

	profile, err := h.docs.UpdateProfile(r.Context(), userID, req.DisplayName, nil)
	if errors.Is(err, backend.ErrNotFound) {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	if err != nil {
		h.logger.Error("update profile", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}

	if req.DisplayName != nil {
		if err := h.session.Save(userID, profile.DisplayName); err != nil {
			h.logger.Warn("save session username", "user_id", userID, "error", err)
		}
	}
	h.broadcast(userID, websocket.NewMessage("profile", "updated", userID, nil))
	writeJSON(w, http.StatusOK, profile)
}

// UploadPhoto handles POST /api/profile/photo with a multipart "photo" field.
func (h *ProfileHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("photo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "photo is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		writeError(w, http.StatusBadRequest, "photo must be an image")
		return
	}

	url, err := h.blobs.Upload(r.Context(), backend.ProfileImagePath(userID), contentType, file, header.Size)
	if errors.Is(err, backend.ErrBlobsDisabled) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("upload profile photo", "user_id", userID, "error", err)
		writeError(w, http.StatusBadGateway, "failed to upload photo")
		return
	}

	profile, err := h.docs.UpdateProfile(r.Context(), userID, nil, &url)
	if err != nil {
		h.logger.Error("save photo url", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}

	h.broadcast(userID, websocket.NewMessage("profile", "updated", userID, nil))
	writeJSON(w, http.StatusOK, profile)
}

type UploadHandler struct {
	blobs  backend.BlobStore
	logger *slog.Logger
}

func NewUploadHandler(blobs backend.BlobStore, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{blobs: blobs, logger: logger}
}

// Upload handles POST /api/uploads with a multipart "file" field.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	url, err := h.blobs.Upload(r.Context(), backend.UploadPath(userID, header.Filename), contentType, file, header.Size)
	if errors.Is(err, backend.ErrBlobsDisabled) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("upload file", "user_id", userID, "error", err)
		writeError(w, http.StatusBadGateway, "failed to upload file")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}
