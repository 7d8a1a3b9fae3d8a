package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/melanieperez26/unitrack/internal/auth"
	"github.com/melanieperez26/unitrack/internal/backend"
	"github.com/melanieperez26/unitrack/internal/middleware"
	"github.com/melanieperez26/unitrack/internal/model"
	"github.com/melanieperez26/unitrack/internal/prefs"
)

// StreamCloser ends a user's live update streams.
type StreamCloser interface {
	CloseUser(userID int64) int
}

type AuthHandler struct {
	accounts     backend.AuthProvider
	docs         backend.DocumentStore
	session      *prefs.Session
	streams      StreamCloser
	secureCookie bool
	logger       *slog.Logger
}

func NewAuthHandler(accounts backend.AuthProvider, docs backend.DocumentStore, session *prefs.Session, streams StreamCloser, secureCookie bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		accounts:     accounts,
		docs:         docs,
		session:      session,
		streams:      streams,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

type credentialsRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type accountResponse struct {
	User      *model.User    `json:"user"`
	Profile   *model.Profile `json:"profile,omitempty"`
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// SignUp handles POST /api/auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	acct, err := h.accounts.SignUp(r.Context(), req.Email, req.Password, req.DisplayName)
	switch {
	case errors.Is(err, backend.ErrInvalidEmail), errors.Is(err, backend.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, backend.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		h.logger.Error("sign up", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	h.startSession(w, r, acct, http.StatusCreated)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	acct, err := h.accounts.SignIn(r.Context(), req.Email, req.Password)
	if errors.Is(err, backend.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("sign in", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to sign in")
		return
	}

	h.startSession(w, r, acct, http.StatusOK)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, acct *backend.Account, status int) {
	profile, err := h.docs.GetProfile(r.Context(), acct.User.ID)
	if err != nil {
		h.logger.Warn("load profile after sign in", "user_id", acct.User.ID, "error", err)
	}
	if profile != nil {
		if err := h.session.Save(acct.User.ID, profile.DisplayName); err != nil {
			h.logger.Warn("save session username", "user_id", acct.User.ID, "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    acct.Session.Token,
		Path:     "/",
		Expires:  acct.Session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, status, accountResponse{
		User:      acct.User,
		Profile:   profile,
		Token:     acct.Session.Token,
		ExpiresAt: acct.Session.ExpiresAt,
	})
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.CurrentUser(r.Context())
	if err != nil {
		h.logger.Error("current user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "not signed in")
		return
	}

	resp := map[string]any{"user": user}
	if name, ok, err := h.session.Username(user.ID); err == nil && ok {
		resp["username"] = name
	}
	writeJSON(w, http.StatusOK, resp)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword handles PUT /api/auth/password. Other devices are signed out.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	acct, err := h.accounts.ChangePassword(r.Context(), req.CurrentPassword, req.NewPassword)
	switch {
	case errors.Is(err, backend.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "current password is incorrect")
		return
	case errors.Is(err, backend.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error("change password", "user_id", auth.UserID(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to change password")
		return
	}

	// streams opened with revoked sessions must reconnect
	h.streams.CloseUser(acct.User.ID)
	h.startSession(w, r, acct, http.StatusOK)
}

// DeleteAccount handles DELETE /api/account
func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	userID := auth.UserID(r.Context())
	err := h.accounts.DeleteAccount(r.Context(), req.Password)
	if errors.Is(err, backend.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "password is incorrect")
		return
	}
	if err != nil {
		h.logger.Error("delete account", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete account")
		return
	}

	h.streams.CloseUser(userID)
	h.logger.Info("account deleted", "user_id", userID)
	h.expireCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.SessionToken(r)
	if token != "" {
		if err := h.accounts.SignOut(r.Context(), token); err != nil {
			h.logger.Error("sign out", "error", err)
		}
	}
	if userID := auth.UserID(r.Context()); userID != 0 {
		if err := h.session.Clear(userID); err != nil {
			h.logger.Warn("clear session username", "user_id", userID, "error", err)
		}
	}

	h.expireCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) expireCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
