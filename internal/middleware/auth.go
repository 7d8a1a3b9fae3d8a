package middleware

import (
	"net/http"
	"strings"

	"github.com/melanieperez26/unitrack/internal/auth"
	"github.com/melanieperez26/unitrack/internal/store"
)

// SessionCookieName is the cookie carrying the session token for browser clients.
const SessionCookieName = "unitrack_session"

// SessionToken returns the bearer token from the Authorization header, or
// the session cookie when no header is present.
func SessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// RequireAuth validates the session token and populates AuthContext.
func RequireAuth(sessionStore *store.SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := SessionToken(r)
			if token == "" {
				unauthorized(w)
				return
			}

			sess, err := sessionStore.GetByToken(token)
			if err != nil || sess == nil {
				unauthorized(w)
				return
			}

			p := auth.Principal{
				UserID:    sess.UserID,
				SessionID: sess.ID,
				ExpiresAt: sess.ExpiresAt,
			}

			ctx := auth.WithPrincipal(r.Context(), p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="unitrack"`)
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"not signed in"}` + "\n"))
}
