package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/melanieperez26/unitrack/internal/auth"
	"github.com/melanieperez26/unitrack/internal/database"
	"github.com/melanieperez26/unitrack/internal/store"
)

func setupAuthMiddlewareDB(t *testing.T) (*store.SessionStore, *store.UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return store.NewSessionStore(db, time.Hour), store.NewUserStore(db)
}

func mustNotReach(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	})
}

func TestRequireAuthNoToken(t *testing.T) {
	ss, _ := setupAuthMiddlewareDB(t)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	RequireAuth(ss)(mustNotReach(t)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestRequireAuthInvalidToken(t *testing.T) {
	ss, _ := setupAuthMiddlewareDB(t)

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "invalid-token"})
	rec := httptest.NewRecorder()
	RequireAuth(ss)(mustNotReach(t)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthValidSession(t *testing.T) {
	tests := []struct {
		name  string
		apply func(r *http.Request, token string)
	}{
		{"cookie", func(r *http.Request, token string) {
			r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
		}},
		{"bearer", func(r *http.Request, token string) {
			r.Header.Set("Authorization", "Bearer "+token)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ss, us := setupAuthMiddlewareDB(t)
			u, err := us.Create("alice@example.com", "hash")
			if err != nil {
				t.Fatalf("create user: %v", err)
			}
			sess, err := ss.Create(u.ID)
			if err != nil {
				t.Fatalf("create session: %v", err)
			}

			var gotP auth.Principal
			handler := RequireAuth(ss)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				p, ok := auth.PrincipalFrom(r.Context())
				if !ok {
					t.Fatal("expected principal in request context")
				}
				gotP = p
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest("GET", "/", nil)
			tt.apply(req, sess.Token)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
			}
			if gotP.UserID != u.ID {
				t.Errorf("UserID = %d, want %d", gotP.UserID, u.ID)
			}
			if gotP.SessionID != sess.ID {
				t.Errorf("SessionID = %d, want %d", gotP.SessionID, sess.ID)
			}
		})
	}
}

func TestSessionTokenPrefersHeader(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer abc")
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "cookie"})
	if got := SessionToken(req); got != "abc" {
		t.Errorf("SessionToken = %q, want %q", got, "abc")
	}

	req.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
	if got := SessionToken(req); got != "" {
		t.Errorf("non-bearer scheme should yield empty token, got %q", got)
	}
}
