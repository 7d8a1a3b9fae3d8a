package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/coder/websocket"

	"github.com/melanieperez26/unitrack/internal/auth"
)

func dialStream(t *testing.T, hub *Hub, p auth.Principal) *ws.Conn {
	t.Helper()
	h := HandleWebSocket(hub, nil, slog.Default())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func readMessage(t *testing.T, conn *ws.Conn) Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return msg
}

func TestStreamDeliversUserMessages(t *testing.T) {
	hub := NewHub(slog.Default())
	conn := dialStream(t, hub, auth.Principal{UserID: 5, SessionID: 1})

	if msg := readMessage(t, conn); msg.Type != "stream_ready" {
		t.Fatalf("first message = %q, want stream_ready", msg.Type)
	}

	hub.Send(5, NewMessage("notification", "posted", 12, map[string]any{"title": "Exam"}))
	msg := readMessage(t, conn)
	if msg.Type != "notification_posted" || msg.ID != 12 {
		t.Errorf("message = %+v, want notification_posted id 12", msg)
	}
	if msg.Extra["title"] != "Exam" {
		t.Errorf("extra title = %v, want Exam", msg.Extra["title"])
	}
}

func TestStreamClosesWhenSessionExpires(t *testing.T) {
	hub := NewHub(slog.Default())
	conn := dialStream(t, hub, auth.Principal{UserID: 5, ExpiresAt: time.Now().Add(200 * time.Millisecond)})

	readMessage(t, conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _, err := conn.Read(ctx)
	if err == nil {
		t.Fatal("expected stream to close")
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := hub.ClientCount(); n != 0 {
		t.Errorf("ClientCount = %d, want 0", n)
	}
}
