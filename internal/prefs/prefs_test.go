package prefs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/melanieperez26/unitrack/internal/database"
	"github.com/melanieperez26/unitrack/internal/store"
	ws "github.com/melanieperez26/unitrack/internal/websocket"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingHub struct {
	mu   sync.Mutex
	sent []ws.Message
}

func (h *recordingHub) Send(userID int64, msg ws.Message) {
	h.mu.Lock()
	h.sent = append(h.sent, msg)
	h.mu.Unlock()
}

func (h *recordingHub) messages() []ws.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]ws.Message(nil), h.sent...)
}

func setupPrefs(t *testing.T) (*Store, *recordingHub) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	hub := &recordingHub{}
	return NewStore(store.NewPreferenceStore(db), hub, slog.Default()), hub
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return v
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for value")
	}
	var zero T
	return zero
}

func TestReadEmitsCurrentThenChanges(t *testing.T) {
	s, hub := setupPrefs(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Write(1, DarkTheme, "true"); err != nil {
		t.Fatalf("write: %v", err)
	}

	ch, err := s.Read(ctx, 1, DarkTheme)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if v := recv(t, ch); !v.Set || v.Raw != "true" {
		t.Errorf("initial = %+v, want set true", v)
	}

	if err := s.Write(1, DarkTheme, "false"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if v := recv(t, ch); v.Raw != "false" {
		t.Errorf("after write = %+v, want false", v)
	}

	if err := s.Clear(1, DarkTheme); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if v := recv(t, ch); v.Set {
		t.Errorf("after clear = %+v, want unset", v)
	}

	msgs := hub.messages()
	if len(msgs) != 3 {
		t.Fatalf("broadcasts = %d, want 3", len(msgs))
	}
	if msgs[0].Type != "preference_updated" || msgs[0].Extra["key"] != "dark_theme" {
		t.Errorf("broadcast = %+v", msgs[0])
	}
}

func TestConcurrentWritersLeaveObserverOnStoredValue(t *testing.T) {
	s, _ := setupPrefs(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := s.Read(ctx, 1, PrimaryColor)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	recv(t, ch)

	var wg sync.WaitGroup
	for w := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				if err := s.Write(1, PrimaryColor, fmt.Sprintf("%d-%d", w, i)); err != nil {
					t.Errorf("write: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	stored, err := s.Get(1, PrimaryColor)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var last Value
	for {
		select {
		case last = <-ch:
			continue
		case <-time.After(100 * time.Millisecond):
		}
		break
	}
	if last != stored {
		t.Errorf("observer ended on %+v, stored value is %+v", last, stored)
	}
}

func TestReadConflatesSlowObserver(t *testing.T) {
	s, _ := setupPrefs(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := s.Read(ctx, 1, PrimaryColor)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if v := recv(t, ch); v.Set {
		t.Errorf("initial = %+v, want unset", v)
	}

	for _, v := range []string{"1", "2", "3"} {
		if err := s.Write(1, PrimaryColor, v); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	// the observer may see intermediate values but must end on the latest
	deadline := time.After(time.Second)
	for {
		select {
		case v := <-ch:
			if v.Raw == "3" {
				return
			}
		case <-deadline:
			t.Fatal("never observed latest value")
		}
	}
}

func TestReadKeysIndependent(t *testing.T) {
	s, _ := setupPrefs(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := s.Read(ctx, 1, DynamicColor)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	recv(t, ch)

	s.Write(1, DarkTheme, "true")
	s.Write(2, DynamicColor, "false")

	select {
	case v := <-ch:
		t.Errorf("unexpected emission %+v", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestReadClosesOnCancel(t *testing.T) {
	s, _ := setupPrefs(t)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := s.Read(ctx, 1, DarkTheme)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	recv(t, ch)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			// a pending value may race the close; drain once more
			if _, ok := <-ch; ok {
				t.Error("expected channel to close")
			}
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}

	deadline := time.Now().Add(time.Second)
	for s.ObserverCount(1, DarkTheme) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("observer not removed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestThemeDefaultsAndSetters(t *testing.T) {
	s, _ := setupPrefs(t)
	theme := NewTheme(s)

	got, err := theme.Get(1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.DarkModeOverride != nil || got.PrimaryColorARGB != nil || !got.DynamicColorEnabled {
		t.Errorf("defaults = %+v", got)
	}

	dark := true
	color := int32(-16776961) // 0xFF0000FF
	theme.SetDarkOverride(1, &dark)
	theme.SetDynamicColor(1, false)
	theme.SetPrimaryColor(1, &color)

	got, _ = theme.Get(1)
	if got.DarkModeOverride == nil || !*got.DarkModeOverride {
		t.Errorf("dark = %v, want true", got.DarkModeOverride)
	}
	if got.DynamicColorEnabled {
		t.Error("dynamic color = true, want false")
	}
	if got.PrimaryColorARGB == nil || *got.PrimaryColorARGB != color {
		t.Errorf("primary = %v, want %d", got.PrimaryColorARGB, color)
	}

	theme.SetDarkOverride(1, nil)
	theme.SetPrimaryColor(1, nil)
	got, _ = theme.Get(1)
	if got.DarkModeOverride != nil || got.PrimaryColorARGB != nil {
		t.Errorf("after unset = %+v", got)
	}
}

func TestThemeRead(t *testing.T) {
	s, _ := setupPrefs(t)
	theme := NewTheme(s)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := theme.Read(ctx, 1)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if v := recv(t, ch); !v.DynamicColorEnabled {
		t.Errorf("initial = %+v", v)
	}

	theme.SetDynamicColor(1, false)
	if v := recv(t, ch); v.DynamicColorEnabled {
		t.Errorf("after set = %+v, want dynamic color off", v)
	}
}

func TestSession(t *testing.T) {
	s, _ := setupPrefs(t)
	sess := NewSession(s)

	if _, ok, _ := sess.Username(1); ok {
		t.Error("expected logged out initially")
	}
	if err := sess.Save(1, "Ana"); err != nil {
		t.Fatalf("save: %v", err)
	}
	name, ok, err := sess.Username(1)
	if err != nil {
		t.Fatalf("username: %v", err)
	}
	if !ok || name != "Ana" {
		t.Errorf("username = %q (%v), want %q", name, ok, "Ana")
	}
	sess.Clear(1)
	if _, ok, _ := sess.Username(1); ok {
		t.Error("expected logged out after clear")
	}
}
