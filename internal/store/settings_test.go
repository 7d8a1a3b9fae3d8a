package store

import "testing"

func TestPreferenceSetGet(t *testing.T) {
	ps := NewPreferenceStore(newTestDB(t))

	_, ok, err := ps.Get(1, "theme_prefs", "dark_theme")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Error("expected unset key")
	}

	if err := ps.Set(1, "theme_prefs", "dark_theme", "true"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := ps.Set(1, "theme_prefs", "dark_theme", "false"); err != nil {
		t.Fatalf("set again: %v", err)
	}

	v, ok, err := ps.Get(1, "theme_prefs", "dark_theme")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok || v != "false" {
		t.Errorf("dark_theme = %q (set=%v), want %q", v, ok, "false")
	}
}

func TestPreferenceNamespaces(t *testing.T) {
	ps := NewPreferenceStore(newTestDB(t))

	ps.Set(1, "theme_prefs", "primary_color", "-16776961")
	ps.Set(1, "session_prefs", "session_username", "alice")
	ps.Set(2, "theme_prefs", "primary_color", "1")

	theme, err := ps.GetThemeSettings(1)
	if err != nil {
		t.Fatalf("theme settings: %v", err)
	}
	if len(theme) != 1 || theme["primary_color"] != "-16776961" {
		t.Errorf("theme = %v", theme)
	}

	session, err := ps.GetSessionSettings(1)
	if err != nil {
		t.Fatalf("session settings: %v", err)
	}
	if session["session_username"] != "alice" {
		t.Errorf("session_username = %q, want %q", session["session_username"], "alice")
	}

	all, err := ps.GetNamespace(2, "theme_prefs")
	if err != nil {
		t.Fatalf("get namespace: %v", err)
	}
	if len(all) != 1 || all["primary_color"] != "1" {
		t.Errorf("user 2 theme = %v", all)
	}
}

func TestPreferenceDelete(t *testing.T) {
	ps := NewPreferenceStore(newTestDB(t))

	ps.Set(1, "theme_prefs", "dark_theme", "true")
	if err := ps.Delete(1, "theme_prefs", "dark_theme"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := ps.Get(1, "theme_prefs", "dark_theme"); ok {
		t.Error("expected key removed")
	}
	// deleting a missing key is not an error
	if err := ps.Delete(1, "theme_prefs", "dark_theme"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
}
