package model

import "time"

// Preference namespaces.
const (
	NamespaceTheme   = "theme_prefs"
	NamespaceSession = "session_prefs"
)

type Preference struct {
	UserID    int64     `json:"user_id"`
	Namespace string    `json:"namespace"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
