package config

import (
	"github.com/knadh/koanf/providers/confmap"
)

func DefaultConfig() map[string]interface{} {
	return map[string]interface{}{
		"http": map[string]interface{}{
			"port":          "8080",
			"read_timeout":  "5s",
			"write_timeout": "10s",
			"idle_timeout":  "120s",
			// comma-separated when set through the environment
			"allowed_origins": []string{},
			"secure_cookies":  false,
			"trusted_proxies": []string{},
		},
		"database": map[string]interface{}{
			"path": "unitrack.db",
		},
		"log": map[string]interface{}{
			"level":  "info",
			"format": "text",
		},
		"reminders": map[string]interface{}{
			"timezone": "Local",
		},
		"alarms": map[string]interface{}{
			"exact_allowed":  true,
			"tick_interval":  "15s",
			"inexact_window": "10m",
		},
		"push": map[string]interface{}{
			"vapid_public_key":  "",
			"vapid_private_key": "",
			"subscriber":        "mailto:noreply@unitrack.app",
			"queue_size":        256,
			"ttl":               "24h",
			"urgency":           "high",
		},
		"s3": map[string]interface{}{
			"endpoint":        "",
			"bucket":          "",
			"region":          "us-east-1",
			"access_key":      "",
			"secret_key":      "",
			"public_base_url": "",
		},
		"session": map[string]interface{}{
			"ttl": "720h",
		},
		"backup": map[string]interface{}{
			"passphrase": "",
		},
	}
}

func NewDefaultProvider() *confmap.Confmap {
	return confmap.Provider(DefaultConfig(), ".")
}

func GetDefaultConfigPath() string {
	return "unitrack.yaml"
}
