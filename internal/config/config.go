package config

import (
	"fmt"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks environment variables that override file settings.
// UNITRACK_HTTP_PORT maps to http.port.
const EnvPrefix = "UNITRACK_"

type Config struct {
	HTTP      HTTPConfig      `koanf:"http"`
	Database  DatabaseConfig  `koanf:"database"`
	Log       LogConfig       `koanf:"log"`
	Reminders RemindersConfig `koanf:"reminders"`
	Alarms    AlarmsConfig    `koanf:"alarms"`
	Push      PushConfig      `koanf:"push"`
	S3        S3Config        `koanf:"s3"`
	Session   SessionConfig   `koanf:"session"`
	Backup    BackupConfig    `koanf:"backup"`
}

type HTTPConfig struct {
	Port         string        `koanf:"port"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
	// AllowedOrigins are extra host patterns accepted for websocket upgrades.
	AllowedOrigins []string `koanf:"allowed_origins"`
	SecureCookies  bool     `koanf:"secure_cookies"`
	// TrustedProxies are addresses or CIDR ranges whose forwarding headers
	// name the real client. Empty means the socket address is the client.
	TrustedProxies []string `koanf:"trusted_proxies"`
}

// TrustedProxyPrefixes parses TrustedProxies. A bare address becomes a
// single-host prefix.
func (c HTTPConfig) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(c.TrustedProxies))
	for _, raw := range c.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("http.trusted_proxies: %w", err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("http.trusted_proxies: %w", err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

type DatabaseConfig struct {
	Path string `koanf:"path"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type RemindersConfig struct {
	Timezone string `koanf:"timezone"` // IANA name or "Local"
}

type AlarmsConfig struct {
	ExactAllowed  bool          `koanf:"exact_allowed"`
	TickInterval  time.Duration `koanf:"tick_interval"`
	InexactWindow time.Duration `koanf:"inexact_window"`
}

type PushConfig struct {
	VAPIDPublicKey  string        `koanf:"vapid_public_key"`
	VAPIDPrivateKey string        `koanf:"vapid_private_key"`
	Subscriber      string        `koanf:"subscriber"`
	QueueSize       int           `koanf:"queue_size"`
	TTL             time.Duration `koanf:"ttl"`
	Urgency         string        `koanf:"urgency"`
}

// Enabled reports whether both VAPID keys are configured.
func (p PushConfig) Enabled() bool {
	return p.VAPIDPublicKey != "" && p.VAPIDPrivateKey != ""
}

type S3Config struct {
	Endpoint      string `koanf:"endpoint"`
	Bucket        string `koanf:"bucket"`
	Region        string `koanf:"region"`
	AccessKey     string `koanf:"access_key"`
	SecretKey     string `koanf:"secret_key"`
	PublicBaseURL string `koanf:"public_base_url"`
}

// Enabled reports whether blob storage is configured.
func (s S3Config) Enabled() bool {
	return s.Bucket != ""
}

type SessionConfig struct {
	TTL time.Duration `koanf:"ttl"`
}

// BackupConfig holds the passphrase used to encrypt database snapshots.
type BackupConfig struct {
	Passphrase string `koanf:"passphrase"`
}

// Load reads defaults, then the YAML file at configPath if it exists, then
// UNITRACK_* environment variables.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(NewDefaultProvider(), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file: %w", err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// envKey maps UNITRACK_S3_PUBLIC_BASE_URL to s3.public_base_url: the first
// underscore separates the section, the rest belong to the key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, key, ok := strings.Cut(s, "_")
	if !ok {
		return section
	}
	return section + "." + key
}

func (c *Config) Validate() error {
	if c.HTTP.Port == "" {
		return fmt.Errorf("http.port is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.HTTP.TrustedProxyPrefixes(); err != nil {
		return err
	}
	if c.Alarms.TickInterval <= 0 {
		return fmt.Errorf("alarms.tick_interval must be positive")
	}
	if c.Alarms.InexactWindow < 0 {
		return fmt.Errorf("alarms.inexact_window must not be negative")
	}
	if (c.Push.VAPIDPublicKey == "") != (c.Push.VAPIDPrivateKey == "") {
		return fmt.Errorf("push.vapid_public_key and push.vapid_private_key must be set together")
	}
	if c.Push.QueueSize <= 0 {
		return fmt.Errorf("push.queue_size must be positive")
	}
	if c.Push.TTL < 0 {
		return fmt.Errorf("push.ttl must not be negative")
	}
	switch c.Push.Urgency {
	case "very-low", "low", "normal", "high":
	default:
		return fmt.Errorf("push.urgency %q must be one of very-low, low, normal, high", c.Push.Urgency)
	}
	if c.S3.Enabled() && c.S3.Region == "" {
		return fmt.Errorf("s3.region is required when s3.bucket is set")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive")
	}
	return nil
}

// Location resolves the reminder time zone.
func (c *Config) Location() (*time.Location, error) {
	tz := c.Reminders.Timezone
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("reminders.timezone %q: %w", tz, err)
	}
	return loc, nil
}
