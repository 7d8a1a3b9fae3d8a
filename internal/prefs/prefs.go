// Package prefs is a per-user key/value preference store whose readers
// observe every later change to the key they read.
package prefs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/melanieperez26/unitrack/internal/model"
	"github.com/melanieperez26/unitrack/internal/store"
	ws "github.com/melanieperez26/unitrack/internal/websocket"
)

// Key names one preference inside a namespace.
type Key struct {
	Namespace string
	Name      string
}

var (
	DarkTheme       = Key{model.NamespaceTheme, "dark_theme"}
	DynamicColor    = Key{model.NamespaceTheme, "dynamic_color"}
	PrimaryColor    = Key{model.NamespaceTheme, "primary_color"}
	SessionUsername = Key{model.NamespaceSession, "session_username"}
)

func (k Key) String() string {
	return k.Namespace + "/" + k.Name
}

// Value is the stored form of a preference. Set is false when the key is absent.
type Value struct {
	Raw string
	Set bool
}

// Broadcaster pushes updates to a user's live clients.
type Broadcaster interface {
	Send(userID int64, msg ws.Message)
}

type subKey struct {
	userID int64
	key    Key
}

type subscription struct {
	mu     sync.Mutex
	latest Value
	signal chan struct{}
}

func (s *subscription) offer(v Value) {
	s.mu.Lock()
	s.latest = v
	s.mu.Unlock()
	select {
	case s.signal <- struct{}{}:
	default:
		// a wake-up is already pending; the reader will see latest
	}
}

func (s *subscription) load() Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Store persists preferences and fans changes out to observers.
type Store struct {
	prefs  *store.PreferenceStore
	hub    Broadcaster
	logger *slog.Logger

	mu   sync.Mutex
	subs map[subKey]map[*subscription]struct{}

	// writers holds one lock per key so a save and its notification are
	// never interleaved with another write to the same key.
	writersMu sync.Mutex
	writers   map[subKey]*sync.Mutex
}

// NewStore creates a preference store. hub may be nil.
func NewStore(prefs *store.PreferenceStore, hub Broadcaster, logger *slog.Logger) *Store {
	return &Store{
		prefs:   prefs,
		hub:     hub,
		logger:  logger,
		subs:    make(map[subKey]map[*subscription]struct{}),
		writers: make(map[subKey]*sync.Mutex),
	}
}

func (s *Store) lockKey(sk subKey) func() {
	s.writersMu.Lock()
	l, ok := s.writers[sk]
	if !ok {
		l = &sync.Mutex{}
		s.writers[sk] = l
	}
	s.writersMu.Unlock()

	l.Lock()
	return l.Unlock
}

func (s *Store) Get(userID int64, key Key) (Value, error) {
	raw, ok, err := s.prefs.Get(userID, key.Namespace, key.Name)
	if err != nil {
		return Value{}, err
	}
	return Value{Raw: raw, Set: ok}, nil
}

// Read returns a stream that yields the current value of key and then each
// later change until ctx is done, when the channel is closed. A slow reader
// skips intermediate values and always receives the most recent one.
func (s *Store) Read(ctx context.Context, userID int64, key Key) (<-chan Value, error) {
	sk := subKey{userID, key}
	sub := &subscription{signal: make(chan struct{}, 1)}

	// The initial read and registration happen under mu so a concurrent
	// write is either visible in the initial value or published after.
	s.mu.Lock()
	v, err := s.Get(userID, key)
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("read preference %s: %w", key, err)
	}
	sub.offer(v)
	set, ok := s.subs[sk]
	if !ok {
		set = make(map[*subscription]struct{})
		s.subs[sk] = set
	}
	set[sub] = struct{}{}
	s.mu.Unlock()

	out := make(chan Value)
	go func() {
		defer close(out)
		defer s.unsubscribe(sk, sub)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.signal:
				select {
				case out <- sub.load():
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (s *Store) unsubscribe(sk subKey, sub *subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set, ok := s.subs[sk]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(s.subs, sk)
		}
	}
}

// Write persists value under key and notifies observers.
func (s *Store) Write(userID int64, key Key, value string) error {
	defer s.lockKey(subKey{userID, key})()
	if err := s.prefs.Set(userID, key.Namespace, key.Name, value); err != nil {
		return err
	}
	s.publish(userID, key, Value{Raw: value, Set: true})
	return nil
}

// Clear removes key and notifies observers.
func (s *Store) Clear(userID int64, key Key) error {
	defer s.lockKey(subKey{userID, key})()
	if err := s.prefs.Delete(userID, key.Namespace, key.Name); err != nil {
		return err
	}
	s.publish(userID, key, Value{})
	return nil
}

func (s *Store) publish(userID int64, key Key, v Value) {
	s.mu.Lock()
	for sub := range s.subs[subKey{userID, key}] {
		sub.offer(v)
	}
	s.mu.Unlock()

	s.logger.Debug("preference changed", "user_id", userID, "key", key.String(), "set", v.Set)

	if s.hub != nil {
		extra := map[string]any{
			"namespace": key.Namespace,
			"key":       key.Name,
			"set":       v.Set,
		}
		if v.Set {
			extra["value"] = v.Raw
		}
		s.hub.Send(userID, ws.NewMessage("preference", "updated", 0, extra))
	}
}

// ObserverCount returns the number of active readers of key for userID.
func (s *Store) ObserverCount(userID int64, key Key) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs[subKey{userID, key}])
}
