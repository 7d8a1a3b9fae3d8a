package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Message is one event on a user's stream. Type is "<entity>_<action>",
// e.g. "notification_posted" or "preference_updated".
type Message struct {
	Type   string         `json:"type"`
	Entity string         `json:"entity"`
	Action string         `json:"action"`
	ID     int64          `json:"id,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
	SentAt time.Time      `json:"sent_at"`
}

func NewMessage(entity, action string, id int64, extra map[string]any) Message {
	return Message{
		Type:   entity + "_" + action,
		Entity: entity,
		Action: action,
		ID:     id,
		Extra:  extra,
		SentAt: time.Now().UTC(),
	}
}

// Hub fans messages out to every open stream of a user. A stream that
// cannot keep up loses messages instead of stalling the sender.
type Hub struct {
	mu      sync.RWMutex
	streams map[int64]map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		streams: make(map[int64]map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.streams[c.userID]
	if set == nil {
		set = make(map[*Client]struct{})
		h.streams[c.userID] = set
	}
	set[c] = struct{}{}
}

// Unregister drops c and closes its send channel. Unknown clients are ignored.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.streams[c.userID]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.streams, c.userID)
	}
}

// CloseUser ends every stream of userID and returns how many were open.
func (h *Hub) CloseUser(userID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.streams[userID]
	for c := range set {
		close(c.send)
	}
	delete(h.streams, userID)
	return len(set)
}

func (h *Hub) Send(userID int64, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal message", "type", msg.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.streams[userID] {
		select {
		case c.send <- data:
		default:
			h.logger.Debug("stream full, message dropped", "user_id", userID, "type", msg.Type)
		}
	}
}

// ClientCount returns the number of open streams across all users.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, set := range h.streams {
		n += len(set)
	}
	return n
}
