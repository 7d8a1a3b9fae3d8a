package websocket

import (
	"context"
	"encoding/json"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
	writeTimeout   = 10 * time.Second
	maxInboundSize = 512
)

// Client is one open stream of a user's notifications and preference changes.
type Client struct {
	hub     *Hub
	conn    *ws.Conn
	userID  int64
	expires time.Time
	send    chan []byte
}

// NewClient binds conn to userID. A non-zero expires closes the stream when the
// session that opened it lapses.
func NewClient(hub *Hub, conn *ws.Conn, userID int64, expires time.Time) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		userID:  userID,
		expires: expires,
		send:    make(chan []byte, sendBufferSize),
	}
}

// Run blocks until the connection closes or the session expires.
func (c *Client) Run(ctx context.Context) {
	// queued before the hub can close c.send
	c.greet()
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	if !c.expires.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, c.expires)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.conn.SetReadLimit(maxInboundSize)

	go func() {
		c.readPump(ctx)
		cancel()
	}()
	c.writePump(ctx)

	if ctx.Err() == context.DeadlineExceeded {
		c.conn.Close(ws.StatusPolicyViolation, "session expired")
		return
	}
	c.conn.Close(ws.StatusNormalClosure, "")
}

// greet queues a hello frame so clients know the stream is live before the
// first real update arrives.
func (c *Client) greet() {
	data, err := json.Marshal(NewMessage("stream", "ready", c.userID, nil))
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// Inbound frames are ignored; the read loop only exists to observe closes.
func (c *Client) readPump(ctx context.Context) {
	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			return
		}
	}
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(wctx, ws.MessageText, msg)
			cancel()
			if err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
