package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/melanieperez26/unitrack/internal/auth"
)

// HandleWebSocket returns an HTTP handler that upgrades an authenticated
// request to a WebSocket and streams the user's updates to it.
func HandleWebSocket(hub *Hub, originPatterns []string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.PrincipalFrom(r.Context())
		if !ok || p.UserID == 0 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			OriginPatterns:     originPatterns,
			InsecureSkipVerify: len(originPatterns) == 0,
		})
		if err != nil {
			logger.Warn("websocket accept", "user_id", p.UserID, "error", err)
			return
		}

		logger.Debug("stream opened", "user_id", p.UserID)
		NewClient(hub, conn, p.UserID, p.ExpiresAt).Run(r.Context())
		logger.Debug("stream closed", "user_id", p.UserID)
	}
}
