package realtime

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wolfman30/sitecraft/internal/messages"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Frame is the only payload the server writes.
type Frame struct {
	Type    string            `json:"type"`
	Message *messages.Message `json:"message,omitempty"`
}

const frameMessage = "message"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Serve upgrades the request and streams leadID's new messages until the
// peer goes away. Callers authorize the request first; a failed upgrade has
// already been answered by the upgrader.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, leadID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "lead_id", leadID, "error", err)
		return
	}
	defer conn.Close()

	sub := h.Subscribe(leadID)
	defer sub.Close()

	// Clients only send control frames; reading drives pong handling and
	// notices when the peer closes.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case msg, ok := <-sub.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Dropped as a slow reader or the hub closed; the page polls
				// until it reconnects.
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "reconnect"))
				return
			}
			if err := conn.WriteJSON(Frame{Type: frameMessage, Message: msg}); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
