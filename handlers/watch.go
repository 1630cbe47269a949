package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Anzil-km/attention-nudge/models"
)

const (
	watchWriteWait = 10 * time.Second
	watchPongWait  = 60 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Watch handles GET /watch?watch=<identity>. It streams the identity's
// PresenceView over a websocket: once on connect, then on every change.
func (h *CoordinationHandler) Watch(c *gin.Context) {
	watch := c.Query("watch")

	// Reject bad identities with a plain HTTP error before upgrading.
	view, err := h.service.GetStatus(c.Request.Context(), watch)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	logger := h.logger.With("watch", watch)
	logger.Debug("Watch stream opened")

	// The client never sends anything; reading only detects the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(watchPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(watchPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := writeView(conn, view); err != nil {
		return
	}

	ticker := time.NewTicker(h.watchInterval)
	defer ticker.Stop()
	lastPing := time.Now()

	for {
		select {
		case <-closed:
			logger.Debug("Watch stream closed")
			return
		case <-ticker.C:
			next, err := h.service.GetStatus(c.Request.Context(), watch)
			if err != nil {
				logger.Error("Failed to read presence for watch stream", "error", err)
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "status unavailable"),
					time.Now().Add(watchWriteWait))
				return
			}
			if next != view {
				view = next
				if err := writeView(conn, view); err != nil {
					return
				}
				continue
			}
			if time.Since(lastPing) >= watchPongWait/2 {
				lastPing = time.Now()
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(watchWriteWait)); err != nil {
					return
				}
			}
		}
	}
}

func writeView(conn *websocket.Conn, view models.PresenceView) error {
	_ = conn.SetWriteDeadline(time.Now().Add(watchWriteWait))
	return conn.WriteJSON(view)
}
