package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"ladders_backend/internal/domain"
	"ladders_backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// SnapshotSource loads the snapshot sent on subscribe.
type SnapshotSource interface {
	Get(ctx context.Context, key domain.SessionKey) (*domain.GameSession, error)
}

// HandleSessionFeed upgrades GET /ws/sessions/:key?token=... into a session
// feed. The first message is the current snapshot.
func HandleSessionFeed(hub *Hub, sessions SnapshotSource, allowedOrigin string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == allowedOrigin
		},
	}

	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token required", "code": "unauthorized"})
			return
		}
		id, err := service.ParseJWT(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "code": "unauthorized"})
			return
		}

		key := domain.SessionKey(c.Param("key"))
		snap, err := sessions.Get(c.Request.Context(), key)
		if errors.Is(err, domain.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "code": domain.ErrorCode(err)})
			return
		}
		if err != nil {
			hub.log.Error("load snapshot", "session", key, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "internal"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.log.Warn("ws upgrade error", "error", err)
			return
		}

		client := NewClient(id, key, conn, hub)
		hub.Subscribe(client)
		if msg, err := json.Marshal(Envelope{Type: MsgSnapshot, Session: snap}); err == nil {
			hub.deliver(client, msg)
		}
		go client.Run()
	}
}
