package handlers

import (
	"net/http"

	"ladders_backend/internal/domain"

	"github.com/gin-gonic/gin"
)

// RandomnessCallback applies a gateway fulfillment. The sender is the JWT
// subject; the engine rejects anyone but the configured gateway.
func (h *Handler) RandomnessCallback(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}

	var msg domain.RandomnessFulfillment
	if err := c.ShouldBindJSON(&msg); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	if msg.RequestID == "" || msg.SessionKey == "" {
		badRequest(c, "request_id and session_key are required")
		return
	}
	msg.Sender = id

	out, gs, err := h.Sessions.Fulfill(c.Request.Context(), msg)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcome": out, "session": gs})
}
