package handlers

import (
	"errors"
	"net/http"

	"ladders_backend/internal/domain"
	"ladders_backend/internal/logger"

	"github.com/gin-gonic/gin"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{domain.ErrSessionNotFound, http.StatusNotFound},
	{domain.ErrAccountNotFound, http.StatusNotFound},

	{domain.ErrInsufficientFunds, http.StatusPaymentRequired},

	{domain.ErrUnauthorized, http.StatusForbidden},
	{domain.ErrUnauthorizedGateway, http.StatusForbidden},
	{domain.ErrNotYourTurn, http.StatusForbidden},
	{domain.ErrInvalidMover, http.StatusForbidden},
	{domain.ErrInvalidWinner, http.StatusForbidden},

	{domain.ErrGameFinished, http.StatusConflict},
	{domain.ErrGameAlreadyStarted, http.StatusConflict},
	{domain.ErrGameNotStarted, http.StatusConflict},
	{domain.ErrGameNotFinished, http.StatusConflict},
	{domain.ErrGameFull, http.StatusConflict},
	{domain.ErrAlreadyJoined, http.StatusConflict},
	{domain.ErrRollPending, http.StatusConflict},
	{domain.ErrSessionExists, http.StatusConflict},
	{domain.ErrMoverMismatch, http.StatusConflict},
	{domain.ErrInvalidNonce, http.StatusConflict},
	{domain.ErrNonceOverflow, http.StatusConflict},

	{domain.ErrTooManyPlayers, http.StatusBadRequest},
	{domain.ErrNoPlayers, http.StatusBadRequest},
	{domain.ErrInvalidTransportTable, http.StatusBadRequest},
	{domain.ErrInvalidAmount, http.StatusBadRequest},
	{domain.ErrInvalidTurnIndex, http.StatusBadRequest},
}

// statusFor maps a domain error to its HTTP status.
func statusFor(err error) int {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// respondError writes err as {"error", "code"}. Internal errors are logged and
// their text is not exposed.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	code := domain.ErrorCode(err)
	if status == http.StatusInternalServerError {
		logger.WithContext(c.Request.Context()).Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(status, gin.H{"error": "internal error", "code": code})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}
