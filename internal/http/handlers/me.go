package handlers

import (
	"net/http"

	"ladders_backend/internal/domain"

	"github.com/gin-gonic/gin"
)

// MyBalance returns the caller's ledger balance.
func (h *Handler) MyBalance(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	balance, err := h.Ledger.Balance(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"identity": id, "balance": balance})
}

// MyTransactions returns the caller's recent ledger rows.
func (h *Handler) MyTransactions(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	txs, err := h.Ledger.Transactions(c.Request.Context(), id, queryLimit(c, 100, 500))
	if err != nil {
		respondError(c, err)
		return
	}
	if txs == nil {
		txs = []*domain.Transaction{}
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}
