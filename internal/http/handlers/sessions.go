package handlers

import (
	"net/http"

	"ladders_backend/internal/domain"
	"ladders_backend/internal/service"

	"github.com/gin-gonic/gin"
)

type createSessionRequest struct {
	SessionID  *domain.SessionID       `json:"session_id" binding:"required"`
	MaxPlayers int                     `json:"max_players"`
	EntryFee   int64                   `json:"entry_fee"`
	RollFee    int64                   `json:"roll_fee"`
	RollMode   string                  `json:"roll_mode"`
	Transport  []domain.TransportEntry `json:"transport"`
}

type depositRequest struct {
	Amount int64 `json:"amount"`
}

type rollRequest struct {
	ClientSeed domain.Seed `json:"client_seed"`
}

// CreateSession registers a session owned by the caller.
func (h *Handler) CreateSession(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}

	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	var mode domain.RollMode
	switch req.RollMode {
	case "":
	case string(domain.RollModeSync), string(domain.RollModeVRF):
		mode = domain.RollMode(req.RollMode)
	default:
		badRequest(c, "roll_mode must be sync or vrf")
		return
	}

	gs, err := h.Sessions.Create(c.Request.Context(), id, service.CreateSessionInput{
		SessionID:  *req.SessionID,
		MaxPlayers: req.MaxPlayers,
		EntryFee:   req.EntryFee,
		RollFee:    req.RollFee,
		RollMode:   mode,
		Transport:  req.Transport,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gs)
}

// ListSessions returns sessions still accepting players.
func (h *Handler) ListSessions(c *gin.Context) {
	sessions, err := h.Sessions.ListOpen(c.Request.Context(), queryLimit(c, 50, 200))
	if err != nil {
		respondError(c, err)
		return
	}
	if sessions == nil {
		sessions = []*domain.GameSession{}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// GetSession returns a session snapshot.
func (h *Handler) GetSession(c *gin.Context) {
	gs, err := h.Sessions.Get(c.Request.Context(), sessionKey(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gs)
}

// SessionAudit returns the audit trail of a session.
func (h *Handler) SessionAudit(c *gin.Context) {
	logs, err := h.Sessions.Trail(c.Request.Context(), sessionKey(c), queryLimit(c, 100, 500))
	if err != nil {
		respondError(c, err)
		return
	}
	if logs == nil {
		logs = []*domain.AuditLog{}
	}
	c.JSON(http.StatusOK, gin.H{"entries": logs})
}

func (h *Handler) Join(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	gs, err := h.Sessions.Join(c.Request.Context(), id, sessionKey(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gs)
}

func (h *Handler) Start(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	gs, err := h.Sessions.Start(c.Request.Context(), id, sessionKey(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gs)
}

// Deposit tops up the pot of a session from the caller's balance.
func (h *Handler) Deposit(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	gs, err := h.Sessions.Deposit(c.Request.Context(), id, sessionKey(c), req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gs)
}

// bindSeed reads an optional {"client_seed": "<64 hex>"} body.
func bindSeed(c *gin.Context) (domain.Seed, bool) {
	var req rollRequest
	if c.Request.ContentLength == 0 {
		return req.ClientSeed, true
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return domain.Seed{}, false
	}
	return req.ClientSeed, true
}

// Roll rolls using the session's configured roll mode. A sync session
// answers 200 with the outcome, a vrf session 202 with the pending request.
func (h *Handler) Roll(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	seed, ok := bindSeed(c)
	if !ok {
		return
	}
	res, gs, err := h.Sessions.Roll(c.Request.Context(), id, sessionKey(c), seed)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusOK
	if res.Request != nil {
		status = http.StatusAccepted
	}
	c.JSON(status, gin.H{"outcome": res.Outcome, "request": res.Request, "session": gs})
}

func (h *Handler) RollSync(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	out, gs, err := h.Sessions.RollSync(c.Request.Context(), id, sessionKey(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcome": out, "session": gs})
}

func (h *Handler) RequestRoll(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	seed, ok := bindSeed(c)
	if !ok {
		return
	}
	req, gs, err := h.Sessions.RequestRoll(c.Request.Context(), id, sessionKey(c), seed)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"request": req, "session": gs})
}

func (h *Handler) PassTurn(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	gs, err := h.Sessions.PassTurn(c.Request.Context(), id, sessionKey(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gs)
}

// Claim pays the pot to the winner.
func (h *Handler) Claim(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	paid, gs, err := h.Sessions.Claim(c.Request.Context(), id, sessionKey(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paid": paid, "session": gs})
}
