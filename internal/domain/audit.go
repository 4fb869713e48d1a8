package domain

import "time"

// AuditLog represents an audit log entry for tracking important actions
type AuditLog struct {
	ID         int64                  `db:"id" json:"id"`
	Actor      Identity               `db:"actor" json:"actor"`
	SessionKey SessionKey             `db:"session_key" json:"session_key,omitempty"`
	Action     string                 `db:"action" json:"action"`
	Category   string                 `db:"category" json:"category"`
	Details    map[string]interface{} `db:"details" json:"details"`
	IP         string                 `db:"ip" json:"ip,omitempty"`
	UserAgent  string                 `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt  time.Time              `db:"created_at" json:"created_at"`
}

// Audit action categories
const (
	AuditCategoryAuth    = "auth"
	AuditCategoryGame    = "game"
	AuditCategoryPayment = "payment"
)

// Audit actions
const (
	AuditActionLogin = "login"

	AuditActionSessionCreate = "session_create"
	AuditActionSessionJoin   = "session_join"
	AuditActionSessionStart  = "session_start"
	AuditActionRoll          = "roll"
	AuditActionRollRequest   = "roll_request"
	AuditActionPassTurn      = "pass_turn"
	AuditActionGameWin       = "game_win"

	AuditActionDeposit = "deposit"
	AuditActionClaim   = "claim"
)
