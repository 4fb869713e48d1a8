package domain

import "errors"

// Capacity / shape
var (
	ErrTooManyPlayers        = errors.New("too many players")
	ErrGameFull              = errors.New("game is full")
	ErrInvalidTransportTable = errors.New("invalid transport table")
	ErrInvalidAmount         = errors.New("invalid amount")
)

// State machine
var (
	ErrGameFinished       = errors.New("game is already finished")
	ErrGameAlreadyStarted = errors.New("game has already started, cannot join now")
	ErrGameNotStarted     = errors.New("game has not started yet")
	ErrGameNotFinished    = errors.New("game is not finished yet")
	ErrRollPending        = errors.New("a roll is already awaiting randomness")
)

// Authorization
var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrUnauthorizedGateway = errors.New("randomness gateway not authorized")
	ErrNotYourTurn         = errors.New("not your turn")
	ErrAlreadyJoined       = errors.New("player already joined")
)

// Turn / ordering
var (
	ErrNoPlayers        = errors.New("no players in game")
	ErrInvalidTurnIndex = errors.New("invalid turn index")
	ErrInvalidMover     = errors.New("mover is not in game")
	ErrMoverMismatch    = errors.New("mover mismatch with pending")
	ErrInvalidNonce     = errors.New("invalid nonce")
)

// Arithmetic / economic
var (
	ErrNonceOverflow     = errors.New("nonce overflow")
	ErrInvalidWinner     = errors.New("invalid winner")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Lookup
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("session already exists")
	ErrAccountNotFound = errors.New("account not found")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrTooManyPlayers, "too_many_players"},
	{ErrGameFull, "game_full"},
	{ErrInvalidTransportTable, "invalid_transport_table"},
	{ErrInvalidAmount, "invalid_amount"},
	{ErrGameFinished, "game_finished"},
	{ErrGameAlreadyStarted, "game_already_started"},
	{ErrGameNotStarted, "game_not_started"},
	{ErrGameNotFinished, "game_not_finished"},
	{ErrRollPending, "roll_pending"},
	{ErrUnauthorized, "unauthorized"},
	{ErrUnauthorizedGateway, "unauthorized_gateway"},
	{ErrNotYourTurn, "not_your_turn"},
	{ErrAlreadyJoined, "already_joined"},
	{ErrNoPlayers, "no_players"},
	{ErrInvalidTurnIndex, "invalid_turn_index"},
	{ErrInvalidMover, "invalid_mover"},
	{ErrMoverMismatch, "mover_mismatch"},
	{ErrInvalidNonce, "invalid_nonce"},
	{ErrNonceOverflow, "nonce_overflow"},
	{ErrInvalidWinner, "invalid_winner"},
	{ErrInsufficientFunds, "insufficient_funds"},
	{ErrSessionNotFound, "session_not_found"},
	{ErrSessionExists, "session_exists"},
	{ErrAccountNotFound, "account_not_found"},
}

// ErrorCode returns a stable machine readable code for err, or "internal".
func ErrorCode(err error) string {
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal"
}
