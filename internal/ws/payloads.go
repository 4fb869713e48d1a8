package ws

import "ladders_backend/internal/domain"

// Inbound is a client message.
type Inbound struct {
	Type string `json:"type"`
}

// Envelope is every server message. Type is MsgSnapshot, MsgPong, MsgError
// or a session event name.
type Envelope struct {
	Type    string              `json:"type"`
	Session *domain.GameSession `json:"session,omitempty"`
	Detail  any                 `json:"detail,omitempty"`
	Message string              `json:"message,omitempty"`
}
