package ws

const (
	// client - server
	MsgPing = "ping"

	// server - client
	MsgSnapshot = "snapshot"
	MsgPong     = "pong"
	MsgError    = "error"
)
