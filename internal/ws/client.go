package ws

import (
	"encoding/json"
	"time"

	"ladders_backend/internal/domain"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second

	sendBuffer = 64
)

// Client is one websocket subscriber of a session feed.
type Client struct {
	Identity domain.Identity
	Key      domain.SessionKey
	Conn     *websocket.Conn
	Send     chan []byte
	Hub      *Hub
	Done     chan struct{}
}

func NewClient(id domain.Identity, key domain.SessionKey, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		Identity: id,
		Key:      key,
		Conn:     conn,
		Send:     make(chan []byte, sendBuffer),
		Hub:      hub,
		Done:     make(chan struct{}),
	}
}

// Run pumps messages until the connection drops.
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.Unsubscribe(c)
		_ = c.Conn.Close()
		close(c.Done)
	}()

	c.Conn.SetReadLimit(1024)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.Hub.log.Debug("read error", "session", c.Key, "identity", c.Identity, "error", err)
			}
			return
		}

		var in Inbound
		if err := json.Unmarshal(raw, &in); err != nil {
			c.reply(Envelope{Type: MsgError, Message: "invalid message"})
			continue
		}
		switch in.Type {
		case MsgPing:
			c.reply(Envelope{Type: MsgPong})
		default:
			c.reply(Envelope{Type: MsgError, Message: "feed is read only"})
		}
	}
}

func (c *Client) reply(e Envelope) {
	msg, err := json.Marshal(e)
	if err != nil {
		return
	}
	c.Hub.deliver(c, msg)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
