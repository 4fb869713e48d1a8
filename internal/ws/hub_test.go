package ws

import (
	"encoding/json"
	"testing"
	"time"

	"ladders_backend/internal/domain"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(hub *Hub, key domain.SessionKey, buf int) *Client {
	return &Client{Identity: "p", Key: key, Send: make(chan []byte, buf), Hub: hub, Done: make(chan struct{})}
}

func decode(t *testing.T, raw []byte) Envelope {
	t.Helper()
	var e Envelope
	require.NoError(t, json.Unmarshal(raw, &e))
	return e
}

func TestHubBroadcastsToSessionSubscribers(t *testing.T) {
	hub := NewHub(quartz.NewMock(t))
	a1 := testClient(hub, "a", 4)
	a2 := testClient(hub, "a", 4)
	b := testClient(hub, "b", 4)
	hub.Subscribe(a1)
	hub.Subscribe(a2)
	hub.Subscribe(b)
	assert.Equal(t, 2, hub.Count("a"))

	hub.NotifySession(&domain.GameSession{Key: "a", Pot: 30}, "player_joined", map[string]any{"player": "x"})

	for _, c := range []*Client{a1, a2} {
		require.Len(t, c.Send, 1)
		e := decode(t, <-c.Send)
		assert.Equal(t, "player_joined", e.Type)
		require.NotNil(t, e.Session)
		assert.Equal(t, int64(30), e.Session.Pot)
	}
	assert.Empty(t, b.Send)
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	hub := NewHub(quartz.NewMock(t))
	slow := testClient(hub, "a", 1)
	hub.Subscribe(slow)

	hub.NotifySession(&domain.GameSession{Key: "a"}, "roll_resolved", nil)
	hub.NotifySession(&domain.GameSession{Key: "a"}, "roll_resolved", nil)

	assert.Zero(t, hub.Count("a"))
	<-slow.Send
	_, open := <-slow.Send
	assert.False(t, open, "send queue closed on drop")

	hub.Unsubscribe(slow)
	assert.False(t, hub.deliver(slow, []byte("x")))
}

func TestHubCleanupRemovesIdleRooms(t *testing.T) {
	clock := quartz.NewMock(t)
	hub := NewHub(clock)
	c := testClient(hub, "a", 1)
	hub.Subscribe(c)
	hub.Unsubscribe(c)

	assert.Zero(t, hub.cleanupStaleRooms(time.Hour), "room emptied too recently")
	clock.Advance(time.Hour)
	assert.Equal(t, 1, hub.cleanupStaleRooms(time.Hour))
	assert.Empty(t, hub.Rooms)
}
