package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ladders_backend/internal/domain"
	"ladders_backend/internal/service"

	"github.com/coder/quartz"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSnapshots map[domain.SessionKey]*domain.GameSession

func (f fakeSnapshots) Get(_ context.Context, key domain.SessionKey) (*domain.GameSession, error) {
	if s, ok := f[key]; ok {
		return s, nil
	}
	return nil, domain.ErrSessionNotFound
}

func feedServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	service.InitJWT("ws-test-secret")

	r := gin.New()
	r.GET("/ws/sessions/:key", HandleSessionFeed(hub, fakeSnapshots{"k1": {Key: "k1", Pot: 10}}, ""))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var e Envelope
	require.NoError(t, conn.ReadJSON(&e))
	return e
}

func TestSessionFeed(t *testing.T) {
	hub := NewHub(quartz.NewReal())
	srv := feedServer(t, hub)

	token, err := service.GenerateJWT("alice", time.Minute)
	require.NoError(t, err)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/sessions/k1?token=" + token

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	snap := readEnvelope(t, conn)
	assert.Equal(t, MsgSnapshot, snap.Type)
	require.NotNil(t, snap.Session)
	assert.Equal(t, int64(10), snap.Session.Pot)
	require.Equal(t, 1, hub.Count("k1"))

	hub.NotifySession(&domain.GameSession{Key: "k1", Pot: 20}, "pot_deposit", nil)
	ev := readEnvelope(t, conn)
	assert.Equal(t, "pot_deposit", ev.Type)
	assert.Equal(t, int64(20), ev.Session.Pot)

	require.NoError(t, conn.WriteJSON(Inbound{Type: MsgPing}))
	assert.Equal(t, MsgPong, readEnvelope(t, conn).Type)
}

func TestSessionFeedRejects(t *testing.T) {
	srv := feedServer(t, NewHub(quartz.NewReal()))
	token, err := service.GenerateJWT("alice", time.Minute)
	require.NoError(t, err)

	res, err := http.Get(srv.URL + "/ws/sessions/k1")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res, err = http.Get(srv.URL + "/ws/sessions/missing?token=" + token)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}
