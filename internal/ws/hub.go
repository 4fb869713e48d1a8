package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"ladders_backend/internal/domain"
	"ladders_backend/internal/logger"

	"github.com/coder/quartz"
	"github.com/prometheus/client_golang/prometheus"
)

var Subscribers = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "ws_session_subscribers",
	Help: "Open websocket session feed subscriptions",
})

func init() {
	prometheus.MustRegister(Subscribers)
}

// Room is the subscriber set of one session.
type Room struct {
	Key       domain.SessionKey
	Clients   map[*Client]struct{}
	emptiedAt time.Time
}

// Hub fans committed session snapshots out to websocket subscribers. It
// implements service.SessionNotifier.
type Hub struct {
	mu    sync.RWMutex
	Rooms map[domain.SessionKey]*Room
	clock quartz.Clock
	log   *slog.Logger
}

func NewHub(clock quartz.Clock) *Hub {
	return &Hub{
		Rooms: make(map[domain.SessionKey]*Room),
		clock: clock,
		log:   logger.With("component", "ws_hub"),
	}
}

// Subscribe adds c to the room of c.Key.
func (h *Hub) Subscribe(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.Rooms[c.Key]
	if !ok {
		room = &Room{Key: c.Key, Clients: make(map[*Client]struct{})}
		h.Rooms[c.Key] = room
	}
	room.Clients[c] = struct{}{}
	Subscribers.Inc()
	h.log.Debug("subscribed", "session", c.Key, "identity", c.Identity, "subscribers", len(room.Clients))
}

// Unsubscribe removes c and closes its send queue. Safe to call twice.
func (h *Hub) Unsubscribe(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drop(c)
}

// drop must be called with h.mu held.
func (h *Hub) drop(c *Client) {
	room, ok := h.Rooms[c.Key]
	if !ok {
		return
	}
	if _, ok := room.Clients[c]; !ok {
		return
	}
	delete(room.Clients, c)
	close(c.Send)
	Subscribers.Dec()
	if len(room.Clients) == 0 {
		room.emptiedAt = h.clock.Now()
	}
}

// Count returns the subscribers of key.
func (h *Hub) Count(key domain.SessionKey) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if room, ok := h.Rooms[key]; ok {
		return len(room.Clients)
	}
	return 0
}

// NotifySession broadcasts an event with the committed snapshot. Subscribers
// whose queue is full are disconnected.
func (h *Hub) NotifySession(s *domain.GameSession, event string, detail any) {
	msg, err := json.Marshal(Envelope{Type: event, Session: s, Detail: detail})
	if err != nil {
		h.log.Error("encode session event", "session", s.Key, "event", event, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.Rooms[s.Key]
	if !ok {
		return
	}
	for c := range room.Clients {
		select {
		case c.Send <- msg:
		default:
			h.log.Warn("slow subscriber dropped", "session", s.Key, "identity", c.Identity)
			h.drop(c)
		}
	}
}

// deliver queues msg for c if it is still subscribed.
func (h *Hub) deliver(c *Client, msg []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.Rooms[c.Key]
	if !ok {
		return false
	}
	if _, ok := room.Clients[c]; !ok {
		return false
	}
	select {
	case c.Send <- msg:
		return true
	default:
		h.drop(c)
		return false
	}
}

// StartCleanup removes rooms that have been empty for longer than idle.
func (h *Hub) StartCleanup(ctx context.Context, every, idle time.Duration) {
	ticker := h.clock.NewTicker(every, "ws", "cleanup")
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.cleanupStaleRooms(idle)
			}
		}
	}()
}

func (h *Hub) cleanupStaleRooms(idle time.Duration) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.clock.Now()
	removed := 0
	for key, room := range h.Rooms {
		if len(room.Clients) == 0 && now.Sub(room.emptiedAt) >= idle {
			delete(h.Rooms, key)
			removed++
		}
	}
	if removed > 0 {
		h.log.Debug("cleaned up stale rooms", "removed", removed)
	}
	return removed
}
