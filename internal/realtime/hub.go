// Package realtime pushes fresh check-ins to connected dashboards over WebSocket. With Redis
// configured, check-ins made on any instance reach dashboards connected to every instance.
package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/PittChallenge/pittchallenge.com/internal/checkins"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60

	// AllEvents is the room of dashboards that watch every event.
	AllEvents = ""

	// MessageCheckedIn is the type of a check-in notification.
	MessageCheckedIn = "checked_in"
)

// Message is the WebSocket message envelope.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Bus carries encoded check-ins between instances.
type Bus interface {
	Publish(ctx context.Context, payload []byte) error
	Subscribe(ctx context.Context, handler func(payload []byte)) (cancel func(), err error)
}

// Hub maintains room (event name) -> connections and broadcasts check-ins to them.
type Hub struct {
	rooms  map[string]map[string]*Client
	mu     sync.RWMutex
	bus    Bus
	cancel func()
	logger *zap.Logger
}

// NewHub creates a hub. bus may be nil for a single instance.
func NewHub(bus Bus, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{rooms: make(map[string]map[string]*Client), bus: bus, logger: logger}
}

// Start subscribes to the bus. Without a bus it does nothing. When the subscription fails the hub
// falls back to local delivery.
func (h *Hub) Start(ctx context.Context) error {
	bus := h.currentBus()
	if bus == nil {
		return nil
	}
	cancel, err := bus.Subscribe(ctx, func(payload []byte) {
		var r checkins.Result
		if err := json.Unmarshal(payload, &r); err != nil {
			h.logger.Warn("invalid live check-in payload", zap.Error(err))
			return
		}
		h.Broadcast(r)
	})
	if err != nil {
		h.mu.Lock()
		h.bus = nil
		h.mu.Unlock()
		return err
	}
	h.mu.Lock()
	h.cancel = cancel
	h.mu.Unlock()
	return nil
}

// Stop ends the bus subscription.
func (h *Hub) Stop() {
	h.mu.Lock()
	cancel := h.cancel
	h.cancel = nil
	h.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// PublishCheckIn announces a fresh check-in. With a bus the subscriber does the local broadcast,
// so every instance (this one included) delivers it exactly once.
func (h *Hub) PublishCheckIn(ctx context.Context, r checkins.Result) {
	bus := h.currentBus()
	if bus == nil {
		h.Broadcast(r)
		return
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return
	}
	if err := bus.Publish(ctx, payload); err != nil {
		h.logger.Warn("live check-in publish failed; delivering locally", zap.Error(err))
		h.Broadcast(r)
	}
}

func (h *Hub) currentBus() Bus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.bus
}

// Broadcast sends r to the dashboards watching its event and to those watching all events (local only).
func (h *Hub) Broadcast(r checkins.Result) {
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	msg := Message{Type: MessageCheckedIn, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	rooms := []string{AllEvents}
	if r.Event != AllEvents {
		rooms = append(rooms, r.Event)
	}
	for _, room := range rooms {
		for _, c := range h.rooms[room] {
			select {
			case c.send <- msg:
			default:
				h.logger.Debug("live client too slow, dropping message", zap.String("client_id", c.ID))
			}
		}
	}
}

// Register adds a client to its room.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.rooms[c.Room] == nil {
		h.rooms[c.Room] = make(map[string]*Client)
	}
	h.rooms[c.Room][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("live client joined", zap.String("client_id", c.ID), zap.String("room", c.Room))
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.rooms[c.Room]; ok {
		if _, ok := m[c.ID]; ok {
			delete(m, c.ID)
			close(c.send)
		}
		if len(m) == 0 {
			delete(h.rooms, c.Room)
		}
	}
	h.mu.Unlock()
	h.logger.Debug("live client left", zap.String("client_id", c.ID), zap.String("room", c.Room))
}

// Watchers returns the number of clients in room.
func (h *Hub) Watchers(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// RoomFor maps the ?event= query value to a room, the way check-in requests normalize events.
func RoomFor(event string) string {
	return strings.ToLower(strings.TrimSpace(event))
}
