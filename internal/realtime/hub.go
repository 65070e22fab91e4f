package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30 * time.Second
	PongWait     = 60 * time.Second
	sendBuffer   = 64
)

// Relay fans events out to the other server instances.
type Relay interface {
	Publish(ctx context.Context, msg RelayMessage) error
	Subscribe(ctx context.Context, handler func(RelayMessage)) error
}

// RelayMessage is an event crossing instances. Origin identifies the hub that
// published it so the hub does not deliver its own events twice.
type RelayMessage struct {
	Origin string          `json:"origin"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
	At     time.Time       `json:"at"`
}

// Hub keeps the connected admin clients and broadcasts registration events to them.
type Hub struct {
	id      string
	clients map[string]*Client
	mu      sync.RWMutex
	relay   Relay
	logger  *zap.Logger
}

// NewHub creates an admin feed hub. relay may be nil for a single instance.
func NewHub(relay Relay, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{id: uuid.NewString(), clients: make(map[string]*Client), relay: relay, logger: logger}
}

// Run consumes relayed events until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	if h.relay == nil {
		return
	}
	for {
		err := h.relay.Subscribe(ctx, func(m RelayMessage) {
			if m.Origin == h.id {
				return
			}
			h.broadcast(WSMessage{Event: m.Event, Data: m.Data, At: m.At})
		})
		if ctx.Err() != nil {
			return
		}
		h.logger.Warn("admin feed relay subscription ended", zap.Error(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

// Publish sends event to local clients and to the other instances.
func (h *Hub) Publish(ctx context.Context, event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event, err)
	}
	at := time.Now().UTC()
	h.broadcast(WSMessage{Event: event, Data: raw, At: at})
	if h.relay == nil {
		return nil
	}
	if err := h.relay.Publish(ctx, RelayMessage{Origin: h.id, Event: event, Data: raw, At: at}); err != nil {
		return fmt.Errorf("relay %s: %w", event, err)
	}
	return nil
}

// Register adds a client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("admin feed client joined", zap.String("client_id", c.ID), zap.String("email", c.Email), zap.Int("clients", n))
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.ID]; ok {
		delete(h.clients, c.ID)
		close(c.send)
	}
	h.mu.Unlock()
	h.logger.Debug("admin feed client left", zap.String("client_id", c.ID))
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcast(msg WSMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("admin feed client too slow, event dropped", zap.String("client_id", c.ID), zap.String("event", msg.Event))
		}
	}
}
