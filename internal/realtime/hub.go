package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/pulsepoll/backend/internal/session"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// Publisher publishes session events for other instances.
type Publisher interface {
	PublishEvent(origin, scope, role, event string, payload []byte) error
}

// Subscriber subscribes to the session channel and invokes handler for
// incoming events.
type Subscriber interface {
	Subscribe(handler func(origin, scope, role, event string, payload []byte)) (cancel func(), err error)
}

// Scopes for published events.
const (
	scopeAll  = "all"
	scopeRole = "role"
)

// Hub maintains the set of connected clients for the single live session and
// fans broadcasts out to them. With a Redis bridge configured, broadcasts are
// also published for other instances; messages originating here are skipped
// on the way back in. Implements session.Broadcaster.
type Hub struct {
	mu         sync.RWMutex
	clients    map[string]*Client
	logger     *zap.Logger
	publisher  Publisher
	subscriber Subscriber
	instanceID string
	cancelSub  func()
}

// NewHub creates a hub. publisher and subscriber may be nil, in which case
// broadcasts stay local to this process.
func NewHub(logger *zap.Logger, instanceID string, publisher Publisher, subscriber Subscriber) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		logger:     logger,
		publisher:  publisher,
		subscriber: subscriber,
		instanceID: instanceID,
	}
}

// Start begins consuming cross-instance events. No-op without a subscriber.
func (h *Hub) Start() error {
	if h.subscriber == nil {
		return nil
	}
	cancel, err := h.subscriber.Subscribe(func(origin, scope, role, event string, payload []byte) {
		if origin == h.instanceID {
			return
		}
		switch scope {
		case scopeRole:
			h.broadcastToRoleLocal(role, event, json.RawMessage(payload))
		default:
			h.broadcastLocal(event, json.RawMessage(payload))
		}
	})
	if err != nil {
		return err
	}
	h.cancelSub = cancel
	return nil
}

// Stop cancels the cross-instance subscription.
func (h *Hub) Stop() {
	if h.cancelSub != nil {
		h.cancelSub()
		h.cancelSub = nil
	}
}

// Register adds a client to the session.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("client connected", zap.String("client_id", c.ID), zap.Int("connections", count))
}

// Unregister removes a client from the session.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.ID)
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("client disconnected", zap.String("client_id", c.ID), zap.Int("connections", count))
}

// Broadcast sends an event to every connected client and publishes it for
// other instances.
func (h *Hub) Broadcast(event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.broadcastLocal(event, json.RawMessage(data))
	if h.publisher != nil {
		_ = h.publisher.PublishEvent(h.instanceID, scopeAll, "", event, data)
	}
}

// BroadcastToRole sends an event to every connected client with the given
// role and publishes it for other instances.
func (h *Hub) BroadcastToRole(role, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.broadcastToRoleLocal(role, event, json.RawMessage(data))
	if h.publisher != nil {
		_ = h.publisher.PublishEvent(h.instanceID, scopeRole, role, event, data)
	}
}

// SendTo sends an event to a single connection. Direct messages are local:
// a connection lives on exactly one instance.
func (h *Hub) SendTo(connID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	msg := WSMessage{Event: event, Data: data}
	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	c.trySend(msg)
}

// CloseClient severs a connection after its pending messages drain. Used for
// forced disconnects after a kick.
func (h *Hub) CloseClient(connID string) {
	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	c.closeSend()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcastLocal(event string, data json.RawMessage) {
	msg := WSMessage{Event: event, Data: data}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.trySend(msg)
	}
}

func (h *Hub) broadcastToRoleLocal(role, event string, data json.RawMessage) {
	msg := WSMessage{Event: event, Data: data}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if c.RoleIs(role) {
			c.trySend(msg)
		}
	}
}

var _ session.Broadcaster = (*Hub)(nil)
