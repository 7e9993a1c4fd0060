package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60

	// EventChatMessage carries a newly posted models.Message.
	EventChatMessage = "chat_message"
	// EventTyping is relayed from one client to the rest of the room.
	EventTyping = "typing"
	// EventPresence carries the number of connected clients of a chat.
	EventPresence = "presence"
)

// Hub maintains chat_id -> set of connections and broadcasts messages.
// Uses Redis pub/sub for horizontal scaling: local broadcast + publish to Redis.
type Hub struct {
	// chatID -> map[clientID]*Client
	rooms    map[string]map[string]*Client
	subs     map[string]func() // cancel Redis subscription per chat
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber
}

// RedisPublisher is the interface for publishing to Redis (for cross-instance broadcast).
type RedisPublisher interface {
	PublishChatEvent(chatID, event string, payload []byte) error
}

// RedisSubscriber subscribes to chat channels and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeChat(chatID string, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub. Without Redis, events stay on this instance.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:    make(map[string]map[string]*Client),
		subs:     make(map[string]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// Register adds a client to a chat room. Starts Redis subscription for this chat if first client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.rooms[c.ChatID] == nil {
		h.rooms[c.ChatID] = make(map[string]*Client)
		if h.redisSub != nil {
			chatID := c.ChatID
			cancel, err := h.redisSub.SubscribeChat(chatID, func(event string, payload []byte) {
				h.Broadcast(chatID, event, json.RawMessage(payload))
			})
			if err != nil {
				h.logger.Warn("redis subscribe failed", zap.String("chat_id", chatID), zap.Error(err))
			} else {
				h.subs[chatID] = cancel
			}
		}
	}
	h.rooms[c.ChatID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client joined chat", zap.String("client_id", c.ID), zap.String("chat_id", c.ChatID))
}

// Unregister removes a client from a chat room. Cancels Redis subscription when last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.rooms[c.ChatID]; ok {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.rooms, c.ChatID)
			if cancel, ok := h.subs[c.ChatID]; ok {
				cancel()
				delete(h.subs, c.ChatID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client left chat", zap.String("client_id", c.ID), zap.String("chat_id", c.ChatID))
}

// Broadcast sends a message to all clients of a chat (local only).
func (h *Hub) Broadcast(chatID, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		data, _ = json.Marshal(payload)
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[chatID] {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// Publish delivers an event to every instance. With Redis the subscriber
// callback performs the local broadcast, so local clients get it exactly once.
func (h *Hub) Publish(chatID, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if h.redis != nil {
		return h.redis.PublishChatEvent(chatID, event, data)
	}
	h.Broadcast(chatID, event, json.RawMessage(data))
	return nil
}

// Count returns the number of connected clients of a chat on this instance.
func (h *Hub) Count(chatID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[chatID])
}
