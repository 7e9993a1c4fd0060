package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/amphitryon/backend/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// PrincipalResolver turns a session token into a user.
type PrincipalResolver interface {
	Resolve(ctx context.Context, token string) (*models.User, error)
}

// ChatLookup checks that a chat exists.
type ChatLookup interface {
	GetByID(ctx context.Context, id string) (*models.Chat, error)
}

// Client represents a single WebSocket connection to a chat.
type Client struct {
	ID       string
	ChatID   string
	UserID   string
	Username string
	hub      *Hub
	conn     *websocket.Conn
	send     chan WSMessage
	logger   *zap.Logger
}

// ServeWs handles GET /ws?chat_id=&token=: the WebSocket upgrade and the client loop.
// The token is the session token without the Bearer prefix.
func ServeWs(hub *Hub, resolver PrincipalResolver, chats ChatLookup, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		chatID := c.Query("chat_id")
		token := c.Query("token")
		if chatID == "" || token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "chat_id and token required"})
			return
		}
		user, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if _, err := chats.GetByID(c.Request.Context(), chatID); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:       uuid.New().String(),
			ChatID:   chatID,
			UserID:   user.ID,
			Username: user.Username,
			hub:      hub,
			conn:     conn,
			send:     make(chan WSMessage, 256),
			logger:   logger,
		}
		hub.Register(client)
		hub.Broadcast(chatID, EventPresence, map[string]int{"count": hub.Count(chatID)})
		go client.writePump()
		client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.hub.Broadcast(c.ChatID, EventPresence, map[string]int{"count": c.hub.Count(c.ChatID)})
		close(c.send)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		switch msg.Event {
		case EventTyping:
			if err := c.hub.Publish(c.ChatID, EventTyping, map[string]string{"username": c.Username}); err != nil {
				c.logger.Debug("typing publish failed", zap.Error(err))
			}
		default:
			// messages are posted over HTTP so they are persisted first
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
