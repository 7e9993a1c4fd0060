package chats

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/amphitryon/backend/internal/metrics"
	"github.com/amphitryon/backend/internal/middleware"
	"github.com/amphitryon/backend/internal/models"
	"github.com/amphitryon/backend/pkg/response"
)

// CreateMessageRequest is the body for POST /chat/createMessage/:chatID.
type CreateMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// Publisher fans chat events out to connected clients. *realtime.Hub implements it.
type Publisher interface {
	Publish(chatID, event string, payload interface{}) error
}

// Handler handles chat HTTP endpoints.
type Handler struct {
	repo   *Repository
	events Publisher
	event  string
	logger *zap.Logger
	now    func() time.Time
}

// NewHandler creates a chat handler. New messages are published as event.
func NewHandler(repo *Repository, events Publisher, event string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, events: events, event: event, logger: logger, now: time.Now}
}

// GetByID handles GET /chat/:chatID.
func (h *Handler) GetByID(c *gin.Context) {
	chat, err := h.repo.GetByID(c.Request.Context(), c.Param("chatID"))
	if err != nil {
		response.Reject(c, "chat does not exist", err)
		return
	}
	response.OK(c, chat)
}

// CreateMessage handles POST /chat/createMessage/:chatID (students only).
// The author is the current user and the date is set here.
func (h *Handler) CreateMessage(c *gin.Context) {
	var req CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		response.BadRequest(c, "content is required")
		return
	}
	user := middleware.CurrentUser(c)
	msg := models.Message{
		Username: user.Username,
		Content:  req.Content,
		Date:     h.now().UTC(),
	}
	chatID := c.Param("chatID")
	chat, err := h.repo.AppendMessage(c.Request.Context(), chatID, msg)
	if err != nil {
		response.Reject(c, "message could not be created", err)
		return
	}
	metrics.ChatMessagesTotal.Inc()
	if h.events != nil {
		if err := h.events.Publish(chatID, h.event, msg); err != nil {
			h.logger.Warn("chat event publish failed", zap.String("chat_id", chatID), zap.Error(err))
		}
	}
	response.OK(c, chat)
}
