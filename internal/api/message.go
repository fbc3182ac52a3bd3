package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/okrish/wavelink/internal/middleware"
	"github.com/okrish/wavelink/internal/service"
	"go.uber.org/zap"
)

type MessageHandler struct {
	messages *service.MessageService
	logger   *zap.Logger
}

func NewMessageHandler(messages *service.MessageService, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{messages: messages, logger: logger}
}

type createMessageRequest struct {
	Content     string   `json:"content" binding:"required"`
	ChannelID   string   `json:"channel_id" binding:"required"`
	Attachments []string `json:"attachments"`
}

// Create handles POST /api/messages
func (h *MessageHandler) Create(c *gin.Context) {
	var req createMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	channelID, err := uuid.Parse(req.ChannelID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	userID := middleware.GetUserID(c)
	msg, err := h.messages.Post(c.Request.Context(), userID, channelID, req.Content, req.Attachments)
	if err != nil {
		respondError(c, h.logger, "failed to create message", err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// ListByChannel handles GET /api/messages/channel/:channelId?page=1&limit=50
//
// Offset pagination over the whole channel: the envelope carries page,
// pages, and total so clients can walk the complete history. No upper bound
// on limit is enforced here.
func (h *MessageHandler) ListByChannel(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("channelId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	page := service.DefaultPage
	if p := c.Query("page"); p != "" {
		page, err = strconv.Atoi(p)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'page' parameter"})
			return
		}
	}

	limit := service.DefaultPageSize
	if l := c.Query("limit"); l != "" {
		limit, err = strconv.Atoi(l)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'limit' parameter"})
			return
		}
	}

	userID := middleware.GetUserID(c)
	result, err := h.messages.ListPage(c.Request.Context(), userID, channelID, page, limit)
	if err != nil {
		respondError(c, h.logger, "failed to list messages", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Delete handles DELETE /api/messages/:id — sender or channel owner only.
func (h *MessageHandler) Delete(c *gin.Context) {
	messageID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	userID := middleware.GetUserID(c)
	if err := h.messages.Delete(c.Request.Context(), userID, messageID); err != nil {
		respondError(c, h.logger, "failed to delete message", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "message removed"})
}
