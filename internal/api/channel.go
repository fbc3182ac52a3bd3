package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/okrish/wavelink/internal/middleware"
	"github.com/okrish/wavelink/internal/service"
	"go.uber.org/zap"
)

type ChannelHandler struct {
	channels *service.ChannelService
	logger   *zap.Logger
}

func NewChannelHandler(channels *service.ChannelService, logger *zap.Logger) *ChannelHandler {
	return &ChannelHandler{channels: channels, logger: logger}
}

// The request structs are deliberately not the model structs: clients never
// control id, owner, or created_at.
type createChannelRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	IsPrivate   bool   `json:"is_private"`
}

type updateChannelRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsPrivate   *bool   `json:"is_private"`
}

// Create handles POST /api/channels
func (h *ChannelHandler) Create(c *gin.Context) {
	var req createChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := middleware.GetUserID(c)
	ch, err := h.channels.Create(c.Request.Context(), userID, req.Name, req.Description, req.IsPrivate)
	if err != nil {
		respondError(c, h.logger, "failed to create channel", err)
		return
	}

	c.JSON(http.StatusCreated, ch)
}

// List handles GET /api/channels
func (h *ChannelHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)

	channels, err := h.channels.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, "failed to list channels", err)
		return
	}

	c.JSON(http.StatusOK, channels)
}

// GetByID handles GET /api/channels/:id
func (h *ChannelHandler) GetByID(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	userID := middleware.GetUserID(c)
	detail, err := h.channels.Get(c.Request.Context(), userID, channelID)
	if err != nil {
		respondError(c, h.logger, "failed to get channel", err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// Update handles PUT /api/channels/:id — partial update, owner only.
func (h *ChannelHandler) Update(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	var req updateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := middleware.GetUserID(c)
	ch, err := h.channels.Update(c.Request.Context(), userID, channelID, req.Name, req.Description, req.IsPrivate)
	if err != nil {
		respondError(c, h.logger, "failed to update channel", err)
		return
	}

	c.JSON(http.StatusOK, ch)
}

// Delete handles DELETE /api/channels/:id — owner only.
func (h *ChannelHandler) Delete(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	userID := middleware.GetUserID(c)
	if err := h.channels.Delete(c.Request.Context(), userID, channelID); err != nil {
		respondError(c, h.logger, "failed to delete channel", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "channel removed"})
}

// Join handles PUT /api/channels/:id/join
func (h *ChannelHandler) Join(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	userID := middleware.GetUserID(c)
	if err := h.channels.Join(c.Request.Context(), userID, channelID); err != nil {
		respondError(c, h.logger, "failed to join channel", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "joined channel"})
}

// Leave handles PUT /api/channels/:id/leave
func (h *ChannelHandler) Leave(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	userID := middleware.GetUserID(c)
	if err := h.channels.Leave(c.Request.Context(), userID, channelID); err != nil {
		respondError(c, h.logger, "failed to leave channel", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "left channel"})
}
