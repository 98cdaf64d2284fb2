package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pack1703/packchat/internal/catalog"
	"github.com/pack1703/packchat/internal/chat"
	"github.com/pack1703/packchat/internal/core"
	"github.com/pack1703/packchat/internal/store"
)

// ChannelHandlers provides REST handlers for the channel catalog.
type ChannelHandlers struct {
	catalog *catalog.Catalog
	hub     *chat.Hub
	log     *zerolog.Logger
}

// NewChannelHandlers creates a new channel handlers instance.
func NewChannelHandlers(cat *catalog.Catalog, hub *chat.Hub, logger *zerolog.Logger) *ChannelHandlers {
	return &ChannelHandlers{catalog: cat, hub: hub, log: logger}
}

// CreateChannelRequest represents the channel creation request body.
type CreateChannelRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=64"`
	Description string `json:"description" binding:"max=256"`
	Category    string `json:"category"`
}

// UpdateChannelRequest represents a partial channel update.
type UpdateChannelRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
}

// SystemMessageRequest represents an admin system message body.
type SystemMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// List returns the active channel catalog.
// GET /api/channels
func (h *ChannelHandlers) List(c *gin.Context) {
	channels := h.catalog.List(c.Request.Context())
	c.JSON(http.StatusOK, toChannelPayloads(channels))
}

// Create adds a channel to the catalog.
// POST /api/channels
func (h *ChannelHandlers) Create(c *gin.Context) {
	var req CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create channel request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	actor := currentUser(c)
	ch, err := h.catalog.Create(c.Request.Context(), actor, req.Name, req.Description,
		core.ParseChannelCategory(req.Category))
	if err != nil {
		writeError(c, err)
		return
	}

	h.log.Info().Str("channel_id", ch.ID).Str("actor_id", actor.ID).Msg("channel created")
	c.JSON(http.StatusCreated, toChannelPayload(ch))
}

// Update applies a partial edit to a channel.
// PATCH /api/channels/:id
func (h *ChannelHandlers) Update(c *gin.Context) {
	var req UpdateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid update channel request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	patch := store.ChannelPatch{
		Name:        req.Name,
		Description: req.Description,
	}
	if req.Category != nil {
		category := core.ParseChannelCategory(*req.Category)
		patch.Category = &category
	}

	if err := h.catalog.Update(c.Request.Context(), currentUser(c), c.Param("id"), patch); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Retire soft-deletes a channel. Built-in channels refuse retirement for
// every caller.
// DELETE /api/channels/:id
func (h *ChannelHandlers) Retire(c *gin.Context) {
	actor := currentUser(c)
	if err := h.catalog.Retire(c.Request.Context(), actor, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}

	h.log.Info().Str("channel_id", c.Param("id")).Str("actor_id", actor.ID).Msg("channel retired")
	c.Status(http.StatusNoContent)
}

// SendSystem posts an official system message to a channel.
// POST /api/channels/:id/system
func (h *ChannelHandlers) SendSystem(c *gin.Context) {
	var req SystemMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.hub.SendSystemMessage(c.Request.Context(), currentUser(c), c.Param("id"), req.Content); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}
