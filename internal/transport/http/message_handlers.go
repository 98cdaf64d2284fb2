package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pack1703/packchat/internal/chat"
)

// MessageHandlers provides REST handlers for the message log.
type MessageHandlers struct {
	hub *chat.Hub
	log *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(hub *chat.Hub, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{hub: hub, log: logger}
}

// PostMessageRequest represents the send-message request body.
type PostMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// ToggleReactionRequest represents the reaction toggle body.
type ToggleReactionRequest struct {
	Emoji string `json:"emoji" binding:"required"`
}

// PostMessageResponse carries the id assigned to a new message.
type PostMessageResponse struct {
	ID string `json:"id"`
}

// History returns the newest messages of a channel in chronological order.
// GET /api/channels/:id/messages?limit=50
func (h *MessageHandlers) History(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}

	messages := h.hub.History(c.Request.Context(), c.Param("id"), limit)
	c.JSON(http.StatusOK, toMessagePayloads(messages))
}

// Post appends a message to a channel as the resolved user.
// POST /api/channels/:id/messages
func (h *MessageHandlers) Post(c *gin.Context) {
	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	id, err := h.hub.Append(c.Request.Context(), c.Param("id"), currentUser(c), req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, PostMessageResponse{ID: id})
}

// Remove deletes a message on behalf of a moderator.
// DELETE /api/messages/:id
func (h *MessageHandlers) Remove(c *gin.Context) {
	actor := currentUser(c)
	if err := h.hub.Remove(c.Request.Context(), actor, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}

	h.log.Info().Str("message_id", c.Param("id")).Str("actor_id", actor.ID).Msg("message removed")
	c.Status(http.StatusNoContent)
}

// ToggleReaction flips the caller's emoji on a message.
// POST /api/messages/:id/reactions
func (h *MessageHandlers) ToggleReaction(c *gin.Context) {
	var req ToggleReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	user := currentUser(c)
	if err := h.hub.ToggleReaction(c.Request.Context(), c.Param("id"), req.Emoji, user.ID, user.DisplayName); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
