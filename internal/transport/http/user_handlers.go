package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pack1703/packchat/internal/chat"
	"github.com/pack1703/packchat/internal/core"
	"github.com/pack1703/packchat/internal/service/moderation"
	"github.com/pack1703/packchat/internal/session"
)

// UserHandlers provides REST handlers for users, profiles, and moderation.
type UserHandlers struct {
	hub        *chat.Hub
	moderation *moderation.Service
	resolver   *session.Resolver
	log        *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(hub *chat.Hub, mod *moderation.Service, resolver *session.Resolver, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{hub: hub, moderation: mod, resolver: resolver, log: logger}
}

// UpdateProfileRequest represents an edit to the caller's own profile.
type UpdateProfileRequest struct {
	DisplayName string `json:"displayName"`
	Den         string `json:"den"`
}

// BanRequest represents the ban request body.
type BanRequest struct {
	Reason string `json:"reason"`
}

// MuteRequest represents the mute request body.
type MuteRequest struct {
	DurationMinutes int    `json:"durationMinutes" binding:"required,min=1"`
	Reason          string `json:"reason"`
}

// Me returns the caller's resolved chat user.
// GET /api/me
func (h *UserHandlers) Me(c *gin.Context) {
	c.JSON(http.StatusOK, toUserPayload(currentUser(c)))
}

// UpdateProfile edits the caller's display name and den.
// PATCH /api/me
func (h *UserHandlers) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	user := currentUser(c)
	if err := h.resolver.UpdateProfile(c.Request.Context(), currentDevice(c), user, req.DisplayName, core.ParseDen(req.Den)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserPayload(user))
}

// Online returns users active within the online window.
// GET /api/users/online
func (h *UserHandlers) Online(c *gin.Context) {
	c.JSON(http.StatusOK, toUserPayloads(h.hub.OnlineUsers(c.Request.Context())))
}

// Ban bars a user from sending messages until an explicit unban.
// POST /api/users/:id/ban
func (h *UserHandlers) Ban(c *gin.Context) {
	var req BanRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	actor := currentUser(c)
	if err := h.moderation.Ban(c.Request.Context(), actor, c.Param("id"), req.Reason); err != nil {
		writeError(c, err)
		return
	}

	h.log.Info().Str("target_id", c.Param("id")).Str("actor_id", actor.ID).Msg("user banned")
	c.Status(http.StatusNoContent)
}

// Unban clears a ban.
// POST /api/users/:id/unban
func (h *UserHandlers) Unban(c *gin.Context) {
	if err := h.moderation.Unban(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Mute silences a user for a bounded period.
// POST /api/users/:id/mute
func (h *UserHandlers) Mute(c *gin.Context) {
	var req MuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	actor := currentUser(c)
	d := time.Duration(req.DurationMinutes) * time.Minute
	if err := h.moderation.Mute(c.Request.Context(), actor, c.Param("id"), d, req.Reason); err != nil {
		writeError(c, err)
		return
	}

	h.log.Info().Str("target_id", c.Param("id")).Str("actor_id", actor.ID).Dur("duration", d).Msg("user muted")
	c.Status(http.StatusNoContent)
}

// Unmute lifts a mute early.
// POST /api/users/:id/unmute
func (h *UserHandlers) Unmute(c *gin.Context) {
	if err := h.moderation.Unmute(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
