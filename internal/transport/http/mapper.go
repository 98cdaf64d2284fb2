package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pack1703/packchat/internal/core"
)

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// UserPayload is the wire form of a chat user.
type UserPayload struct {
	ID          string     `json:"id"`
	DisplayName string     `json:"displayName"`
	PhotoURL    string     `json:"photoUrl,omitempty"`
	Role        string     `json:"role"`
	Den         string     `json:"den,omitempty"`
	Online      bool       `json:"online"`
	LastSeen    time.Time  `json:"lastSeen"`
	Banned      bool       `json:"banned,omitempty"`
	MutedUntil  *time.Time `json:"mutedUntil,omitempty"`
}

// ChannelPayload is the wire form of a channel.
type ChannelPayload struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Category     string    `json:"category"`
	Protected    bool      `json:"protected"`
	MessageCount int64     `json:"messageCount"`
	LastActivity time.Time `json:"lastActivity"`
}

// MessagePayload is the wire form of a message.
type MessagePayload struct {
	ID         string            `json:"id"`
	ChannelID  string            `json:"channelId"`
	SenderID   string            `json:"senderId"`
	SenderName string            `json:"senderName"`
	Content    string            `json:"content"`
	Timestamp  time.Time         `json:"timestamp"`
	IsSystem   bool              `json:"isSystem,omitempty"`
	IsAdmin    bool              `json:"isAdmin,omitempty"`
	Den        string            `json:"den,omitempty"`
	Reactions  []ReactionPayload `json:"reactions,omitempty"`
}

// ReactionPayload is one emoji reaction on a message.
type ReactionPayload struct {
	Emoji    string `json:"emoji"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

func toUserPayload(u *core.User) UserPayload {
	return UserPayload{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		PhotoURL:    u.PhotoURL,
		Role:        string(u.Role),
		Den:         string(u.Den),
		Online:      u.Online,
		LastSeen:    u.LastSeen,
		Banned:      u.Banned,
		MutedUntil:  u.MutedUntil,
	}
}

func toUserPayloads(users []*core.User) []UserPayload {
	out := make([]UserPayload, 0, len(users))
	for _, u := range users {
		out = append(out, toUserPayload(u))
	}
	return out
}

func toChannelPayload(ch *core.Channel) ChannelPayload {
	return ChannelPayload{
		ID:           ch.ID,
		Name:         ch.Name,
		Description:  ch.Description,
		Category:     string(ch.Category),
		Protected:    core.ProtectedChannel(ch.ID),
		MessageCount: ch.MessageCount,
		LastActivity: ch.LastActivity,
	}
}

func toChannelPayloads(channels []*core.Channel) []ChannelPayload {
	out := make([]ChannelPayload, 0, len(channels))
	for _, ch := range channels {
		out = append(out, toChannelPayload(ch))
	}
	return out
}

func toMessagePayload(m *core.Message) MessagePayload {
	p := MessagePayload{
		ID:         m.ID,
		ChannelID:  m.ChannelID,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		Content:    m.Content,
		Timestamp:  m.Timestamp,
		IsSystem:   m.IsSystem,
		IsAdmin:    m.IsAdmin,
		Den:        string(m.Den),
	}
	for _, r := range m.Reactions {
		p.Reactions = append(p.Reactions, ReactionPayload{
			Emoji:    r.Emoji,
			UserID:   r.UserID,
			UserName: r.UserName,
		})
	}
	return p
}

func toMessagePayloads(messages []*core.Message) []MessagePayload {
	out := make([]MessagePayload, 0, len(messages))
	for _, m := range messages {
		out = append(out, toMessagePayload(m))
	}
	return out
}

// writeError maps domain error codes to HTTP statuses.
func writeError(c *gin.Context, err error) {
	var domainErr *core.Error
	if !errors.As(err, &domainErr) {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	status := http.StatusInternalServerError
	switch domainErr.Code {
	case core.ErrCodeBadRequest:
		status = http.StatusBadRequest
	case core.ErrCodePermissionDenied, core.ErrCodeUserBanned, core.ErrCodeUserMuted:
		status = http.StatusForbidden
	case core.ErrCodeChannelProtected:
		status = http.StatusConflict
	case core.ErrCodeChannelNotFound, core.ErrCodeMessageNotFound, core.ErrCodeUserNotFound:
		status = http.StatusNotFound
	}
	c.JSON(status, ErrorResponse{Error: domainErr.Message, Code: domainErr.Code})
}
