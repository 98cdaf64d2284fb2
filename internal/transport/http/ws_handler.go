package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/benbjohnson/clock"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pack1703/packchat/internal/chat"
	"github.com/pack1703/packchat/internal/config"
	"github.com/pack1703/packchat/internal/core"
	"github.com/pack1703/packchat/internal/presence"
	"github.com/pack1703/packchat/internal/store"
)

// sendsPerMinute caps message frames per connection.
const sendsPerMinute = 60

// Inbound is a client frame on the channel stream.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Inbound frame types.
const (
	InboundTypeMessage    = "message"
	InboundTypeReaction   = "reaction"
	InboundTypePing       = "ping"
	InboundTypeVisibility = "visibility"
)

// MessageData is the payload of a message frame.
type MessageData struct {
	Content string `json:"content"`
}

// ReactionData is the payload of a reaction frame.
type ReactionData struct {
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
}

// VisibilityData is the payload of a visibility frame.
type VisibilityData struct {
	Hidden bool `json:"hidden"`
}

// Outbound is a server frame on the channel stream.
type Outbound struct {
	Type     string           `json:"type"`
	Messages []MessagePayload `json:"messages,omitempty"`
	Error    *ErrorResponse   `json:"error,omitempty"`
}

// WSHandler bridges a channel's live message window onto a WebSocket and
// feeds the presence tracker from connection activity.
type WSHandler struct {
	hub   *chat.Hub
	users store.UserStore
	cfg   config.Config
	clock clock.Clock
	log   *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *chat.Hub, users store.UserStore, cfg config.Config, cl clock.Clock, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{hub: hub, users: users, cfg: cfg, clock: cl, log: logger}
}

// Stream serves GET /ws/channels/:id.
func (h *WSHandler) Stream(c *gin.Context) {
	channelID := c.Param("id")
	user := currentUser(c)

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	tracker := presence.NewTracker(h.users, user.ID,
		h.cfg.HeartbeatInterval, h.cfg.InactivityWindow, h.clock, h.log)
	tracker.Start(ctx)
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), h.cfg.ShutdownTimeout)
		defer stopCancel()
		tracker.Stop(stopCtx)
	}()

	// Live snapshots flow through a buffered channel so a slow client stalls
	// only itself; a newer snapshot supersedes an undelivered one.
	snapshots := make(chan []*core.Message, 1)
	unsubscribe, err := h.hub.Subscribe(channelID, func(msgs []*core.Message) {
		select {
		case snapshots <- msgs:
		default:
			select {
			case <-snapshots:
			default:
			}
			select {
			case snapshots <- msgs:
			default:
			}
		}
	})
	if err != nil {
		h.log.Error().Err(err).Str("channel_id", channelID).Msg("ws subscribe failed")
		conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer unsubscribe()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, channelID, user, tracker)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, snapshots)
	}()

	err = <-errCh
	cancel()
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			status = websocket.StatusInternalError
			reason = err.Error()
			h.log.Warn().Err(err).Str("user_id", user.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, channelID string, user *core.User, tracker *presence.Tracker) error {
	limiter := newRateLimiter(sendsPerMinute)

	for {
		var inbound Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		if inbound.Type != InboundTypeVisibility {
			tracker.Signal()
		}

		switch inbound.Type {
		case InboundTypeMessage:
			var data MessageData
			if err := json.Unmarshal(inbound.Data, &data); err != nil {
				h.writeFrameError(ctx, conn, core.ErrCodeBadRequest, "malformed message frame")
				continue
			}
			if !limiter.allow(h.clock.Now()) {
				h.writeFrameError(ctx, conn, core.ErrCodeBadRequest, "sending too fast, slow down")
				continue
			}
			if _, err := h.hub.Append(ctx, channelID, user, data.Content); err != nil {
				h.writeFrameError(ctx, conn, core.CodeOf(err), err.Error())
			}

		case InboundTypeReaction:
			var data ReactionData
			if err := json.Unmarshal(inbound.Data, &data); err != nil {
				h.writeFrameError(ctx, conn, core.ErrCodeBadRequest, "malformed reaction frame")
				continue
			}
			if err := h.hub.ToggleReaction(ctx, data.MessageID, data.Emoji, user.ID, user.DisplayName); err != nil {
				h.writeFrameError(ctx, conn, core.CodeOf(err), err.Error())
			}

		case InboundTypePing:
			// Signal above already counted it.

		case InboundTypeVisibility:
			var data VisibilityData
			if err := json.Unmarshal(inbound.Data, &data); err != nil {
				h.writeFrameError(ctx, conn, core.ErrCodeBadRequest, "malformed visibility frame")
				continue
			}
			tracker.SetVisible(!data.Hidden)

		default:
			h.writeFrameError(ctx, conn, core.ErrCodeBadRequest, "unknown frame type")
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, snapshots <-chan []*core.Message) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msgs := <-snapshots:
			out := Outbound{Type: "snapshot", Messages: toMessagePayloads(msgs)}
			if err := wsjson.Write(ctx, conn, out); err != nil {
				return err
			}
		}
	}
}

func (h *WSHandler) writeFrameError(ctx context.Context, conn *websocket.Conn, code, msg string) {
	out := Outbound{Type: "error", Error: &ErrorResponse{Error: msg, Code: code}}
	if err := wsjson.Write(ctx, conn, out); err != nil {
		h.log.Warn().Err(err).Msg("ws error frame write failed")
	}
}
