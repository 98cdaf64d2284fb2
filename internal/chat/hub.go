// Package chat implements the message log and live subscription hub: the
// append path with moderation enforcement, history windows, per-channel live
// subscriptions, reaction toggles, and moderated deletion with audit trail.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/pack1703/packchat/internal/core"
	"github.com/pack1703/packchat/internal/store"
)

// Hub owns Message and Reaction lifecycles for all channels of one session.
type Hub struct {
	store        store.Store
	mentions     MentionHandler
	clock        clock.Clock
	log          *zerolog.Logger
	historyLimit int
	onlineWindow time.Duration

	mu      sync.Mutex
	cancels map[int64]func()
	nextSub int64
}

// Options tune the hub's window sizes.
type Options struct {
	// HistoryLimit bounds history fetches and live subscription windows.
	HistoryLimit int
	// OnlineWindow is how recent a heartbeat must be for a user to count
	// as online.
	OnlineWindow time.Duration
}

// NewHub builds a hub. A nil mention handler disables mention dispatch.
func NewHub(st store.Store, mentions MentionHandler, opts Options, cl clock.Clock, logger *zerolog.Logger) *Hub {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 50
	}
	if opts.OnlineWindow <= 0 {
		opts.OnlineWindow = 5 * time.Minute
	}
	return &Hub{
		store:        st,
		mentions:     mentions,
		clock:        cl,
		log:          logger,
		historyLimit: opts.HistoryLimit,
		onlineWindow: opts.OnlineWindow,
		cancels:      make(map[int64]func()),
	}
}

// Append writes a message to a channel. The sender's moderation flags are
// re-read from the store first: banned and muted users are rejected here, at
// the door, not merely recorded. If the flag read fails for anything other
// than an unknown sender the send is rejected rather than trusting the
// caller's stale copy. Channel bookkeeping and mention dispatch run
// in the background so send latency never depends on them; their failures are
// logged and swallowed. A failed message write itself propagates so the UI
// can retry.
func (h *Hub) Append(ctx context.Context, channelID string, sender *core.User, content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", core.Errorf(core.ErrCodeBadRequest, "message content is empty")
	}

	current, err := h.store.GetUser(ctx, sender.ID)
	switch {
	case errors.Is(err, core.ErrUserNotFound):
		// A sender the store has never seen carries no moderation flags.
		current = sender
	case err != nil:
		return "", fmt.Errorf("read sender flags: %w", err)
	}
	if current.Banned {
		reason := current.BanReason
		if reason == "" {
			reason = "no reason given"
		}
		return "", core.Errorf(core.ErrCodeUserBanned, "you are banned from chat: %s", reason)
	}
	if now := h.clock.Now(); current.Muted(now) {
		return "", core.Errorf(core.ErrCodeUserMuted, "you are muted until %s",
			current.MutedUntil.Format(time.RFC3339))
	}

	msg := &core.Message{
		ChannelID:  channelID,
		SenderID:   current.ID,
		SenderName: current.DisplayName,
		Content:    content,
		IsAdmin:    current.IsAdmin(),
		Den:        current.Den,
	}
	id, err := h.store.AppendMessage(ctx, msg)
	if err != nil {
		return "", fmt.Errorf("append message: %w", err)
	}

	go h.bumpActivity(channelID)
	if h.mentions != nil && mentionPattern.MatchString(content) {
		go h.dispatchMention(msg)
	}

	return id, nil
}

// History returns up to limit messages for a channel in chronological order.
// A degraded store yields an empty slice rather than an error: the view goes
// blank instead of crashing while an index builds.
func (h *Hub) History(ctx context.Context, channelID string, limit int) []*core.Message {
	if limit <= 0 || limit > h.historyLimit {
		limit = h.historyLimit
	}
	messages, err := h.store.ListMessages(ctx, channelID, limit)
	if err != nil {
		h.log.Warn().Err(err).Str("channel_id", channelID).Msg("history fetch failed")
		return []*core.Message{}
	}
	reverse(messages)
	return messages
}

// Subscribe registers a live listener for a channel's newest messages. The
// callback receives chronological snapshots; subscription errors deliver an
// empty snapshot instead of propagating. The returned cancel func is also
// tracked by the hub so Close can tear every listener down.
func (h *Hub) Subscribe(channelID string, fn func([]*core.Message)) (func(), error) {
	cancel, err := h.store.WatchMessages(channelID, h.historyLimit, fn, func(err error) {
		h.log.Warn().Err(err).Str("channel_id", channelID).Msg("message subscription error")
		fn([]*core.Message{})
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", channelID, err)
	}
	return h.track(cancel), nil
}

// ToggleReaction flips one user's emoji on a message: present becomes absent
// and vice versa. Read-modify-write against the latest read; concurrent
// toggles resolve last-write-wins, which is acceptable for reactions.
func (h *Hub) ToggleReaction(ctx context.Context, messageID, emoji, userID, userName string) error {
	msg, err := h.store.GetMessage(ctx, messageID)
	if err != nil {
		if errors.Is(err, core.ErrMessageNotFound) {
			return core.Errorf(core.ErrCodeMessageNotFound, "message %s not found", messageID)
		}
		return fmt.Errorf("toggle reaction: %w", err)
	}

	reactions := core.ToggleReaction(msg.Reactions, core.Reaction{
		Emoji:     emoji,
		UserID:    userID,
		UserName:  userName,
		Timestamp: h.clock.Now(),
	})
	if err := h.store.SetReactions(ctx, messageID, reactions); err != nil {
		return fmt.Errorf("toggle reaction: %w", err)
	}
	return nil
}

// Remove deletes a message. Requires delete privileges. After the delete, a
// system message describing the removal is appended to the same channel;
// that audit write is best-effort and never fails the delete.
func (h *Hub) Remove(ctx context.Context, actor *core.User, messageID string) error {
	if !actor.Role.CanDeleteMessage() {
		return core.Errorf(core.ErrCodePermissionDenied, "role %q may not delete messages", actor.Role)
	}

	msg, err := h.store.GetMessage(ctx, messageID)
	if err != nil {
		if errors.Is(err, core.ErrMessageNotFound) {
			return core.Errorf(core.ErrCodeMessageNotFound, "message %s not found", messageID)
		}
		return fmt.Errorf("remove message: %w", err)
	}

	if err := h.store.DeleteMessage(ctx, messageID); err != nil {
		return fmt.Errorf("remove message: %w", err)
	}

	go h.auditRemoval(msg)
	return nil
}

// Announce posts a system message on behalf of a trusted in-process flow
// whose own permission gate already ran, such as catalog retirement.
// External callers go through SendSystemMessage instead.
func (h *Hub) Announce(ctx context.Context, channelID, content string) error {
	return h.systemMessage(ctx, channelID, content)
}

// SendSystemMessage appends a system message on behalf of a privileged flow.
func (h *Hub) SendSystemMessage(ctx context.Context, actor *core.User, channelID, content string) error {
	if !core.CanSendSystemMessage(actor.IsAdmin()) {
		return core.Errorf(core.ErrCodePermissionDenied, "only admins can send system messages")
	}
	return h.systemMessage(ctx, channelID, content)
}

// systemMessage is the unchecked internal path used by audit flows.
func (h *Hub) systemMessage(ctx context.Context, channelID, content string) error {
	msg := &core.Message{
		ChannelID:  channelID,
		SenderID:   core.SystemSenderID,
		SenderName: core.SystemSenderName,
		Content:    content,
		IsSystem:   true,
	}
	if _, err := h.store.AppendMessage(ctx, msg); err != nil {
		return fmt.Errorf("system message: %w", err)
	}
	go h.bumpActivity(channelID)
	return nil
}

// OnlineUsers returns users seen within the online window. On a failed
// filtered query it falls back to listing everyone and filtering here; a
// second failure yields an empty slice.
func (h *Hub) OnlineUsers(ctx context.Context) []*core.User {
	cutoff := h.clock.Now().Add(-h.onlineWindow)

	users, err := h.store.ListOnlineUsers(ctx, cutoff)
	if err == nil {
		return users
	}
	h.log.Warn().Err(err).Msg("online users query failed, trying fallback")

	all, err := h.store.ListUsers(ctx)
	if err != nil {
		h.log.Warn().Err(err).Msg("fallback user listing failed")
		return []*core.User{}
	}
	var online []*core.User
	for _, u := range all {
		if u.Online && u.LastSeen.After(cutoff) {
			online = append(online, u)
		}
	}
	return online
}

// SubscribeOnlineUsers delivers the online user list to fn immediately and
// then on a fixed cadence until the returned cancel func runs. The store has
// no change feed for presence rows, so the roster is polled; the interval
// matches the presence heartbeat, which bounds staleness to one beat.
func (h *Hub) SubscribeOnlineUsers(interval time.Duration, fn func([]*core.User)) func() {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	stop := make(chan struct{})

	go func() {
		ticker := h.clock.Ticker(interval)
		defer ticker.Stop()

		ctx := context.Background()
		fn(h.OnlineUsers(ctx))
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				fn(h.OnlineUsers(ctx))
			}
		}
	}()

	var once sync.Once
	return h.track(func() { once.Do(func() { close(stop) }) })
}

// Close cancels every live subscription the hub handed out.
func (h *Hub) Close() {
	h.mu.Lock()
	cancels := h.cancels
	h.cancels = make(map[int64]func())
	h.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// track wraps a store cancel func with registry bookkeeping.
func (h *Hub) track(cancel func()) func() {
	h.mu.Lock()
	h.nextSub++
	id := h.nextSub
	h.cancels[id] = cancel
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.cancels, id)
			h.mu.Unlock()
			cancel()
		})
	}
}

func (h *Hub) bumpActivity(channelID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.store.BumpChannelActivity(ctx, channelID); err != nil {
		h.log.Warn().Err(err).Str("channel_id", channelID).Msg("channel activity bump failed")
	}
}

func (h *Hub) auditRemoval(msg *core.Message) {
	quote := msg.Content
	if runes := []rune(quote); len(runes) > 50 {
		quote = string(runes[:50]) + "..."
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.systemMessage(ctx, msg.ChannelID, fmt.Sprintf("Message deleted by moderator: %q", quote)); err != nil {
		h.log.Warn().Err(err).Str("message_id", msg.ID).Msg("deletion audit message failed")
	}
}

func reverse(messages []*core.Message) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}
