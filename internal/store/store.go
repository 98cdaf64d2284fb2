package store

import (
	"context"
	"time"

	"github.com/pack1703/packchat/internal/core"
)

// UserPatch selectively updates user fields. Nil pointers leave the field
// untouched; ClearBan/ClearMute reset the whole flag group.
type UserPatch struct {
	DisplayName *string
	PhotoURL    *string
	SessionID   *string
	Role        *core.Role
	Den         *core.Den
	Online      *bool
	LastSeen    *time.Time

	Banned    *bool
	BanReason *string
	BannedBy  *string
	BannedAt  *time.Time
	ClearBan  bool

	MutedUntil *time.Time
	MuteReason *string
	MutedBy    *string
	ClearMute  bool
}

// ChannelPatch selectively updates channel fields.
type ChannelPatch struct {
	Name        *string
	Description *string
	Category    *core.ChannelCategory
	Active      *bool
}

// UserStore handles chat user persistence.
type UserStore interface {
	// GetUser retrieves a user by id. Returns core.ErrUserNotFound if absent.
	GetUser(ctx context.Context, id string) (*core.User, error)

	// PutUser creates the user or, if it already exists, refreshes its
	// identity and presence fields. Moderation flags survive a re-put so a
	// banned user cannot shed the ban by re-resolving their session.
	PutUser(ctx context.Context, u *core.User) error

	// ApplyUser applies a partial update to an existing user.
	ApplyUser(ctx context.Context, id string, patch UserPatch) error

	// ListUsers returns all known users, most recently seen first.
	ListUsers(ctx context.Context) ([]*core.User, error)

	// ListOnlineUsers returns users marked online whose last_seen is after
	// the given instant.
	ListOnlineUsers(ctx context.Context, since time.Time) ([]*core.User, error)
}

// ChannelStore handles channel persistence.
type ChannelStore interface {
	// GetChannel retrieves a channel by id. Returns core.ErrChannelNotFound
	// if absent.
	GetChannel(ctx context.Context, id string) (*core.Channel, error)

	// ListActiveChannels returns active channels, ordered by creation time
	// when ordered is true. The unordered form exists as a degraded-query
	// fallback.
	ListActiveChannels(ctx context.Context, ordered bool) ([]*core.Channel, error)

	// CreateChannel inserts a new channel. Timestamps are server-assigned.
	CreateChannel(ctx context.Context, ch *core.Channel) error

	// ApplyChannel applies a partial update to an existing channel.
	ApplyChannel(ctx context.Context, id string, patch ChannelPatch) error

	// SeedChannels inserts the given channels, skipping ids that already
	// exist. Safe to call concurrently and repeatedly.
	SeedChannels(ctx context.Context, channels []*core.Channel) error

	// BumpChannelActivity advances last_activity to now and increments the
	// message count.
	BumpChannelActivity(ctx context.Context, id string) error
}

// MessageStore handles message persistence and live change subscriptions.
type MessageStore interface {
	// AppendMessage persists a message, assigning its id and a server-side
	// timestamp, and returns the id.
	AppendMessage(ctx context.Context, msg *core.Message) (string, error)

	// GetMessage retrieves a message by id. Returns core.ErrMessageNotFound
	// if absent.
	GetMessage(ctx context.Context, id string) (*core.Message, error)

	// ListMessages returns up to limit messages for a channel, newest first.
	ListMessages(ctx context.Context, channelID string, limit int) ([]*core.Message, error)

	// SetReactions replaces a message's reaction list. Last write wins.
	SetReactions(ctx context.Context, messageID string, reactions []core.Reaction) error

	// DeleteMessage removes a message record.
	DeleteMessage(ctx context.Context, id string) error

	// WatchMessages registers a live subscription for a channel's newest
	// limit messages. onChange receives full snapshots in chronological
	// order, starting with the current state; onError receives query
	// failures without cancelling the watch. The returned function
	// unregisters the watch.
	WatchMessages(channelID string, limit int, onChange func([]*core.Message), onError func(error)) (func(), error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	ChannelStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
