package core

import "time"

// Sender identity used for audit and moderation system messages.
const (
	SystemSenderID   = "system"
	SystemSenderName = "System"
)

// Message is a single entry in a channel's append-style log.
type Message struct {
	ID         string
	ChannelID  string
	SenderID   string
	SenderName string
	Content    string
	Timestamp  time.Time
	IsSystem   bool
	IsAdmin    bool
	Den        Den
	Reactions  []Reaction
}

// Reaction is one user's emoji response to a message. At most one reaction
// per (UserID, Emoji) pair exists on a message.
type Reaction struct {
	Emoji     string
	UserID    string
	UserName  string
	Timestamp time.Time
}

// ToggleReaction returns the reaction list with r toggled: if the same user
// already reacted with the same emoji the existing entry is removed,
// otherwise r is appended. Applying the same toggle twice restores the
// original list.
func ToggleReaction(reactions []Reaction, r Reaction) []Reaction {
	for i, existing := range reactions {
		if existing.UserID == r.UserID && existing.Emoji == r.Emoji {
			return append(reactions[:i:i], reactions[i+1:]...)
		}
	}
	return append(reactions, r)
}
