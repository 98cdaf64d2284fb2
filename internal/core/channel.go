package core

import "time"

// ChannelCategory is either the pack-wide category or one of the den values.
type ChannelCategory string

// CategoryPack marks general-purpose channels not tied to a den.
const CategoryPack ChannelCategory = "pack"

// DenCategory converts a den into its channel category.
func DenCategory(d Den) ChannelCategory {
	return ChannelCategory(d)
}

// IsDen reports whether the category names a den rather than the pack.
func (c ChannelCategory) IsDen() bool {
	return ParseDen(string(c)) != ""
}

// ParseChannelCategory returns a valid category, defaulting to pack.
func ParseChannelCategory(s string) ChannelCategory {
	if d := ParseDen(s); d != "" {
		return DenCategory(d)
	}
	return CategoryPack
}

// Channel is a named message stream. Channels are only ever soft-deleted
// (Active=false); protected channels cannot be retired at all.
type Channel struct {
	ID           string
	Name         string
	Description  string
	Category     ChannelCategory
	Active       bool
	MessageCount int64
	LastActivity time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CreatedBy    string
}

// Built-in channel ids. These exist on every deployment and double as the
// fallback set when the store is cold or degraded.
const (
	ChannelGeneral       = "general"
	ChannelAnnouncements = "announcements"
	ChannelEvents        = "events"
)

var protectedChannels = map[string]struct{}{
	ChannelGeneral:       {},
	ChannelAnnouncements: {},
	ChannelEvents:        {},
	"lion-den":           {},
	"tiger-den":          {},
	"wolf-den":           {},
	"bear-den":           {},
	"webelos-den":        {},
	"arrow-of-light":     {},
}

// ProtectedChannel reports whether the channel id may never be retired,
// regardless of the caller's role.
func ProtectedChannel(id string) bool {
	_, ok := protectedChannels[id]
	return ok
}

// DefaultChannels returns the built-in channel set: three pack-wide channels
// plus one channel per den. Timestamps are left zero; the store assigns them
// on seed.
func DefaultChannels() []*Channel {
	channels := []*Channel{
		{ID: ChannelGeneral, Name: "General", Description: "General pack discussions", Category: CategoryPack, Active: true},
		{ID: ChannelAnnouncements, Name: "Announcements", Description: "Important pack announcements", Category: CategoryPack, Active: true},
		{ID: ChannelEvents, Name: "Events", Description: "Event planning and discussions", Category: CategoryPack, Active: true},
		{ID: "lion-den", Name: "Lion Den", Description: "Lion Den specific discussions", Category: DenCategory(DenLion), Active: true},
		{ID: "tiger-den", Name: "Tiger Den", Description: "Tiger Den specific discussions", Category: DenCategory(DenTiger), Active: true},
		{ID: "wolf-den", Name: "Wolf Den", Description: "Wolf Den specific discussions", Category: DenCategory(DenWolf), Active: true},
		{ID: "bear-den", Name: "Bear Den", Description: "Bear Den specific discussions", Category: DenCategory(DenBear), Active: true},
		{ID: "webelos-den", Name: "Webelos Den", Description: "Webelos Den specific discussions", Category: DenCategory(DenWebelos), Active: true},
		{ID: "arrow-of-light", Name: "Arrow of Light", Description: "Arrow of Light Den specific discussions", Category: DenCategory(DenArrowOfLight), Active: true},
	}
	return channels
}
