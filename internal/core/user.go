package core

import "time"

// User is a chat identity as the coordinator sees it. The identity resolver
// owns the identity fields; the presence tracker is the sole mutator of
// Online/LastSeen; moderation flags are written only by the moderation service.
type User struct {
	ID          string
	DisplayName string
	PhotoURL    string
	SessionID   string
	Role        Role
	Den         Den
	Online      bool
	LastSeen    time.Time
	CreatedAt   time.Time

	Banned    bool
	BanReason string
	BannedBy  string
	BannedAt  *time.Time

	MutedUntil *time.Time
	MuteReason string
	MutedBy    string
}

// IsAdmin reports whether the user sits at the admin tier or above.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}

// Muted reports whether the user is muted at the given instant. A mute with
// an elapsed deadline no longer counts, even if the flag was never cleared.
func (u *User) Muted(now time.Time) bool {
	return u.MutedUntil != nil && now.Before(*u.MutedUntil)
}
