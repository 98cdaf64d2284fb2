package core

// Role is the portal-wide privilege level attached to every chat user.
type Role string

const (
	RoleGuest      Role = "guest"
	RoleParent     Role = "parent"
	RoleVolunteer  Role = "volunteer"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super-admin"
)

// ParseRole maps a raw role string to a known Role. Unknown values fall back
// to guest so a malformed claim can never grant privileges.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleParent, RoleVolunteer, RoleAdmin, RoleSuperAdmin:
		return Role(s)
	default:
		return RoleGuest
	}
}

// CanDeleteMessage reports whether the role may remove other users' messages.
func (r Role) CanDeleteMessage() bool {
	return r == RoleVolunteer || r == RoleAdmin || r == RoleSuperAdmin
}

// CanModerateUsers reports whether the role may ban, unban, mute or unmute users.
func (r Role) CanModerateUsers() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// CanManageChannels reports whether the role may create, update or retire channels.
func (r Role) CanManageChannels() bool {
	return r == RoleVolunteer || r == RoleAdmin || r == RoleSuperAdmin
}

// CanSendSystemMessage gates system messages on the privileged-flow flag,
// which is distinct from the role ladder: system messages come from admin
// tooling, not from anything an end user can select.
func CanSendSystemMessage(isAdmin bool) bool {
	return isAdmin
}
