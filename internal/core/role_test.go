package core

import "testing"

func TestParseRoleFallsBackToGuest(t *testing.T) {
	cases := map[string]Role{
		"parent":      RoleParent,
		"volunteer":   RoleVolunteer,
		"admin":       RoleAdmin,
		"super-admin": RoleSuperAdmin,
		"guest":       RoleGuest,
		"":            RoleGuest,
		"root":        RoleGuest,
		"ADMIN":       RoleGuest,
	}
	for raw, want := range cases {
		if got := ParseRole(raw); got != want {
			t.Errorf("ParseRole(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestPermissionMatrix(t *testing.T) {
	type perms struct {
		deleteMsg, moderate, manage bool
	}
	cases := map[Role]perms{
		RoleGuest:      {false, false, false},
		RoleParent:     {false, false, false},
		RoleVolunteer:  {true, false, true},
		RoleAdmin:      {true, true, true},
		RoleSuperAdmin: {true, true, true},
	}
	for role, want := range cases {
		if got := role.CanDeleteMessage(); got != want.deleteMsg {
			t.Errorf("%s.CanDeleteMessage() = %v, want %v", role, got, want.deleteMsg)
		}
		if got := role.CanModerateUsers(); got != want.moderate {
			t.Errorf("%s.CanModerateUsers() = %v, want %v", role, got, want.moderate)
		}
		if got := role.CanManageChannels(); got != want.manage {
			t.Errorf("%s.CanManageChannels() = %v, want %v", role, got, want.manage)
		}
	}
}

func TestCanSendSystemMessage(t *testing.T) {
	if CanSendSystemMessage(false) {
		t.Fatal("non-privileged flow must not send system messages")
	}
	if !CanSendSystemMessage(true) {
		t.Fatal("privileged flow must send system messages")
	}
}
