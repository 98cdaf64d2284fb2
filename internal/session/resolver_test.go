package session

import (
	"context"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/pack1703/packchat/internal/auth"
	"github.com/pack1703/packchat/internal/core"
)

var anonymousName = regexp.MustCompile(`^[A-Z][a-z]+[A-Z][a-zA-Z]*[0-9]{1,2}$`)

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	cache := NewFileCache(filepath.Join(t.TempDir(), "profile.json"))
	logger := zerolog.Nop()
	return NewResolver(cache, nil, clock.New(), &logger)
}

func TestResolveFreshAnonymous(t *testing.T) {
	r := newTestResolver(t)

	user := r.Resolve(context.Background(), "dev-1", nil)
	require.NotNil(t, user)
	require.True(t, user.Online)
	require.Equal(t, core.RoleGuest, user.Role)
	require.Regexp(t, anonymousName, user.DisplayName)
	require.NotEmpty(t, user.ID)
	require.NotEmpty(t, user.SessionID)
}

func TestResolveReusesCachedProfile(t *testing.T) {
	r := newTestResolver(t)
	ctx := context.Background()

	first := r.Resolve(ctx, "dev-1", nil)
	second := r.Resolve(ctx, "dev-1", nil)

	require.Equal(t, first.ID, second.ID, "user id must be stable across resolutions")
	require.Equal(t, first.DisplayName, second.DisplayName)
	require.NotEqual(t, first.SessionID, second.SessionID, "session id must rotate every resolution")
}

func TestResolveMergesAuthenticatedIdentity(t *testing.T) {
	cache := NewFileCache(filepath.Join(t.TempDir(), "profile.json"))
	logger := zerolog.Nop()
	r := NewResolver(cache, nil, clock.New(), &logger)
	ctx := context.Background()

	// Establish an anonymous profile with a den affiliation.
	anon := r.Resolve(ctx, "dev-1", nil)
	require.NoError(t, r.UpdateProfile(ctx, "dev-1", anon, "", core.DenBear))

	ident := &auth.Identity{ID: "u_42", DisplayName: "Sam R.", Role: core.RoleVolunteer}
	user := r.Resolve(ctx, "dev-1", ident)

	require.Equal(t, "u_42", user.ID, "authenticated id wins over generated one")
	require.Equal(t, "Sam R.", user.DisplayName)
	require.Equal(t, core.RoleVolunteer, user.Role)
	require.Equal(t, core.DenBear, user.Den, "den affiliation carries over from cached profile")
}

func TestResolveAuthenticatedWithoutRoleIsParent(t *testing.T) {
	r := newTestResolver(t)

	user := r.Resolve(context.Background(), "dev-1", &auth.Identity{ID: "u_7", DisplayName: "Alex"})
	require.Equal(t, core.RoleParent, user.Role)
}

func TestResolveAuthenticatedWithoutNameGetsGenerated(t *testing.T) {
	r := newTestResolver(t)

	user := r.Resolve(context.Background(), "dev-1", &auth.Identity{ID: "u_8"})
	require.Regexp(t, anonymousName, user.DisplayName)
}

func TestGenerateNamePattern(t *testing.T) {
	for i := 0; i < 50; i++ {
		require.Regexp(t, anonymousName, GenerateName())
	}
}

func TestFileCacheRoundTrip(t *testing.T) {
	cache := NewFileCache(filepath.Join(t.TempDir(), "nested", "profile.json"))

	missing, err := cache.Load("dev-a")
	require.NoError(t, err)
	require.Nil(t, missing)

	u := &core.User{ID: "user_1", DisplayName: "BraveOwl3", SessionID: "session_1", Role: core.RoleParent, Den: core.DenTiger}
	require.NoError(t, cache.Save("dev-a", u))

	got, err := cache.Load("dev-a")
	require.NoError(t, err)
	require.Equal(t, "user_1", got.ID)
	require.Equal(t, core.DenTiger, got.Den)
	require.Equal(t, core.RoleParent, got.Role)

	require.NoError(t, cache.Clear("dev-a"))
	gone, err := cache.Load("dev-a")
	require.NoError(t, err)
	require.Nil(t, gone)
	require.NoError(t, cache.Clear("dev-a"), "clearing twice is fine")
}

func TestResolveIsolatesDevices(t *testing.T) {
	r := newTestResolver(t)
	ctx := context.Background()

	a := r.Resolve(ctx, "dev-a", nil)
	b := r.Resolve(ctx, "dev-b", nil)

	require.NotEqual(t, a.ID, b.ID, "devices must not share anonymous identities")
}
