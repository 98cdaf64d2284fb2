package session

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/pack1703/packchat/internal/auth"
	"github.com/pack1703/packchat/internal/core"
	"github.com/pack1703/packchat/internal/store"
)

// Resolver produces a stable chat identity for the current caller, merging
// the cached session profile with an optional authenticated identity.
type Resolver struct {
	cache ProfileCache
	users store.UserStore
	clock clock.Clock
	log   *zerolog.Logger
}

// NewResolver builds a resolver. users may be nil for cache-only hosts.
func NewResolver(cache ProfileCache, users store.UserStore, cl clock.Clock, logger *zerolog.Logger) *Resolver {
	return &Resolver{cache: cache, users: users, clock: cl, log: logger}
}

// Resolve never fails: the worst case is a brand-new anonymous identity.
// A fresh session id is assigned on every call; the user id stays stable for
// as long as the device's cached profile survives.
func (r *Resolver) Resolve(ctx context.Context, deviceKey string, ident *auth.Identity) *core.User {
	cached, err := r.cache.Load(deviceKey)
	if err != nil {
		r.log.Warn().Err(err).Msg("failed to load cached profile")
		cached = nil
	}

	now := r.clock.Now()
	var user *core.User
	switch {
	case ident != nil:
		user = r.fromIdentity(ident, cached, now)
	case cached != nil:
		user = cached
		user.SessionID = NewSessionID()
	default:
		user = &core.User{
			ID:          NewUserID(),
			DisplayName: GenerateName(),
			SessionID:   NewSessionID(),
			Role:        core.RoleGuest,
			CreatedAt:   now,
		}
	}

	user.Online = true
	user.LastSeen = now

	if err := r.cache.Save(deviceKey, user); err != nil {
		r.log.Warn().Err(err).Msg("failed to persist resolved profile")
	}
	r.upsert(ctx, user)

	return user
}

// fromIdentity merges an authenticated identity into the cached profile, or
// synthesizes a profile from the identity alone. Den affiliation carries over
// from the cached profile; the authenticated id always wins over a generated
// one.
func (r *Resolver) fromIdentity(ident *auth.Identity, cached *core.User, now time.Time) *core.User {
	user := &core.User{
		ID:          ident.ID,
		DisplayName: ident.DisplayName,
		PhotoURL:    ident.PhotoURL,
		Role:        ident.Role,
		SessionID:   NewSessionID(),
		CreatedAt:   now,
	}
	if user.DisplayName == "" {
		user.DisplayName = GenerateName()
	}
	if ident.Role == core.RoleGuest {
		// Authenticated users without an explicit role claim are parents,
		// the portal's primary audience.
		user.Role = core.RoleParent
	}
	if cached != nil {
		user.Den = cached.Den
		if !cached.CreatedAt.IsZero() {
			user.CreatedAt = cached.CreatedAt
		}
	}
	return user
}

// upsert pushes the resolved profile into the user store so other sessions
// can see it. Best effort: a degraded store never blocks resolution.
func (r *Resolver) upsert(ctx context.Context, user *core.User) {
	if r.users == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.users.PutUser(ctx, user); err != nil {
		r.log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to upsert resolved profile")
	}
}

// UpdateProfile changes the display name and den of the current profile and
// persists both to the cache and the store.
func (r *Resolver) UpdateProfile(ctx context.Context, deviceKey string, user *core.User, displayName string, den core.Den) error {
	if displayName != "" {
		user.DisplayName = displayName
	}
	user.Den = den

	if err := r.cache.Save(deviceKey, user); err != nil {
		return err
	}
	if r.users != nil {
		patch := store.UserPatch{DisplayName: &user.DisplayName, Den: &user.Den}
		if err := r.users.ApplyUser(ctx, user.ID, patch); err != nil {
			r.log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to update stored profile")
		}
	}
	return nil
}
