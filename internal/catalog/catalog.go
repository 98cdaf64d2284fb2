// Package catalog maintains a cached, always-available view of the channel
// collection. Listing never fails and never returns an empty set: a cold or
// degraded store falls back to the built-in default channels while seeding
// them in the background.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/pack1703/packchat/internal/cache"
	"github.com/pack1703/packchat/internal/core"
	"github.com/pack1703/packchat/internal/store"
)

// Announcer posts audit messages into a channel. The chat hub satisfies
// this; nil disables announcements.
type Announcer interface {
	Announce(ctx context.Context, channelID, content string) error
}

// Catalog serves channel listings and role-gated channel mutations.
type Catalog struct {
	store    store.ChannelStore
	cache    *cache.TTL[[]*core.Channel]
	announce Announcer
	log      *zerolog.Logger
}

// SetAnnouncer wires the audit sink. Called once during assembly; the hub
// needs the store first, so the catalog cannot take it in New.
func (c *Catalog) SetAnnouncer(a Announcer) {
	c.announce = a
}

// New builds a catalog with the given cache lifetime.
func New(st store.ChannelStore, ttl time.Duration, cl clock.Clock, logger *zerolog.Logger) *Catalog {
	return &Catalog{
		store: st,
		cache: cache.NewTTL[[]*core.Channel](ttl, cl),
		log:   logger,
	}
}

// List returns the active channels. Served from cache while fresh; on a
// cache miss it queries the store ordered by creation time, retries once
// with the simpler unordered query (the ordered one needs an index that may
// still be building), and finally falls back to the default channel set.
func (c *Catalog) List(ctx context.Context) []*core.Channel {
	if channels, ok := c.cache.Get(); ok {
		return channels
	}

	channels, err := c.store.ListActiveChannels(ctx, true)
	if err != nil {
		c.log.Warn().Err(err).Msg("ordered channel query failed, retrying unordered")
		channels, err = c.store.ListActiveChannels(ctx, false)
	}
	if err != nil || len(channels) == 0 {
		if err != nil {
			c.log.Warn().Err(err).Msg("channel queries failed, serving defaults")
		}
		return c.serveDefaults()
	}

	channels = dedupByID(channels)
	c.cache.Set(channels)
	return channels
}

// serveDefaults returns the built-in set synchronously and seeds it into the
// store in the background so the next cold read finds real rows.
func (c *Catalog) serveDefaults() []*core.Channel {
	defaults := core.DefaultChannels()
	c.cache.Set(defaults)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.store.SeedChannels(ctx, core.DefaultChannels()); err != nil {
			c.log.Warn().Err(err).Msg("failed to seed default channels")
		}
	}()

	return defaults
}

// Create adds a channel. Requires channel-management privileges.
func (c *Catalog) Create(ctx context.Context, actor *core.User, name, description string, category core.ChannelCategory) (*core.Channel, error) {
	if !actor.Role.CanManageChannels() {
		return nil, core.Errorf(core.ErrCodePermissionDenied, "role %q may not create channels", actor.Role)
	}
	if name == "" {
		return nil, core.Errorf(core.ErrCodeBadRequest, "channel name is required")
	}
	if category == "" {
		category = core.CategoryPack
	}

	ch := &core.Channel{
		Name:        name,
		Description: description,
		Category:    category,
		Active:      true,
		CreatedBy:   actor.ID,
	}
	if err := c.store.CreateChannel(ctx, ch); err != nil {
		return nil, err
	}

	c.cache.Clear()
	c.log.Info().Str("channel_id", ch.ID).Str("created_by", actor.ID).Msg("channel created")
	return ch, nil
}

// Update applies a patch to a channel. Requires channel-management privileges.
func (c *Catalog) Update(ctx context.Context, actor *core.User, id string, patch store.ChannelPatch) error {
	if !actor.Role.CanManageChannels() {
		return core.Errorf(core.ErrCodePermissionDenied, "role %q may not update channels", actor.Role)
	}

	if err := c.store.ApplyChannel(ctx, id, patch); err != nil {
		return err
	}
	c.cache.Clear()
	return nil
}

// Retire soft-deletes a channel. Protected channels are rejected before any
// role check: no privilege level can retire them.
func (c *Catalog) Retire(ctx context.Context, actor *core.User, id string) error {
	if core.ProtectedChannel(id) {
		return core.Errorf(core.ErrCodeChannelProtected, "channel %q is protected and cannot be retired", id)
	}
	if !actor.Role.CanManageChannels() {
		return core.Errorf(core.ErrCodePermissionDenied, "role %q may not retire channels", actor.Role)
	}

	inactive := false
	if err := c.store.ApplyChannel(ctx, id, store.ChannelPatch{Active: &inactive}); err != nil {
		return err
	}

	c.cache.Clear()
	c.log.Info().Str("channel_id", id).Str("retired_by", actor.ID).Msg("channel retired")

	if c.announce != nil {
		go func() {
			actx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			content := fmt.Sprintf("Channel #%s was retired by %s.", id, actor.DisplayName)
			if err := c.announce.Announce(actx, core.ChannelGeneral, content); err != nil {
				c.log.Warn().Err(err).Str("channel_id", id).Msg("retire announcement failed")
			}
		}()
	}
	return nil
}

// Invalidate drops the cached listing. Exposed for callers that mutate
// channels outside the catalog, such as the activity bookkeeping.
func (c *Catalog) Invalidate() {
	c.cache.Clear()
}

func dedupByID(channels []*core.Channel) []*core.Channel {
	seen := make(map[string]struct{}, len(channels))
	out := channels[:0]
	for _, ch := range channels {
		if _, ok := seen[ch.ID]; ok {
			continue
		}
		seen[ch.ID] = struct{}{}
		out = append(out, ch)
	}
	return out
}
