package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/pack1703/packchat/internal/core"
	"github.com/pack1703/packchat/internal/store"
)

// stubChannels scripts failures per query form and records seeds.
type stubChannels struct {
	mu            sync.Mutex
	channels      []*core.Channel
	failOrdered   bool
	failUnordered bool
	listCalls     int
	seeded        [][]*core.Channel
}

func (s *stubChannels) GetChannel(_ context.Context, id string) (*core.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.channels {
		if ch.ID == id {
			return ch, nil
		}
	}
	return nil, core.ErrChannelNotFound
}

func (s *stubChannels) ListActiveChannels(_ context.Context, ordered bool) ([]*core.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if ordered && s.failOrdered {
		return nil, errors.New("index is building")
	}
	if !ordered && s.failUnordered {
		return nil, errors.New("store unavailable")
	}
	var active []*core.Channel
	for _, ch := range s.channels {
		if ch.Active {
			active = append(active, ch)
		}
	}
	return active, nil
}

func (s *stubChannels) CreateChannel(_ context.Context, ch *core.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch.ID == "" {
		ch.ID = "ch_" + ch.Name
	}
	s.channels = append(s.channels, ch)
	return nil
}

func (s *stubChannels) ApplyChannel(_ context.Context, id string, patch store.ChannelPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.channels {
		if ch.ID != id {
			continue
		}
		if patch.Name != nil {
			ch.Name = *patch.Name
		}
		if patch.Description != nil {
			ch.Description = *patch.Description
		}
		if patch.Active != nil {
			ch.Active = *patch.Active
		}
		return nil
	}
	return core.ErrChannelNotFound
}

func (s *stubChannels) SeedChannels(_ context.Context, channels []*core.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seeded = append(s.seeded, channels)
	return nil
}

func (s *stubChannels) BumpChannelActivity(context.Context, string) error { return nil }

func (s *stubChannels) seedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seeded)
}

func newTestCatalog(st store.ChannelStore, ttl time.Duration, cl clock.Clock) *Catalog {
	logger := zerolog.Nop()
	return New(st, ttl, cl, &logger)
}

func volunteer() *core.User { return &core.User{ID: "vol_1", Role: core.RoleVolunteer} }
func parent() *core.User    { return &core.User{ID: "par_1", Role: core.RoleParent} }

func TestListServesStoreChannels(t *testing.T) {
	st := &stubChannels{channels: []*core.Channel{
		{ID: "general", Name: "General", Active: true},
		{ID: "events", Name: "Events", Active: true},
		{ID: "old", Name: "Old", Active: false},
	}}
	c := newTestCatalog(st, 30*time.Second, clock.New())

	channels := c.List(context.Background())
	require.Len(t, channels, 2)
}

func TestListDeduplicatesByID(t *testing.T) {
	st := &stubChannels{channels: []*core.Channel{
		{ID: "general", Name: "General", Active: true},
		{ID: "general", Name: "General (dup)", Active: true},
	}}
	c := newTestCatalog(st, 30*time.Second, clock.New())

	channels := c.List(context.Background())
	require.Len(t, channels, 1)
	require.Equal(t, "General", channels[0].Name)
}

func TestListCachesWithinTTL(t *testing.T) {
	mock := clock.NewMock()
	st := &stubChannels{channels: []*core.Channel{{ID: "general", Active: true}}}
	c := newTestCatalog(st, 30*time.Second, mock)
	ctx := context.Background()

	c.List(ctx)
	c.List(ctx)
	require.Equal(t, 1, st.listCalls, "second list within ttl must hit the cache")

	mock.Add(31 * time.Second)
	c.List(ctx)
	require.Equal(t, 2, st.listCalls, "expired cache must requery")
}

func TestListFallsBackToUnorderedQuery(t *testing.T) {
	st := &stubChannels{
		channels:    []*core.Channel{{ID: "general", Active: true}},
		failOrdered: true,
	}
	c := newTestCatalog(st, 30*time.Second, clock.New())

	channels := c.List(context.Background())
	require.Len(t, channels, 1)
	require.Equal(t, "general", channels[0].ID)
}

func TestListServesDefaultsWhenBothQueriesFail(t *testing.T) {
	st := &stubChannels{failOrdered: true, failUnordered: true}
	c := newTestCatalog(st, 30*time.Second, clock.New())

	channels := c.List(context.Background())
	require.Len(t, channels, 9, "defaults are 3 pack channels plus 6 dens")

	ids := map[string]bool{}
	for _, ch := range channels {
		ids[ch.ID] = true
	}
	for _, want := range []string{"general", "announcements", "events"} {
		require.True(t, ids[want], "missing default channel %s", want)
	}

	// Seeding happens asynchronously; the synchronous return must not wait on it.
	require.Eventually(t, func() bool { return st.seedCount() > 0 },
		time.Second, 10*time.Millisecond, "defaults were never seeded")
}

func TestListServesDefaultsWhenStoreIsEmpty(t *testing.T) {
	st := &stubChannels{}
	c := newTestCatalog(st, 30*time.Second, clock.New())

	channels := c.List(context.Background())
	require.Len(t, channels, 9)
	require.Eventually(t, func() bool { return st.seedCount() > 0 },
		time.Second, 10*time.Millisecond)
}

func TestListNeverReturnsEmpty(t *testing.T) {
	st := &stubChannels{failOrdered: true, failUnordered: true}
	c := newTestCatalog(st, 0, clock.New()) // no cache: every call takes the slow path

	for i := 0; i < 3; i++ {
		require.NotEmpty(t, c.List(context.Background()))
	}
}

func TestCreateRequiresRole(t *testing.T) {
	st := &stubChannels{}
	c := newTestCatalog(st, 30*time.Second, clock.New())
	ctx := context.Background()

	_, err := c.Create(ctx, parent(), "Campouts", "Campout planning", core.CategoryPack)
	require.Error(t, err)
	require.Equal(t, core.ErrCodePermissionDenied, core.CodeOf(err))

	ch, err := c.Create(ctx, volunteer(), "Campouts", "Campout planning", core.CategoryPack)
	require.NoError(t, err)
	require.NotEmpty(t, ch.ID)
	require.True(t, ch.Active)
}

func TestCreateInvalidatesCache(t *testing.T) {
	st := &stubChannels{channels: []*core.Channel{{ID: "general", Active: true}}}
	c := newTestCatalog(st, time.Hour, clock.New())
	ctx := context.Background()

	require.Len(t, c.List(ctx), 1)
	_, err := c.Create(ctx, volunteer(), "Campouts", "", core.CategoryPack)
	require.NoError(t, err)
	require.Len(t, c.List(ctx), 2, "create must invalidate the cached listing")
}

func TestRetireProtectedAlwaysFails(t *testing.T) {
	st := &stubChannels{channels: []*core.Channel{{ID: "general", Active: true}}}
	c := newTestCatalog(st, 30*time.Second, clock.New())
	ctx := context.Background()

	for _, actor := range []*core.User{
		parent(),
		volunteer(),
		{ID: "adm", Role: core.RoleAdmin},
		{ID: "sup", Role: core.RoleSuperAdmin},
	} {
		err := c.Retire(ctx, actor, "general")
		require.Error(t, err, "role %s retired a protected channel", actor.Role)
		require.Equal(t, core.ErrCodeChannelProtected, core.CodeOf(err))
	}
}

func TestRetireSoftDeletes(t *testing.T) {
	st := &stubChannels{channels: []*core.Channel{{ID: "ch_camp", Name: "Campouts", Active: true}}}
	c := newTestCatalog(st, 30*time.Second, clock.New())
	ctx := context.Background()

	require.Error(t, c.Retire(ctx, parent(), "ch_camp"))
	require.NoError(t, c.Retire(ctx, volunteer(), "ch_camp"))

	got, err := st.GetChannel(ctx, "ch_camp")
	require.NoError(t, err, "retire must not hard-delete")
	require.False(t, got.Active)
}

// recordingAnnouncer captures Announce calls for assertions.
type recordingAnnouncer struct {
	mu    sync.Mutex
	posts []string
}

func (r *recordingAnnouncer) Announce(_ context.Context, channelID, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts = append(r.posts, channelID+": "+content)
	return nil
}

func (r *recordingAnnouncer) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.posts...)
}

func TestRetireAnnouncesToGeneral(t *testing.T) {
	st := &stubChannels{channels: []*core.Channel{{ID: "ch_camp", Name: "Campouts", Active: true}}}
	c := newTestCatalog(st, 30*time.Second, clock.New())
	ann := &recordingAnnouncer{}
	c.SetAnnouncer(ann)

	actor := volunteer()
	actor.DisplayName = "Brave Wolf"
	require.NoError(t, c.Retire(context.Background(), actor, "ch_camp"))

	require.Eventually(t, func() bool {
		return len(ann.snapshot()) == 1
	}, time.Second, 10*time.Millisecond)

	post := ann.snapshot()[0]
	require.Contains(t, post, core.ChannelGeneral+": ")
	require.Contains(t, post, "ch_camp")
	require.Contains(t, post, "Brave Wolf")
}
