package http

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pack1703/packchat/internal/auth"
	"github.com/pack1703/packchat/internal/catalog"
	"github.com/pack1703/packchat/internal/chat"
	"github.com/pack1703/packchat/internal/config"
	"github.com/pack1703/packchat/internal/core"
	"github.com/pack1703/packchat/internal/service/moderation"
	"github.com/pack1703/packchat/internal/session"
	"github.com/pack1703/packchat/internal/store"
	"github.com/pack1703/packchat/internal/store/sqlite"
)

const testJWTSecret = "test-secret"

var testAuthConfig = &auth.Config{
	Secret:   []byte(testJWTSecret),
	Issuer:   "packchat",
	Audience: "packchat-portal",
}

// testFixture wires a full router against an in-memory store.
type testFixture struct {
	router *gin.Engine
	store  store.Store
	cfg    config.Config
}

func newTestFixture(t *testing.T) *testFixture {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := zerolog.Nop()
	cl := clock.New()
	cfg := config.Default()
	cfg.JWTSecret = testJWTSecret

	cache := session.NewFileCache(t.TempDir() + "/profile.json")
	resolver := session.NewResolver(cache, st, cl, &logger)
	hub := chat.NewHub(st, nil, chat.Options{
		HistoryLimit: cfg.HistoryLimit,
		OnlineWindow: cfg.OnlineWindow,
	}, cl, &logger)
	t.Cleanup(hub.Close)

	channels := catalog.New(st, cfg.ChannelCacheTTL, cl, &logger)
	channels.SetAnnouncer(hub)

	deps := Deps{
		Catalog:    channels,
		Hub:        hub,
		Moderation: moderation.New(st, hub, cl, &logger),
		Resolver:   resolver,
		Verifier:   auth.NewVerifier(testAuthConfig),
		Users:      st,
		Clock:      cl,
	}

	return &testFixture{
		router: NewRouter(deps, cfg, &logger),
		store:  st,
		cfg:    cfg,
	}
}

// tokenFor mints a portal token for a role.
func tokenFor(t *testing.T, id, name string, role core.Role) string {
	t.Helper()
	token, err := auth.GenerateToken(testAuthConfig, id, name, role, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}
