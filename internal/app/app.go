// Package app wires the stores, services, and transport into a runnable
// chat server.
package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/pack1703/packchat/internal/auth"
	"github.com/pack1703/packchat/internal/catalog"
	"github.com/pack1703/packchat/internal/chat"
	"github.com/pack1703/packchat/internal/config"
	"github.com/pack1703/packchat/internal/core"
	"github.com/pack1703/packchat/internal/log"
	"github.com/pack1703/packchat/internal/service/moderation"
	"github.com/pack1703/packchat/internal/session"
	"github.com/pack1703/packchat/internal/store"
	"github.com/pack1703/packchat/internal/store/sqlite"
	transporthttp "github.com/pack1703/packchat/internal/transport/http"
)

// App wires together the chat engine and its transport.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *chat.Hub
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	cl := clock.New()

	verifier := auth.NewVerifier(&auth.Config{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
	})

	resolver := session.NewResolver(
		session.NewFileCache(cfg.CachePath), st, cl, log.Component(logger, "session"))

	var mentions chat.MentionHandler
	if cfg.MentionWebhookURL != "" {
		mentions = chat.NewWebhookMentionHandler(cfg.MentionWebhookURL)
		logger.Info().Str("url", cfg.MentionWebhookURL).Msg("assistant mention webhook enabled")
	}

	hub := chat.NewHub(st, mentions, chat.Options{
		HistoryLimit: cfg.HistoryLimit,
		OnlineWindow: cfg.OnlineWindow,
	}, cl, log.Component(logger, "hub"))

	channels := catalog.New(st, cfg.ChannelCacheTTL, cl, log.Component(logger, "catalog"))
	channels.SetAnnouncer(hub)

	deps := transporthttp.Deps{
		Catalog:    channels,
		Hub:        hub,
		Moderation: moderation.New(st, hub, cl, log.Component(logger, "moderation")),
		Resolver:   resolver,
		Verifier:   verifier,
		Users:      st,
		Clock:      cl,
	}
	server := transporthttp.NewServer(deps, *cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		log:             logger,
	}, nil
}

// SeedChannels writes the built-in channel set into the store.
func SeedChannels(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) error {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer st.Close()

	if err := st.SeedChannels(ctx, core.DefaultChannels()); err != nil {
		return fmt.Errorf("seed channels: %w", err)
	}
	logger.Info().Int("count", len(core.DefaultChannels())).Msg("built-in channels seeded")
	return nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup tears down subscriptions and closes the store.
func (a *App) cleanup() {
	a.hub.Close()

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
