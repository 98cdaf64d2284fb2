// Package http exposes the chat engine over REST and WebSocket endpoints.
package http

import (
	stdhttp "net/http"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pack1703/packchat/internal/auth"
	"github.com/pack1703/packchat/internal/catalog"
	"github.com/pack1703/packchat/internal/chat"
	"github.com/pack1703/packchat/internal/config"
	"github.com/pack1703/packchat/internal/service/moderation"
	"github.com/pack1703/packchat/internal/session"
	"github.com/pack1703/packchat/internal/store"
)

// Deps carries the wired services the transport layer fronts.
type Deps struct {
	Catalog    *catalog.Catalog
	Hub        *chat.Hub
	Moderation *moderation.Service
	Resolver   *session.Resolver
	Verifier   *auth.Verifier
	Users      store.UserStore
	Clock      clock.Clock
}

// NewServer builds the HTTP server with all chat routes mounted.
func NewServer(deps Deps, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(deps, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter builds the gin engine. Split from NewServer so tests can drive
// it with httptest.
func NewRouter(deps Deps, cfg config.Config, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	channels := NewChannelHandlers(deps.Catalog, deps.Hub, logger)
	messages := NewMessageHandlers(deps.Hub, logger)
	users := NewUserHandlers(deps.Hub, deps.Moderation, deps.Resolver, logger)
	ws := NewWSHandler(deps.Hub, deps.Users, cfg, deps.Clock, logger)

	api := router.Group("/api")
	api.Use(IdentityMiddleware(deps.Verifier, deps.Resolver, logger))
	{
		api.GET("/channels", channels.List)
		api.POST("/channels", channels.Create)
		api.PATCH("/channels/:id", channels.Update)
		api.DELETE("/channels/:id", channels.Retire)
		api.POST("/channels/:id/system", channels.SendSystem)

		api.GET("/channels/:id/messages", messages.History)
		api.POST("/channels/:id/messages", messages.Post)
		api.DELETE("/messages/:id", messages.Remove)
		api.POST("/messages/:id/reactions", messages.ToggleReaction)

		api.GET("/me", users.Me)
		api.PATCH("/me", users.UpdateProfile)
		api.GET("/users/online", users.Online)
		api.POST("/users/:id/ban", users.Ban)
		api.POST("/users/:id/unban", users.Unban)
		api.POST("/users/:id/mute", users.Mute)
		api.POST("/users/:id/unmute", users.Unmute)
	}

	stream := router.Group("/ws")
	stream.Use(IdentityMiddleware(deps.Verifier, deps.Resolver, logger))
	stream.GET("/channels/:id", ws.Stream)

	return router
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
