package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pack1703/packchat/internal/auth"
	"github.com/pack1703/packchat/internal/core"
	"github.com/pack1703/packchat/internal/session"
)

const (
	// ContextKeyUser is the gin context key holding the resolved *core.User.
	ContextKeyUser = "chat_user"
	// ContextKeyDevice is the gin context key holding the device key.
	ContextKeyDevice = "chat_device"

	deviceCookie       = "packchat_device"
	deviceCookieMaxAge = 3600 * 24 * 365
)

// IdentityMiddleware resolves the caller into a chat user. A missing token
// is not an error: anonymous visitors proceed as guests with a generated
// scout name. Only a token that is present but fails verification is
// rejected. WebSocket clients cannot set headers, so a token query
// parameter is accepted there as a fallback.
func IdentityMiddleware(verifier *auth.Verifier, resolver *session.Resolver, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)

		ident, err := verifier.Identity(token)
		if err != nil {
			logger.Debug().Err(err).Msg("identity token rejected")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid token"})
			c.Abort()
			return
		}

		device := deviceKey(c)
		user := resolver.Resolve(c.Request.Context(), device, ident)
		c.Set(ContextKeyUser, user)
		c.Set(ContextKeyDevice, device)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return header
	}
	return c.Query("token")
}

// deviceKey identifies the caller's browser or client installation via a
// long-lived cookie, minting one on first contact. The key scopes the
// profile cache, so anonymous visitors keep a stable scout identity per
// device.
func deviceKey(c *gin.Context) string {
	if key, err := c.Cookie(deviceCookie); err == nil && key != "" {
		return key
	}
	key := uuid.NewString()
	c.SetCookie(deviceCookie, key, deviceCookieMaxAge, "/", "", false, true)
	return key
}

// currentDevice pulls the device key out of the gin context.
func currentDevice(c *gin.Context) string {
	d, ok := c.Get(ContextKeyDevice)
	if !ok {
		return ""
	}
	return d.(string)
}

// currentUser pulls the resolved user out of the gin context.
func currentUser(c *gin.Context) *core.User {
	u, ok := c.Get(ContextKeyUser)
	if !ok {
		return &core.User{Role: core.RoleGuest}
	}
	return u.(*core.User)
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}
