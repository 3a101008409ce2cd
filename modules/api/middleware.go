package api

import (
	"log/slog"
	"strings"

	domain "github.com/example/session-auth/domain/user"
	"github.com/example/session-auth/modules/auth"
	"github.com/gofiber/fiber/v2"
)

const (
	// UserContextKey is the key used to store the authenticated user in the Fiber context.
	UserContextKey = "user"
)

// AuthenticatedHandler is a handler that receives the resolved user explicitly.
type AuthenticatedHandler func(c *fiber.Ctx, user *domain.Profile) error

// Gate rejects requests without a valid access token. The token is read from
// the accessToken cookie, then from an Authorization: Bearer header. On
// success the resolved user is stored under UserContextKey.
func Gate(port auth.AuthPort, log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := accessTokenFrom(c)
		if token == "" {
			return auth.ErrTokenMissing.WithMessage("access token missing")
		}
		log.Debug("access token found", "path", c.Path())

		user, err := port.Authenticate(c.UserContext(), token)
		if err != nil {
			log.Debug("access token rejected", "path", c.Path(), "error", err)
			return err
		}

		log.Debug("request authenticated", "user_id", user.ID)
		c.Locals(UserContextKey, user)
		return c.Next()
	}
}

func accessTokenFrom(c *fiber.Ctx) string {
	if token := c.Cookies(AccessTokenCookie); token != "" {
		return token
	}

	scheme, token, ok := strings.Cut(c.Get(fiber.HeaderAuthorization), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// CurrentUser returns the user stored by Gate.
func CurrentUser(c *fiber.Ctx) (*domain.Profile, bool) {
	user, ok := c.Locals(UserContextKey).(*domain.Profile)
	return user, ok && user != nil
}

// WithUser adapts an AuthenticatedHandler to a fiber.Handler. It must run
// after Gate; without a stored user it responds 404.
func WithUser(h AuthenticatedHandler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := CurrentUser(c)
		if !ok {
			return auth.ErrUserNotFound
		}
		return h(c, user)
	}
}
