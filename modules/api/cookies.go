package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// Cookie names carrying the session tokens.
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// CookiePolicy sets and clears the token cookies. Both cookies are http-only
// and scoped to "/". Production adds Secure and SameSite=None, development
// uses SameSite=Lax.
type CookiePolicy struct {
	secure        bool
	sameSite      string
	accessMaxAge  time.Duration
	refreshMaxAge time.Duration
}

// NewCookiePolicy creates a CookiePolicy for the given mode and token lifetimes.
func NewCookiePolicy(production bool, accessMaxAge, refreshMaxAge time.Duration) CookiePolicy {
	sameSite := fiber.CookieSameSiteLaxMode
	if production {
		sameSite = fiber.CookieSameSiteNoneMode
	}
	return CookiePolicy{
		secure:        production,
		sameSite:      sameSite,
		accessMaxAge:  accessMaxAge,
		refreshMaxAge: refreshMaxAge,
	}
}

// SetAccess stores the access token cookie.
func (p CookiePolicy) SetAccess(c *fiber.Ctx, token string) {
	c.Cookie(p.cookie(AccessTokenCookie, token, p.accessMaxAge))
}

// SetRefresh stores the refresh token cookie.
func (p CookiePolicy) SetRefresh(c *fiber.Ctx, token string) {
	c.Cookie(p.cookie(RefreshTokenCookie, token, p.refreshMaxAge))
}

// Clear expires both cookies using the attributes they were set with.
func (p CookiePolicy) Clear(c *fiber.Ctx) {
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		cookie := p.cookie(name, "", 0)
		cookie.Expires = time.Unix(0, 0)
		c.Cookie(cookie)
	}
}

func (p CookiePolicy) cookie(name, value string, maxAge time.Duration) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		Secure:   p.secure,
		HTTPOnly: true,
		SameSite: p.sameSite,
	}
}
