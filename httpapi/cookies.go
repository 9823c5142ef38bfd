package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/bazario-labs/authcore"
)

// setSessionCookies writes the token pair per the session cookie
// contract: httpOnly always; Secure plus SameSite=None in production so
// the cross-site frontend can send them, SameSite=Lax in development;
// MaxAge equals the token lifetime.
func setSessionCookies(c *fiber.Ctx, cfg authcore.CookieConfig, tokens *authcore.SessionTokens) {
	c.Cookie(sessionCookie(cfg, cfg.AccessName, tokens.Access, tokens.AccessTTL))
	c.Cookie(sessionCookie(cfg, cfg.RefreshName, tokens.Refresh, tokens.RefreshTTL))
}

// clearSessionCookies expires both cookies. This is the entire logout
// mechanism; the tokens themselves stay valid until expiry.
func clearSessionCookies(c *fiber.Ctx, cfg authcore.CookieConfig) {
	c.Cookie(sessionCookie(cfg, cfg.AccessName, "", -time.Second))
	c.Cookie(sessionCookie(cfg, cfg.RefreshName, "", -time.Second))
}

func sessionCookie(cfg authcore.CookieConfig, name, value string, ttl time.Duration) *fiber.Cookie {
	cookie := &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		MaxAge:   int(ttl / time.Second),
		HTTPOnly: true,
		Secure:   cfg.Production,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
	if cfg.Production {
		cookie.SameSite = fiber.CookieSameSiteNoneMode
	}
	if ttl < 0 {
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0)
	}
	return cookie
}
