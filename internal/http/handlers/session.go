package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	applog "storefront/internal/log"
	"storefront/internal/session"
)

const sidCookie = "sid"

// ensureSID returns the browser session id, issuing a cookie on first visit.
// The id is also stored in Locals so log lines carry it.
func ensureSID(c *fiber.Ctx) string {
	sid := c.Cookies(sidCookie)
	if _, err := uuid.Parse(sid); err != nil {
		if sid != "" {
			applog.Security(c, "session.cookie.invalid", nil)
		}
		sid = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     sidCookie,
			Value:    sid,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
			Secure:   false, // enable true behind TLS
		})
	}
	c.Locals(applog.SessionKey, sid)
	return sid
}

func currentSession(c *fiber.Ctx, reg *session.Registry) *session.Session {
	return reg.Get(c.UserContext(), ensureSID(c))
}

// RequireJSON rejects API writes whose body is not JSON. Bodyless calls
// (toggle, clear) pass.
func RequireJSON(c *fiber.Ctx) error {
	switch c.Method() {
	case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions, fiber.MethodDelete:
		return c.Next()
	}
	if len(c.Body()) == 0 {
		return c.Next()
	}
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		applog.Security(c, "api.content_type.reject", map[string]any{"content_type": c.Get(fiber.HeaderContentType)})
		return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{"error": "expected application/json"})
	}
	return c.Next()
}

func badRequest(c *fiber.Ctx, field, msg string) error {
	applog.Security(c, "validation.fail", map[string]any{"field": field})
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
