package handlers

import (
	"github.com/gofiber/fiber/v2"

	"storefront/internal/session"
	"storefront/internal/validate"
)

type ToastHandler struct {
	Sessions *session.Registry
}

func (h *ToastHandler) List(c *fiber.Ctx) error {
	s := currentSession(c, h.Sessions)
	return c.JSON(fiber.Map{"toasts": s.Toasts.List()})
}

// Dismiss is idempotent: expired or unknown tokens still return 204.
func (h *ToastHandler) Dismiss(c *fiber.Ctx) error {
	s := currentSession(c, h.Sessions)
	id, ok := validate.Token(c.Params("id"))
	if !ok {
		return badRequest(c, "id", "Invalid toast")
	}
	s.Toasts.Dismiss(id)
	return c.SendStatus(fiber.StatusNoContent)
}
