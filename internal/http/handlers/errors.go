package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	applog "storefront/internal/log"
)

const friendlyError = "Something went wrong. Please try again."

// ErrorHandler logs err and answers without internal details: JSON under
// /api/, the notfound page elsewhere. Client errors raised by middleware keep
// their status and message.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code, msg := fiber.StatusInternalServerError, friendlyError
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
		code, msg = fe.Code, fe.Message
		applog.Warn(c, "request.reject", err, nil)
	} else {
		applog.Error(c, "server.error", err, nil)
	}
	if strings.HasPrefix(c.Path(), "/api/") {
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}
	// best-effort render
	if rerr := c.Status(code).Render("notfound", fiber.Map{"Message": msg}); rerr != nil {
		return c.Status(code).SendString(msg)
	}
	return nil
}

func NotFound(c *fiber.Ctx) error {
	if strings.HasPrefix(c.Path(), "/api/") {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	}
	return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Page not found"})
}
