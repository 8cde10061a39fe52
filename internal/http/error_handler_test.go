package handlers_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"

	"storefront/internal/http/handlers"
)

// friendly error surface, no internal leakage
func TestErrorHandlerFriendlyMessage(t *testing.T) {
	engine := html.New("../../web/templates", ".html")
	app := fiber.New(fiber.Config{Views: engine, ErrorHandler: handlers.ErrorHandler})
	app.Use(requestid.New())

	// Routes that trigger an internal error
	fail := func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusInternalServerError, "db timeout: secret trace")
	}
	app.Get("/err", fail)
	app.Get("/api/v1/err", fail)

	for _, path := range []string{"/err", "/api/v1/err"} {
		req := httptest.NewRequest("GET", path, nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("test request failed: %v", err)
		}
		if resp.StatusCode != fiber.StatusInternalServerError {
			t.Fatalf("%s: expected 500, got %d", path, resp.StatusCode)
		}
		body, _ := io.ReadAll(resp.Body)
		s := string(body)
		if !strings.Contains(s, "Something went wrong") {
			t.Fatalf("%s: friendly message missing; body=%s", path, s)
		}
		if strings.Contains(s, "db timeout") || strings.Contains(s, "secret") {
			t.Fatalf("%s: internal details leaked to user; body=%s", path, s)
		}
	}
}

func TestNotFoundPage(t *testing.T) {
	ta := newTestApp(t, 0)
	s := ta.shopper(t)

	resp := s.do("GET", "/nope", "", "")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if body := readBody(resp); !strings.Contains(body, "Page not found") {
		t.Fatalf("notfound page not rendered; body=%s", body)
	}

	resp = s.json("GET", "/api/v1/nope", "")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected api 404, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, fiber.MIMEApplicationJSON) {
		t.Fatalf("expected json 404, got %q", ct)
	}
}
