package handlers_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"
	"github.com/jmoiron/sqlx"

	"storefront/internal/catalog"
	"storefront/internal/config"
	"storefront/internal/http/handlers"
	"storefront/internal/repos"
	"storefront/internal/schedule"
	"storefront/internal/session"
)

type testApp struct {
	app   *fiber.App
	db    *sqlx.DB
	sched *schedule.Manual
	reg   *session.Registry
}

// newTestApp wires the real routes over an in-memory database and a manual
// clock. apiLimit caps API requests per second; zero disables the limiter.
func newTestApp(t *testing.T, apiLimit int) *testApp {
	t.Helper()
	cfg := config.Config{DBDSN: ":memory:", TaxRate: 0.10}
	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	stores := repos.NewKVRepo(db)
	sched := schedule.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	reg := session.NewRegistry(catalog.NewLoader(repos.NewProductRepo(db)), stores, sched, session.Options{
		SearchWindow: 300 * time.Millisecond,
		ToastTTL:     3 * time.Second,
	})
	t.Cleanup(reg.CloseAll)

	engine := html.New("../../web/templates", ".html")
	app := fiber.New(fiber.Config{Views: engine, ErrorHandler: handlers.ErrorHandler})
	app.Server().MaxRequestBodySize = 1 << 20
	app.Use(requestid.New())
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		Next:           func(c *fiber.Ctx) bool { return strings.HasPrefix(c.Path(), "/api/") },
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok, ok := c.Locals("csrf").(string); ok {
			c.Locals("CSRFToken", tok)
		}
		return c.Next()
	})

	deps := handlers.NewDeps(cfg, reg, stores, sched)
	var api fiber.Router
	if apiLimit > 0 {
		api = app.Group("/api/v1", limiter.New(limiter.Config{Max: apiLimit, Expiration: time.Second}), handlers.RequireJSON)
	} else {
		api = app.Group("/api/v1", handlers.RequireJSON)
	}
	deps.RegisterAPI(api)
	deps.RegisterPages(app)
	app.Use(handlers.NotFound)

	return &testApp{app: app, db: db, sched: sched, reg: reg}
}

func extractCookie(resp *http.Response, name string) string {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// shopper is one browser: it replays the sid and csrf cookies it was given.
type shopper struct {
	t    *testing.T
	app  *fiber.App
	sid  string
	csrf string
}

func (ta *testApp) shopper(t *testing.T) *shopper {
	return &shopper{t: t, app: ta.app}
}

func (s *shopper) do(method, path, contentType, body string) *http.Response {
	s.t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if s.sid != "" {
		req.AddCookie(&http.Cookie{Name: "sid", Value: s.sid})
	}
	if s.csrf != "" {
		req.AddCookie(&http.Cookie{Name: "csrf_", Value: s.csrf})
	}
	resp, err := s.app.Test(req, -1)
	if err != nil {
		s.t.Fatalf("%s %s: %v", method, path, err)
	}
	if v := extractCookie(resp, "sid"); v != "" {
		s.sid = v
	}
	if v := extractCookie(resp, "csrf_"); v != "" {
		s.csrf = v
	}
	return resp
}

func (s *shopper) json(method, path, body string) *http.Response {
	s.t.Helper()
	ct := ""
	if body != "" {
		ct = fiber.MIMEApplicationJSON
	}
	return s.do(method, path, ct, body)
}

func (s *shopper) form(path, body string) *http.Response {
	s.t.Helper()
	if s.csrf == "" {
		s.do("GET", "/checkout", "", "")
	}
	if s.csrf == "" {
		s.t.Fatal("csrf token missing")
	}
	return s.do("POST", path, fiber.MIMEApplicationForm, "csrf="+s.csrf+"&"+body)
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func readBody(resp *http.Response) string {
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return string(b)
}
