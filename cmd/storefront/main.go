package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"

	"storefront/internal/catalog"
	"storefront/internal/config"
	"storefront/internal/http/handlers"
	applog "storefront/internal/log"
	"storefront/internal/repos"
	"storefront/internal/schedule"
	"storefront/internal/session"
)

const (
	sweepEvery = time.Minute
	// sqlite session records untouched this long are purged
	recordRetention = 30 * 24 * time.Hour
)

func main() {
	cfg := config.Load()

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			defer f.Close()
			log.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	// Session storage
	kv := repos.NewKVRepo(db)
	var stores session.Stores = kv
	if cfg.Storage == config.StorageRedis {
		rkv, err := repos.NewRedisKV(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal(err)
		}
		defer rkv.Close()
		stores = rkv
	}

	// Catalog snapshot source
	var src catalog.Source = repos.NewProductRepo(db)
	if cfg.CatalogURL != "" {
		src = catalog.HTTPSource{URL: cfg.CatalogURL, Timeout: cfg.CatalogTimeout}
	}
	loader := catalog.NewLoader(src)
	if ps, err := loader.Load(ctx); err != nil {
		applog.Warn(nil, "catalog.warmup.fail", err, nil)
	} else {
		applog.Info(nil, "catalog.warmup", map[string]any{"products": len(ps)})
	}

	sched := schedule.Real()
	reg := session.NewRegistry(loader, stores, sched, session.Options{
		SearchWindow: cfg.DebounceWindow,
		ToastTTL:     cfg.ToastTTL,
		Idle:         cfg.SessionIdle,
	})
	go sweep(ctx, reg, kv, cfg.Storage == config.StorageSQLite)
	go reloadOnHangup(ctx, loader)

	// Templates & app
	engine := html.New("./web/templates", ".html")

	app := fiber.New(fiber.Config{
		Views:        engine,
		ErrorHandler: handlers.ErrorHandler,
	})
	// Global body size guard
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/healthz"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.global.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	}))
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   false, // set true behind HTTPS
		// the JSON API is guarded by handlers.RequireJSON instead
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/")
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", nil)
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Security check failed. Please refresh and try again."})
		},
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok, ok := c.Locals("csrf").(string); ok {
			c.Locals("CSRFToken", tok)
		}
		return c.Next()
	})

	// ---------- App handlers ----------
	deps := handlers.NewDeps(cfg, reg, stores, sched)

	api := app.Group("/api/v1", handlers.RequireJSON)
	// typing in the search box is the chattiest client
	api.Put("/catalog/search", limiter.New(limiter.Config{
		Max:        30,
		Expiration: 10 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|search"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.search.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	}))
	deps.RegisterAPI(api)
	deps.RegisterPages(app)

	app.Get("/", func(c *fiber.Ctx) error { return c.Redirect("/api/v1/catalog") })

	// Health & 404
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true, "sessions": reg.Len()})
	})
	app.Use(handlers.NotFound)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("[server] listen: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	applog.Info(nil, "server.shutdown", nil)
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		applog.Error(nil, "server.shutdown", err, nil)
	}
	reg.CloseAll()
}

// sweep closes idle sessions and, for sqlite storage, purges stale records.
func sweep(ctx context.Context, reg *session.Registry, kv *repos.KVRepo, purge bool) {
	t := time.NewTicker(sweepEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			reg.Sweep(now)
			if !purge {
				continue
			}
			if n, err := kv.PurgeBefore(ctx, now.Add(-recordRetention)); err != nil {
				applog.Error(nil, "kv.purge", err, nil)
			} else if n > 0 {
				applog.Info(nil, "kv.purge", map[string]any{"records": n})
			}
		}
	}
}

// reloadOnHangup refetches the catalog on SIGHUP. Live sessions keep their
// snapshot; sessions started afterwards see the new one.
func reloadOnHangup(ctx context.Context, loader *catalog.Loader) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			ps, err := loader.Refresh(ctx)
			if err != nil {
				applog.Warn(nil, "catalog.refresh.fail", err, nil)
				continue
			}
			applog.Info(nil, "catalog.refresh", map[string]any{"products": len(ps)})
		}
	}
}
