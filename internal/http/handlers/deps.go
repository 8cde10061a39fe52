package handlers

import (
	"github.com/gofiber/fiber/v2"

	"storefront/internal/config"
	"storefront/internal/schedule"
	"storefront/internal/services"
	"storefront/internal/session"
)

type Deps struct {
	CatalogHandler  *CatalogHandler
	CartHandler     *CartHandler
	ToastHandler    *ToastHandler
	CheckoutHandler *CheckoutHandler
}

func NewDeps(cfg config.Config, reg *session.Registry, stores session.Stores, sched schedule.Scheduler) *Deps {
	checkoutSvc := services.NewCheckoutService(sched, cfg.TaxRate, cfg.CheckoutDelay)

	return &Deps{
		CatalogHandler:  &CatalogHandler{Sessions: reg},
		CartHandler:     &CartHandler{Sessions: reg},
		ToastHandler:    &ToastHandler{Sessions: reg},
		CheckoutHandler: &CheckoutHandler{Sessions: reg, Stores: stores, Checkout: checkoutSvc},
	}
}

// RegisterAPI mounts the session JSON API on r.
func (d *Deps) RegisterAPI(r fiber.Router) {
	r.Get("/catalog", d.CatalogHandler.View)
	r.Get("/catalog/products/:id", d.CatalogHandler.Product)
	r.Put("/catalog/search", d.CatalogHandler.Search)
	r.Put("/catalog/categories", d.CatalogHandler.Categories)
	r.Post("/catalog/categories/:name/toggle", d.CatalogHandler.ToggleCategory)
	r.Put("/catalog/price", d.CatalogHandler.PriceRange)
	r.Put("/catalog/sort", d.CatalogHandler.Sort)
	r.Post("/catalog/clear", d.CatalogHandler.Clear)

	r.Get("/cart", d.CartHandler.View)
	r.Post("/cart", d.CartHandler.Add)
	r.Put("/cart/:id", d.CartHandler.Update)
	r.Delete("/cart/:id", d.CartHandler.Remove)

	r.Get("/toasts", d.ToastHandler.List)
	r.Delete("/toasts/:id", d.ToastHandler.Dismiss)
}

// RegisterPages mounts the server-rendered checkout flow on r.
func (d *Deps) RegisterPages(r fiber.Router) {
	r.Get("/checkout", d.CheckoutHandler.Page)
	r.Post("/checkout", d.CheckoutHandler.Place)
	r.Get("/order-confirmation", d.CheckoutHandler.Confirmation)
}
