package handlers

import (
	"slices"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/catalog"
	"storefront/internal/session"
	"storefront/internal/validate"
)

type CatalogHandler struct {
	Sessions *session.Registry
}

type catalogResponse struct {
	catalog.View

	// Loading keeps the client's response shape. Views are served after the
	// snapshot load returns, so it is false.
	Loading bool `json:"loading"`
}

func (h *CatalogHandler) respond(c *fiber.Ctx, status int, s *session.Session) error {
	return c.Status(status).JSON(catalogResponse{View: s.Catalog.View()})
}

// View is the catalog page mount. A session whose snapshot failed to load
// tries again here.
func (h *CatalogHandler) View(c *fiber.Ctx) error {
	s := h.Sessions.Mount(c.UserContext(), ensureSID(c))
	return h.respond(c, fiber.StatusOK, s)
}

type searchRequest struct {
	Q string `json:"q"`
}

// Search records raw input. The product list follows once the text has
// been stable for the debounce window, so the reply is 202.
func (h *CatalogHandler) Search(c *fiber.Ctx) error {
	s := currentSession(c, h.Sessions)
	var req searchRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "body", "invalid body")
	}
	q, ok := validate.Q(req.Q)
	if !ok {
		return badRequest(c, "q", "Enter a valid keyword (letters/numbers only)")
	}
	s.Catalog.SetSearch(q)
	return h.respond(c, fiber.StatusAccepted, s)
}

func (h *CatalogHandler) ToggleCategory(c *fiber.Ctx) error {
	s := currentSession(c, h.Sessions)
	name, ok := validate.Category(c.Params("name"))
	if !ok {
		return badRequest(c, "category", "Invalid category")
	}
	if !slices.Contains(s.Catalog.View().Categories, name) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown category"})
	}
	s.Catalog.ToggleCategory(name)
	return h.respond(c, fiber.StatusOK, s)
}

type categoriesRequest struct {
	Categories []string `json:"categories" validate:"required,max=20"`
}

// Categories replaces the whole selection; an empty list clears it.
func (h *CatalogHandler) Categories(c *fiber.Ctx) error {
	s := currentSession(c, h.Sessions)
	var req categoriesRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "body", "invalid body")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, "categories", "Invalid categories")
	}
	known := s.Catalog.View().Categories
	sel := make([]string, 0, len(req.Categories))
	for _, raw := range req.Categories {
		name, ok := validate.Category(raw)
		if !ok {
			return badRequest(c, "category", "Invalid category")
		}
		if !slices.Contains(known, name) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown category"})
		}
		sel = append(sel, name)
	}
	s.Catalog.SetCategories(sel)
	return h.respond(c, fiber.StatusOK, s)
}

type priceRequest struct {
	Min *float64 `json:"min" validate:"required"`
	Max *float64 `json:"max" validate:"required"`
}

func (h *CatalogHandler) PriceRange(c *fiber.Ctx) error {
	s := currentSession(c, h.Sessions)
	var req priceRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "body", "invalid body")
	}
	if err := validate.Struct(req); err != nil || !validate.Price(*req.Min) || !validate.Price(*req.Max) {
		return badRequest(c, "price", "Invalid price range")
	}
	s.Catalog.SetPriceRange(*req.Min, *req.Max)
	return h.respond(c, fiber.StatusOK, s)
}

type sortRequest struct {
	Sort string `json:"sort"`
}

func (h *CatalogHandler) Sort(c *fiber.Ctx) error {
	s := currentSession(c, h.Sessions)
	var req sortRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "body", "invalid body")
	}
	mode, ok := validate.Sort(req.Sort)
	if !ok {
		return badRequest(c, "sort", "Invalid sort")
	}
	s.Catalog.SetSort(mode)
	return h.respond(c, fiber.StatusOK, s)
}

func (h *CatalogHandler) Clear(c *fiber.Ctx) error {
	s := currentSession(c, h.Sessions)
	s.Catalog.ClearFilters()
	return h.respond(c, fiber.StatusOK, s)
}

// Product backs the detail modal: the product, its pre-discount price and
// how many are already in the cart.
func (h *CatalogHandler) Product(c *fiber.Ctx) error {
	s := currentSession(c, h.Sessions)
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id", "Invalid product")
	}
	p, ok := s.Catalog.Product(id)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "This item is no longer available"})
	}
	inCart := 0
	if l, ok := s.Cart.Line(id); ok {
		inCart = l.Quantity
	}
	return c.JSON(fiber.Map{
		"product":       p,
		"originalPrice": p.OriginalPrice(),
		"inStock":       p.InStock(),
		"inCart":        inCart,
	})
}
