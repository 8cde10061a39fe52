package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/cart"
	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/session"
	"storefront/internal/validate"
)

type CartHandler struct {
	Sessions *session.Registry
}

type cartResponse struct {
	Items         []domain.CartLine `json:"items"`
	TotalPrice    float64           `json:"totalPrice"`
	TotalQuantity int               `json:"totalQuantity"`
	Outcome       string            `json:"outcome,omitempty"`
}

func cartJSON(m *cart.Manager) cartResponse {
	lines := m.Lines()
	return cartResponse{Items: lines, TotalPrice: cart.TotalPrice(lines), TotalQuantity: cart.TotalQuantity(lines)}
}

func (h *CartHandler) View(c *fiber.Ctx) error {
	return c.JSON(cartJSON(currentSession(c, h.Sessions).Cart))
}

type addRequest struct {
	ProductID int `json:"productId" validate:"required,gt=0"`
}

func (h *CartHandler) Add(c *fiber.Ctx) error {
	s := currentSession(c, h.Sessions)
	var req addRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "body", "invalid body")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, "productId", "missing productId")
	}
	p, ok := s.Catalog.Product(req.ProductID)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "This item is no longer available"})
	}
	out := s.Cart.Add(c.UserContext(), p)
	applog.Audit(c, "cart.add", map[string]any{"product": p.ID, "outcome": out.String()})

	resp := cartJSON(s.Cart)
	resp.Outcome = out.String()
	return c.JSON(resp)
}

type quantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

func (h *CartHandler) Update(c *fiber.Ctx) error {
	s := currentSession(c, h.Sessions)
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id", "Invalid product")
	}
	var req quantityRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "body", "invalid body")
	}
	if err := validate.Struct(req); err != nil || !validate.Qty(*req.Quantity) {
		return badRequest(c, "quantity", "Invalid quantity")
	}
	if err := s.Cart.SetQuantity(c.UserContext(), id, *req.Quantity); err != nil {
		return h.lineError(c, err)
	}
	applog.Audit(c, "cart.update", map[string]any{"product": id, "quantity": *req.Quantity})
	return c.JSON(cartJSON(s.Cart))
}

func (h *CartHandler) Remove(c *fiber.Ctx) error {
	s := currentSession(c, h.Sessions)
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id", "Invalid product")
	}
	if err := s.Cart.Remove(c.UserContext(), id); err != nil {
		return h.lineError(c, err)
	}
	applog.Audit(c, "cart.remove", map[string]any{"product": id})
	return c.JSON(cartJSON(s.Cart))
}

func (h *CartHandler) lineError(c *fiber.Ctx, err error) error {
	if errors.Is(err, cart.ErrUnknownLine) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "item not in cart"})
	}
	return err
}
