package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/cart"
	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/services"
	"storefront/internal/session"
	"storefront/internal/validate"
)

type CheckoutHandler struct {
	Sessions *session.Registry
	Stores   session.Stores
	Checkout *services.CheckoutService
}

// checkoutForm mirrors the checkout page. Card fields are required to submit
// but are never stored or logged.
type checkoutForm struct {
	FirstName  string `form:"firstName" validate:"required,max=50"`
	LastName   string `form:"lastName" validate:"required,max=50"`
	Email      string `form:"email" validate:"required,email,max=100"`
	Phone      string `form:"phone" validate:"required,phone"`
	Address    string `form:"address" validate:"required,max=100"`
	City       string `form:"city" validate:"required,max=50"`
	State      string `form:"state" validate:"required,max=50"`
	ZipCode    string `form:"zipCode" validate:"required,zip"`
	CardNumber string `form:"cardNumber" validate:"required,max=25"`
	ExpiryDate string `form:"expiryDate" validate:"required,max=7"`
	CVV        string `form:"cvv" validate:"required,max=4"`
}

func (f checkoutForm) contact() domain.Contact {
	return domain.Contact{
		FirstName: strings.TrimSpace(f.FirstName),
		LastName:  strings.TrimSpace(f.LastName),
		Email:     strings.TrimSpace(f.Email),
		Phone:     strings.TrimSpace(f.Phone),
		Address:   strings.TrimSpace(f.Address),
		City:      strings.TrimSpace(f.City),
		State:     strings.TrimSpace(f.State),
		Zip:       strings.TrimSpace(f.ZipCode),
	}
}

// Page renders the order summary from the stored cart record only.
func (h *CheckoutHandler) Page(c *fiber.Ctx) error {
	sid := ensureSID(c)
	sum := h.Checkout.Summary(c.UserContext(), h.Stores.ForSession(sid), sid)
	return render(c, "checkout", fiber.Map{"Summary": sum, "Contact": domain.Contact{}})
}

func (h *CheckoutHandler) Place(c *fiber.Ctx) error {
	sid := ensureSID(c)
	store := h.Stores.ForSession(sid)

	var form checkoutForm
	if err := c.BodyParser(&form); err != nil {
		applog.Security(c, "validation.fail", map[string]any{"field": "body"})
		return c.Status(fiber.StatusBadRequest).SendString("invalid form")
	}
	if err := validate.Struct(form); err != nil {
		fields := validate.Fields(err)
		applog.Security(c, "validation.fail", map[string]any{"fields": fields})
		return h.rerender(c, sid, fiber.StatusBadRequest, form.contact(), "Please check: "+strings.Join(fields, ", "))
	}

	// without a live session only the stored record needs clearing
	var live services.Clearer = storedCart{store}
	if s, ok := h.Sessions.Lookup(sid); ok {
		live = s.Cart
	}
	o, err := h.Checkout.Place(c.UserContext(), sid, store, live, form.contact())
	switch {
	case errors.Is(err, services.ErrEmptyCart):
		return h.rerender(c, sid, fiber.StatusBadRequest, form.contact(), "Your cart is empty")
	case err != nil:
		applog.Error(c, "checkout.place.fail", err, nil)
		return h.rerender(c, sid, fiber.StatusInternalServerError, form.contact(), "Could not place your order. Please retry.")
	}
	// stop the old session's timers; the next request starts over the empty cart
	h.Sessions.Close(sid)
	return c.Redirect("/order-confirmation?id="+o.ID, fiber.StatusSeeOther)
}

type storedCart struct{ store cart.Storage }

func (s storedCart) Clear(ctx context.Context) error {
	return s.store.Delete(ctx, cart.StorageKey)
}

func (h *CheckoutHandler) rerender(c *fiber.Ctx, sid string, status int, contact domain.Contact, msg string) error {
	sum := h.Checkout.Summary(c.UserContext(), h.Stores.ForSession(sid), sid)
	c.Status(status)
	return render(c, "checkout", fiber.Map{"Summary": sum, "Contact": contact, "Err": msg})
}

// Confirmation shows the order this session placed last.
func (h *CheckoutHandler) Confirmation(c *fiber.Ctx) error {
	sid := ensureSID(c)
	id, ok := validate.Token(c.Query("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Order not found"})
	}
	o, err := h.Checkout.LastOrder(c.UserContext(), h.Stores.ForSession(sid), id)
	if errors.Is(err, services.ErrNoOrder) {
		applog.Security(c, "access.denied.order", map[string]any{"order": id})
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Order not found"})
	}
	if err != nil {
		return err
	}
	return render(c, "confirmation", fiber.Map{"Order": o})
}
