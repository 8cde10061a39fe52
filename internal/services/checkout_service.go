package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"storefront/internal/cart"
	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/schedule"
)

var (
	ErrEmptyCart = errors.New("checkout: cart is empty")
	ErrNoOrder   = errors.New("checkout: no such order")
)

// LastOrderKey holds the most recently placed order in session storage so
// the confirmation page can show it.
const LastOrderKey = "order"

const (
	DefaultTaxRate = 0.10
	DefaultDelay   = 2000 * time.Millisecond
)

// Summary is the checkout page view of the persisted cart.
type Summary struct {
	Lines    []domain.CartLine
	Subtotal float64
	Tax      float64
	Total    float64
	Count    int
}

// Clearer empties the live cart once an order is placed.
type Clearer interface {
	Clear(ctx context.Context) error
}

type CheckoutService struct {
	Sched   schedule.Scheduler
	TaxRate float64

	// Delay simulates payment processing before the order is recorded.
	Delay time.Duration
	Now   func() time.Time
}

func NewCheckoutService(sched schedule.Scheduler, taxRate float64, delay time.Duration) *CheckoutService {
	return &CheckoutService{Sched: sched, TaxRate: taxRate, Delay: delay, Now: time.Now}
}

// Summary reads the cart record straight from storage; it never touches the
// live cart or the catalog.
func (s *CheckoutService) Summary(ctx context.Context, store cart.Storage, sid string) Summary {
	lines := cart.ReadLines(ctx, store, sid)
	sub := cart.TotalPrice(lines)
	tax := cents(sub * s.TaxRate)
	return Summary{
		Lines:    lines,
		Subtotal: cents(sub),
		Tax:      tax,
		Total:    cents(sub + tax),
		Count:    cart.TotalQuantity(lines),
	}
}

// Place waits out the simulated payment, keeps the order under LastOrderKey
// and clears the cart. No payment is taken. A cancelled ctx during the wait
// leaves the cart untouched.
func (s *CheckoutService) Place(ctx context.Context, sid string, store cart.Storage, live Clearer, contact domain.Contact) (domain.Order, error) {
	sum := s.Summary(ctx, store, sid)
	if len(sum.Lines) == 0 {
		return domain.Order{}, ErrEmptyCart
	}
	if err := s.wait(ctx); err != nil {
		return domain.Order{}, err
	}

	id := uuid.NewString()
	o := domain.Order{
		ID:       id,
		Number:   orderNumber(id),
		Contact:  contact,
		Lines:    sum.Lines,
		Subtotal: sum.Subtotal,
		Tax:      sum.Tax,
		Total:    sum.Total,
		PlacedAt: s.now(),
	}
	b, err := json.Marshal(o)
	if err != nil {
		return domain.Order{}, err
	}
	if err := store.Set(ctx, LastOrderKey, string(b)); err != nil {
		return domain.Order{}, err
	}
	if err := live.Clear(ctx); err != nil {
		applog.Error(nil, "checkout.clear.fail", err, map[string]any{applog.SessionKey: sid, "order": o.Number})
	}
	applog.Audit(nil, "checkout.place", map[string]any{
		applog.SessionKey: sid, "order": o.Number, "items": sum.Count, "total": o.Total,
	})
	return o, nil
}

// LastOrder returns the order with the given id if it is the one this
// session placed last.
func (s *CheckoutService) LastOrder(ctx context.Context, store cart.Storage, id string) (domain.Order, error) {
	raw, ok, err := store.Get(ctx, LastOrderKey)
	if err != nil {
		return domain.Order{}, err
	}
	if !ok {
		return domain.Order{}, ErrNoOrder
	}
	var o domain.Order
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		return domain.Order{}, fmt.Errorf("decode order: %w", err)
	}
	if o.ID != id {
		return domain.Order{}, ErrNoOrder
	}
	return o, nil
}

func (s *CheckoutService) wait(ctx context.Context) error {
	if s.Delay <= 0 {
		return ctx.Err()
	}
	sched := s.Sched
	if sched == nil {
		sched = schedule.Real()
	}
	done := make(chan struct{})
	cancel := sched.After(s.Delay, func() { close(done) })
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}
}

func (s *CheckoutService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// orderNumber derives the short customer-facing reference, e.g. ORD-3F9A1C2B7.
func orderNumber(id string) string {
	return "ORD-" + strings.ToUpper(strings.ReplaceAll(id, "-", ""))[:9]
}

func cents(v float64) float64 { return math.Round(v*100) / 100 }
