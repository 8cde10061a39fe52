package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"storefront/internal/cart"
	"storefront/internal/domain"
	"storefront/internal/repos"
	"storefront/internal/schedule"
	"storefront/internal/services"
)

type env struct {
	svc   *services.CheckoutService
	store cart.Storage
	cart  *cart.Manager
	clock *schedule.Manual
}

func newEnv(t *testing.T, delay time.Duration) env {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	clock := schedule.NewManual(time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC))
	svc := services.NewCheckoutService(clock, services.DefaultTaxRate, delay)
	svc.Now = clock.Now
	store := repos.NewKVRepo(db).ForSession("sid-1")
	return env{svc: svc, store: store, cart: cart.NewManager(store, nil), clock: clock}
}

var (
	phone   = domain.Product{ID: 1, Title: "iPhone 9", Price: 549, Stock: 94}
	perfume = domain.Product{ID: 11, Title: "perfume Oil", Price: 13, Stock: 65}
)

var contact = domain.Contact{
	FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Phone: "555-0100",
	Address: "12 Analytical Way", City: "London", State: "LDN", Zip: "10001",
}

func TestSummary_ReadsPersistedRecord(t *testing.T) {
	e := newEnv(t, 0)
	ctx := context.Background()
	e.cart.Add(ctx, phone)
	e.cart.Add(ctx, phone)
	e.cart.Add(ctx, perfume)

	sum := e.svc.Summary(ctx, e.store, "sid-1")
	require.Len(t, sum.Lines, 2)
	require.Equal(t, 3, sum.Count)
	require.InDelta(t, 1111, sum.Subtotal, 1e-9)
	require.InDelta(t, 111.1, sum.Tax, 1e-9)
	require.InDelta(t, 1222.1, sum.Total, 1e-9)
}

func TestSummary_MalformedRecordIsEmpty(t *testing.T) {
	e := newEnv(t, 0)
	ctx := context.Background()
	require.NoError(t, e.store.Set(ctx, cart.StorageKey, "{oops"))
	sum := e.svc.Summary(ctx, e.store, "sid-1")
	require.Empty(t, sum.Lines)
	require.Zero(t, sum.Total)
}

func TestPlace_RecordsOrderAndClearsCart(t *testing.T) {
	e := newEnv(t, 0)
	ctx := context.Background()
	e.cart.Add(ctx, perfume)
	e.cart.Add(ctx, perfume)

	o, err := e.svc.Place(ctx, "sid-1", e.store, e.cart, contact)
	require.NoError(t, err)
	require.Regexp(t, `^ORD-[0-9A-F]{9}$`, o.Number)
	require.InDelta(t, 28.6, o.Total, 1e-9)
	require.True(t, e.clock.Now().Equal(o.PlacedAt))

	require.Empty(t, e.cart.Lines())
	_, ok, err := e.store.Get(ctx, cart.StorageKey)
	require.NoError(t, err)
	require.False(t, ok, "cart record removed")

	got, err := e.svc.LastOrder(ctx, e.store, o.ID)
	require.NoError(t, err)
	require.Equal(t, o.Number, got.Number)
	require.Equal(t, "Ada Lovelace", got.Contact.Name())
	require.Len(t, got.Lines, 1)
	require.Equal(t, 2, got.Lines[0].Quantity)

	_, err = e.svc.LastOrder(ctx, e.store, "some-other-id")
	require.ErrorIs(t, err, services.ErrNoOrder)
}

func TestLastOrder_NoneYet(t *testing.T) {
	e := newEnv(t, 0)
	_, err := e.svc.LastOrder(context.Background(), e.store, "anything")
	require.ErrorIs(t, err, services.ErrNoOrder)
}

func TestPlace_EmptyCart(t *testing.T) {
	e := newEnv(t, 0)
	_, err := e.svc.Place(context.Background(), "sid-1", e.store, e.cart, contact)
	require.ErrorIs(t, err, services.ErrEmptyCart)
}

func TestPlace_WaitsForSimulatedPayment(t *testing.T) {
	e := newEnv(t, services.DefaultDelay)
	ctx := context.Background()
	e.cart.Add(ctx, phone)

	type result struct {
		o   domain.Order
		err error
	}
	done := make(chan result, 1)
	go func() {
		o, err := e.svc.Place(ctx, "sid-1", e.store, e.cart, contact)
		done <- result{o, err}
	}()

	require.Eventually(t, func() bool { return e.clock.Pending() == 1 }, time.Second, time.Millisecond)
	e.clock.Advance(services.DefaultDelay - time.Millisecond)
	select {
	case <-done:
		t.Fatal("placed before the delay elapsed")
	default:
	}
	require.Len(t, e.cart.Lines(), 1)

	e.clock.Advance(time.Millisecond)
	r := <-done
	require.NoError(t, r.err)
	require.Empty(t, e.cart.Lines())
}

func TestPlace_CancelledDuringDelayKeepsCart(t *testing.T) {
	e := newEnv(t, services.DefaultDelay)
	e.cart.Add(context.Background(), phone)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := e.svc.Place(ctx, "sid-1", e.store, e.cart, contact)
		done <- err
	}()
	require.Eventually(t, func() bool { return e.clock.Pending() == 1 }, time.Second, time.Millisecond)
	cancel()

	require.ErrorIs(t, <-done, context.Canceled)
	require.Len(t, e.cart.Lines(), 1)
	require.Zero(t, e.clock.Pending(), "payment timer cancelled")
}
