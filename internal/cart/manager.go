package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"storefront/internal/domain"
	applog "storefront/internal/log"
)

// StorageKey is where the serialized cart lives in durable storage. Pages
// that only read the cart (checkout summary) rely on this key and shape.
const StorageKey = "cart"

var ErrUnknownLine = errors.New("cart: no line for product")

// Storage is a session-scoped durable key-value store.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type Notifier interface {
	Push(message string, sev domain.Severity) string
}

// Outcome is the result of Add. Hitting the stock limit is an ordinary
// outcome, not an error.
type Outcome int

const (
	Added Outcome = iota + 1
	Incremented
	AtStockLimit
	OutOfStock
)

func (o Outcome) Changed() bool { return o == Added || o == Incremented }

func (o Outcome) String() string {
	switch o {
	case Added:
		return "added"
	case Incremented:
		return "incremented"
	case AtStockLimit:
		return "at_stock_limit"
	case OutOfStock:
		return "out_of_stock"
	}
	return "unknown"
}

// Manager owns one session's cart lines. Every successful mutation writes
// the complete cart back to storage.
type Manager struct {
	mu     sync.Mutex
	store  Storage
	notify Notifier
	lines  []domain.CartLine

	// SessionID tags log lines.
	SessionID string
}

func NewManager(store Storage, notify Notifier) *Manager {
	return &Manager{store: store, notify: notify, lines: []domain.CartLine{}}
}

// Add puts one unit of p in the cart, bounded by the stock recorded on the
// line when it was first added.
func (m *Manager) Add(ctx context.Context, p domain.Product) Outcome {
	m.mu.Lock()
	out := m.addLocked(p)
	if out.Changed() {
		m.commitLocked(ctx)
	}
	m.mu.Unlock()

	switch out {
	case Added:
		m.push(fmt.Sprintf("%s added to cart", p.Title), domain.SeveritySuccess)
	case Incremented:
		m.push(fmt.Sprintf("Updated %s quantity", p.Title), domain.SeveritySuccess)
	case AtStockLimit:
		m.push("Maximum stock limit reached", domain.SeverityError)
	case OutOfStock:
		m.push(fmt.Sprintf("%s is out of stock", p.Title), domain.SeverityError)
	}
	return out
}

func (m *Manager) addLocked(p domain.Product) Outcome {
	if i := m.indexLocked(p.ID); i >= 0 {
		if m.lines[i].Quantity >= m.lines[i].Stock {
			return AtStockLimit
		}
		m.lines[i].Quantity++
		return Incremented
	}
	if p.Stock <= 0 {
		return OutOfStock
	}
	m.lines = append(m.lines, domain.CartLine{
		ID:        p.ID,
		Title:     p.Title,
		Price:     p.Price,
		Quantity:  1,
		Stock:     p.Stock,
		Thumbnail: p.Thumbnail,
	})
	return Added
}

// SetQuantity overwrites a line's quantity. Zero or less removes the line
// without a toast. Values above the line's stock snapshot are capped to it.
func (m *Manager) SetQuantity(ctx context.Context, id, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexLocked(id)
	if i < 0 {
		return ErrUnknownLine
	}
	if quantity <= 0 {
		m.lines = slices.Delete(m.lines, i, i+1)
	} else {
		m.lines[i].Quantity = min(quantity, m.lines[i].Stock)
	}
	m.commitLocked(ctx)
	return nil
}

// Remove drops the line and confirms with an info toast. Removing an id
// that is not in the cart changes nothing but still confirms.
func (m *Manager) Remove(ctx context.Context, id int) error {
	m.mu.Lock()
	if i := m.indexLocked(id); i >= 0 {
		m.lines = slices.Delete(m.lines, i, i+1)
		m.commitLocked(ctx)
	}
	m.mu.Unlock()

	m.push("Item removed from cart", domain.SeverityInfo)
	return nil
}

// Clear empties the cart and deletes the stored record; there is nothing to
// resume after an order is placed.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = []domain.CartLine{}
	if err := m.store.Delete(ctx, StorageKey); err != nil {
		applog.Error(nil, "cart.clear.fail", err, m.fields(nil))
		return err
	}
	return nil
}

// Rehydrate replaces the in-memory cart with the stored one. A missing or
// unreadable record yields an empty cart; failures are logged only.
func (m *Manager) Rehydrate(ctx context.Context) {
	lines := ReadLines(ctx, m.store, m.SessionID)
	m.mu.Lock()
	m.lines = lines
	m.mu.Unlock()
}

func (m *Manager) Lines() []domain.CartLine {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.lines)
}

func (m *Manager) Line(id int) (domain.CartLine, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.indexLocked(id); i >= 0 {
		return m.lines[i], true
	}
	return domain.CartLine{}, false
}

func (m *Manager) TotalPrice() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return TotalPrice(m.lines)
}

func (m *Manager) TotalQuantity() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return TotalQuantity(m.lines)
}

func (m *Manager) indexLocked(id int) int {
	return slices.IndexFunc(m.lines, func(l domain.CartLine) bool { return l.ID == id })
}

// commitLocked writes the whole cart. A failed write leaves the in-memory
// cart authoritative for the rest of the session.
func (m *Manager) commitLocked(ctx context.Context) {
	b, err := json.Marshal(m.lines)
	if err != nil {
		applog.Error(nil, "cart.persist.encode", err, m.fields(nil))
		return
	}
	if err := m.store.Set(ctx, StorageKey, string(b)); err != nil {
		applog.Error(nil, "cart.persist.fail", err, m.fields(map[string]any{"lines": len(m.lines)}))
	}
}

func (m *Manager) push(msg string, sev domain.Severity) {
	if m.notify != nil {
		m.notify.Push(msg, sev)
	}
}

func (m *Manager) fields(extra map[string]any) map[string]any {
	f := map[string]any{}
	for k, v := range extra {
		f[k] = v
	}
	if m.SessionID != "" {
		f[applog.SessionKey] = m.SessionID
	}
	return f
}
