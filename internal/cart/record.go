package cart

import (
	"context"
	"encoding/json"
	"slices"

	"storefront/internal/domain"
	applog "storefront/internal/log"
)

// ReadLines decodes the stored cart without loading the catalog. Missing and
// malformed records read as empty. Lines that break 0 < quantity <= stock are
// repaired: non-positive quantities are dropped, excess is capped, repeated
// ids keep the first occurrence.
func ReadLines(ctx context.Context, store Storage, sid string) []domain.CartLine {
	fields := map[string]any{}
	if sid != "" {
		fields[applog.SessionKey] = sid
	}
	raw, ok, err := store.Get(ctx, StorageKey)
	if err != nil {
		applog.Error(nil, "cart.rehydrate.read", err, fields)
		return []domain.CartLine{}
	}
	if !ok || raw == "" {
		return []domain.CartLine{}
	}
	var stored []domain.CartLine
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		applog.Warn(nil, "cart.rehydrate.malformed", err, fields)
		return []domain.CartLine{}
	}

	out := make([]domain.CartLine, 0, len(stored))
	for _, l := range stored {
		if l.Quantity <= 0 || l.Stock <= 0 {
			continue
		}
		if slices.ContainsFunc(out, func(x domain.CartLine) bool { return x.ID == l.ID }) {
			continue
		}
		l.Quantity = min(l.Quantity, l.Stock)
		out = append(out, l)
	}
	return out
}

func TotalPrice(lines []domain.CartLine) float64 {
	total := 0.0
	for _, l := range lines {
		total += l.Subtotal()
	}
	return total
}

func TotalQuantity(lines []domain.CartLine) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}
