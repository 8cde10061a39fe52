package catalog

import (
	"math"
	"slices"
	"strings"

	"storefront/internal/domain"
)

// Derive filters and sorts snapshot according to q. The result is always a
// new slice; snapshot is never reordered.
func Derive(snapshot []domain.Product, q domain.Query) []domain.Product {
	needle := strings.ToLower(q.DebouncedSearch)
	out := make([]domain.Product, 0, len(snapshot))
	for _, p := range snapshot {
		if needle != "" && !strings.Contains(strings.ToLower(p.Title), needle) {
			continue
		}
		if len(q.Categories) > 0 && !q.HasCategory(p.Category) {
			continue
		}
		if p.Price < q.Min || p.Price > q.Max {
			continue
		}
		out = append(out, p)
	}

	switch q.Sort {
	case domain.SortLowHigh:
		slices.SortStableFunc(out, func(a, b domain.Product) int { return cmpPrice(a.Price, b.Price) })
	case domain.SortHighLow:
		slices.SortStableFunc(out, func(a, b domain.Product) int { return cmpPrice(b.Price, a.Price) })
	}
	return out
}

func cmpPrice(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Categories lists distinct categories in first-seen order.
func Categories(snapshot []domain.Product) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, p := range snapshot {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}

// MaxPrice is the ceiling of the most expensive product, 0 when empty.
func MaxPrice(snapshot []domain.Product) float64 {
	m := 0.0
	for _, p := range snapshot {
		if p.Price > m {
			m = p.Price
		}
	}
	return math.Ceil(m)
}
