package domain

import "slices"

type SortMode string

const (
	SortNone    SortMode = "none"
	SortLowHigh SortMode = "low-high"
	SortHighLow SortMode = "high-low"
)

func ParseSort(s string) (SortMode, bool) {
	switch SortMode(s) {
	case SortNone, SortLowHigh, SortHighLow:
		return SortMode(s), true
	case "":
		return SortNone, true
	}
	return SortNone, false
}

// Query describes the user's current catalog view. Categories keeps selection
// order for display; matching is membership only.
type Query struct {
	Search          string   `json:"search"`
	DebouncedSearch string   `json:"debouncedSearch"`
	Categories      []string `json:"categories"`
	Min             float64  `json:"min"`
	Max             float64  `json:"max"`
	Sort            SortMode `json:"sort"`
}

// DefaultQuery is the state a catalog view mounts with.
func DefaultQuery(maxPrice float64) Query {
	return Query{Categories: []string{}, Min: 0, Max: maxPrice, Sort: SortNone}
}

func (q Query) HasCategory(c string) bool { return slices.Contains(q.Categories, c) }

// Toggle returns a copy with c removed if selected, appended otherwise.
func (q Query) Toggle(c string) Query {
	out := q.Clone()
	if i := slices.Index(out.Categories, c); i >= 0 {
		out.Categories = slices.Delete(out.Categories, i, i+1)
		return out
	}
	out.Categories = append(out.Categories, c)
	return out
}

func (q Query) Clone() Query {
	out := q
	out.Categories = slices.Clone(q.Categories)
	if out.Categories == nil {
		out.Categories = []string{}
	}
	return out
}

// WithRange clamps [min,max] into [0,maxPrice] keeping min <= max.
func (q Query) WithRange(lo, hi, maxPrice float64) Query {
	out := q.Clone()
	if lo < 0 {
		lo = 0
	}
	if lo > maxPrice {
		lo = maxPrice
	}
	if hi > maxPrice {
		hi = maxPrice
	}
	if hi < lo {
		hi = lo
	}
	out.Min, out.Max = lo, hi
	return out
}

// Active reports whether anything narrows or reorders the unfiltered snapshot.
func (q Query) Active(maxPrice float64) bool {
	return len(q.Categories) > 0 || q.Sort != SortNone || q.DebouncedSearch != "" ||
		q.Min > 0 || q.Max < maxPrice
}
