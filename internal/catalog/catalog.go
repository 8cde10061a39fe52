package catalog

import (
	"slices"
	"sync"
	"time"

	"storefront/internal/debounce"
	"storefront/internal/domain"
	"storefront/internal/schedule"
)

// Catalog owns one session's product snapshot and query. The view is derived
// on every read, so replacing the snapshot can never leave a stale result.
type Catalog struct {
	mu         sync.Mutex
	snapshot   []domain.Product
	categories []string
	maxPrice   float64
	query      domain.Query
	search     *debounce.Debouncer[string]
}

// View is what presentation renders for the product grid.
type View struct {
	Products   []domain.Product `json:"products"`
	Count      int              `json:"count"`
	Categories []string         `json:"categories"`
	MaxPrice   float64          `json:"maxPrice"`
	Query      domain.Query     `json:"query"`
	Active     bool             `json:"active"`

	// SearchPending is set while typed text waits out the debounce window.
	SearchPending bool `json:"searchPending"`
}

func New(s schedule.Scheduler, window time.Duration) *Catalog {
	return &Catalog{
		snapshot:   []domain.Product{},
		categories: []string{},
		query:      domain.DefaultQuery(0),
		search:     debounce.New(s, window, "", nil),
	}
}

// SetSnapshot replaces the product list and resets the price range to the
// new [0, max] bounds.
func (c *Catalog) SetSnapshot(ps []domain.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = slices.Clone(ps)
	if c.snapshot == nil {
		c.snapshot = []domain.Product{}
	}
	c.categories = Categories(c.snapshot)
	c.maxPrice = MaxPrice(c.snapshot)
	c.query = c.query.WithRange(0, c.maxPrice, c.maxPrice)
}

// Product looks a product up by id in the current snapshot.
func (c *Catalog) Product(id int) (domain.Product, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.IndexFunc(c.snapshot, func(p domain.Product) bool { return p.ID == id })
	if i < 0 {
		return domain.Product{}, false
	}
	return c.snapshot[i], true
}

// SetSearch records the raw input; filtering picks it up once the debounce
// window settles.
func (c *Catalog) SetSearch(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query.Search = text
	c.search.Set(text)
}

func (c *Catalog) ToggleCategory(category string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query = c.query.Toggle(category)
}

// SetCategories replaces the selection, dropping duplicates.
func (c *Catalog) SetCategories(categories []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sel := []string{}
	for _, cat := range categories {
		if !slices.Contains(sel, cat) {
			sel = append(sel, cat)
		}
	}
	c.query.Categories = sel
}

func (c *Catalog) SetPriceRange(lo, hi float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query = c.query.WithRange(lo, hi, c.maxPrice)
}

func (c *Catalog) SetSort(mode domain.SortMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query.Sort = mode
}

// ClearFilters resets search, categories, sort and price range in one step.
func (c *Catalog) ClearFilters() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query = domain.DefaultQuery(c.maxPrice)
	c.search.Flush("")
}

func (c *Catalog) Query() domain.Query {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queryLocked()
}

func (c *Catalog) queryLocked() domain.Query {
	q := c.query.Clone()
	q.DebouncedSearch = c.search.Value()
	return q
}

func (c *Catalog) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	q := c.queryLocked()
	products := Derive(c.snapshot, q)
	return View{
		Products:   products,
		Count:      len(products),
		Categories: slices.Clone(c.categories),
		MaxPrice:   c.maxPrice,
		Query:      q,
		Active:     q.Active(c.maxPrice),

		SearchPending: c.search.Pending(),
	}
}

// Close cancels the pending search timer.
func (c *Catalog) Close() { c.search.Stop() }
