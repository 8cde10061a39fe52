package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/singleflight"

	"storefront/internal/domain"
)

var (
	ErrFetch         = errors.New("catalog: fetch failed")
	ErrEmptySnapshot = errors.New("catalog: source returned no products")
)

// FetchFailedMessage is shown once when a session starts without products.
const FetchFailedMessage = "Failed to load products. Please try again."

// Source supplies the read-only product snapshot.
type Source interface {
	Products(ctx context.Context) ([]domain.Product, error)
}

// HTTPSource reads a remote JSON catalog shaped as {"products": [...]}.
type HTTPSource struct {
	URL     string
	Timeout time.Duration
}

type remotePayload struct {
	Products []domain.Product `json:"products"`
	Total    int              `json:"total"`
}

func (s HTTPSource) Products(ctx context.Context) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}

	agent := fiber.Get(s.URL)
	agent.Timeout(timeout)
	if err := agent.Parse(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	var payload remotePayload
	code, _, errs := agent.Struct(&payload)
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrFetch, errors.Join(errs...))
	}
	if code != fiber.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrFetch, code)
	}
	return payload.Products, nil
}

// Loader shares one fetch between concurrent callers and keeps the first
// successful snapshot for the life of the process.
type Loader struct {
	src   Source
	group singleflight.Group

	mu     sync.RWMutex
	cached []domain.Product
}

func NewLoader(src Source) *Loader { return &Loader{src: src} }

func (l *Loader) Load(ctx context.Context) ([]domain.Product, error) {
	l.mu.RLock()
	cached := l.cached
	l.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}
	return l.fetch(ctx)
}

// Refresh discards the cached snapshot and fetches again. Existing sessions
// keep the snapshot they started with.
func (l *Loader) Refresh(ctx context.Context) ([]domain.Product, error) {
	l.mu.Lock()
	l.cached = nil
	l.mu.Unlock()
	return l.fetch(ctx)
}

func (l *Loader) fetch(ctx context.Context) ([]domain.Product, error) {
	v, err, _ := l.group.Do("snapshot", func() (any, error) {
		ps, err := l.src.Products(ctx)
		if err != nil {
			return nil, err
		}
		if len(ps) == 0 {
			return nil, ErrEmptySnapshot
		}
		l.mu.Lock()
		l.cached = ps
		l.mu.Unlock()
		return ps, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Product), nil
}
