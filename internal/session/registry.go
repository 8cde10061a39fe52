package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/debounce"
	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/schedule"
	"storefront/internal/toast"
)

// Stores hands out durable storage scoped to one browser session.
type Stores interface {
	ForSession(sid string) cart.Storage
}

type Options struct {
	SearchWindow time.Duration
	ToastTTL     time.Duration

	// Idle is how long a session may go unused before Sweep closes it.
	Idle time.Duration
	Now  func() time.Time
}

// Session is the state of one browser session: its catalog view, cart and
// toasts. Containers outlive requests and are closed together.
type Session struct {
	ID      string
	Catalog *catalog.Catalog
	Cart    *cart.Manager
	Toasts  *toast.Queue
	Store   cart.Storage

	mu       sync.Mutex
	lastSeen time.Time
	closed   bool

	// unloaded is set while the catalog has no snapshot because loading failed.
	unloaded bool
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) setUnloaded(v bool) {
	s.mu.Lock()
	s.unloaded = v
	s.mu.Unlock()
}

// Unloaded reports whether the session is still waiting for a catalog snapshot.
func (s *Session) Unloaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unloaded
}

func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Close cancels the search debounce and every pending toast expiry. The
// persisted cart is left alone.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.Catalog.Close()
	s.Toasts.Close()
}

type Registry struct {
	loader *catalog.Loader
	stores Stores
	sched  schedule.Scheduler
	opts   Options

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(loader *catalog.Loader, stores Stores, sched schedule.Scheduler, opts Options) *Registry {
	if opts.SearchWindow <= 0 {
		opts.SearchWindow = debounce.DefaultWindow
	}
	if opts.ToastTTL <= 0 {
		opts.ToastTTL = toast.DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Registry{loader: loader, stores: stores, sched: sched, opts: opts, sessions: map[string]*Session{}}
}

// Get returns the live session for sid, starting one on first use. Starting
// loads the catalog snapshot (shared across sessions) and rehydrates the
// cart from storage.
func (r *Registry) Get(ctx context.Context, sid string) *Session {
	now := r.opts.Now()
	r.mu.Lock()
	if s, ok := r.sessions[sid]; ok {
		r.mu.Unlock()
		s.touch(now)
		return s
	}
	r.mu.Unlock()

	s := r.start(ctx, sid)
	s.touch(now)

	r.mu.Lock()
	if existing, ok := r.sessions[sid]; ok {
		r.mu.Unlock()
		s.Close()
		existing.touch(now)
		return existing
	}
	r.sessions[sid] = s
	r.mu.Unlock()
	applog.Info(nil, "session.start", map[string]any{applog.SessionKey: sid})
	return s
}

func (r *Registry) start(ctx context.Context, sid string) *Session {
	s := &Session{
		ID:      sid,
		Catalog: catalog.New(r.sched, r.opts.SearchWindow),
		Toasts:  toast.NewQueue(r.sched, r.opts.ToastTTL),
		Store:   r.stores.ForSession(sid),
	}
	s.Cart = cart.NewManager(s.Store, s.Toasts)
	s.Cart.SessionID = sid

	r.loadSnapshot(ctx, s)
	s.Cart.Rehydrate(ctx)
	return s
}

// loadSnapshot fills the session's catalog from the shared loader. A failed
// fetch pushes the error toast and leaves the session unloaded.
func (r *Registry) loadSnapshot(ctx context.Context, s *Session) {
	products, err := r.loader.Load(ctx)
	switch {
	case err == nil:
		s.Catalog.SetSnapshot(products)
		s.setUnloaded(false)
	case errors.Is(err, catalog.ErrEmptySnapshot):
		applog.Warn(nil, "catalog.load.empty", err, map[string]any{applog.SessionKey: s.ID})
		s.setUnloaded(true)
	default:
		applog.Error(nil, "catalog.load.fail", err, map[string]any{applog.SessionKey: s.ID})
		s.setUnloaded(true)
		s.Toasts.Push(catalog.FetchFailedMessage, domain.SeverityError)
	}
}

// Mount is Get for a catalog page mount. A session still without a snapshot
// loads again, so reloading the page is the shopper's retry.
func (r *Registry) Mount(ctx context.Context, sid string) *Session {
	if s, ok := r.Lookup(sid); ok && s.Unloaded() {
		s.touch(r.opts.Now())
		r.loadSnapshot(ctx, s)
		return s
	}
	return r.Get(ctx, sid)
}

// Lookup returns the session without starting or touching it.
func (r *Registry) Lookup(sid string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sid]
	return s, ok
}

func (r *Registry) Close(sid string) {
	r.mu.Lock()
	s, ok := r.sessions[sid]
	delete(r.sessions, sid)
	r.mu.Unlock()
	if ok {
		s.Close()
	}
}

// Sweep closes sessions idle for longer than Options.Idle and returns how
// many were closed. A zero Idle disables sweeping.
func (r *Registry) Sweep(now time.Time) int {
	if r.opts.Idle <= 0 {
		return 0
	}
	var stale []*Session
	r.mu.Lock()
	for id, s := range r.sessions {
		if now.Sub(s.LastSeen()) > r.opts.Idle {
			stale = append(stale, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()
	for _, s := range stale {
		s.Close()
	}
	if len(stale) > 0 {
		applog.Info(nil, "session.sweep", map[string]any{"closed": len(stale)})
	}
	return len(stale)
}

func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = map[string]*Session{}
	r.mu.Unlock()
	for _, s := range all {
		s.Close()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
