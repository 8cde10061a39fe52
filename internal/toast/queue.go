package toast

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront/internal/domain"
	"storefront/internal/schedule"
)

// DefaultTTL is how long a toast stays visible unless dismissed earlier.
const DefaultTTL = 3000 * time.Millisecond

// Queue is the ordered list of live notifications for one session. Each toast
// expires independently and is removed at most once.
type Queue struct {
	mu        sync.Mutex
	sched     schedule.Scheduler
	ttl       time.Duration
	toasts    []domain.Toast
	timers    map[string]schedule.Cancel
	observers map[int]func([]domain.Toast)
	nextObs   int
	closed    bool
}

func NewQueue(s schedule.Scheduler, ttl time.Duration) *Queue {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Queue{
		sched:     s,
		ttl:       ttl,
		toasts:    []domain.Toast{},
		timers:    map[string]schedule.Cancel{},
		observers: map[int]func([]domain.Toast){},
	}
}

// Push appends a toast and schedules its expiry. An empty severity means
// success; any other unknown severity is shown as info. It returns the token
// used to dismiss it, or "" once closed.
func (q *Queue) Push(message string, sev domain.Severity) string {
	switch {
	case sev == "":
		sev = domain.SeveritySuccess
	case !sev.Valid():
		sev = domain.SeverityInfo
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ""
	}
	id := uuid.NewString()
	q.toasts = append(q.toasts, domain.Toast{ID: id, Message: message, Severity: sev})
	q.timers[id] = q.sched.After(q.ttl, func() { q.expire(id) })
	snap, obs := q.snapshotLocked()
	q.mu.Unlock()

	notify(obs, snap)
	return id
}

// Dismiss removes the toast early. Unknown or already expired tokens are a
// no-op.
func (q *Queue) Dismiss(id string) {
	q.mu.Lock()
	if cancel, ok := q.timers[id]; ok {
		cancel()
	}
	if !q.removeLocked(id) {
		q.mu.Unlock()
		return
	}
	snap, obs := q.snapshotLocked()
	q.mu.Unlock()

	notify(obs, snap)
}

func (q *Queue) expire(id string) {
	q.mu.Lock()
	if q.closed || !q.removeLocked(id) {
		q.mu.Unlock()
		return
	}
	snap, obs := q.snapshotLocked()
	q.mu.Unlock()

	notify(obs, snap)
}

func (q *Queue) removeLocked(id string) bool {
	delete(q.timers, id)
	i := slices.IndexFunc(q.toasts, func(t domain.Toast) bool { return t.ID == id })
	if i < 0 {
		return false
	}
	q.toasts = slices.Delete(q.toasts, i, i+1)
	return true
}

// List returns the live toasts, oldest first.
func (q *Queue) List() []domain.Toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.toasts)
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.toasts)
}

// Subscribe registers fn to receive the queue contents after every change.
// fn runs synchronously on the mutating goroutine.
func (q *Queue) Subscribe(fn func([]domain.Toast)) (unsubscribe func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nextObs++
	key := q.nextObs
	q.observers[key] = fn
	return func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		delete(q.observers, key)
	}
}

// Close cancels every pending expiry. Later pushes are ignored.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	for id, cancel := range q.timers {
		cancel()
		delete(q.timers, id)
	}
	clear(q.observers)
}

func (q *Queue) snapshotLocked() ([]domain.Toast, []func([]domain.Toast)) {
	obs := make([]func([]domain.Toast), 0, len(q.observers))
	for k := 1; k <= q.nextObs; k++ {
		if fn, ok := q.observers[k]; ok {
			obs = append(obs, fn)
		}
	}
	return slices.Clone(q.toasts), obs
}

func notify(obs []func([]domain.Toast), snap []domain.Toast) {
	for _, fn := range obs {
		fn(snap)
	}
}
