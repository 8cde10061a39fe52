// Package schedule abstracts deferred callbacks so timer-driven state
// (search debounce, toast expiry) can run against a real or a manual clock.
package schedule

import (
	"sort"
	"sync"
	"time"
)

// Cancel stops a scheduled callback. It reports whether the callback was
// prevented from running.
type Cancel func() bool

type Scheduler interface {
	After(d time.Duration, fn func()) Cancel
}

type realScheduler struct{}

// Real schedules callbacks with time.AfterFunc. Callbacks run on their own
// goroutine; owners must guard shared state.
func Real() Scheduler { return realScheduler{} }

func (realScheduler) After(d time.Duration, fn func()) Cancel {
	t := time.AfterFunc(d, fn)
	return t.Stop
}

// Manual is a fake clock for tests. Callbacks only run from Advance, on the
// caller's goroutine.
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	seq   int
	tasks []*task
}

type task struct {
	at   time.Time
	seq  int
	fn   func()
	done bool
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) After(d time.Duration, fn func()) Cancel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &task{at: m.now.Add(d), seq: m.seq, fn: fn}
	m.tasks = append(m.tasks, t)
	return func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		if t.done {
			return false
		}
		t.done = true
		m.remove(t)
		return true
	}
}

// Advance moves the clock forward by d, running every callback that falls due
// in due-time order (registration order on ties). Callbacks scheduled by a
// running callback run too if they fall inside the window.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.nextDue(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		next.done = true
		m.remove(next)
		m.now = next.at
		m.mu.Unlock()

		next.fn()
	}
}

// Pending counts callbacks that have not run or been cancelled.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

func (m *Manual) nextDue(target time.Time) *task {
	if len(m.tasks) == 0 {
		return nil
	}
	sort.SliceStable(m.tasks, func(i, j int) bool {
		if m.tasks[i].at.Equal(m.tasks[j].at) {
			return m.tasks[i].seq < m.tasks[j].seq
		}
		return m.tasks[i].at.Before(m.tasks[j].at)
	})
	if m.tasks[0].at.After(target) {
		return nil
	}
	return m.tasks[0]
}

func (m *Manual) remove(t *task) {
	for i, x := range m.tasks {
		if x == t {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			return
		}
	}
}
