package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a fixed-window counter keyed by an arbitrary string. It is
// injected where needed rather than living in a process-wide cache, so tests
// and handlers get their own instances.
type Limiter struct {
	window time.Duration
	limit  int

	mu      sync.Mutex
	entries map[string]*entry

	now func() time.Time
}

type entry struct {
	windowStart time.Time
	count       int
}

func NewLimiter(window time.Duration, limit int) *Limiter {
	return &Limiter{
		window:  window,
		limit:   limit,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Allow records a hit for key and reports whether it is within the limit for
// the current window.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[key]
	if !ok || now.Sub(e.windowStart) >= l.window {
		l.entries[key] = &entry{windowStart: now, count: 1}
		return true
	}

	e.count++
	return e.count <= l.limit
}
