package auth

import (
	"sync"
	"time"
)

// RateLimiter tracks failed login attempts per source address over a
// rolling window. It is purely in-memory: a restart forgets all failures,
// which is acceptable for its purpose of slowing credential guessing.
type RateLimiter struct {
	mu          sync.Mutex
	maxFailures int
	window      time.Duration
	failures    map[string][]time.Time

	now func() time.Time
}

// NewRateLimiter creates a limiter that blocks a source address once it
// exceeds maxFailures failed attempts within the window.
func NewRateLimiter(maxFailures int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		maxFailures: maxFailures,
		window:      window,
		failures:    map[string][]time.Time{},
		now:         time.Now,
	}
}

// Blocked reports whether the source address has exceeded the failure
// budget within the current window.
func (l *RateLimiter) Blocked(addr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.prune(addr)) > l.maxFailures
}

// RecordFailure notes a failed attempt from the source address.
func (l *RateLimiter) RecordFailure(addr string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[addr] = append(l.prune(addr), l.now())
}

// RecordSuccess clears the failure record for the source address.
func (l *RateLimiter) RecordSuccess(addr string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failures, addr)
}

// prune drops attempts outside the window. Caller must hold mu.
func (l *RateLimiter) prune(addr string) []time.Time {
	cutoff := l.now().Add(-l.window)
	kept := l.failures[addr][:0]
	for _, t := range l.failures[addr] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(l.failures, addr)
		return nil
	}
	l.failures[addr] = kept
	return kept
}
