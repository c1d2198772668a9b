// Package ratelimit provides request throttling for backend invocations and
// remote API calls.
package ratelimit

import (
	"sync"
	"time"
)

// pollInterval is how often WaitUntilAllowed re-checks admission.
const pollInterval = 100 * time.Millisecond

// RateLimiter admits at most maxRequests operations within a trailing time
// window. It is safe for concurrent use.
type RateLimiter struct {
	maxRequests int
	window      time.Duration

	mu       sync.Mutex
	requests []time.Time

	// now is swappable for tests.
	now func() time.Time
}

// New creates a limiter admitting maxRequests per window.
func New(maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
}

// IsAllowed reports whether a request is admissible right now and, if so,
// records it. The purge-and-append sequence is atomic under the mutex.
func (r *RateLimiter) IsAllowed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.purge(r.now())

	if len(r.requests) < r.maxRequests {
		r.requests = append(r.requests, r.now())
		return true
	}
	return false
}

// WaitTime returns how long until the next request would be admitted, or
// zero if one is admissible immediately.
func (r *RateLimiter) WaitTime() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.purge(now)

	if len(r.requests) < r.maxRequests {
		return 0
	}

	wait := r.requests[0].Add(r.window).Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}

// WaitUntilAllowed blocks until a request is admitted, polling at a short
// fixed interval, and returns the time spent waiting. It busy-waits rather
// than scheduling a timer; call sites are background workers only.
func (r *RateLimiter) WaitUntilAllowed() time.Duration {
	start := r.now()
	for !r.IsAllowed() {
		time.Sleep(pollInterval)
	}
	return r.now().Sub(start)
}

// Reset discards all tracked requests, restoring full capacity.
func (r *RateLimiter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = r.requests[:0]
}

// Limit returns the configured maximum requests per window.
func (r *RateLimiter) Limit() int {
	return r.maxRequests
}

// Window returns the configured time window.
func (r *RateLimiter) Window() time.Duration {
	return r.window
}

// purge drops request records older than the trailing window. Caller must
// hold the mutex.
func (r *RateLimiter) purge(now time.Time) {
	cutoff := now.Add(-r.window)
	i := 0
	for i < len(r.requests) && r.requests[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		r.requests = append(r.requests[:0], r.requests[i:]...)
	}
}

// MultiRateLimiter manages independent limiters keyed by string, creating
// them lazily with a shared default policy.
type MultiRateLimiter struct {
	defaultMax    int
	defaultWindow time.Duration

	mu       sync.Mutex
	limiters map[string]*RateLimiter
}

// NewMulti creates a MultiRateLimiter with the given defaults for new keys.
func NewMulti(defaultMax int, defaultWindow time.Duration) *MultiRateLimiter {
	return &MultiRateLimiter{
		defaultMax:    defaultMax,
		defaultWindow: defaultWindow,
		limiters:      make(map[string]*RateLimiter),
	}
}

// Limiter returns the limiter for key, creating it on first use.
func (m *MultiRateLimiter) Limiter(key string) *RateLimiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	lim, ok := m.limiters[key]
	if !ok {
		lim = New(m.defaultMax, m.defaultWindow)
		m.limiters[key] = lim
	}
	return lim
}

// IsAllowed checks admission for a specific key.
func (m *MultiRateLimiter) IsAllowed(key string) bool {
	return m.Limiter(key).IsAllowed()
}

// WaitUntilAllowed blocks until the key's limiter admits a request.
func (m *MultiRateLimiter) WaitUntilAllowed(key string) time.Duration {
	return m.Limiter(key).WaitUntilAllowed()
}

// Reset clears a single key's limiter, or every limiter when key is empty.
func (m *MultiRateLimiter) Reset(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if key == "" {
		m.limiters = make(map[string]*RateLimiter)
		return
	}
	delete(m.limiters, key)
}
