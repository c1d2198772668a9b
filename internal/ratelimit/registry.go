package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Well-known limiter keys.
const (
	KeyFlathub = "flathub"
	KeySnap    = "snap"
	KeySearch  = "search"
	KeyInstall = "install"
	KeyDefault = "default"
)

// Policy describes one named limiter's budget.
type Policy struct {
	MaxRequests int
	Window      time.Duration
}

// DefaultPolicies returns the stock policy table. Keys not present here fall
// back to the "default" entry.
func DefaultPolicies() map[string]Policy {
	return map[string]Policy{
		KeyFlathub: {MaxRequests: 30, Window: time.Minute},
		KeySnap:    {MaxRequests: 20, Window: time.Minute},
		KeySearch:  {MaxRequests: 10, Window: time.Minute},
		KeyInstall: {MaxRequests: 5, Window: 5 * time.Minute},
		KeyDefault: {MaxRequests: 100, Window: time.Minute},
	}
}

// DeniedError signals that a named limiter rejected a request. It carries
// the suggested wait so callers can retry or inform the user; it is not a
// backend failure and must never be counted as one.
type DeniedError struct {
	Key  string
	Wait time.Duration
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry in %.1fs", e.Key, e.Wait.Seconds())
}

// Registry holds the process's named limiters. It is constructed explicitly
// at startup and injected into the components that throttle; tests build a
// fresh one instead of mutating shared state.
type Registry struct {
	mu       sync.Mutex
	limiters map[string]*RateLimiter
	policies map[string]Policy
}

// NewRegistry builds a registry from a policy table. Missing well-known keys
// are filled in from DefaultPolicies, so a partial override table is fine.
func NewRegistry(policies map[string]Policy) *Registry {
	merged := DefaultPolicies()
	for key, p := range policies {
		if p.MaxRequests > 0 && p.Window > 0 {
			merged[key] = p
		}
	}

	limiters := make(map[string]*RateLimiter, len(merged))
	for key, p := range merged {
		limiters[key] = New(p.MaxRequests, p.Window)
	}

	return &Registry{limiters: limiters, policies: merged}
}

// Limiter returns the limiter registered under key, falling back to the
// "default" limiter for unknown keys.
func (r *Registry) Limiter(key string) *RateLimiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if lim, ok := r.limiters[key]; ok {
		return lim
	}
	return r.limiters[KeyDefault]
}

// Allow checks admission for key, returning a *DeniedError carrying the
// suggested wait when the request is throttled.
func (r *Registry) Allow(key string) error {
	lim := r.Limiter(key)
	if lim.IsAllowed() {
		return nil
	}
	return &DeniedError{Key: key, Wait: lim.WaitTime()}
}

// Reset restores full capacity for one key, or for every limiter when key
// is empty.
func (r *Registry) Reset(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if key == "" {
		for _, lim := range r.limiters {
			lim.Reset()
		}
		return
	}
	if lim, ok := r.limiters[key]; ok {
		lim.Reset()
	}
}

// Policy returns the effective policy for key.
func (r *Registry) Policy(key string) Policy {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.policies[key]; ok {
		return p
	}
	return r.policies[KeyDefault]
}
