package ratelimit

import (
	"sync"
	"time"
)

// Adaptation defaults. The thresholds are deliberately asymmetric: error
// rates between 5% and 30% leave the limit unchanged, which damps
// oscillation when a backend is merely flaky.
const (
	defaultErrorThreshold   = 0.3
	defaultSuccessThreshold = 0.95
	defaultSampleSize       = 20
)

// AdaptiveRateLimiter wraps a RateLimiter and adjusts its capacity based on
// the observed success/error ratio of completed operations. Denied requests
// never reach the counters, so throttling cannot feed back into itself.
type AdaptiveRateLimiter struct {
	window      time.Duration
	minRequests int
	maxRequests int

	errorThreshold   float64
	successThreshold float64
	sampleSize       int

	mu           sync.Mutex
	currentMax   int
	inner        *RateLimiter
	successCount int
	errorCount   int
}

// NewAdaptive creates an adaptive limiter starting at initialMax requests
// per window. Capacity floats between initialMax/10 (minimum 1) and
// initialMax.
func NewAdaptive(initialMax int, window time.Duration) *AdaptiveRateLimiter {
	minReq := initialMax / 10
	if minReq < 1 {
		minReq = 1
	}

	return &AdaptiveRateLimiter{
		window:           window,
		minRequests:      minReq,
		maxRequests:      initialMax,
		errorThreshold:   defaultErrorThreshold,
		successThreshold: defaultSuccessThreshold,
		sampleSize:       defaultSampleSize,
		currentMax:       initialMax,
		inner:            New(initialMax, window),
	}
}

// SetSampleSize overrides how many outcomes are collected before each
// adaptation decision.
func (a *AdaptiveRateLimiter) SetSampleSize(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n > 0 {
		a.sampleSize = n
	}
}

// IsAllowed delegates to the inner limiter at its current adapted capacity.
func (a *AdaptiveRateLimiter) IsAllowed() bool {
	a.mu.Lock()
	lim := a.inner
	a.mu.Unlock()
	return lim.IsAllowed()
}

// WaitTime returns the inner limiter's current suggested wait.
func (a *AdaptiveRateLimiter) WaitTime() time.Duration {
	a.mu.Lock()
	lim := a.inner
	a.mu.Unlock()
	return lim.WaitTime()
}

// RecordSuccess counts a completed, successful operation.
func (a *AdaptiveRateLimiter) RecordSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.successCount++
	a.adaptIfNeeded()
}

// RecordError counts a completed, failed operation. Rate-limit denials must
// not be recorded here.
func (a *AdaptiveRateLimiter) RecordError() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.errorCount++
	a.adaptIfNeeded()
}

// CurrentMax returns the current adapted capacity.
func (a *AdaptiveRateLimiter) CurrentMax() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentMax
}

// adaptIfNeeded evaluates the sample once it is full, adjusts capacity, and
// resets the counters. Caller must hold the mutex, which also makes the
// inner-limiter swap atomic with respect to IsAllowed.
func (a *AdaptiveRateLimiter) adaptIfNeeded() {
	total := a.successCount + a.errorCount
	if total < a.sampleSize {
		return
	}

	errorRate := float64(a.errorCount) / float64(total)

	switch {
	case errorRate > a.errorThreshold:
		newMax := a.currentMax / 2
		if newMax < a.minRequests {
			newMax = a.minRequests
		}
		if newMax != a.currentMax {
			a.currentMax = newMax
			a.inner = New(a.currentMax, a.window)
		}
	case errorRate < 1-a.successThreshold:
		newMax := int(float64(a.currentMax) * 1.5)
		if newMax > a.maxRequests {
			newMax = a.maxRequests
		}
		if newMax != a.currentMax {
			a.currentMax = newMax
			a.inner = New(a.currentMax, a.window)
		}
	}

	a.successCount = 0
	a.errorCount = 0
}
