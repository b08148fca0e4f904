// Package ratelimit implements sliding-window admission control for
// guarded subprocess invocations. A denied call is skipped by the
// caller, never queued or retried inline.
package ratelimit

import (
	"sync"
	"time"
)

// SlidingWindow admits at most maxCalls invocations within a trailing
// period. It is safe for use by concurrent collectors.
type SlidingWindow struct {
	mu       sync.Mutex
	maxCalls int
	period   time.Duration
	calls    []time.Time

	// now is swappable for tests.
	now func() time.Time
}

// New creates a sliding-window limiter admitting maxCalls per period.
func New(maxCalls int, period time.Duration) *SlidingWindow {
	return &SlidingWindow{
		maxCalls: maxCalls,
		period:   period,
		calls:    make([]time.Time, 0, maxCalls),
		now:      time.Now,
	}
}

// Allow records and admits the call iff fewer than maxCalls have been
// admitted within the trailing period. Timestamps older than the window
// are evicted from the front first.
func (w *SlidingWindow) Allow() bool {
	now := w.now()
	cutoff := now.Add(-w.period)

	w.mu.Lock()
	defer w.mu.Unlock()

	i := 0
	for i < len(w.calls) && !w.calls[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.calls = append(w.calls[:0], w.calls[i:]...)
	}

	if len(w.calls) < w.maxCalls {
		w.calls = append(w.calls, now)
		return true
	}
	return false
}
