package service

import (
	"sync"
	"time"
)

// slidingWindow admits at most limit attempts in any trailing window.
// Refused attempts are recorded as well, so a caller that keeps retrying
// stays blocked until it pauses for a whole window.
type slidingWindow struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	attempts []time.Time
}

func newSlidingWindow(limit int, window time.Duration) *slidingWindow {
	return &slidingWindow{limit: limit, window: window}
}

// Allow records an attempt at now and reports whether it is admitted.
// A non-positive limit admits everything.
func (w *slidingWindow) Allow(now time.Time) bool {
	if w.limit <= 0 {
		return true
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := now.Add(-w.window)
	kept := w.attempts[:0]
	for _, t := range w.attempts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	w.attempts = append(kept, now)
	return len(w.attempts) <= w.limit
}
