// Package governor implements sliding-window admission control keyed by
// client identity. It protects the ingestion and search entry points from
// overload: each key is allowed a fixed number of requests per rolling window
// and rejected requests learn how long to wait before retrying.
package governor

import (
	"math"
	"sync"
	"time"
)

const (
	// DefaultMaxRequests is the number of admissions allowed per window.
	DefaultMaxRequests = 10
	// DefaultWindow is the length of the sliding window.
	DefaultWindow = 60 * time.Second
	// DefaultRetention is how long an idle key is kept before the sweep
	// reclaims it.
	DefaultRetention = time.Hour
	// DefaultSweepInterval is how often idle keys are reclaimed.
	DefaultSweepInterval = time.Hour
)

// Decision is the outcome of an admission check. It carries the complete
// contract the governor surfaces: whether the request was admitted, the
// remaining quota, and the retry delay on rejection. ResetAt is when the
// oldest recorded request falls out of the window, in a form suitable for a
// Reset header in epoch seconds.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	Window     time.Duration
	RetryAfter time.Duration // meaningful only when rejected; always >= 1s
	ResetAt    time.Time
}

// Limiter is a sliding-window rate limiter. Per-key state is a list of
// request timestamps; linear pruning on every check is an accepted
// simplification at the configured scale (at most maxRequests entries per
// key). A ring buffer is the upgrade path if limits ever grow.
type Limiter struct {
	maxRequests int
	window      time.Duration
	retention   time.Duration

	mu      sync.Mutex
	windows map[string][]time.Time

	now  func() time.Time // overridable for tests
	stop chan struct{}
	done chan struct{}
}

// New creates a limiter admitting maxRequests per window for each key.
// Non-positive arguments fall back to the defaults.
func New(maxRequests int, window time.Duration) *Limiter {
	if maxRequests <= 0 {
		maxRequests = DefaultMaxRequests
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{
		maxRequests: maxRequests,
		window:      window,
		retention:   DefaultRetention,
		windows:     make(map[string][]time.Time),
		now:         time.Now,
	}
}

// Check records an admission attempt for the key and decides whether it may
// proceed. The whole prune-check-record sequence runs under one critical
// section so two concurrent callers can never both slip past the limit.
// Admission decisions for a single key are totally ordered by the order in
// which calls enter the lock.
func (l *Limiter) Check(key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	// An entry exactly window old is pruned too, so a client retrying at
	// exactly RetryAfter is admitted rather than rejected for one more
	// instant.
	kept := l.windows[key][:0]
	for _, ts := range l.windows[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	l.windows[key] = kept

	if len(kept) >= l.maxRequests {
		// Timestamps are appended in non-decreasing order, so the first
		// entry is the oldest.
		oldest := kept[0]
		resetAt := oldest.Add(l.window)
		retry := time.Duration(math.Ceil(resetAt.Sub(now).Seconds())) * time.Second
		if retry < time.Second {
			retry = time.Second
		}
		return Decision{
			Allowed:    false,
			Limit:      l.maxRequests,
			Remaining:  0,
			Window:     l.window,
			RetryAfter: retry,
			ResetAt:    resetAt,
		}
	}

	l.windows[key] = append(kept, now)
	return Decision{
		Allowed:   true,
		Limit:     l.maxRequests,
		Remaining: l.maxRequests - (len(kept) + 1),
		Window:    l.window,
		ResetAt:   l.windows[key][0].Add(l.window),
	}
}

// StartSweeper launches a background goroutine that periodically evicts keys
// whose entire window is older than the retention horizon, bounding memory.
// Eviction shares the limiter lock with Check, so it can never race an
// in-flight admission; an evicted key simply restarts fresh on its next
// request. Call Stop to terminate the goroutine.
func (l *Limiter) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	l.stop = make(chan struct{})
	l.done = make(chan struct{})

	go func() {
		defer close(l.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.sweep()
			case <-l.stop:
				return
			}
		}
	}()
}

// Stop terminates the sweeper goroutine. Safe to call when no sweeper runs.
func (l *Limiter) Stop() {
	if l.stop == nil {
		return
	}
	close(l.stop)
	<-l.done
	l.stop = nil
}

// sweep removes keys with no activity inside the retention horizon.
func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.retention)
	for key, window := range l.windows {
		idle := true
		for _, ts := range window {
			if ts.After(cutoff) {
				idle = false
				break
			}
		}
		if idle {
			delete(l.windows, key)
		}
	}
}

// KeyCount returns the number of keys currently tracked.
func (l *Limiter) KeyCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
