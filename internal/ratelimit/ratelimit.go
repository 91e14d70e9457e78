// Package ratelimit provides a per-key token bucket limiter. Idle keys are
// evicted so the map does not grow without bound.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter hands out one token bucket per key, such as a client IP.
type Limiter struct {
	limit rate.Limit
	burst int
	ttl   time.Duration

	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

// PerMinute returns a limiter that allows n events per minute per key with a
// burst of n. Keys idle for ten minutes are dropped.
func PerMinute(n int) *Limiter {
	return New(rate.Limit(float64(n)/60), n, 10*time.Minute)
}

// New creates a limiter. Keys unused for ttl are evicted by a background
// sweep until Stop is called.
func New(limit rate.Limit, burst int, ttl time.Duration) *Limiter {
	l := &Limiter{
		limit:   limit,
		burst:   burst,
		ttl:     ttl,
		entries: make(map[string]*entry),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go l.sweepLoop()
	return l
}

// Allow reports whether an event for key may happen now.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	now := l.now()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = e
	}
	e.lastSeen = now
	l.mu.Unlock()

	return e.limiter.AllowN(now, 1)
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Stop ends the background sweep. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

func (l *Limiter) sweepLoop() {
	if l.ttl <= 0 {
		<-l.done
		return
	}
	ticker := time.NewTicker(l.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.done:
			return
		}
	}
}

func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-l.ttl)
	for k, e := range l.entries {
		if e.lastSeen.Before(cutoff) {
			delete(l.entries, k)
		}
	}
}
