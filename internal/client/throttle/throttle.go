// Package throttle is a per-email front-door limiter for the interactive
// auth commands. The session manager never consults it; it only slows a
// caller hammering the same email before the provider ever sees the request.
package throttle

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter tracks one token bucket per normalized email.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	limit rate.Limit
	burst int
	ttl   time.Duration
}

type bucket struct {
	lim *rate.Limiter
	ts  time.Time
}

// New builds a limiter allowing perMinute attempts per email with the given
// burst. Idle buckets are dropped after an hour.
func New(perMinute float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(perMinute / 60),
		burst:   burst,
		ttl:     time.Hour,
	}
}

// Allow reports whether one more attempt for this email may proceed now.
func (l *Limiter) Allow(email string) bool {
	key := strings.ToLower(strings.TrimSpace(email))

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.ts = time.Now()
	return b.lim.Allow()
}

// sweep drops buckets idle past the ttl. Caller holds the mutex.
func (l *Limiter) sweep() {
	cutoff := time.Now().Add(-l.ttl)
	for key, b := range l.buckets {
		if b.ts.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}
