// Package ratelimit provides simple minimum-interval rate limiting keyed
// by an arbitrary client identifier.
package ratelimit

import (
	"sync"
	"time"
)

// RateLimiter is the interface shared by the local and Redis-backed limiters.
type RateLimiter interface {
	Allow(key string) bool
	Reset(key string)
}

// Limiter enforces a minimum interval between requests per key.
type Limiter struct {
	mu          sync.Mutex
	clients     map[string]time.Time
	minInterval time.Duration
}

// New creates a limiter with the given minimum interval between requests.
func New(minInterval time.Duration) *Limiter {
	return &Limiter{
		clients:     make(map[string]time.Time),
		minInterval: minInterval,
	}
}

// Allow reports whether a request for key may proceed now. When it may,
// the key's timestamp is updated; when it may not, the timestamp is left
// alone so the original interval still applies.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	last, ok := l.clients[key]
	if ok && now.Sub(last) < l.minInterval {
		return false
	}

	l.clients[key] = now
	return true
}

// Wait blocks until a request for key may proceed, then claims the slot.
func (l *Limiter) Wait(key string) {
	for {
		l.mu.Lock()
		now := time.Now()
		last, ok := l.clients[key]
		if !ok || now.Sub(last) >= l.minInterval {
			l.clients[key] = now
			l.mu.Unlock()
			return
		}
		remaining := l.minInterval - now.Sub(last)
		l.mu.Unlock()

		time.Sleep(remaining)
	}
}

// Reset clears the recorded timestamp for key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.clients, key)
}

// ResetAll clears every recorded timestamp.
func (l *Limiter) ResetAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clients = make(map[string]time.Time)
}

var _ RateLimiter = (*Limiter)(nil)
