// Package ratelimit keeps one golang.org/x/time/rate token bucket per
// client. Autocomplete traffic arrives once per keystroke, so a bucket
// that refills continuously suits it better than fixed windows.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type client struct {
	lim      *rate.Limiter
	limit    int
	lastSeen time.Time
}

// Limiter grants each key a burst of limit requests, refilled at limit per
// window.
type Limiter struct {
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	clients map[string]*client

	stop chan struct{}
	once sync.Once
}

// New starts a limiter and a background sweep of idle clients. Call Close
// to stop the sweep.
func New(window time.Duration) *Limiter {
	l := &Limiter{
		window:  window,
		now:     time.Now,
		clients: make(map[string]*client),
		stop:    make(chan struct{}),
	}
	go l.sweepLoop(5 * time.Minute)
	return l
}

// Allow takes one token from key's bucket and reports whether one was
// available. A changed limit for a key starts it on a fresh bucket.
func (l *Limiter) Allow(key string, limit int) bool {
	if limit < 1 {
		return false
	}
	now := l.now()

	l.mu.Lock()
	c, ok := l.clients[key]
	if !ok || c.limit != limit {
		every := rate.Every(l.window / time.Duration(limit))
		c = &client{lim: rate.NewLimiter(every, limit), limit: limit}
		l.clients[key] = c
	}
	c.lastSeen = now
	l.mu.Unlock()

	return c.lim.AllowN(now, 1)
}

// RetryAfter is how long a client with the given limit waits for one token.
func (l *Limiter) RetryAfter(limit int) time.Duration {
	if limit < 1 {
		return l.window
	}
	return l.window / time.Duration(limit)
}

func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.clients, key)
}

func (l *Limiter) Close() {
	l.once.Do(func() { close(l.stop) })
}

func (l *Limiter) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stop:
			return
		}
	}
}

// sweep forgets clients idle for two windows; their buckets are full.
func (l *Limiter) sweep() {
	cutoff := l.now().Add(-2 * l.window)
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, key)
		}
	}
}
