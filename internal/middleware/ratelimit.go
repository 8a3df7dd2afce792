// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"inkwell/internal/render"
)

const sweepInterval = 5 * time.Minute

// window holds the request times of one client inside the current window.
type window struct {
	mu    sync.Mutex
	times []time.Time
}

// RateLimiter limits requests per client IP over a sliding window. It
// guards the sign-in and sign-up endpoints.
type RateLimiter struct {
	mu      sync.RWMutex
	clients map[string]*window
	limit   int
	span    time.Duration
	now     func() time.Time
	stopCh  chan struct{}
	once    sync.Once
}

// NewRateLimiter allows limit requests per span and sweeps idle clients in
// the background until Stop is called.
func NewRateLimiter(limit int, span time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*window),
		limit:   limit,
		span:    span,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}

	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.sweep()
			case <-rl.stopCh:
				return
			}
		}
	}()

	return rl
}

// Stop ends the background sweep. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stopCh) })
}

func (rl *RateLimiter) entry(key string) *window {
	rl.mu.RLock()
	w, ok := rl.clients[key]
	rl.mu.RUnlock()
	if ok {
		return w
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if w, ok = rl.clients[key]; !ok {
		w = &window{}
		rl.clients[key] = w
	}
	return w
}

// allow records a request for key. When the limit is reached it returns
// false and the wait until the oldest request leaves the window.
func (rl *RateLimiter) allow(key string) (bool, time.Duration) {
	w := rl.entry(key)
	now := rl.now()
	cutoff := now.Add(-rl.span)

	w.mu.Lock()
	defer w.mu.Unlock()

	kept := w.times[:0]
	for _, ts := range w.times {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	w.times = kept

	if len(w.times) >= rl.limit {
		return false, w.times[0].Sub(cutoff)
	}
	w.times = append(w.times, now)
	return true, 0
}

// sweep drops clients with no request inside the window.
func (rl *RateLimiter) sweep() {
	cutoff := rl.now().Add(-rl.span)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, w := range rl.clients {
		w.mu.Lock()
		idle := len(w.times) == 0 || !w.times[len(w.times)-1].After(cutoff)
		w.mu.Unlock()
		if idle {
			delete(rl.clients, key)
		}
	}
}

// Middleware rejects over-limit clients with 429 and a Retry-After header.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, wait := rl.allow(clientIP(r))
		if !ok {
			secs := int(wait.Round(time.Second) / time.Second)
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			render.Status(w, http.StatusTooManyRequests, "Too many attempts. Try again shortly.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP is the connection address without its port. Forwarding headers
// are client-controlled and never read here; behind a reverse proxy the
// router rewrites RemoteAddr before the limiter runs.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
