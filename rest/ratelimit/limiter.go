// Package ratelimit implements the sliding-window rate limiter the REST
// client enforces before every outbound request: one bucket per route,
// plus a shared "GLOBAL" bucket populated when the service signals a
// global limit. Enforce reads remaining/reset, waits the max of the route
// and global wait, then atomically decrements both, retrying on a race.
package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// GlobalKey is the distinguished bucket key for the service-wide limit.
const GlobalKey = "GLOBAL"

// State mirrors the RateLimitState of the data model.
type State struct {
	Limit     uint
	Remaining uint
	ResetAt   time.Time
}

type bucket struct {
	mu    sync.Mutex
	state State
}

// Limiter gates outbound REST calls with a per-route bucket table plus a
// shared global bucket.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewLimiter constructs an empty Limiter.
func NewLimiter() *Limiter {
	return &Limiter{buckets: make(map[string]*bucket)}
}

// RouteKey derives the bucket key for a method+path pair. DELETE uses a
// distinct key from other verbs on the same path because the service
// rate-limits deletes separately.
func RouteKey(method, path string) string {
	if method == http.MethodDelete {
		return "DELETE " + path
	}
	return path
}

func (l *Limiter) bucketFor(key string) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{}
		l.buckets[key] = b
	}
	return b
}

// Enforce suspends the caller until both the route bucket and the global
// bucket have spare capacity, then atomically consumes one unit from each.
// If another caller races it for the last unit, Enforce loops.
func (l *Limiter) Enforce(ctx context.Context, routeKey string) error {
	for {
		route := l.bucketFor(routeKey)
		global := l.bucketFor(GlobalKey)

		wait, ok := waitFor(route, global)
		if ok {
			return nil
		}

		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
}

// waitFor attempts to consume a unit from both buckets atomically. It
// returns (0, true) on success, or the duration the caller should sleep
// before retrying.
func waitFor(route, global *bucket) (time.Duration, bool) {
	route.mu.Lock()
	defer route.mu.Unlock()
	global.mu.Lock()
	defer global.mu.Unlock()

	now := time.Now()

	routeWait := capacityWait(route.state, now)
	globalWait := capacityWait(global.state, now)

	wait := routeWait
	if globalWait > wait {
		wait = globalWait
	}
	if wait > 0 {
		return wait, false
	}

	if route.state.Remaining > 0 {
		route.state.Remaining--
	}
	if global.state.Remaining > 0 {
		global.state.Remaining--
	}

	return 0, true
}

func capacityWait(s State, now time.Time) time.Duration {
	if s.ResetAt.Before(now) {
		// Reset has passed (or was never set); treat capacity as available.
		// The next response will refresh Remaining/ResetAt.
		return 0
	}
	if s.Remaining > 0 {
		return 0
	}
	return s.ResetAt.Sub(now)
}

// Update refreshes a bucket from the response headers of a completed
// request. Missing or malformed headers leave the bucket untouched.
func (l *Limiter) Update(routeKey string, header http.Header) {
	limit, hasLimit := parseUint(header.Get("X-RateLimit-Limit"))
	remaining, hasRemaining := parseUint(header.Get("X-RateLimit-Remaining"))
	resetAt, hasReset := parseResetAt(header.Get("X-RateLimit-Reset"))

	route := l.bucketFor(routeKey)
	route.mu.Lock()
	if hasLimit {
		route.state.Limit = limit
	}
	if hasRemaining {
		route.state.Remaining = remaining
	}
	if hasReset {
		route.state.ResetAt = resetAt
	}
	route.mu.Unlock()

	if header.Get("X-RateLimit-Global") == "true" {
		retryAfter := header.Get("Retry-After")
		seconds, err := strconv.ParseFloat(retryAfter, 64)
		if err != nil {
			return
		}

		global := l.bucketFor(GlobalKey)
		global.mu.Lock()
		global.state.Remaining = 0
		global.state.ResetAt = time.Now().Add(time.Duration(seconds * float64(time.Second)))
		global.mu.Unlock()
	}
}

func parseUint(s string) (uint, bool) {
	if s == "" {
		return 0, false
	}
	u, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(u), true
}

func parseResetAt(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(0, int64(f*float64(time.Second))), true
}
