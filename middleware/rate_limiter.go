package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Per-IP limits. Saves carry multipart uploads and a generation request
// pins a headless browser, so the sustained rate stays low; the burst
// absorbs the editor's chatty save/list sequences.
const (
	requestsPerSecond = 4
	burstSize         = 20
	staleAfter        = 5 * time.Minute
	sweepEvery        = time.Minute
)

type caller struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var (
	callers   = make(map[string]*caller)
	callersMu sync.Mutex
)

func RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.Header.Get("X-Forwarded-For")
		if ip == "" {
			ip, _, _ = net.SplitHostPort(r.RemoteAddr)
		}

		if !limiterFor(ip).Allow() {
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func limiterFor(ip string) *rate.Limiter {
	callersMu.Lock()
	defer callersMu.Unlock()

	c, exists := callers[ip]
	if !exists {
		limiter := rate.NewLimiter(requestsPerSecond, burstSize)
		callers[ip] = &caller{limiter, time.Now()}
		return limiter
	}

	c.lastSeen = time.Now()
	return c.limiter
}

// CleanupVisitors drops limiters for addresses that have gone quiet. Runs as
// a background goroutine for the life of the process.
func CleanupVisitors() {
	for {
		time.Sleep(sweepEvery)
		callersMu.Lock()
		for ip, c := range callers {
			if time.Since(c.lastSeen) > staleAfter {
				delete(callers, ip)
			}
		}
		callersMu.Unlock()
	}
}
