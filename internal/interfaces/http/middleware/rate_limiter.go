package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter holds rate limiters for each client IP address
type IPRateLimiter struct {
	limiters map[string]*limiterEntry
	mu       sync.Mutex
	rps      rate.Limit
	burst    int
	idleTTL  time.Duration
	// trustProxyHeaders keys clients by X-Forwarded-For / X-Real-IP.
	// Enable only behind a proxy that overwrites these headers.
	trustProxyHeaders bool
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewIPRateLimiter creates a new IP-based rate limiter
// rps: requests per second allowed per IP
// burst: maximum burst size
// trustProxyHeaders: key clients by forwarding headers instead of RemoteAddr
func NewIPRateLimiter(rps float64, burst int, trustProxyHeaders bool) *IPRateLimiter {
	limiter := newIPRateLimiter(rps, burst)
	limiter.trustProxyHeaders = trustProxyHeaders

	go limiter.cleanupRoutine(time.Minute)

	return limiter
}

func newIPRateLimiter(rps float64, burst int) *IPRateLimiter {
	if rps <= 0 {
		rps = 5
	}
	if burst <= 0 {
		burst = 10
	}
	return &IPRateLimiter{
		limiters: make(map[string]*limiterEntry),
		rps:      rate.Limit(rps),
		burst:    burst,
		idleTTL:  5 * time.Minute,
		stopCh:   make(chan struct{}),
	}
}

// Allow reports whether a request from ip may proceed.
func (i *IPRateLimiter) Allow(ip string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	entry, exists := i.limiters[ip]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(i.rps, i.burst)}
		i.limiters[ip] = entry
	}
	entry.lastSeen = time.Now()

	return entry.limiter.Allow()
}

// Stop terminates the cleanup goroutine.
func (i *IPRateLimiter) Stop() {
	i.stopOnce.Do(func() { close(i.stopCh) })
}

func (i *IPRateLimiter) cleanupRoutine(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			i.evictIdle(now)
		case <-i.stopCh:
			return
		}
	}
}

// evictIdle removes limiters not used within idleTTL.
func (i *IPRateLimiter) evictIdle(now time.Time) {
	i.mu.Lock()
	defer i.mu.Unlock()

	for ip, entry := range i.limiters {
		if now.Sub(entry.lastSeen) > i.idleTTL {
			delete(i.limiters, ip)
		}
	}
}

// RateLimit middleware limits requests per client IP.
// onLimited is optional and called for every rejected request.
func RateLimit(limiter *IPRateLimiter, onLimited func()) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(ClientIP(r, limiter.trustProxyHeaders)) {
				if onLimited != nil {
					onLimited()
				}
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the remote host of the connection. When trustProxyHeaders
// is set, the first X-Forwarded-For hop or X-Real-IP takes precedence.
func ClientIP(r *http.Request, trustProxyHeaders bool) string {
	if !trustProxyHeaders {
		return remoteHost(r)
	}
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return remoteHost(r)
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
