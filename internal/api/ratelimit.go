package api

import (
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig bounds how fast one client address may call the match API.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	// IdleTimeout drops a client's bucket after this long without a request. The
	// sweep runs at the same interval.
	IdleTimeout time.Duration
}

// DefaultRateLimitConfig leaves room for checksum polling at a few Hz from
// several tabs plus input submission.
var DefaultRateLimitConfig = RateLimitConfig{
	RequestsPerSecond: 20,
	Burst:             40,
	IdleTimeout:       5 * time.Minute,
}

type clientBucket struct {
	tokens   *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter keeps one token bucket per client address. Decisions and the
// number of tracked clients are exported as Prometheus metrics.
type IPRateLimiter struct {
	cfg RateLimitConfig
	now func() time.Time

	mu      sync.Mutex
	clients map[string]*clientBucket

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewIPRateLimiter starts the limiter and its idle sweep. Call Stop to end the sweep.
func NewIPRateLimiter(cfg RateLimitConfig) *IPRateLimiter {
	rl := &IPRateLimiter{
		cfg:     cfg,
		now:     time.Now,
		clients: make(map[string]*clientBucket),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

// Stop ends the sweep goroutine and waits for it. It is safe to call twice.
func (rl *IPRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
	<-rl.done
}

func (rl *IPRateLimiter) sweepLoop() {
	defer close(rl.done)
	t := time.NewTicker(rl.cfg.IdleTimeout)
	defer t.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-t.C:
			rl.sweep()
		}
	}
}

// sweep forgets clients idle for longer than IdleTimeout.
func (rl *IPRateLimiter) sweep() {
	cutoff := rl.now().Add(-rl.cfg.IdleTimeout)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, b := range rl.clients {
		if b.lastSeen.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
	rateLimitClients.WithLabelValues("http").Set(float64(len(rl.clients)))
}

// Allow takes one token from the client's bucket.
func (rl *IPRateLimiter) Allow(ip string) bool {
	now := rl.now()

	rl.mu.Lock()
	b, ok := rl.clients[ip]
	if !ok {
		b = &clientBucket{tokens: rate.NewLimiter(rate.Limit(rl.cfg.RequestsPerSecond), rl.cfg.Burst)}
		rl.clients[ip] = b
		rateLimitClients.WithLabelValues("http").Set(float64(len(rl.clients)))
	}
	b.lastSeen = now
	allowed := b.tokens.AllowN(now, 1)
	rl.mu.Unlock()

	recordRateLimit("http", allowed)
	return allowed
}

// Middleware answers 429 once a client runs out of tokens.
func (rl *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(GetClientIP(r)) {
			RecordConnectionRejected("rate_limit")
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the
// peer address. The headers are trusted as-is, so the server belongs behind a
// proxy that overwrites them.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// WebSocketRateLimiter caps concurrent checksum feed connections per client address.
type WebSocketRateLimiter struct {
	maxPerIP int

	mu   sync.Mutex
	held map[string]int
}

func NewWebSocketRateLimiter(maxPerIP int) *WebSocketRateLimiter {
	return &WebSocketRateLimiter{maxPerIP: maxPerIP, held: make(map[string]int)}
}

// Allow reserves a connection slot. Every true result must be paired with Release.
func (wrl *WebSocketRateLimiter) Allow(ip string) bool {
	wrl.mu.Lock()
	allowed := wrl.held[ip] < wrl.maxPerIP
	if allowed {
		wrl.held[ip]++
		rateLimitClients.WithLabelValues("ws").Set(float64(len(wrl.held)))
	}
	wrl.mu.Unlock()

	recordRateLimit("ws", allowed)
	return allowed
}

// Release frees a slot reserved by Allow. An address with no slots left is forgotten.
func (wrl *WebSocketRateLimiter) Release(ip string) {
	wrl.mu.Lock()
	defer wrl.mu.Unlock()
	switch n := wrl.held[ip]; {
	case n > 1:
		wrl.held[ip] = n - 1
	case n == 1:
		delete(wrl.held, ip)
		rateLimitClients.WithLabelValues("ws").Set(float64(len(wrl.held)))
	}
}

// IsAllowedOrigin checks an Origin header against the configured allowlist.
// Loopback origins on any port are always allowed.
func IsAllowedOrigin(origin string, allowed []string) bool {
	if origin == "" {
		return false
	}

	if u, err := url.Parse(origin); err == nil && u.Scheme == "http" {
		if host := u.Hostname(); host == "localhost" || host == "127.0.0.1" {
			return true
		}
	}

	for _, a := range allowed {
		if origin == a {
			return true
		}
	}
	return false
}
