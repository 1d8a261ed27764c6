package api

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/faucet-intake/internal/logging"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// DefaultClientIdleTTL is how long an idle client's limiter is kept
const DefaultClientIdleTTL = 10 * time.Minute

// RateLimiter throttles API requests per client IP.
// This only protects the intake from floods; the per-address claim
// cool-down is enforced by the claim service.
//
// Limiters live in a TTL cache refreshed on every request, so a client
// idle for longer than the TTL is forgotten and starts with a full burst.
type RateLimiter struct {
	limiters *gocache.Cache
	trusted  []*net.IPNet

	limit     rate.Limit
	burstSize int
}

// RateLimiterConfig configures the per-client throttle
type RateLimiterConfig struct {
	RPS            int           // <= 0 disables throttling
	Burst          int           // Burst size per client
	IdleTTL        time.Duration // Eviction age for idle clients, 0 uses DefaultClientIdleTTL
	TrustedProxies []string      // IPs or CIDRs whose X-Forwarded-For is believed
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	limit := rate.Limit(cfg.RPS)
	if cfg.RPS <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	ttl := cfg.IdleTTL
	if ttl <= 0 {
		ttl = DefaultClientIdleTTL
	}

	return &RateLimiter{
		limiters:  gocache.New(ttl, ttl),
		trusted:   parseTrustedProxies(cfg.TrustedProxies),
		limit:     limit,
		burstSize: burst,
	}
}

// parseTrustedProxies accepts plain IPs and CIDRs, skipping invalid entries
func parseTrustedProxies(entries []string) []*net.IPNet {
	var nets []*net.IPNet
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !strings.Contains(entry, "/") {
			if ip := net.ParseIP(entry); ip != nil {
				bits := 128
				if ip.To4() != nil {
					ip, bits = ip.To4(), 32
				}
				nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
				continue
			}
		}
		_, ipNet, err := net.ParseCIDR(entry)
		if err != nil {
			logging.GetGlobalLogger().WithField("entry", entry).Warn("Ignoring invalid trusted proxy")
			continue
		}
		nets = append(nets, ipNet)
	}
	return nets
}

// getLimiter returns the rate limiter for a client and refreshes its TTL
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	if cached, found := rl.limiters.Get(key); found {
		limiter := cached.(*rate.Limiter)
		rl.limiters.SetDefault(key, limiter)
		return limiter
	}

	limiter := rate.NewLimiter(rl.limit, rl.burstSize)
	// Add fails when another goroutine created the limiter first
	if err := rl.limiters.Add(key, limiter, gocache.DefaultExpiration); err != nil {
		if cached, found := rl.limiters.Get(key); found {
			return cached.(*rate.Limiter)
		}
	}

	return limiter
}

// Allow reports whether the client may make a request now
func (rl *RateLimiter) Allow(key string) bool {
	if rl.limit == rate.Inf {
		return true
	}
	return rl.getLimiter(key).Allow()
}

// Len returns the number of tracked clients
func (rl *RateLimiter) Len() int {
	return rl.limiters.ItemCount()
}

// ClientIP returns the address the throttle keys on. X-Forwarded-For is
// only read when the connection comes from a trusted proxy, and then the
// rightmost hop that is not itself a trusted proxy wins.
func (rl *RateLimiter) ClientIP(r *http.Request) string {
	remote := remoteHost(r)
	if !rl.isTrusted(remote) {
		return remote
	}

	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded == "" {
		return remote
	}

	hops := strings.Split(forwarded, ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if net.ParseIP(hop) == nil {
			// A malformed hop was written by the client, stop trusting the chain
			break
		}
		if !rl.isTrusted(hop) {
			return hop
		}
	}

	return remote
}

func (rl *RateLimiter) isTrusted(host string) bool {
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	for _, ipNet := range rl.trusted {
		if ipNet.Contains(ip) {
			return true
		}
	}
	return false
}

// RateLimitMiddleware creates a middleware that enforces rate limiting
func RateLimitMiddleware(rl *RateLimiter, metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Health and metrics endpoints are never throttled
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				next.ServeHTTP(w, r)
				return
			}

			ip := rl.ClientIP(r)
			if !rl.Allow(ip) {
				metrics.ObserveThrottled()
				logging.FromContext(r.Context()).WithField("clientIp", ip).Warn("Client throttled")
				respondError(w, http.StatusTooManyRequests, ErrCodeRateLimitExceeded, "Rate limit exceeded. Please try again later.", map[string]interface{}{
					"limit": float64(rl.limit),
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// remoteHost returns the host part of the connection's remote address
func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
