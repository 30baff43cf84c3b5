package middleware

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"catalog-be/internal/logger"
	"catalog-be/internal/metrics"
	"catalog-be/internal/utils"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Rate Limit Tiers
const (
	// Uploads relay to the media host (Strict)
	limitStrict = rate.Limit(2)
	burstStrict = 5

	// Catalog writes
	limitWrite = rate.Limit(10)
	burstWrite = 20

	// Catalog reads, the storefront polls these
	limitRead = rate.Limit(20)
	burstRead = 40
)

const visitorTTL = 3 * time.Minute

// visitor holds the rate limiter and the last time it was seen.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	reg      *metrics.Registry
	now      func() time.Time
}

func NewRateLimiter(reg *metrics.Registry) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		reg:      reg,
		now:      time.Now,
	}
}

// getVisitor retrieves or creates a rate limiter for the given bucket key.
func (rl *RateLimiter) getVisitor(key string, r rate.Limit, b int) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[key]
	if !exists {
		limiter := rate.NewLimiter(r, b)
		rl.visitors[key] = &visitor{limiter, rl.now()}
		return limiter
	}

	v.lastSeen = rl.now()
	return v.limiter
}

// Sweep drops buckets idle for longer than the visitor TTL and returns how
// many were removed.
func (rl *RateLimiter) Sweep() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for key, v := range rl.visitors {
		if rl.now().Sub(v.lastSeen) > visitorTTL {
			delete(rl.visitors, key)
			removed++
		}
	}
	return removed
}

// Cleanup sweeps every interval until ctx is done.
func (rl *RateLimiter) Cleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := rl.Sweep(); n > 0 {
				logger.L().Debug("rate limiter sweep", zap.Int("removed", n))
			}
		}
	}
}

// Middleware checks if the request is allowed by the rate limiter.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, burst, tier := resolveRateTier(r)

		// Separate quotas per tier for the same client, e.g. "ip:1.2.3.4:strict"
		key := clientIdentity(r) + ":" + tier

		if !rl.getVisitor(key, limit, burst).Allow() {
			rl.reg.Counter(metrics.RateLimited).Inc()
			logger.FromCtx(r.Context()).Warn("rate limited",
				zap.String("key", key),
				zap.String("path", r.URL.Path),
			)
			utils.WriteJSONError(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientIdentity(r *http.Request) string {
	if deviceID := r.Header.Get("X-Device-ID"); deviceID != "" {
		return "device:" + deviceID
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	return "ip:" + ip
}

// resolveRateTier determines which rate limit policy applies to the request.
func resolveRateTier(r *http.Request) (rate.Limit, int, string) {
	switch {
	case r.Method == http.MethodPost && isUploadPath(r.URL.Path):
		return limitStrict, burstStrict, "strict"
	case r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions:
		return limitRead, burstRead, "read"
	default:
		return limitWrite, burstWrite, "write"
	}
}

func isUploadPath(p string) bool {
	return p == "/upload" || p == "/api/upload"
}
