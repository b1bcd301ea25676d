package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/jetfund/jetfund-backend/api/responses"
	"github.com/jetfund/jetfund-backend/pkg/config"
	pkgerrors "github.com/jetfund/jetfund-backend/pkg/errors"
	"github.com/jetfund/jetfund-backend/pkg/logger"
	"golang.org/x/time/rate"
)

const msgTooManyRequests = "Too many requests. Please try again later."

// RateLimitPolicy is a token bucket shape.
type RateLimitPolicy struct {
	Name  string
	Limit rate.Limit
	Burst int
}

// PerMinute converts a requests-per-minute budget into a policy.
func PerMinute(name string, perMinute, burst int) RateLimitPolicy {
	if burst <= 0 {
		burst = 1
	}
	return RateLimitPolicy{Name: name, Limit: rate.Limit(float64(perMinute) / 60.0), Burst: burst}
}

type userLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter keeps one token bucket per user and policy in memory.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*userLimiter
	idleTTL  time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
	logg     *logger.Logger
}

// NewRateLimiter starts the background sweep of idle buckets. Call Stop on shutdown.
func NewRateLimiter(cfg config.RateLimitConfig, logg *logger.Logger) *RateLimiter {
	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	rl := &RateLimiter{
		limiters: make(map[string]*userLimiter),
		idleTTL:  interval * 2,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		logg:     logg,
	}
	go rl.cleanupLoop(interval)
	return rl
}

func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Middleware throttles authenticated callers by user id. It must sit after Auth.
func (rl *RateLimiter) Middleware(policy RateLimitPolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if policy.Limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := UserIDFromContext(r.Context())
			if subject == "" {
				subject = "ip:" + clientIP(r)
			}

			if !rl.limiter(policy, subject).Allow() {
				if rl.logg != nil {
					ctx := rl.logg.WithFields(r.Context(), map[string]any{"policy": policy.Name, "subject": subject})
					rl.logg.Warn(ctx, "rate_limit.blocked")
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(policy.Limit)))
				responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, msgTooManyRequests))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Len reports how many buckets are tracked.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *RateLimiter) limiter(policy RateLimitPolicy, subject string) *rate.Limiter {
	key := policy.Name + "|" + subject
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if ul, ok := rl.limiters[key]; ok {
		ul.lastAccess = rl.now()
		return ul.limiter
	}
	ul := &userLimiter{limiter: rate.NewLimiter(policy.Limit, policy.Burst), lastAccess: rl.now()}
	rl.limiters[key] = ul
	return ul.limiter
}

func (rl *RateLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) sweep() {
	cutoff := rl.now().Add(-rl.idleTTL)
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, ul := range rl.limiters {
		if ul.lastAccess.Before(cutoff) {
			delete(rl.limiters, key)
		}
	}
}

func retryAfterSeconds(limit rate.Limit) int {
	secs := int(math.Ceil(1.0 / float64(limit)))
	if secs < 1 {
		return 1
	}
	return secs
}
