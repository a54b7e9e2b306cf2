package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/poetry-royal/mefil/internal/http/response"
	"github.com/poetry-royal/mefil/internal/observability"
	"github.com/poetry-royal/mefil/internal/security"
)

type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
	Remaining  int
}

type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)
}

// RateLimiter wraps a Limiter backend into middleware. With only two
// legitimate clients the limits are generous; the limiter exists to stop a
// runaway polling loop, not to meter an audience.
type RateLimiter struct {
	limiter Limiter
	limit   int
	window  time.Duration
	scope   string
	keyFunc func(r *http.Request) string
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return NewRateLimiterWithBackend(newLocalWindowLimiter(), limit, window, "local", nil)
}

func NewRateLimiterWithBackend(limiter Limiter, limit int, window time.Duration, scope string, keyFunc func(r *http.Request) string) *RateLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	if scope == "" {
		scope = "api"
	}
	if keyFunc == nil {
		keyFunc = clientIPKey
	}
	return &RateLimiter{limiter: limiter, limit: limit, window: window, scope: scope, keyFunc: keyFunc}
}

func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rl.keyFunc(r)
			if key == "" {
				key = clientIPKey(r)
			}
			decision, err := rl.limiter.Allow(r.Context(), key, rl.limit, rl.window)
			if err != nil {
				// Backend trouble must not lock both players out.
				observability.RecordRateLimitDecision(r.Context(), rl.scope, "backend_error")
				slog.Warn("rate limiter backend unavailable, allowing request",
					"scope", rl.scope, "error", err.Error())
				next.ServeHTTP(w, r)
				return
			}
			writeRateLimitHeaders(w.Header(), rl.limit, decision.Remaining)
			if !decision.Allowed {
				observability.RecordRateLimitDecision(r.Context(), rl.scope, "deny")
				w.Header().Set("Retry-After", retryAfterHeader(decision.RetryAfter))
				response.Error(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
				return
			}
			observability.RecordRateLimitDecision(r.Context(), rl.scope, "allow")
			next.ServeHTTP(w, r)
		})
	}
}

// RoleOrIPKeyFunc keys authenticated traffic by role so the two players do
// not share one bucket behind the same NAT.
func RoleOrIPKeyFunc(tokens *security.TokenAuthority) func(r *http.Request) string {
	return func(r *http.Request) string {
		if tokens == nil {
			return clientIPKey(r)
		}
		raw := security.GetCookie(r, security.SessionCookieName)
		if raw == "" {
			return clientIPKey(r)
		}
		session, err := tokens.Parse(raw)
		if err != nil {
			return clientIPKey(r)
		}
		return "role:" + session.Role.String()
	}
}

type localWindowLimiter struct {
	mu    sync.Mutex
	store map[string][]time.Time
}

func newLocalWindowLimiter() *localWindowLimiter {
	return &localWindowLimiter{store: make(map[string][]time.Time)}
}

func (l *localWindowLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (Decision, error) {
	now := time.Now()
	cutoff := now.Add(-window)

	l.mu.Lock()
	defer l.mu.Unlock()

	hits := l.store[key]
	pruned := hits[:0]
	for _, hit := range hits {
		if hit.After(cutoff) {
			pruned = append(pruned, hit)
		}
	}
	if len(pruned) >= limit {
		l.store[key] = pruned
		retry := pruned[0].Add(window).Sub(now)
		if retry < 0 {
			retry = time.Second
		}
		return Decision{Allowed: false, RetryAfter: retry}, nil
	}
	pruned = append(pruned, now)
	l.store[key] = pruned
	return Decision{Allowed: true, Remaining: limit - len(pruned)}, nil
}

// RedisWindowLimiter is the shared-counter variant for multi-replica
// deployments: INCR with a window-sized expiry on first hit.
type RedisWindowLimiter struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisWindowLimiter(client redis.UniversalClient, prefix string) *RedisWindowLimiter {
	if prefix == "" {
		prefix = "mefil"
	}
	return &RedisWindowLimiter{client: client, prefix: prefix}
}

func (l *RedisWindowLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	if l.client == nil {
		return Decision{Allowed: true, Remaining: limit}, nil
	}
	bucket := fmt.Sprintf("%s:ratelimit:%s:%d", l.prefix, key, time.Now().Unix()/int64(window.Seconds()))
	pipe := l.client.TxPipeline()
	count := pipe.Incr(ctx, bucket)
	pipe.Expire(ctx, bucket, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, err
	}
	n := int(count.Val())
	if n > limit {
		return Decision{Allowed: false, RetryAfter: window}, nil
	}
	return Decision{Allowed: true, Remaining: limit - n}, nil
}

func clientIPKey(r *http.Request) string {
	ip := parseRequestIP(r)
	if ip != nil {
		return ip.String()
	}
	return r.RemoteAddr
}

func retryAfterHeader(d time.Duration) string {
	seconds := int(d.Round(time.Second).Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return fmt.Sprintf("%d", seconds)
}

func writeRateLimitHeaders(h http.Header, limit, remaining int) {
	if remaining < 0 {
		remaining = 0
	}
	h.Set("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
	h.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
}
