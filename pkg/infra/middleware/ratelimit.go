package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	"github.com/redis/go-redis/v9"

	"github.com/kart-io/knowledge-x/internal/pkg/httputils"
	"github.com/kart-io/knowledge-x/pkg/utils/errors"
)

// RateLimiter is the interface for rate limiting implementations.
type RateLimiter interface {
	// Allow reports whether the request identified by key is allowed.
	Allow(ctx context.Context, key string) (bool, error)
	// Reset clears the rate limit state for the key.
	Reset(ctx context.Context, key string) error
}

// RateLimitConfig configures the rate limit middleware.
type RateLimitConfig struct {
	// Limit is the maximum number of requests per window.
	Limit int
	// Window is the sliding window duration.
	Window time.Duration
	// KeyFunc extracts the rate limit key from the request.
	KeyFunc func(c *gin.Context) string
	// SkipPaths lists path prefixes exempt from rate limiting.
	SkipPaths []string
	// Limiter is the backing limiter. Defaults to an in-memory limiter.
	Limiter RateLimiter
	// TrustedProxies lists CIDRs whose forwarded headers are trusted.
	TrustedProxies []string
}

func (cfg *RateLimitConfig) validate() {
	if cfg.Limit <= 0 {
		cfg.Limit = 100
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Limiter == nil {
		cfg.Limiter = NewMemoryRateLimiter(cfg.Limit, cfg.Window)
	}
	if cfg.KeyFunc == nil {
		trusted := parseTrustedProxies(cfg.TrustedProxies)
		cfg.KeyFunc = func(c *gin.Context) string {
			// 多租户场景下优先按租户限流
			if companyID := c.GetHeader("X-Company-ID"); companyID != "" {
				return "company:" + companyID
			}
			return "ip:" + extractClientIP(c.Request, trusted)
		}
	}
}

// RateLimit returns a gin middleware enforcing the configured rate limit.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	cfg.validate()

	return func(c *gin.Context) {
		for _, prefix := range cfg.SkipPaths {
			if strings.HasPrefix(c.Request.URL.Path, prefix) {
				c.Next()
				return
			}
		}

		key := cfg.KeyFunc(c)
		allowed, err := cfg.Limiter.Allow(c.Request.Context(), key)
		if err != nil {
			// Limiter 故障时放行，避免后端存储抖动引发全站拒绝
			logger.Errorw("限流器检查失败", "key", key, "error", err)
			c.Next()
			return
		}

		if !allowed {
			httputils.WriteResponse(c, errors.ErrRateLimitExceeded, nil)
			c.Abort()
			return
		}

		c.Next()
	}
}

func parseTrustedProxies(cidrs []string) []*net.IPNet {
	var nets []*net.IPNet
	for _, cidr := range cidrs {
		if _, ipnet, err := net.ParseCIDR(cidr); err == nil {
			nets = append(nets, ipnet)
		}
	}
	return nets
}

// extractClientIP returns the client IP, honoring forwarded headers only
// when the direct peer is a trusted proxy.
func extractClientIP(r *http.Request, trusted []*net.IPNet) string {
	remoteIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		remoteIP = r.RemoteAddr
	}

	ip := net.ParseIP(remoteIP)
	if ip == nil {
		return remoteIP
	}

	trustedPeer := false
	for _, ipnet := range trusted {
		if ipnet.Contains(ip) {
			trustedPeer = true
			break
		}
	}
	if !trustedPeer {
		return remoteIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		candidate := strings.TrimSpace(parts[0])
		if net.ParseIP(candidate) != nil {
			return candidate
		}
	}
	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		if net.ParseIP(xrip) != nil {
			return xrip
		}
	}
	return remoteIP
}

type rateLimitEntry struct {
	mu       sync.Mutex
	requests []time.Time
}

// MemoryRateLimiter is a sliding window rate limiter backed by process memory.
type MemoryRateLimiter struct {
	limit   int
	window  time.Duration
	entries sync.Map

	cleanupOnce sync.Once
	stopCh      chan struct{}
}

// NewMemoryRateLimiter creates an in-memory sliding window limiter and starts
// its background cleanup goroutine.
func NewMemoryRateLimiter(limit int, window time.Duration) *MemoryRateLimiter {
	l := &MemoryRateLimiter{
		limit:  limit,
		window: window,
		stopCh: make(chan struct{}),
	}
	go l.cleanup()
	return l
}

// Allow implements RateLimiter.
func (l *MemoryRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := time.Now()
	val, _ := l.entries.LoadOrStore(key, &rateLimitEntry{})
	entry := val.(*rateLimitEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	entry.requests = filterExpired(entry.requests, now.Add(-l.window))
	if len(entry.requests) >= l.limit {
		return false, nil
	}
	entry.requests = append(entry.requests, now)
	return true, nil
}

// Reset implements RateLimiter.
func (l *MemoryRateLimiter) Reset(_ context.Context, key string) error {
	l.entries.Delete(key)
	return nil
}

// Stop terminates the cleanup goroutine.
func (l *MemoryRateLimiter) Stop() {
	l.cleanupOnce.Do(func() {
		close(l.stopCh)
	})
}

func (l *MemoryRateLimiter) cleanup() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-2 * l.window)
			l.entries.Range(func(key, val interface{}) bool {
				entry := val.(*rateLimitEntry)
				entry.mu.Lock()
				idle := len(entry.requests) == 0 ||
					entry.requests[len(entry.requests)-1].Before(cutoff)
				entry.mu.Unlock()
				if idle {
					l.entries.Delete(key)
				}
				return true
			})
		}
	}
}

func filterExpired(requests []time.Time, cutoff time.Time) []time.Time {
	kept := requests[:0]
	for _, t := range requests {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

// RedisRateLimiter is a sliding window rate limiter backed by a Redis
// sorted set, suitable for multi-instance deployments.
type RedisRateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

// NewRedisRateLimiter creates a Redis-backed sliding window limiter.
func NewRedisRateLimiter(client *redis.Client, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: "ratelimit:",
	}
}

// Allow implements RateLimiter.
func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := l.prefix + key
	now := time.Now().UnixNano()
	windowStart := now - l.window.Nanoseconds()

	pipe := l.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%d", windowStart))
	countCmd := pipe.ZCard(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	if countCmd.Val() >= int64(l.limit) {
		return false, nil
	}

	pipe = l.client.Pipeline()
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now), Member: now})
	pipe.Expire(ctx, redisKey, 2*l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Reset implements RateLimiter.
func (l *RedisRateLimiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, l.prefix+key).Err()
}
