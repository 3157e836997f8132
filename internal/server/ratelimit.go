package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"keystone/internal/api"
	"keystone/internal/logger"
	"keystone/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Limiter decides whether one more request from key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// LocalLimiter keeps one token bucket per client in process memory.
// Idle buckets are swept lazily on access.
type LocalLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	rate      rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewLocalLimiter(rps float64, burst int, ttl time.Duration) *LocalLimiter {
	return &LocalLimiter{
		visitors:  make(map[string]*visitor),
		rate:      rate.Limit(rps),
		burst:     burst,
		ttl:       ttl,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (l *LocalLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > l.ttl {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) > l.ttl {
				delete(l.visitors, k)
			}
		}
		l.lastSweep = now
	}

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1), nil
}

func (l *LocalLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// tokenBucket refills at ARGV[1] tokens/s up to ARGV[2], with ARGV[3] the
// caller's clock in milliseconds. Returns 1 when a token was taken.
var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local state = redis.call('HMGET', key, 'tokens', 'ts')
local tokens = tonumber(state[1])
local ts = tonumber(state[2])
if tokens == nil then
  tokens = burst
  ts = now
end

local elapsed = math.max(0, now - ts) / 1000
tokens = math.min(burst, tokens + elapsed * rate)

local allowed = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
end

redis.call('HSET', key, 'tokens', tokens, 'ts', now)
redis.call('PEXPIRE', key, math.ceil(burst / rate * 1000) + 1000)
return allowed
`)

// RedisLimiter shares buckets between instances through Redis.
type RedisLimiter struct {
	client redis.Scripter
	rate   float64
	burst  int
	prefix string
	now    func() time.Time
}

func NewRedisLimiter(client redis.Scripter, rps float64, burst int) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		rate:   rps,
		burst:  burst,
		prefix: "keystone:ratelimit:",
		now:    time.Now,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	n, err := tokenBucket.Run(ctx, l.client, []string{l.prefix + key}, l.rate, l.burst, l.now().UnixMilli()).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RateLimitMiddleware limits per client IP. The primary limiter may be nil;
// when it errors the in-process fallback decides instead.
func RateLimitMiddleware(primary Limiter, fallback *LocalLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		ctx := c.Request.Context()

		backend := "memory"
		var allowed bool
		var err error

		if primary != nil {
			backend = "redis"
			allowed, err = primary.Allow(ctx, ip)
			if err != nil {
				logger.WithError(err).Warn("rate limiter unavailable, using in-process fallback")
				backend = "memory"
			}
		}
		if primary == nil || err != nil {
			allowed, _ = fallback.Allow(ctx, ip)
		}

		if !allowed {
			metrics.RecordRateLimited(backend)
			c.JSON(http.StatusTooManyRequests, api.ErrorResponse{Error: "rate limit exceeded"})
			c.Abort()
			return
		}
		c.Next()
	}
}
