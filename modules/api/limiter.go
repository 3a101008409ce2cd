package api

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// slidingWindow admits a request when fewer than limit members scored inside
// the window remain after trimming older ones.
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	local current = redis.call('ZCARD', key)

	if current < limit then
		local counter = redis.call('INCR', key .. ':counter')
		redis.call('ZADD', key, now, ARGV[1] .. ':' .. counter)
		local expire_seconds = math.ceil(window_ms / 1000)
		redis.call('EXPIRE', key, expire_seconds)
		redis.call('EXPIRE', key .. ':counter', expire_seconds)
		return {1, limit - current - 1, 0}
	end

	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	local reset_at = 0
	if oldest and #oldest >= 2 then
		reset_at = tonumber(oldest[2]) + window_ms
	end
	return {0, 0, reset_at}
`)

// LimitResult contains the result of a rate limit check.
type LimitResult struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
	Limit     int
}

// SignInLimiter bounds sign-in attempts per client and email with a Redis
// sorted-set sliding window.
type SignInLimiter struct {
	client    *redis.Client
	keyPrefix string
	limit     int
	window    time.Duration
	now       func() time.Time
}

// NewSignInLimiter creates a new SignInLimiter.
func NewSignInLimiter(client *redis.Client, limit int, window time.Duration) *SignInLimiter {
	return &SignInLimiter{
		client:    client,
		keyPrefix: "signin:",
		limit:     limit,
		window:    window,
		now:       time.Now,
	}
}

// Allow records an attempt for key and reports whether it is within the limit.
func (l *SignInLimiter) Allow(ctx context.Context, key string) (*LimitResult, error) {
	now := l.now()
	windowStart := now.Add(-l.window)

	result, err := slidingWindow.Run(ctx, l.client, []string{l.keyPrefix + key},
		now.UnixMilli(), windowStart.UnixMilli(), l.limit, l.window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("redis script error: %w", err)
	}
	if len(result) != 3 {
		return nil, fmt.Errorf("unexpected Redis response length: %d", len(result))
	}

	resetAt := now.Add(l.window)
	if result[2] > 0 {
		resetAt = time.UnixMilli(result[2])
	}

	return &LimitResult{
		Allowed:   result[0] == 1,
		Remaining: int(result[1]),
		ResetAt:   resetAt,
		Limit:     l.limit,
	}, nil
}

// Reset clears the attempts recorded for key.
func (l *SignInLimiter) Reset(ctx context.Context, key string) error {
	redisKey := l.keyPrefix + key
	return l.client.Del(ctx, redisKey, redisKey+":counter").Err()
}

// Middleware limits the route by client IP and the email in the request body.
// A successful sign-in clears the attempts for its key. Redis failures let
// the request through.
func (l *SignInLimiter) Middleware(log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body SignInRequest
		_ = c.BodyParser(&body)
		key := c.IP() + ":" + strings.ToLower(strings.TrimSpace(body.Email))

		result, err := l.Allow(c.UserContext(), key)
		if err != nil {
			log.Warn("sign-in limiter unavailable", "error", err)
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			retryAfter := int(math.Ceil(time.Until(result.ResetAt).Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
			log.Info("sign-in rate limited", "ip", c.IP())
			return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse{
				Error:   "too_many_requests",
				Message: "Too many sign-in attempts. Try again later.",
			})
		}

		if err := c.Next(); err != nil {
			return err
		}
		if c.Response().StatusCode() == fiber.StatusOK {
			if err := l.Reset(c.UserContext(), key); err != nil {
				log.Warn("failed to reset sign-in attempts", "error", err)
			}
		}
		return nil
	}
}
