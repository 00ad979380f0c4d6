package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

var errNoRateStore = errors.New("rate limit store not configured")

// Quota is a fixed-window allowance for one named action.
type Quota struct {
	Name   string
	Limit  int
	Window time.Duration
	// FailClosed rejects requests with 503 while Redis is unreachable.
	// The default lets them through.
	FailClosed bool
}

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

// Limiter counts actions per caller in Redis.
type Limiter struct {
	rdb      *redis.Client
	disabled bool
}

// NewLimiter returns a limiter backed by rdb. Throttling is off in local
// environments ("", "test", "development", "dev", "stress").
func NewLimiter(rdb *redis.Client, env string) *Limiter {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "", "test", "development", "dev", "stress":
		return &Limiter{rdb: rdb, disabled: true}
	}
	return &Limiter{rdb: rdb}
}

func rateKey(action, caller string) string {
	return "rl:" + action + ":" + caller
}

// Allow records one action by caller against q.
func (l *Limiter) Allow(ctx context.Context, q Quota, caller string) (Decision, error) {
	if l.disabled {
		return Decision{Allowed: true, Remaining: q.Limit}, nil
	}
	if l.rdb == nil {
		return Decision{}, errNoRateStore
	}

	key := rateKey(q.Name, caller)
	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := l.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, key)
		p.ExpireNX(ctx, key, q.Window)
		ttl = p.PTTL(ctx, key)
		return nil
	})
	if err != nil {
		return Decision{}, err
	}

	count := int(incr.Val())
	reset := ttl.Val()
	if reset < 0 {
		reset = q.Window
	}
	return Decision{
		Allowed:   count <= q.Limit,
		Remaining: max(q.Limit-count, 0),
		ResetIn:   reset,
	}, nil
}

// Handler enforces q per authenticated user, or per client IP before login.
func (l *Limiter) Handler(q Quota) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := "ip:" + c.IP()
		if uid, ok := c.Locals("userID").(uint); ok && uid != 0 {
			caller = fmt.Sprintf("user:%d", uid)
		}

		d, err := l.Allow(c.UserContext(), q, caller)
		if err != nil {
			if q.FailClosed {
				Logger.WarnContext(c.UserContext(), "rate limit store unavailable, rejecting",
					slog.String("quota", q.Name), slog.String("error", err.Error()))
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error": "Service temporarily unavailable",
				})
			}
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(q.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if !d.Allowed {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(d.ResetIn.Round(time.Second)/time.Second)))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		}
		return c.Next()
	}
}
