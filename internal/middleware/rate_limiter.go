package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

// RateLimiterConfig allows MaxRequests per Window from each client IP.
type RateLimiterConfig struct {
	MaxRequests int
	Window      time.Duration
}

// RateLimiter is a per-IP token bucket. Idle buckets are dropped after two
// windows, checked at most once per window.
type RateLimiter struct {
	mu        sync.Mutex
	config    RateLimiterConfig
	clients   map[string]*client
	lastSweep time.Time
	now       func() time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.MaxRequests < 1 {
		config.MaxRequests = 1
	}
	if config.Window <= 0 {
		config.Window = time.Hour
	}
	return &RateLimiter{
		config:  config,
		clients: map[string]*client{},
		now:     time.Now,
	}
}

// Allow reports whether key may make another request now.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= rl.config.Window {
		rl.sweep(now)
	}

	cl, ok := rl.clients[key]
	if !ok {
		every := rl.config.Window / time.Duration(rl.config.MaxRequests)
		cl = &client{limiter: rate.NewLimiter(rate.Every(every), rl.config.MaxRequests)}
		rl.clients[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

func (rl *RateLimiter) sweep(now time.Time) {
	for k, cl := range rl.clients {
		if now.Sub(cl.lastSeen) > 2*rl.config.Window {
			delete(rl.clients, k)
		}
	}
	rl.lastSweep = now
}

func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !rl.Allow(c.IP()) {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(rl.config.Window.Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please try again later.",
			})
		}
		return c.Next()
	}
}
