// Package ratelimit provides a per-client token-bucket limiter for the
// credential-accepting auth endpoints.
package ratelimit

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

// Config holds the limiter settings.
type Config struct {
	// Rate is the sustained request rate per client (req/sec).
	Rate rate.Limit
	// Burst is the bucket size per client.
	Burst int
	// CleanupInterval controls how often idle client entries are dropped.
	CleanupInterval time.Duration
	// IdleTTL is how long a client entry may sit unused before cleanup.
	IdleTTL time.Duration
}

// DefaultConfig allows 30 auth requests per minute per client with a
// burst of 10.
func DefaultConfig() Config {
	return Config{
		Rate:            rate.Limit(30.0 / 60.0),
		Burst:           10,
		CleanupInterval: 5 * time.Minute,
		IdleTTL:         15 * time.Minute,
	}
}

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// Limiter tracks one token bucket per client IP.
type Limiter struct {
	config Config

	mu       sync.Mutex
	limiters map[string]*clientLimiter

	stopCh chan struct{}
}

// New creates a Limiter and starts its background cleanup loop.
func New(config Config) *Limiter {
	if config.Rate <= 0 {
		config = DefaultConfig()
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = 15 * time.Minute
	}

	l := &Limiter{
		config:   config,
		limiters: make(map[string]*clientLimiter),
		stopCh:   make(chan struct{}),
	}

	go l.cleanupLoop()

	return l
}

// Middleware returns a fiber handler rejecting over-limit clients
// with 429.
func (l *Limiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !l.Allow(c.IP()) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests",
			})
		}
		return c.Next()
	}
}

// Allow reports whether the client may proceed.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	entry, ok := l.limiters[key]
	if !ok {
		entry = &clientLimiter{
			limiter: rate.NewLimiter(l.config.Rate, l.config.Burst),
		}
		l.limiters[key] = entry
	}
	entry.lastAccess = time.Now()
	l.mu.Unlock()

	return entry.limiter.Allow()
}

// Stop terminates the cleanup loop.
func (l *Limiter) Stop() {
	close(l.stopCh)
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stopCh:
			return
		}
	}
}

func (l *Limiter) cleanup() {
	cutoff := time.Now().Add(-l.config.IdleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, entry := range l.limiters {
		if entry.lastAccess.Before(cutoff) {
			delete(l.limiters, key)
		}
	}
}
