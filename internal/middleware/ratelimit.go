package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/JonnyWalker81/trendy/engagement/internal/apierror"
	"github.com/JonnyWalker81/trendy/engagement/internal/logger"
)

// RateLimiter is a fixed-window request limiter keyed by caller
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientWindow
	rate    int           // requests per window
	window  time.Duration // window length
	name    string        // identifier for logging
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

type clientWindow struct {
	count   int
	started time.Time
}

// NewRateLimiter creates a limiter allowing rate requests per window and
// starts a goroutine that evicts idle callers. Call Close to stop it.
func NewRateLimiter(rate int, window time.Duration, name string) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*clientWindow),
		rate:    rate,
		window:  window,
		name:    name,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go rl.cleanup()

	logger.Default().Debug("rate limiter initialized",
		logger.String("name", name),
		logger.Int("rate", rate),
		logger.Duration("window", window),
	)
	return rl
}

// Close stops the eviction goroutine
func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window * 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now()
			for key, w := range rl.clients {
				if now.Sub(w.started) > rl.window*2 {
					delete(rl.clients, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.stop:
			return
		}
	}
}

// allow counts one request for key and reports whether it fits the window,
// plus the time left until the window resets
func (rl *RateLimiter) allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.clients[key]
	if !ok || now.Sub(w.started) >= rl.window {
		rl.clients[key] = &clientWindow{count: 1, started: now}
		return true, rl.window
	}

	w.count++
	return w.count <= rl.rate, rl.window - now.Sub(w.started)
}

// RateLimit limits requests per user, falling back to the client IP for
// requests that have not been identified yet
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetString("user_id")
		if key == "" {
			key = "ip:" + c.ClientIP()
		}

		ok, reset := limiter.allow(key)
		if !ok {
			logger.Ctx(c.Request.Context()).Warn("rate limit exceeded",
				logger.String("limiter", limiter.name),
				logger.String("key", key),
				logger.Int("limit", limiter.rate),
				logger.Duration("window", limiter.window),
			)

			retryAfter := int(math.Ceil(reset.Seconds()))
			c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.rate))
			c.Header("X-RateLimit-Remaining", "0")
			apierror.WriteProblem(c, apierror.NewRateLimitError(apierror.GetRequestID(c), retryAfter))
			return
		}

		c.Next()
	}
}
