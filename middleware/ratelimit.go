package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter is a per-client-IP token bucket.
type RateLimiter struct {
	tokens         map[string]float64
	lastRefill     map[string]time.Time
	mu             sync.Mutex
	rate           float64 // tokens per second
	bucketSize     float64 // maximum tokens
	refillInterval time.Duration
	now            func() time.Time
}

func NewRateLimiter(rate float64, bucketSize float64) *RateLimiter {
	return &RateLimiter{
		tokens:         make(map[string]float64),
		lastRefill:     make(map[string]time.Time),
		rate:           rate,
		bucketSize:     bucketSize,
		refillInterval: time.Second,
		now:            time.Now,
	}
}

// Allow takes one token from the bucket for ip.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	if _, exists := rl.lastRefill[ip]; !exists {
		rl.tokens[ip] = rl.bucketSize
		rl.lastRefill[ip] = now
	}

	elapsed := now.Sub(rl.lastRefill[ip])
	newTokens := float64(elapsed) / float64(rl.refillInterval) * rl.rate
	rl.tokens[ip] = min(rl.bucketSize, rl.tokens[ip]+newTokens)
	rl.lastRefill[ip] = now

	if rl.tokens[ip] < 1 {
		return false
	}

	rl.tokens[ip]--
	return true
}

// Prune forgets clients whose buckets have been full for longer than idle.
func (rl *RateLimiter) Prune(idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-idle)
	removed := 0
	for ip, last := range rl.lastRefill {
		if last.Before(cutoff) {
			delete(rl.lastRefill, ip)
			delete(rl.tokens, ip)
			removed++
		}
	}
	return removed
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		if !rl.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			return
		}

		c.Next()
	}
}
