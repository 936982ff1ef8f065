package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiterConfig configures rate limiting behavior
type RateLimiterConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// maxTrackedClients bounds the limiter map between cleanups.
const maxTrackedClients = 1000

// limiterStore keeps one limiter per client IP.
type limiterStore struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	config   RateLimiterConfig
}

func newLimiterStore(config RateLimiterConfig) *limiterStore {
	return &limiterStore{
		limiters: make(map[string]*rate.Limiter),
		config:   config,
	}
}

// get returns or creates the limiter for ip
func (s *limiterStore) get(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	limiter, exists := s.limiters[ip]
	if !exists {
		limiter = rate.NewLimiter(rate.Limit(s.config.RequestsPerSecond), s.config.Burst)
		s.limiters[ip] = limiter
	}
	return limiter
}

// prune resets the map once it tracks too many clients.
func (s *limiterStore) prune() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.limiters) > maxTrackedClients {
		s.limiters = make(map[string]*rate.Limiter)
	}
}

func (s *limiterStore) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		s.prune()
	}
}

// RateLimiterMiddleware limits each client IP to config.RequestsPerSecond
// with bursts of config.Burst.
func RateLimiterMiddleware(config RateLimiterConfig) gin.HandlerFunc {
	store := newLimiterStore(config)
	go store.cleanup(10 * time.Minute)

	return func(c *gin.Context) {
		limiter := store.get(c.ClientIP())

		if !limiter.Allow() {
			reservation := limiter.Reserve()
			retryAfter := reservation.DelayFrom(time.Now()).Seconds()
			reservation.Cancel()

			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter))))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded. Please try again later.",
				"retry_after": retryAfter,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
