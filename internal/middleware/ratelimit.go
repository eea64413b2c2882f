package middleware

import (
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

// SchoolRateLimiter hands out one token bucket per school.
type SchoolRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewSchoolRateLimiter builds a limiter allowing rps sustained requests per school. rps <= 0 disables it.
func NewSchoolRateLimiter(rps float64, burst int) *SchoolRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &SchoolRateLimiter{limiters: make(map[string]*rate.Limiter), limit: rate.Limit(rps), burst: burst}
}

// Allow reports whether the school may proceed now.
func (l *SchoolRateLimiter) Allow(schoolID string) bool {
	if l == nil || l.limit <= 0 {
		return true
	}
	l.mu.Lock()
	limiter, ok := l.limiters[schoolID]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[schoolID] = limiter
	}
	l.mu.Unlock()
	return limiter.Allow()
}

// RateLimit rejects requests with RATE_LIMITED once the caller's school exhausts its bucket.
// It must run after JWT.
func RateLimit(limiter *SchoolRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(SchoolID(c)) {
			response.Error(c, appErrors.ErrRateLimited)
			c.Abort()
			return
		}
		c.Next()
	}
}
