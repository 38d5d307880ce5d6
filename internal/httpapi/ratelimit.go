package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Limiters idle longer than limiterIdle are dropped, checked at most once
// per sweepEvery.
const (
	limiterIdle = 10 * time.Minute
	sweepEvery  = time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type limiterStore struct {
	mu        sync.Mutex
	limiters  map[string]*clientLimiter
	every     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

func newLimiterStore(every rate.Limit, burst int) *limiterStore {
	return &limiterStore{
		limiters: make(map[string]*clientLimiter),
		every:    every,
		burst:    burst,
		now:      time.Now,
	}
}

func (s *limiterStore) get(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= sweepEvery {
		s.sweep(now)
	}
	cl, ok := s.limiters[ip]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(s.every, s.burst)}
		s.limiters[ip] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

func (s *limiterStore) sweep(now time.Time) {
	for ip, cl := range s.limiters {
		if now.Sub(cl.lastSeen) > limiterIdle {
			delete(s.limiters, ip)
		}
	}
	s.lastSweep = now
}

// rateLimit allows perMinute requests per client IP, bursting up to a
// quarter of that.
func rateLimit(perMinute int, log *zap.Logger) gin.HandlerFunc {
	burst := perMinute / 4
	if burst < 1 {
		burst = 1
	}
	store := newLimiterStore(rate.Every(time.Minute/time.Duration(perMinute)), burst)
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !store.get(ip).Allow() {
			log.Warn("rate limit exceeded", zap.String("ip", ip))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded. Try again later."})
			return
		}
		c.Next()
	}
}
