package ratelimit

import (
	"fmt"
	"math"
	"sync"
	"time"

	"voice-qa-server/internal/apierrors"
	"voice-qa-server/internal/observability"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	// DefaultIdleTTL is how long a client's bucket survives without requests.
	DefaultIdleTTL = 10 * time.Minute
	// DefaultMaxBuckets caps tracked clients. Clients past the cap share one
	// overflow bucket until a sweep frees room.
	DefaultMaxBuckets = 10000
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter applies a token bucket per client IP. Idle buckets are evicted.
type Limiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	overflow  *rate.Limiter
	lastSweep time.Time

	limit      rate.Limit
	burst      int
	idleTTL    time.Duration
	maxBuckets int
	now        func() time.Time
	logger     *observability.Logger
}

// New returns a limiter allowing perSecond requests per client with the given
// burst. A non-positive rate denies everything past the burst.
func New(perSecond float64, burst int, logger *observability.Logger) *Limiter {
	if burst <= 0 {
		burst = 1
	}
	if perSecond < 0 {
		perSecond = 0
	}
	limit := rate.Limit(perSecond)
	return &Limiter{
		buckets:    make(map[string]*bucket),
		overflow:   rate.NewLimiter(limit, burst),
		limit:      limit,
		burst:      burst,
		idleTTL:    DefaultIdleTTL,
		maxBuckets: DefaultMaxBuckets,
		now:        time.Now,
		logger:     logger,
	}
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idleTTL {
		l.sweepLocked(now)
	}

	if b, ok := l.buckets[key]; ok {
		b.lastSeen = now
		return b.limiter
	}
	if len(l.buckets) >= l.maxBuckets {
		return l.overflow
	}
	b := &bucket{limiter: rate.NewLimiter(l.limit, l.burst), lastSeen: now}
	l.buckets[key] = b
	return b.limiter
}

func (l *Limiter) sweepLocked(now time.Time) {
	l.lastSweep = now
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) >= l.idleTTL {
			delete(l.buckets, key)
		}
	}
}

// retryAfter is the whole number of seconds until one more token is due.
func (l *Limiter) retryAfter() int {
	if l.limit <= 0 || math.IsInf(float64(l.limit), 0) {
		return 1
	}
	secs := math.Ceil(1 / float64(l.limit))
	if secs < 1 {
		return 1
	}
	return int(secs)
}

// Middleware rejects requests over the limit with 429.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := observability.GetRealClientIP(c)
		b := l.bucket(ip)

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%g", float64(l.limit)))
		if !b.Allow() {
			c.Header("Retry-After", fmt.Sprintf("%d", l.retryAfter()))
			l.logger.Warn(observability.WithFields(c.Request.Context(),
				observability.Field{Key: "ip", Value: ip},
			), "rate limit exceeded")
			apierrors.RespondWithError(c, apierrors.TooManyRequests("Too many requests. Please slow down."))
			return
		}
		c.Next()
	}
}
