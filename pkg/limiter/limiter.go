package limiter

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type visitors struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rps      rate.Limit
	burst    int
	ttl      time.Duration
}

func newVisitors(rps int, burst int, ttl time.Duration) *visitors {
	return &visitors{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
		ttl:      ttl,
	}
}

func (v *visitors) get(ip string) *rate.Limiter {
	v.mu.Lock()
	defer v.mu.Unlock()

	vis, ok := v.visitors[ip]
	if !ok {
		vis = &visitor{limiter: rate.NewLimiter(v.rps, v.burst)}
		v.visitors[ip] = vis
	}
	vis.lastSeen = time.Now()

	return vis.limiter
}

func (v *visitors) cleanup(now time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for ip, vis := range v.visitors {
		if now.Sub(vis.lastSeen) > v.ttl {
			delete(v.visitors, ip)
		}
	}
}

func (v *visitors) cleanupLoop() {
	for now := range time.Tick(time.Minute) {
		v.cleanup(now)
	}
}

// Limit returns a per client IP token bucket middleware. Idle clients are
// forgotten after ttl.
func Limit(rps int, burst int, ttl time.Duration) gin.HandlerFunc {
	v := newVisitors(rps, burst, ttl)
	go v.cleanupLoop()

	return func(c *gin.Context) {
		if !v.get(c.ClientIP()).Allow() {
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}

		c.Next()
	}
}
