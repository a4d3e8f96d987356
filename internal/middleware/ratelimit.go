package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// minIdleTTL is the shortest time a client's bucket is kept after its last request.
const minIdleTTL = 3 * time.Minute

// RateLimit returns per-client rate limiting middleware using token buckets.
// Clients are keyed by c.ClientIP(). X-Forwarded-For is only honoured when the
// engine trusts the peer (see gin.Engine.SetTrustedProxies); with no trusted
// proxies the key is the connection's remote address.
//
// Token bucket algorithm: each client gets a bucket that fills at `rps`
// tokens/sec up to `burst` tokens. Each request consumes one token. If the
// bucket is empty, the request is rejected with 429.
//
// A non-positive rps disables limiting. Heartbeats count like any other
// request, so keep the limit well above the heartbeat rate of one browser tab.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	limiters := newClientLimiters(rps, burst)

	return func(c *gin.Context) {
		if !limiters.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}

		c.Next()
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiters holds one bucket per client. Buckets idle for longer than
// idleTTL are swept, at most once per idleTTL. idleTTL is never shorter than
// a full refill, so a swept bucket was already full and dropping it changes
// no decision.
type clientLimiters struct {
	rps     rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time

	mu        sync.Mutex
	entries   map[string]*clientLimiter
	lastSweep time.Time
}

func newClientLimiters(rps float64, burst int) *clientLimiters {
	ttl := minIdleTTL
	if refill := time.Duration(float64(burst) / rps * float64(time.Second)); refill > ttl {
		ttl = refill
	}
	return &clientLimiters{
		rps:     rate.Limit(rps),
		burst:   burst,
		idleTTL: ttl,
		now:     time.Now,
		entries: make(map[string]*clientLimiter),
	}
}

func (l *clientLimiters) allow(client string) bool {
	now := l.now()

	l.mu.Lock()
	if l.lastSweep.IsZero() {
		l.lastSweep = now
	}
	if now.Sub(l.lastSweep) >= l.idleTTL {
		for key, e := range l.entries {
			if now.Sub(e.lastSeen) >= l.idleTTL {
				delete(l.entries, key)
			}
		}
		l.lastSweep = now
	}

	e, exists := l.entries[client]
	if !exists {
		e = &clientLimiter{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.entries[client] = e
	}
	e.lastSeen = now
	l.mu.Unlock()

	return e.limiter.AllowN(now, 1)
}

// size reports how many client buckets are held.
func (l *clientLimiters) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
