package http

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterMaxIdle = 10 * time.Minute

// ipLimiter rate-limits login attempts per remote address. Entries idle
// past limiterMaxIdle are pruned on the next lookup.
type ipLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipEntry
	perMin   rate.Limit
	burst    int
}

type ipEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

func newIPLimiter(perMinute int) *ipLimiter {
	if perMinute <= 0 {
		perMinute = 30
	}
	return &ipLimiter{
		limiters: make(map[string]*ipEntry),
		perMin:   rate.Limit(float64(perMinute) / 60.0),
		burst:    perMinute,
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	entry, ok := l.limiters[ip]
	if !ok {
		for key, e := range l.limiters {
			if now.Sub(e.lastAccess) > limiterMaxIdle {
				delete(l.limiters, key)
			}
		}
		entry = &ipEntry{limiter: rate.NewLimiter(l.perMin, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastAccess = now
	return entry.limiter.Allow()
}
