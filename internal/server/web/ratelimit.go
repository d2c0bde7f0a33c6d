package web

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LimiterManager keeps one token bucket per client key.
type LimiterManager struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	lastSeen map[string]time.Time
	rate     rate.Limit
	burst    int
}

// NewLimiterManager allows requestsPerMin per key with the given burst.
func NewLimiterManager(requestsPerMin, burst int) *LimiterManager {
	return &LimiterManager{
		limiters: make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
		rate:     rate.Limit(float64(requestsPerMin) / 60.0),
		burst:    burst,
	}
}

func (m *LimiterManager) Allow(key string) bool {
	m.mu.Lock()
	limiter, ok := m.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(m.rate, m.burst)
		m.limiters[key] = limiter
	}
	m.lastSeen[key] = time.Now()
	m.mu.Unlock()

	return limiter.Allow()
}

// Cleanup drops limiters idle for longer than maxIdle.
func (m *LimiterManager) Cleanup(maxIdle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	now := time.Now()
	for key, seen := range m.lastSeen {
		if now.Sub(seen) > maxIdle {
			delete(m.limiters, key)
			delete(m.lastSeen, key)
			n++
		}
	}
	return n
}

// clientIP is the host part of RemoteAddr. Forwarding headers only count
// when RealIP has rewritten RemoteAddr for a trusted proxy.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
