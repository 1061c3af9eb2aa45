package server

import (
	"fmt"
	"sync"
	"time"
)

// RateLimitConfig bounds requests and upload volume per client address.
// Zero disables a limit.
type RateLimitConfig struct {
	RequestsPerMinute int
	MaxUploadMBPerDay int64
}

// RateLimiter counts requests in fixed one minute windows and upload
// bytes per calendar day.
type RateLimiter struct {
	mu      sync.Mutex
	cfg     RateLimitConfig
	now     func() time.Time
	clients map[string]*clientUsage
}

type clientUsage struct {
	windowStart time.Time
	requests    int
	day         time.Time
	bytes       int64
}

// NewRateLimiter creates a limiter with the given limits.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{cfg: cfg, now: time.Now, clients: make(map[string]*clientUsage)}
}

// Allow records a request of size bytes from client or returns a
// *LimitError describing the exceeded limit.
func (rl *RateLimiter) Allow(client string, size int64) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	u, ok := rl.clients[client]
	if !ok {
		u = &clientUsage{windowStart: now, day: day}
		rl.clients[client] = u
	}
	if now.Sub(u.windowStart) >= time.Minute {
		u.windowStart, u.requests = now, 0
	}
	if !u.day.Equal(day) {
		u.day, u.bytes = day, 0
	}

	if n := rl.cfg.RequestsPerMinute; n > 0 && u.requests >= n {
		return &LimitError{Type: "requests_per_minute", Limit: int64(n), RetryAfter: time.Minute - now.Sub(u.windowStart)}
	}
	if mb := rl.cfg.MaxUploadMBPerDay; mb > 0 && u.bytes+size > mb<<20 {
		return &LimitError{Type: "upload_per_day", Limit: mb << 20, RetryAfter: day.AddDate(0, 0, 1).Sub(now)}
	}
	u.requests++
	u.bytes += size
	return nil
}

// LimitError reports an exceeded limit.
type LimitError struct {
	Type       string
	Limit      int64
	RetryAfter time.Duration
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s limit of %d exceeded, retry after %v", e.Type, e.Limit, e.RetryAfter.Round(time.Second))
}
