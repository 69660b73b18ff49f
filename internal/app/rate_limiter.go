package app

import (
	"sync"
	"time"
)

// LoginRateLimiter is a sliding window of login attempts per username.
type LoginRateLimiter struct {
	mu       sync.Mutex
	history  map[string][]time.Time
	limit    int
	interval time.Duration
	now      func() time.Time
}

func NewLoginRateLimiter(limit int, interval time.Duration) *LoginRateLimiter {
	return &LoginRateLimiter{
		history:  make(map[string][]time.Time),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

// Allow records an attempt unless the window is already full. A limit of
// zero or less disables limiting.
func (rl *LoginRateLimiter) Allow(username string) bool {
	if rl.limit <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[username]
	fresh := attempts[:0]
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}
	if len(fresh) >= rl.limit {
		rl.history[username] = fresh
		return false
	}
	rl.history[username] = append(fresh, now)
	return true
}

// Reset forgets the attempts of username, called after a successful login.
func (rl *LoginRateLimiter) Reset(username string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.history, username)
}
