package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	ActionSendMessage    = "send_message"
	ActionToggleReaction = "toggle_reaction"
	ActionMarkRead       = "mark_read"
	ActionRequest        = "request"
)

// Policy is the sustained rate and burst allowed for one action.
type Policy struct {
	Limit rate.Limit
	Burst int
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per user and action.
type RateLimiter struct {
	policies map[string]Policy
	fallback Policy
	now      func() time.Time

	buckets map[string]*bucket
	mutex   sync.Mutex
}

// NewRateLimiter limits unknown actions with fallback.
func NewRateLimiter(fallback Policy) *RateLimiter {
	return &RateLimiter{
		policies: map[string]Policy{
			// 10 messages per minute, bursts of 10
			ActionSendMessage: {Limit: rate.Every(6 * time.Second), Burst: 10},
			// 30 taps per minute
			ActionToggleReaction: {Limit: rate.Every(2 * time.Second), Burst: 30},
			ActionMarkRead:       {Limit: rate.Every(time.Second), Burst: 10},
		},
		fallback: fallback,
		now:      time.Now,
		buckets:  make(map[string]*bucket),
	}
}

// SetPolicy overrides the policy for action. Existing buckets keep theirs.
func (rl *RateLimiter) SetPolicy(action string, p Policy) {
	rl.mutex.Lock()
	rl.policies[action] = p
	rl.mutex.Unlock()
}

// Allow consumes a token for key and action. When denied it reports how long
// until the next token.
func (rl *RateLimiter) Allow(key, action string) (bool, time.Duration) {
	now := rl.now()

	rl.mutex.Lock()
	b, ok := rl.buckets[key+":"+action]
	if !ok {
		p, found := rl.policies[action]
		if !found {
			p = rl.fallback
		}
		b = &bucket{limiter: rate.NewLimiter(p.Limit, p.Burst)}
		rl.buckets[key+":"+action] = b
	}
	b.lastSeen = now
	rl.mutex.Unlock()

	if b.limiter.AllowN(now, 1) {
		return true, 0
	}
	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, 0
	}
	wait := r.DelayFrom(now)
	r.CancelAt(now)
	return false, wait
}

// Cleanup drops buckets idle for longer than idle.
func (rl *RateLimiter) Cleanup(idle time.Duration) int {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	removed := 0
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) > idle {
			delete(rl.buckets, key)
			removed++
		}
	}
	return removed
}

// StartCleanupRoutine sweeps idle buckets until done is closed.
func (rl *RateLimiter) StartCleanupRoutine(done <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.Cleanup(time.Hour)
			case <-done:
				return
			}
		}
	}()
}
