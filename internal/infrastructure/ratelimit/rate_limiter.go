package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Actions with their own budgets.
const (
	ActionSubmitRating  = "submit_rating"
	ActionSubmitComment = "submit_comment"
	ActionDeleteComment = "delete_comment"
	ActionAPI           = "api"
)

// Policy sizes a bucket: MaxTokens burst, then RefillRate tokens every RefillTime.
type Policy struct {
	MaxTokens  int
	RefillRate int
	RefillTime time.Duration
}

// DefaultPolicies mirror how often a person can plausibly rate or comment.
func DefaultPolicies() map[string]Policy {
	return map[string]Policy{
		// 10 ratings per minute
		ActionSubmitRating: {MaxTokens: 10, RefillRate: 1, RefillTime: 6 * time.Second},
		// 5 comments per minute
		ActionSubmitComment: {MaxTokens: 5, RefillRate: 1, RefillTime: 12 * time.Second},
		ActionDeleteComment: {MaxTokens: 10, RefillRate: 1, RefillTime: 6 * time.Second},
		// 120 requests per minute per client
		ActionAPI: {MaxTokens: 120, RefillRate: 2, RefillTime: time.Second},
	}
}

var fallbackPolicy = Policy{MaxTokens: 20, RefillRate: 1, RefillTime: 3 * time.Second}

// TokenBucket represents a token bucket for rate limiting
type TokenBucket struct {
	tokens     int
	maxTokens  int
	refillRate int
	refillTime time.Duration
	lastRefill time.Time
	lastUsed   time.Time
	mutex      sync.Mutex
}

// RateLimiter manages rate limiting for different callers and actions
type RateLimiter struct {
	buckets  map[string]*TokenBucket
	policies map[string]Policy
	now      func() time.Time
	mutex    sync.RWMutex
}

func NewRateLimiter(policies map[string]Policy) *RateLimiter {
	if policies == nil {
		policies = DefaultPolicies()
	}
	return &RateLimiter{
		buckets:  make(map[string]*TokenBucket),
		policies: policies,
		now:      time.Now,
	}
}

func newTokenBucket(p Policy, now time.Time) *TokenBucket {
	if p.MaxTokens < 1 {
		p.MaxTokens = 1
	}
	if p.RefillRate < 1 {
		p.RefillRate = 1
	}
	if p.RefillTime <= 0 {
		p.RefillTime = time.Second
	}
	return &TokenBucket{
		tokens:     p.MaxTokens,
		maxTokens:  p.MaxTokens,
		refillRate: p.RefillRate,
		refillTime: p.RefillTime,
		lastRefill: now,
		lastUsed:   now,
	}
}

// allow consumes a token if one is available, otherwise it reports how long
// until the next refill.
func (tb *TokenBucket) allow(now time.Time) (bool, time.Duration) {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.lastUsed = now

	intervals := int(now.Sub(tb.lastRefill) / tb.refillTime)
	if intervals > 0 {
		tb.tokens += intervals * tb.refillRate
		if tb.tokens > tb.maxTokens {
			tb.tokens = tb.maxTokens
		}
		tb.lastRefill = tb.lastRefill.Add(time.Duration(intervals) * tb.refillTime)
	}

	if tb.tokens > 0 {
		tb.tokens--
		return true, 0
	}

	return false, tb.lastRefill.Add(tb.refillTime).Sub(now)
}

func (tb *TokenBucket) idleSince(now time.Time) time.Duration {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()
	return now.Sub(tb.lastUsed)
}

// Allow checks if a caller action is allowed
func (rl *RateLimiter) Allow(callerID, action string) (bool, time.Duration) {
	key := callerID + ":" + action
	now := rl.now()

	rl.mutex.RLock()
	bucket, exists := rl.buckets[key]
	rl.mutex.RUnlock()

	if !exists {
		rl.mutex.Lock()
		if bucket, exists = rl.buckets[key]; !exists {
			policy, ok := rl.policies[action]
			if !ok {
				policy = fallbackPolicy
			}
			bucket = newTokenBucket(policy, now)
			rl.buckets[key] = bucket
		}
		rl.mutex.Unlock()
	}

	return bucket.allow(now)
}

// Cleanup removes buckets that have not been used for maxIdle.
func (rl *RateLimiter) Cleanup(maxIdle time.Duration) int {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	removed := 0
	for key, bucket := range rl.buckets {
		if bucket.idleSince(now) > maxIdle {
			delete(rl.buckets, key)
			removed++
		}
	}
	return removed
}

// StartCleanupRoutine prunes idle buckets until ctx is done.
func (rl *RateLimiter) StartCleanupRoutine(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.Cleanup(time.Hour)
			case <-ctx.Done():
				return
			}
		}
	}()
}
