// Package rate is a fixed-window request limiter keyed by action and client.
package rate

import (
	"sync"
	"time"
)

type Limiter interface {
	Allow(key string, limit int, window time.Duration) (bool, time.Duration)
}

// Rule limits one action to Limit hits per Window. A Limit of zero or less
// disables the rule.
type Rule struct {
	Action string
	Limit  int
	Window time.Duration
}

func PerMinute(action string, limit int) Rule {
	return Rule{Action: action, Limit: limit, Window: time.Minute}
}

// Check applies rule to client. Disabled rules always pass.
func Check(l Limiter, rule Rule, client string) (bool, time.Duration) {
	if l == nil || rule.Limit <= 0 {
		return true, 0
	}
	return l.Allow(rule.Action+":"+client, rule.Limit, rule.Window)
}

type MemoryLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	now       func() time.Time
	lastSweep time.Time
}

type bucket struct {
	count   int
	resetAt time.Time
	window  time.Duration
}

// sweepEvery bounds how often expired buckets are dropped.
const sweepEvery = time.Minute

func NewMemory() *MemoryLimiter {
	return &MemoryLimiter{buckets: make(map[string]*bucket), now: time.Now}
}

func (m *MemoryLimiter) Allow(key string, limit int, window time.Duration) (bool, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if now.Sub(m.lastSweep) >= sweepEvery {
		m.sweep(now)
	}

	b, ok := m.buckets[key]
	if !ok || !now.Before(b.resetAt) || b.window != window {
		b = &bucket{resetAt: now.Add(window), window: window}
		m.buckets[key] = b
	}

	retry := b.resetAt.Sub(now)
	if b.count >= limit {
		return false, retry
	}
	b.count++
	return true, retry
}

// Len reports how many buckets are tracked.
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}

func (m *MemoryLimiter) sweep(now time.Time) {
	for key, b := range m.buckets {
		if !now.Before(b.resetAt) {
			delete(m.buckets, key)
		}
	}
	m.lastSweep = now
}
