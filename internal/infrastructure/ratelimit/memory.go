package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const maxTrackedKeys = 10_000

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Memory keeps one token bucket per rule and client in process memory.
// Buckets refill at Limit/TTL and hold at most Limit tokens.
type Memory struct {
	mu      sync.Mutex
	rules   []Rule
	buckets map[string]*bucket
	now     func() time.Time
	maxIdle time.Duration
}

func NewMemory(rules []Rule) (*Memory, error) {
	if err := validateRules(rules); err != nil {
		return nil, err
	}
	var maxIdle time.Duration
	for _, rule := range rules {
		maxIdle = max(maxIdle, rule.TTL)
	}
	return &Memory{
		rules:   rules,
		buckets: make(map[string]*bucket),
		now:     time.Now,
		maxIdle: maxIdle,
	}, nil
}

func (m *Memory) Allow(_ context.Context, key string) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if len(m.buckets) > maxTrackedKeys {
		m.sweep(now)
	}
	for _, rule := range m.rules {
		b := m.bucketFor(rule, key, now)
		reservation := b.limiter.ReserveN(now, 1)
		if delay := reservation.DelayFrom(now); delay > 0 {
			reservation.CancelAt(now)
			return Decision{Allowed: false, Rule: rule.Name, RetryAfter: delay}, nil
		}
	}
	return Decision{Allowed: true}, nil
}

func (m *Memory) bucketFor(rule Rule, key string, now time.Time) *bucket {
	id := rule.Name + "|" + key
	b, ok := m.buckets[id]
	if !ok {
		every := rule.TTL / time.Duration(rule.Limit)
		b = &bucket{limiter: rate.NewLimiter(rate.Every(every), rule.Limit)}
		m.buckets[id] = b
	}
	b.lastSeen = now
	return b
}

func (m *Memory) sweep(now time.Time) {
	for id, b := range m.buckets {
		if now.Sub(b.lastSeen) > m.maxIdle {
			delete(m.buckets, id)
		}
	}
}
