package registry

import (
	"net/netip"
	"sync"
	"time"
)

// Clock abstracts wall-clock access so the rate limiter can be driven
// deterministically in tests, mirroring internal/fscp's Clock.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// tokenBucket is a classic leaky/token bucket: capacity tokens, refilled
// at ratePerSecond, drained one token per admitted message.
type tokenBucket struct {
	capacity     float64
	ratePerSecond float64
	tokens       float64
	lastRefill   time.Time
}

func newTokenBucket(ratePerSecond float64, now time.Time) *tokenBucket {
	return &tokenBucket{
		capacity:      ratePerSecond,
		ratePerSecond: ratePerSecond,
		tokens:        ratePerSecond,
		lastRefill:    now,
	}
}

func (b *tokenBucket) allow(now time.Time) bool {
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * b.ratePerSecond
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
		b.lastRefill = now
	}
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// PerSourceLimiter rate-limits unauthenticated messages per source address
// (§4.5: "configurable max_unauthenticated_messages_per_second, default
// 50; excess is silently dropped").
type PerSourceLimiter struct {
	mu            sync.Mutex
	ratePerSecond float64
	clock         Clock
	buckets       map[netip.Addr]*tokenBucket
}

// DefaultMaxUnauthenticatedPerSecond is the §4.5 default.
const DefaultMaxUnauthenticatedPerSecond = 50

// NewPerSourceLimiter builds a limiter admitting at most ratePerSecond
// unauthenticated messages per second per source address.
func NewPerSourceLimiter(ratePerSecond float64, clock Clock) *PerSourceLimiter {
	if clock == nil {
		clock = SystemClock{}
	}
	return &PerSourceLimiter{
		ratePerSecond: ratePerSecond,
		clock:         clock,
		buckets:       make(map[netip.Addr]*tokenBucket),
	}
}

// Allow reports whether a message from addr should be admitted, consuming
// a token if so.
func (l *PerSourceLimiter) Allow(addr netip.Addr) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	b, ok := l.buckets[addr]
	if !ok {
		b = newTokenBucket(l.ratePerSecond, now)
		l.buckets[addr] = b
	}
	return b.allow(now)
}

// Forget drops any bucket state tracked for addr, e.g. once a peer becomes
// authenticated and is no longer subject to this limiter.
func (l *PerSourceLimiter) Forget(addr netip.Addr) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, addr)
}
