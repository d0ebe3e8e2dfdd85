package auth

import (
	"context"
	"sync"
	"time"
)

// window is the rate limiting period.
const window = time.Minute

// RateLimiter decides whether an identity may make another request.
type RateLimiter interface {
	Allow(ctx context.Context, identity *Identity) error
}

// InProcessLimiter counts requests per subject in fixed one-minute windows.
// Limits are per service tier; tiers without an entry use the default.
type InProcessLimiter struct {
	tiers      map[string]int
	defaultRPM int
	now        func() time.Time

	mu       sync.Mutex
	counters map[string]*counter
	swept    time.Time
}

type counter struct {
	count   int
	startAt time.Time
}

// NewInProcessLimiter returns a limiter allowing defaultRPM requests per
// minute, or tiers[tier] for identities of a listed tier. A limit <= 0
// disables limiting.
func NewInProcessLimiter(defaultRPM int, tiers map[string]int) *InProcessLimiter {
	return &InProcessLimiter{
		tiers:      tiers,
		defaultRPM: defaultRPM,
		now:        time.Now,
		counters:   make(map[string]*counter),
	}
}

// Allow returns ErrTooManyRequests once the identity used up its window.
func (l *InProcessLimiter) Allow(_ context.Context, identity *Identity) error {
	tier := tierOf(identity)
	rpm := l.defaultRPM
	if n, ok := l.tiers[tier]; ok {
		rpm = n
	}
	if rpm <= 0 {
		return nil
	}

	key := identity.Subject + ":" + tier

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	c, ok := l.counters[key]
	if !ok || now.Sub(c.startAt) >= window {
		l.counters[key] = &counter{count: 1, startAt: now}
		return nil
	}
	c.count++
	if c.count > rpm {
		return ErrTooManyRequests
	}
	return nil
}

// sweep drops expired windows at most once per window. Caller holds mu.
func (l *InProcessLimiter) sweep(now time.Time) {
	if now.Sub(l.swept) < window {
		return
	}
	for k, c := range l.counters {
		if now.Sub(c.startAt) >= window {
			delete(l.counters, k)
		}
	}
	l.swept = now
}

func tierOf(id *Identity) string {
	if id.ServiceTier == "" {
		return "default"
	}
	return id.ServiceTier
}
