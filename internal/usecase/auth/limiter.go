package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxLimiterKeys bounds the number of tracked keys before idle ones are pruned.
const maxLimiterKeys = 10_000

// keyedLimiter is a token bucket per key.
type keyedLimiter struct {
	every time.Duration
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newKeyedLimiter(every time.Duration, burst int) *keyedLimiter {
	return &keyedLimiter{every: every, burst: burst, limiters: make(map[string]*rate.Limiter)}
}

func (k *keyedLimiter) allow(key string, now time.Time) bool {
	if k.every <= 0 {
		return true
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	l, ok := k.limiters[key]
	if !ok {
		if len(k.limiters) >= maxLimiterKeys {
			k.prune(now)
		}
		l = rate.NewLimiter(rate.Every(k.every), k.burst)
		k.limiters[key] = l
	}
	return l.AllowN(now, 1)
}

// prune drops limiters whose bucket has refilled; they carry no state.
func (k *keyedLimiter) prune(now time.Time) {
	for key, l := range k.limiters {
		if l.TokensAt(now) >= float64(k.burst) {
			delete(k.limiters, key)
		}
	}
}
