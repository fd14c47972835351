package providers

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Breaker caps the call rate per endpoint so a persistently failing provider
// cannot be hammered by retry loops. This protects cost and rate limits, not
// correctness; callers fail fast with ErrRateLimited when tripped.
type Breaker struct {
	mu        sync.Mutex
	perMinute int
	limiters  map[string]*rate.Limiter
}

// NewBreaker creates a Breaker allowing callsPerMinute calls per endpoint.
// A non-positive rate disables the breaker.
func NewBreaker(callsPerMinute int) *Breaker {
	return &Breaker{
		perMinute: callsPerMinute,
		limiters:  make(map[string]*rate.Limiter),
	}
}

// Allow reports whether one more call to endpoint is within the rate budget.
func (b *Breaker) Allow(endpoint string) bool {
	if b == nil || b.perMinute <= 0 {
		return true
	}

	b.mu.Lock()
	limiter, ok := b.limiters[endpoint]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(b.perMinute)), b.perMinute)
		b.limiters[endpoint] = limiter
	}
	b.mu.Unlock()

	return limiter.Allow()
}
