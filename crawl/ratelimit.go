package crawl

import (
	"context"
	"sync"
	"time"

	"github.com/fwojciec/docindex"
	"golang.org/x/time/rate"
)

var _ docindex.DomainLimiter = (*DomainLimiter)(nil)

// DomainLimiter provides per-domain rate limiting using token buckets.
// It creates a separate rate limiter for each domain, allowing concurrent
// requests to different domains while enforcing a minimum delay between
// requests within each domain.
type DomainLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	delays   map[string]time.Duration
	minDelay time.Duration
}

// NewDomainLimiter creates a new DomainLimiter that spaces requests to the
// same domain at least minDelay apart. Each domain gets its own limiter
// with a burst of 1 (no bursting allowed). A zero delay disables limiting.
func NewDomainLimiter(minDelay time.Duration) *DomainLimiter {
	return &DomainLimiter{
		limiters: make(map[string]*rate.Limiter),
		delays:   make(map[string]time.Duration),
		minDelay: minDelay,
	}
}

// Wait blocks until the rate limit allows a request to the domain.
// Returns an error if the context is canceled before the wait completes.
func (d *DomainLimiter) Wait(ctx context.Context, domain string) error {
	return d.limiter(domain).Wait(ctx)
}

// RaiseDelay increases the delay for domain to delay if it is larger than
// the current one. It is used to honor robots.txt Crawl-delay.
func (d *DomainLimiter) RaiseDelay(domain string, delay time.Duration) {
	limiter := d.limiter(domain)

	d.mu.Lock()
	defer d.mu.Unlock()
	if delay <= d.delays[domain] {
		return
	}
	d.delays[domain] = delay
	limiter.SetLimit(rate.Every(delay))
}

// Delay returns the current delay for domain.
func (d *DomainLimiter) Delay(domain string) time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	if delay, ok := d.delays[domain]; ok {
		return delay
	}
	return d.minDelay
}

func (d *DomainLimiter) limiter(domain string) *rate.Limiter {
	d.mu.Lock()
	defer d.mu.Unlock()

	limiter, ok := d.limiters[domain]
	if !ok {
		limit := rate.Inf
		if d.minDelay > 0 {
			limit = rate.Every(d.minDelay)
		}
		limiter = rate.NewLimiter(limit, 1)
		d.limiters[domain] = limiter
		d.delays[domain] = d.minDelay
	}
	return limiter
}
