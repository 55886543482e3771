package mock

import (
	"context"
	"time"

	"github.com/fwojciec/docindex"
)

var _ docindex.Fetcher = (*Fetcher)(nil)

// Fetcher is a mock implementation of docindex.Fetcher.
type Fetcher struct {
	FetchFn func(ctx context.Context, req *docindex.FetchRequest) (*docindex.FetchResponse, error)
}

func (f *Fetcher) Fetch(ctx context.Context, req *docindex.FetchRequest) (*docindex.FetchResponse, error) {
	return f.FetchFn(ctx, req)
}

var _ docindex.RobotsPolicy = (*RobotsPolicy)(nil)

// RobotsPolicy is a mock implementation of docindex.RobotsPolicy.
type RobotsPolicy struct {
	AllowedFn    func(ctx context.Context, rawURL string) (bool, error)
	CrawlDelayFn func(ctx context.Context, rawURL string) time.Duration
}

func (p *RobotsPolicy) Allowed(ctx context.Context, rawURL string) (bool, error) {
	return p.AllowedFn(ctx, rawURL)
}

func (p *RobotsPolicy) CrawlDelay(ctx context.Context, rawURL string) time.Duration {
	if p.CrawlDelayFn == nil {
		return 0
	}
	return p.CrawlDelayFn(ctx, rawURL)
}

var _ docindex.DomainLimiter = (*DomainLimiter)(nil)

// DomainLimiter is a mock implementation of docindex.DomainLimiter.
type DomainLimiter struct {
	WaitFn func(ctx context.Context, domain string) error
}

func (l *DomainLimiter) Wait(ctx context.Context, domain string) error {
	return l.WaitFn(ctx, domain)
}
