package http

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/fwojciec/docindex"
	"github.com/temoto/robotstxt"
	"golang.org/x/sync/singleflight"
)

// maxRobotsBytes caps robots.txt bodies; anything beyond is ignored.
const maxRobotsBytes = 512 << 10

// Ensure RobotsService implements docindex.RobotsPolicy at compile time.
var _ docindex.RobotsPolicy = (*RobotsService)(nil)

// RobotsService resolves robots.txt policies, fetching each domain's file
// at most once. Concurrent lookups for the same domain share one request.
//
// A robots.txt that cannot be fetched at all (network failure) allows
// everything. HTTP status handling follows robotstxt.FromStatusAndBytes:
// 4xx allows everything, 5xx disallows everything.
type RobotsService struct {
	client    *http.Client
	userAgent string

	mu     sync.Mutex
	groups map[string]*robotstxt.Group
	flight singleflight.Group
}

// NewRobotsService creates a RobotsService. If client is nil, a client with
// DefaultFetchTimeout is used.
func NewRobotsService(client *http.Client, userAgent string) *RobotsService {
	if client == nil {
		client = &http.Client{Timeout: DefaultFetchTimeout}
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &RobotsService{
		client:    client,
		userAgent: userAgent,
		groups:    make(map[string]*robotstxt.Group),
	}
}

// Allowed reports whether the user agent may fetch rawURL.
func (s *RobotsService) Allowed(ctx context.Context, rawURL string) (bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false, docindex.Errorf(docindex.EINVALID, "invalid url %q", rawURL)
	}
	group, err := s.group(ctx, u)
	if err != nil {
		return false, err
	}
	if group == nil {
		return true, nil
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return group.Test(path), nil
}

// CrawlDelay returns the Crawl-delay for the domain of rawURL, or zero.
func (s *RobotsService) CrawlDelay(ctx context.Context, rawURL string) time.Duration {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return 0
	}
	group, err := s.group(ctx, u)
	if err != nil || group == nil {
		return 0
	}
	return group.CrawlDelay
}

// group returns the cached rule group for u's domain. A nil group means
// everything is allowed.
func (s *RobotsService) group(ctx context.Context, u *url.URL) (*robotstxt.Group, error) {
	key := u.Scheme + "://" + u.Host

	s.mu.Lock()
	group, ok := s.groups[key]
	s.mu.Unlock()
	if ok {
		return group, nil
	}

	v, err, _ := s.flight.Do(key, func() (any, error) {
		s.mu.Lock()
		group, ok := s.groups[key]
		s.mu.Unlock()
		if ok {
			return group, nil
		}

		group, err := s.fetch(ctx, key)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.groups[key] = group
		s.mu.Unlock()
		return group, nil
	})
	if err != nil {
		return nil, err
	}
	group, _ = v.(*robotstxt.Group)
	return group, nil
}

func (s *RobotsService) fetch(ctx context.Context, origin string) (*robotstxt.Group, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return nil, nil
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, nil
	}
	return data.FindGroup(s.userAgent), nil
}
