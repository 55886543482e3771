package docindex

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// FetchRequest describes one conditional GET.
type FetchRequest struct {
	URL string

	// Validators from the previous successful fetch, sent as
	// If-None-Match and If-Modified-Since when non-empty.
	ETag         string
	LastModified string
}

// FetchResponse is a successful fetch: 200 with a body, or 304.
type FetchResponse struct {
	StatusCode   int
	Body         []byte
	ETag         string
	LastModified string
	MediaType    string
}

// NotModified reports whether the server answered 304.
func (r *FetchResponse) NotModified() bool {
	return r.StatusCode == http.StatusNotModified
}

// Fetcher performs conditional GET requests.
type Fetcher interface {
	// Fetch returns the response for 200 and 304. Any other final status
	// is returned as *HTTPError.
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResponse, error)
}

// HTTPError reports a final response status other than 200 or 304.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// Temporary reports whether retrying the request may succeed.
func (e *HTTPError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// RobotsPolicy answers robots exclusion questions. Policies are resolved
// once per domain.
type RobotsPolicy interface {
	// Allowed reports whether the configured user agent may fetch rawURL.
	Allowed(ctx context.Context, rawURL string) (bool, error)

	// CrawlDelay returns the crawl delay the domain of rawURL asks for,
	// or zero.
	CrawlDelay(ctx context.Context, rawURL string) time.Duration
}

// DomainLimiter provides per-domain rate limiting.
type DomainLimiter interface {
	// Wait blocks until the rate limit allows a request to the domain.
	// Returns an error if the context is canceled.
	Wait(ctx context.Context, domain string) error
}

// FetchState is the per-run outcome for one URL.
type FetchState string

// Fetch states. Each is terminal for the run.
const (
	FetchUnchanged FetchState = "unchanged"
	FetchChanged   FetchState = "changed"
	FetchDenied    FetchState = "denied"
	FetchFailed    FetchState = "failed"
	FetchSkipped   FetchState = "skipped"
)
