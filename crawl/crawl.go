// Package crawl provides change-aware fetching of seed documents.
// It coordinates robots checks, per-domain rate limiting and budgets,
// conditional fetching with retries and manifest bookkeeping.
package crawl

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fwojciec/docindex"
	"golang.org/x/sync/errgroup"
)

// Defaults used when the Crawler fields are zero.
const (
	DefaultConcurrency  = 4
	DefaultMaxPerDomain = 50
)

// Crawler fetches seeds and records their state in the manifest.
type Crawler struct {
	Fetcher   docindex.Fetcher
	Manifests docindex.ManifestStore
	Raw       docindex.RawStore

	// Robots is consulted before every fetch. Nil ignores robots.txt.
	Robots docindex.RobotsPolicy

	// RateLimiter spaces requests per domain. Nil disables limiting.
	RateLimiter docindex.DomainLimiter

	// Discoverer, when set, expands HTML seeds by one hop after the
	// seeds themselves are fetched.
	Discoverer *Discoverer

	Logger       *slog.Logger
	Concurrency  int
	MaxPerDomain int
	RetryDelays  []time.Duration

	// Now is used for manifest timestamps. Defaults to time.Now.
	Now func() time.Time
}

// Result holds the outcome of a crawl operation.
type Result struct {
	Changed   int
	Unchanged int
	Denied    int
	Failed    int
	Skipped   int

	// States records the terminal state of every URL attempted this run.
	States map[string]docindex.FetchState
}

// Total returns the number of URLs with a terminal state.
func (r *Result) Total() int {
	return r.Changed + r.Unchanged + r.Denied + r.Failed + r.Skipped
}

// ProgressEvent reports progress during a crawl operation.
type ProgressEvent struct {
	Type      ProgressType
	Completed int
	Total     int
	URL       string
	State     docindex.FetchState
	Error     error
}

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	ProgressStarted ProgressType = iota
	ProgressCompleted
	ProgressFailed
	ProgressFinished
)

// ProgressFunc is a callback for reporting crawl progress.
type ProgressFunc func(event ProgressEvent)

// fetchResult holds the outcome of processing a single URL.
type fetchResult struct {
	url   string
	state docindex.FetchState
	entry *docindex.ManifestEntry
	err   error
}

// raiser is implemented by limiters that can honor robots Crawl-delay.
type raiser interface {
	RaiseDelay(domain string, delay time.Duration)
}

// Crawl fetches every seed, then any discovered links, and saves the
// manifest once. The manifest is saved even when ctx is cancelled; it then
// holds exactly the URLs whose fetch completed, in which case the context
// error is returned with the partial result.
//
// Entries for URLs outside this run's seed universe are pruned. URLs that
// were denied, failed or skipped keep their previous entries.
func (c *Crawler) Crawl(ctx context.Context, seeds []*docindex.Seed, progress ProgressFunc) (*Result, error) {
	prior, _, err := c.Manifests.LoadManifest(ctx)
	if err != nil {
		return nil, err
	}
	if prior == nil {
		prior = docindex.Manifest{}
	}

	manifest := prior.Clone()
	result := &Result{States: make(map[string]docindex.FetchState)}
	budget := make(map[string]int)

	universe := make(map[string]bool, len(seeds))
	for _, s := range seeds {
		universe[s.URL] = true
	}

	c.fetchAll(ctx, seeds, prior, manifest, budget, result, progress)

	if c.Discoverer != nil && ctx.Err() == nil {
		found, err := c.Discoverer.Discover(ctx, seeds, manifest)
		if err == nil {
			c.logger().Info("discovered links", "count", len(found))
			for _, s := range found {
				universe[s.URL] = true
			}
			c.fetchAll(ctx, found, prior, manifest, budget, result, progress)
		}
	}

	for u := range manifest {
		if !universe[u] {
			delete(manifest, u)
		}
	}

	if err := c.Manifests.SaveManifest(context.WithoutCancel(ctx), manifest); err != nil {
		return result, err
	}
	return result, ctx.Err()
}

// fetchAll fetches seeds concurrently. The per-domain budget is reserved
// in seed order before dispatch, so which URLs are skipped does not depend
// on scheduling. Results are applied to manifest by the calling goroutine.
func (c *Crawler) fetchAll(
	ctx context.Context,
	seeds []*docindex.Seed,
	prior, manifest docindex.Manifest,
	budget map[string]int,
	result *Result,
	progress ProgressFunc,
) {
	concurrency := c.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	maxPerDomain := c.MaxPerDomain
	if maxPerDomain <= 0 {
		maxPerDomain = DefaultMaxPerDomain
	}

	resultCh := make(chan fetchResult, len(seeds))

	var completed atomic.Int64
	total := len(seeds)

	if progress != nil {
		progress(ProgressEvent{
			Type:  ProgressStarted,
			Total: total,
		})
	}

	var g errgroup.Group
	g.SetLimit(concurrency)

	go func() {
		for _, seed := range seeds {
			if ctx.Err() != nil {
				break
			}
			domain := docindex.Domain(seed.URL)
			if budget[domain] >= maxPerDomain {
				resultCh <- fetchResult{
					url:   seed.URL,
					state: docindex.FetchSkipped,
					err:   docindex.Errorf(docindex.ECONFLICT, "per-domain budget of %d exhausted for %s", maxPerDomain, domain),
				}
				continue
			}
			budget[domain]++

			seed := seed
			old := prior[seed.URL]
			g.Go(func() error {
				resultCh <- c.fetchOne(ctx, seed, old)
				return nil
			})
		}
		_ = g.Wait()
		close(resultCh)
	}()

	for r := range resultCh {
		n := int(completed.Add(1))

		// A fetch interrupted by cancellation has no state for this run.
		if r.state == "" {
			continue
		}

		result.States[r.url] = r.state
		switch r.state {
		case docindex.FetchChanged:
			result.Changed++
			manifest[r.url] = r.entry
		case docindex.FetchUnchanged:
			result.Unchanged++
			manifest[r.url] = r.entry
		case docindex.FetchDenied:
			result.Denied++
		case docindex.FetchFailed:
			result.Failed++
		case docindex.FetchSkipped:
			result.Skipped++
		}

		c.logResult(r)

		if progress == nil {
			continue
		}
		if r.err != nil {
			progress(ProgressEvent{
				Type:      ProgressFailed,
				Completed: n,
				Total:     total,
				URL:       r.url,
				State:     r.state,
				Error:     r.err,
			})
		} else {
			progress(ProgressEvent{
				Type:      ProgressCompleted,
				Completed: n,
				Total:     total,
				URL:       r.url,
				State:     r.state,
			})
		}
	}

	if progress != nil {
		progress(ProgressEvent{
			Type:      ProgressFinished,
			Completed: int(completed.Load()),
			Total:     total,
		})
	}
}

// fetchOne runs the state machine for one URL. old is the entry from the
// manifest as loaded at the start of the run, or nil.
func (c *Crawler) fetchOne(ctx context.Context, seed *docindex.Seed, old *docindex.ManifestEntry) fetchResult {
	result := fetchResult{url: seed.URL}
	domain := docindex.Domain(seed.URL)

	if c.Robots != nil {
		allowed, err := c.Robots.Allowed(ctx, seed.URL)
		if err != nil {
			return c.failed(ctx, result, err)
		}
		if !allowed {
			result.state = docindex.FetchDenied
			result.err = docindex.Errorf(docindex.EROBOTS, "robots.txt disallows %s", seed.URL)
			return result
		}
		if r, ok := c.RateLimiter.(raiser); ok {
			if delay := c.Robots.CrawlDelay(ctx, seed.URL); delay > 0 {
				r.RaiseDelay(domain, delay)
			}
		}
	}

	req := &docindex.FetchRequest{URL: seed.URL}
	if old != nil {
		req.ETag = old.ETag
		req.LastModified = old.LastModified
	}

	fetchFn := func(ctx context.Context, _ string) (*docindex.FetchResponse, error) {
		if c.RateLimiter != nil {
			if err := c.RateLimiter.Wait(ctx, domain); err != nil {
				return nil, err
			}
		}
		return c.Fetcher.Fetch(ctx, req)
	}

	delays := c.RetryDelays
	if delays == nil {
		delays = DefaultRetryDelays()
	}
	logf := func(format string, args ...any) {
		c.logger().Debug("fetch retry", "url", seed.URL, "detail", fmt.Sprintf(format, args...))
	}

	resp, err := FetchWithRetryDelays(ctx, seed.URL, fetchFn, logf, delays)
	if err != nil {
		return c.failed(ctx, result, err)
	}

	if resp.NotModified() {
		if old == nil {
			return c.failed(ctx, result, docindex.Errorf(docindex.EFETCH, "304 without a previous fetch for %s", seed.URL))
		}
		result.state = docindex.FetchUnchanged
		result.entry = old.Clone()
		return result
	}

	sum := sha256.Sum256(resp.Body)
	hash := hex.EncodeToString(sum[:])
	changed := old == nil || old.ContentHash != hash

	var entry *docindex.ManifestEntry
	if old != nil {
		entry = old.Clone()
	} else {
		entry = &docindex.ManifestEntry{URL: seed.URL}
	}
	entry.ETag = resp.ETag
	entry.LastModified = resp.LastModified
	if seed.Title != "" {
		entry.Title = seed.Title
	}
	contentType := seed.Type
	if contentType == "" {
		contentType = docindex.InferContentType(seed.URL, resp.MediaType)
	}
	entry.ContentType = contentType

	if changed || entry.Path == "" || !c.Raw.ExistsRaw(ctx, entry.Path) {
		p, err := c.Raw.SaveRaw(ctx, seed.URL, RawExt(seed.URL, resp.MediaType, contentType), resp.Body)
		if err != nil {
			return c.failed(ctx, result, err)
		}
		entry.Path = p
	}

	if changed {
		entry.ContentHash = hash
		entry.UpdatedAt = c.now().UTC()
		entry.ParseNeeded = true
		result.state = docindex.FetchChanged
	} else {
		result.state = docindex.FetchUnchanged
	}
	result.entry = entry
	return result
}

// failed marks result as Failed with err, unless ctx was cancelled, in
// which case the URL gets no state for this run.
func (c *Crawler) failed(ctx context.Context, result fetchResult, err error) fetchResult {
	if ctx.Err() != nil {
		result.err = ctx.Err()
		return result
	}
	result.state = docindex.FetchFailed
	result.err = err
	return result
}

func (c *Crawler) logResult(r fetchResult) {
	logger := c.logger()
	switch r.state {
	case docindex.FetchChanged, docindex.FetchUnchanged:
		logger.Info("fetched", "url", r.url, "state", r.state)
	case docindex.FetchDenied:
		logger.Warn("robots denied", "url", r.url)
	default:
		logger.Warn("fetch not completed", "url", r.url, "state", r.state, "code", docindex.ErrorCode(r.err), "err", r.err)
	}
}

func (c *Crawler) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}

func (c *Crawler) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// RawExt picks the stored file extension: the URL path extension when it
// is a known document extension, otherwise one derived from the response
// media type, falling back to the content type.
func RawExt(rawURL, mediaType string, contentType docindex.ContentType) string {
	if u, err := url.Parse(rawURL); err == nil {
		switch ext := strings.ToLower(path.Ext(u.Path)); ext {
		case ".html", ".htm", ".pdf":
			return ext
		}
	}
	switch {
	case strings.Contains(mediaType, "pdf"):
		return ".pdf"
	case strings.Contains(mediaType, "html"):
		return ".html"
	}
	return contentType.Ext()
}
