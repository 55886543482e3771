package crawl

import (
	"container/heap"
	"strings"
	"sync"

	"github.com/fwojciec/docindex/bloom"
)

// Frontier is an in-memory URL queue with Bloom filter deduplication.
// URLs are popped in lexical order so a discovery pass is reproducible.
// It is safe for concurrent use by multiple goroutines.
type Frontier struct {
	mu    sync.Mutex
	seen  *bloom.URLSet
	queue *urlHeap
}

// NewFrontier creates a new Frontier sized for n expected URLs
// with the given false positive rate for deduplication.
func NewFrontier(n uint, fpRate float64) *Frontier {
	h := &urlHeap{}
	heap.Init(h)
	return &Frontier{
		seen:  bloom.NewURLSet(n, fpRate),
		queue: h,
	}
}

// Push adds a URL to the frontier.
// Returns false if the URL has already been seen.
// URL fragments are stripped before deduplication - URLs differing only by fragment
// are considered duplicates.
func (f *Frontier) Push(rawURL string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	url := stripFragment(rawURL)
	if !f.seen.Insert(url) {
		return false
	}
	heap.Push(f.queue, url)
	return true
}

// MarkSeen records url as seen without queueing it.
func (f *Frontier) MarkSeen(rawURL string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen.Add(stripFragment(rawURL))
}

// Pop returns the lexically smallest queued URL.
// The bool result is false if the frontier is empty.
func (f *Frontier) Pop() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.queue.Len() == 0 {
		return "", false
	}
	url, _ := heap.Pop(f.queue).(string)
	return url, true
}

// Len returns the number of URLs in the queue.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queue.Len()
}

// Seen returns true if the URL has been queued or marked seen.
// URL fragments are stripped before checking.
func (f *Frontier) Seen(rawURL string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen.Contains(stripFragment(rawURL))
}

func stripFragment(url string) string {
	if idx := strings.Index(url, "#"); idx != -1 {
		return url[:idx]
	}
	return url
}

// urlHeap implements heap.Interface as a min-heap of URLs.
type urlHeap []string

func (h urlHeap) Len() int { return len(h) }

func (h urlHeap) Less(i, j int) bool { return h[i] < h[j] }

func (h urlHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *urlHeap) Push(x any) {
	url, _ := x.(string)
	*h = append(*h, url)
}

func (h *urlHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}
