// Package bloom remembers which URLs a discovery pass has already seen.
package bloom

import "github.com/bits-and-blooms/bloom/v3"

// URLSet is a probabilistic set of URLs. Membership tests may report a URL
// that was never added, at roughly the configured rate, but never miss one
// that was.
type URLSet struct {
	f *bloom.BloomFilter
}

// NewURLSet returns a set sized for n URLs at false positive rate fpRate.
func NewURLSet(n uint, fpRate float64) *URLSet {
	if n == 0 {
		n = 1
	}
	return &URLSet{f: bloom.NewWithEstimates(n, fpRate)}
}

// Add records url.
func (s *URLSet) Add(url string) {
	s.f.AddString(url)
}

// Contains reports whether url may have been added.
func (s *URLSet) Contains(url string) bool {
	return s.f.TestString(url)
}

// Insert records url and reports whether it was new. A false positive
// makes a new URL look old.
func (s *URLSet) Insert(url string) bool {
	return !s.f.TestAndAddString(url)
}

// Len estimates how many distinct URLs were added.
func (s *URLSet) Len() int {
	return int(s.f.ApproximatedSize())
}
