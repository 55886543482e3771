package bloom_test

import (
	"fmt"
	"testing"

	"github.com/fwojciec/docindex/bloom"
	"github.com/stretchr/testify/assert"
)

func TestURLSet(t *testing.T) {
	t.Parallel()

	t.Run("added URLs are contained", func(t *testing.T) {
		t.Parallel()

		s := bloom.NewURLSet(1000, 0.01)

		assert.False(t, s.Contains("https://example.com/a"))
		s.Add("https://example.com/a")
		assert.True(t, s.Contains("https://example.com/a"))
		assert.False(t, s.Contains("https://example.com/b"))
	})

	t.Run("insert reports new URLs once", func(t *testing.T) {
		t.Parallel()

		s := bloom.NewURLSet(1000, 0.01)

		assert.True(t, s.Insert("https://example.com/a"))
		assert.False(t, s.Insert("https://example.com/a"))
		assert.True(t, s.Contains("https://example.com/a"))
	})

	t.Run("len estimates distinct URLs", func(t *testing.T) {
		t.Parallel()

		s := bloom.NewURLSet(1000, 0.01)
		for i := range 100 {
			s.Add(fmt.Sprintf("https://example.com/page/%d", i))
			s.Add(fmt.Sprintf("https://example.com/page/%d", i))
		}

		assert.InDelta(t, 100, s.Len(), 5)
	})

	t.Run("zero capacity is usable", func(t *testing.T) {
		t.Parallel()

		s := bloom.NewURLSet(0, 0.01)
		s.Add("https://example.com/a")

		assert.True(t, s.Contains("https://example.com/a"))
	})
}
