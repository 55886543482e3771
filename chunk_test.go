package docindex_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/fwojciec/docindex"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapses horizontal whitespace", "a \t  b", "a b"},
		{"strips spaces around newlines", "a  \n  b", "a\nb"},
		{"collapses blank line runs", "a\n\n\n\n b", "a\n\nb"},
		{"keeps paragraph break", "a\n\nb", "a\n\nb"},
		{"converts carriage returns", "a\r\nb\rc", "a\nb\nc"},
		{"trims", "  \n a \n ", "a"},
		{"empty", " \t\n ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, docindex.NormalizeText(tt.in))
		})
	}
}

func TestSplitText(t *testing.T) {
	t.Parallel()

	t.Run("short text yields one chunk", func(t *testing.T) {
		t.Parallel()

		chunks := docindex.SplitText("hello", 900, 150)

		assert.Equal(t, []string{"hello"}, chunks)
	})

	t.Run("empty text yields no chunks", func(t *testing.T) {
		t.Parallel()

		assert.Empty(t, docindex.SplitText("", 900, 150))
	})

	t.Run("windows overlap", func(t *testing.T) {
		t.Parallel()

		text := strings.Repeat("abcdefghij", 200) // 2000 chars

		chunks := docindex.SplitText(text, 900, 150)

		// 0-900, 750-1650, 1500-2000
		assert.Len(t, chunks, 3)
		assert.Len(t, chunks[0], 900)
		assert.Len(t, chunks[1], 900)
		assert.Len(t, chunks[2], 500)
		assert.Equal(t, chunks[0][750:], chunks[1][:150])
		assert.Equal(t, text[1500:], chunks[2])
	})

	t.Run("exact multiple does not produce empty tail", func(t *testing.T) {
		t.Parallel()

		chunks := docindex.SplitText(strings.Repeat("x", 900), 900, 150)

		assert.Len(t, chunks, 1)
	})

	t.Run("counts characters not bytes", func(t *testing.T) {
		t.Parallel()

		text := strings.Repeat("日本語", 400) // 1200 runes

		chunks := docindex.SplitText(text, 900, 150)

		assert.Len(t, chunks, 2)
		assert.Equal(t, 900, utf8.RuneCountInString(chunks[0]))
		assert.Equal(t, 450, utf8.RuneCountInString(chunks[1]))
	})
}

func TestChunkID(t *testing.T) {
	t.Parallel()

	docID := docindex.DocID("https://example.com/a", "hash1")

	a := docindex.ChunkID(docID, 0, "text")
	assert.Equal(t, a, docindex.ChunkID(docID, 0, "text"))
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, docindex.ChunkID(docID, 1, "text"))
	assert.NotEqual(t, a, docindex.ChunkID(docID, 0, "other"))
}
