package docindex

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
)

// Default chunking window, in characters.
const (
	DefaultChunkSize    = 900
	DefaultChunkOverlap = 150
)

// Chunk is a contiguous window of a document's normalized text.
type Chunk struct {
	Index int    `json:"chunk_index"`
	ID    string `json:"chunk_id"`
	Text  string `json:"text"`
}

// ChunkID derives a chunk id that is stable across runs for the same
// document, position and text.
func ChunkID(docID string, index int, text string) string {
	textSum := sha256.Sum256([]byte(text))
	sum := sha256.Sum256([]byte(docID + "#" + strconv.Itoa(index) + ":" + hex.EncodeToString(textSum[:])))
	return hex.EncodeToString(sum[:])
}

// ChunkFilter represents a filter for FindChunks.
type ChunkFilter struct {
	ID        *string  `json:"id"`
	IDs       []string `json:"ids"`
	DocID     *string  `json:"docId"`
	SourceURL *string  `json:"sourceUrl"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

var (
	horizontalSpace = regexp.MustCompile(`[ \t\f\v\x{00a0}]+`)
	spaceAroundLF   = regexp.MustCompile(` *\n *`)
	manyLF          = regexp.MustCompile(`\n{3,}`)
)

// NormalizeText collapses horizontal whitespace runs to one space, strips
// spaces around line breaks, collapses three or more line breaks to two and
// trims the result.
func NormalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = horizontalSpace.ReplaceAllString(s, " ")
	s = spaceAroundLF.ReplaceAllString(s, "\n")
	s = manyLF.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// SplitText splits text into windows of size characters where consecutive
// windows overlap by overlap characters. The final window may be shorter.
// Windows are measured in runes so multi-byte scripts split on character
// boundaries.
func SplitText(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	var chunks []string
	for i := 0; i < n; {
		j := min(i+size, n)
		chunks = append(chunks, string(runes[i:j]))
		if j == n {
			break
		}
		i = max(0, j-overlap)
	}
	return chunks
}
