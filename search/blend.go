package search

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Defaults used when the search configuration leaves them unset.
const (
	DefaultSnippetChars  = 160
	DefaultLexicalWeight = 0.55
	DefaultVectorWeight  = 0.45
)

// candidate is one hybrid result before blending.
type candidate struct {
	chunkID string
	lexical float64
	vector  float64
	score   float64
}

// normalize rescales xs to [0, 1] by min-max. A stream whose values are all
// equal maps to 1 when they are positive and to 0 otherwise.
func normalize(xs []float64) []float64 {
	out := make([]float64, len(xs))
	if len(xs) == 0 {
		return out
	}
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		lo = min(lo, x)
		hi = max(hi, x)
	}
	if hi == lo {
		if hi > 0 {
			for i := range out {
				out[i] = 1
			}
		}
		return out
	}
	for i, x := range xs {
		out[i] = (x - lo) / (hi - lo)
	}
	return out
}

// blend scores candidates as the weighted mean of their normalized lexical
// and vector scores and orders them best first. Candidates arrive in
// lexical rank order, which exact ties keep.
func blend(cands []*candidate, lexicalWeight, vectorWeight float64) {
	lex := make([]float64, len(cands))
	vec := make([]float64, len(cands))
	for i, c := range cands {
		lex[i] = c.lexical
		vec[i] = c.vector
	}
	lex, vec = normalize(lex), normalize(vec)

	total := lexicalWeight + vectorWeight
	for i, c := range cands {
		c.score = (lexicalWeight*lex[i] + vectorWeight*vec[i]) / total
	}
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].score > cands[j].score
	})
}

// Snippet returns the first n runes of text with line breaks flattened to
// spaces.
func Snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	return string([]rune(text)[:n])
}
