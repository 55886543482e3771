package docindex

import (
	"strings"
	"unicode"
)

// Token is one lexical term with its rune offsets in the lowercased input.
type Token struct {
	Term  string
	Start int
	End   int
}

// Tokenize splits text into lexical terms. Text is lowercased; runs of
// Japanese or Chinese characters become overlapping character bigrams (a
// single isolated character is kept as is); runs of other letters and
// digits become one term each. Everything else separates terms.
func Tokenize(text string) []Token {
	runes := []rune(strings.ToLower(text))
	var tokens []Token

	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case isCJK(r):
			j := i
			for j < len(runes) && isCJK(runes[j]) {
				j++
			}
			if j-i == 1 {
				tokens = append(tokens, Token{Term: string(runes[i:j]), Start: i, End: j})
			}
			for k := i; k+1 < j; k++ {
				tokens = append(tokens, Token{Term: string(runes[k : k+2]), Start: k, End: k + 2})
			}
			i = j
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			j := i
			for j < len(runes) && !isCJK(runes[j]) && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j])) {
				j++
			}
			tokens = append(tokens, Token{Term: string(runes[i:j]), Start: i, End: j})
			i = j
		default:
			i++
		}
	}
	return tokens
}

// Terms returns just the terms of Tokenize(text).
func Terms(text string) []string {
	tokens := Tokenize(text)
	terms := make([]string, len(tokens))
	for i, t := range tokens {
		terms[i] = t.Term
	}
	return terms
}

func isCJK(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana) || r == 'ー'
}
