// Package analysis turns text into the word tokens stored in the index.
//
// WordTokenizer follows Unicode word boundaries (UAX #29), folds case and
// can drop stop words. Dropping a word leaves a hole in the positions, so the
// next kept token carries a position increment greater than one.
package analysis

import (
	"unicode"

	"github.com/rivo/uniseg"
	"golang.org/x/text/cases"

	"github.com/dshills/chunkspan/pkg/types"
)

// WordTokenizer is safe for concurrent use.
type WordTokenizer struct {
	stopWords map[string]struct{}
}

// NewWordTokenizer creates a tokenizer that drops the given stop words.
// Stop words are matched after case folding.
func NewWordTokenizer(stopWords ...string) *WordTokenizer {
	fold := cases.Fold()
	stop := make(map[string]struct{}, len(stopWords))
	for _, w := range stopWords {
		stop[fold.String(w)] = struct{}{}
	}
	return &WordTokenizer{stopWords: stop}
}

// Tokenize splits text into tokens. Offsets are byte offsets into text.
func (t *WordTokenizer) Tokenize(text string) []types.Token {
	// Casers keep state and must not be shared between goroutines
	fold := cases.Fold()

	var tokens []types.Token
	incr := 1
	offset := 0
	state := -1
	rest := text
	for len(rest) > 0 {
		var word string
		word, rest, state = uniseg.FirstWordInString(rest, state)
		start := offset
		offset += len(word)

		if !isWord(word) {
			continue
		}

		term := fold.String(word)
		if _, ok := t.stopWords[term]; ok {
			incr++
			continue
		}

		tokens = append(tokens, types.Token{
			Term:    term,
			Start:   start,
			End:     offset,
			PosIncr: incr,
		})
		incr = 1
	}
	return tokens
}

// Normalize returns the single term text would be indexed as. ok is false
// when text holds no word or more than one.
func (t *WordTokenizer) Normalize(text string) (string, bool) {
	tokens := t.Tokenize(text)
	if len(tokens) != 1 {
		return "", false
	}
	return tokens[0].Term, true
}

func isWord(segment string) bool {
	for _, r := range segment {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
