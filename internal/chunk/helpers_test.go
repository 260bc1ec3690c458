package chunk

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dshills/chunkspan/pkg/types"
)

const testField = "text"

// memReader serves chunk text from memory and counts reads per record
type memReader struct {
	texts   map[int]string
	deleted map[int]bool
	reads   map[int]int
}

func newMemReader() *memReader {
	return &memReader{
		texts:   make(map[int]string),
		deleted: make(map[int]bool),
		reads:   make(map[int]int),
	}
}

func (r *memReader) ReadField(ctx context.Context, recordNum int, field string) (string, error) {
	r.reads[recordNum]++
	text, ok := r.texts[recordNum]
	if !ok || field != testField {
		return "", fmt.Errorf("record %d field %s: not found", recordNum, field)
	}
	return text, nil
}

func (r *memReader) IsDeleted(recordNum int) bool {
	return r.deleted[recordNum]
}

// spaceTokenizer splits on single spaces. Words starting with '~' are
// treated as stop words: they are dropped and raise the next increment.
type spaceTokenizer struct{}

func (spaceTokenizer) Tokenize(text string) []types.Token {
	var tokens []types.Token
	incr := 1
	offset := 0
	for _, word := range strings.Split(text, " ") {
		start := offset
		offset += len(word) + 1
		if word == "" {
			continue
		}
		if strings.HasPrefix(word, "~") {
			incr++
			continue
		}
		tokens = append(tokens, types.Token{Term: word, Start: start, End: start + len(word), PosIncr: incr})
		incr = 1
	}
	return tokens
}

// fixture lays documents out as chunk records followed by a header record
type fixture struct {
	geom    Geometry
	reader  *memReader
	next    int
	first   int
	headers []int
}

func newFixture(size, overlap int) *fixture {
	return &fixture{
		geom:   Geometry{ChunkSize: size, ChunkOverlap: overlap},
		reader: newMemReader(),
		next:   1,
		first:  1,
	}
}

// addDoc stores one document. Sections are separated by an empty chunk.
func (f *fixture) addDoc(sections ...[]string) int {
	bump := f.geom.Bump()
	for i, words := range sections {
		if i > 0 {
			f.reader.texts[f.next] = ""
			f.next++
		}
		for start := 0; ; start += bump {
			end := start + f.geom.ChunkSize
			if end > len(words) {
				end = len(words)
			}
			f.reader.texts[f.next] = strings.Join(words[start:end], " ")
			f.next++
			if start+bump >= len(words) {
				break
			}
		}
	}
	doc := f.next
	f.headers = append(f.headers, doc)
	f.next++
	return doc
}

func (f *fixture) docMap(t *testing.T) *HeaderMap {
	t.Helper()
	m, err := NewHeaderMap(f.geom, f.headers, f.first)
	require.NoError(t, err)
	return m
}

func (f *fixture) source(t *testing.T, doc int, opts ...SourceOption) *Source {
	t.Helper()
	src, err := NewSource(f.reader, f.docMap(t), doc, testField, spaceTokenizer{}, opts...)
	require.NoError(t, err)
	return src
}

func words(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return out
}
