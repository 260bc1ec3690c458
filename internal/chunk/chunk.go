package chunk

import (
	"context"

	"github.com/dshills/chunkspan/pkg/types"
)

// RecordReader gives access to stored record fields.
type RecordReader interface {
	// ReadField returns the stored text of field in the given record
	ReadField(ctx context.Context, recordNum int, field string) (string, error)
	// IsDeleted reports whether the record has been deleted
	IsDeleted(recordNum int) bool
}

// Tokenizer splits text into words. It must produce the same tokens, offsets
// and increments that were used when the chunk was indexed.
type Tokenizer interface {
	Tokenize(text string) []types.Token
}

// Chunk is one loaded window of a document. A Chunk is never modified after
// it is built, so it may be shared by any number of iterators.
type Chunk struct {
	Num        int
	Text       string
	Tokens     []types.Token
	MinWordPos int
	MaxWordPos int
}

// IsBoundary reports whether the chunk has no words. Such chunks mark
// section boundaries inside a document.
func (c *Chunk) IsBoundary() bool {
	return c.MaxWordPos < c.MinWordPos
}

// Covers reports whether pos falls inside the chunk's retained words
func (c *Chunk) Covers(pos int) bool {
	return pos >= c.MinWordPos && pos <= c.MaxWordPos
}
