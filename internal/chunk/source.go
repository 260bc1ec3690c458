package chunk

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/dshills/chunkspan/pkg/logger"
	"github.com/dshills/chunkspan/pkg/types"
)

// DefaultCacheSize is the number of chunks a Source keeps loaded
const DefaultCacheSize = 10

// SourceOption configures a Source
type SourceOption func(*Source)

// WithCacheSize sets how many chunks the source keeps. Values below 1 are
// treated as 1.
func WithCacheSize(n int) SourceOption {
	return func(s *Source) {
		s.cacheSize = n
	}
}

// Source loads the chunks of one document field and caches them.
//
// The cache is filled in load order and evicts the oldest load first; reading
// a cached chunk does not refresh it. A Source is not safe for concurrent use.
type Source struct {
	reader    RecordReader
	tokenizer Tokenizer
	field     string
	docID     int
	geom      Geometry

	firstChunk int
	lastChunk  int

	cacheSize int
	cache     *lru.Cache[int, *Chunk]
}

// NewSource creates a source for field of the document docID
func NewSource(reader RecordReader, docMap DocNumMap, docID int, field string, tok Tokenizer, opts ...SourceOption) (*Source, error) {
	geom := Geometry{ChunkSize: docMap.ChunkSize(), ChunkOverlap: docMap.ChunkOverlap()}
	if err := geom.Validate(); err != nil {
		return nil, err
	}

	first := docMap.FirstChunk(docID)
	last := docMap.LastChunk(docID)
	if first == NoDoc || last == NoDoc {
		return nil, fmt.Errorf("%w: %d", types.ErrUnknownDoc, docID)
	}

	s := &Source{
		reader:     reader,
		tokenizer:  tok,
		field:      field,
		docID:      docID,
		geom:       geom,
		firstChunk: first,
		lastChunk:  last,
		cacheSize:  DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cacheSize < 1 {
		s.cacheSize = 1
	}

	cache, err := lru.New[int, *Chunk](s.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create chunk cache: %w", err)
	}
	s.cache = cache

	return s, nil
}

func (s *Source) ChunkSize() int     { return s.geom.ChunkSize }
func (s *Source) ChunkOverlap() int  { return s.geom.ChunkOverlap }
func (s *Source) Bump() int          { return s.geom.Bump() }
func (s *Source) FirstChunk() int    { return s.firstChunk }
func (s *Source) LastChunk() int     { return s.lastChunk }
func (s *Source) DocID() int         { return s.docID }
func (s *Source) Field() string      { return s.field }
func (s *Source) Geometry() Geometry { return s.geom }

// InMainDoc reports whether chunkNum belongs to this document and has not
// been deleted.
func (s *Source) InMainDoc(chunkNum int) bool {
	if chunkNum < s.firstChunk || chunkNum > s.lastChunk {
		return false
	}
	return !s.reader.IsDeleted(chunkNum)
}

// LoadChunk returns the chunk numbered chunkNum, reading and tokenizing it if
// it is not cached.
//
// Every chunk except the document's last drops the tokens that the next chunk
// starts with, and its text is cut at the first dropped token. Positions of
// the kept tokens are document word positions.
func (s *Source) LoadChunk(ctx context.Context, chunkNum int) (*Chunk, error) {
	if c, ok := s.cache.Peek(chunkNum); ok {
		return c, nil
	}

	if chunkNum < s.firstChunk || chunkNum > s.lastChunk {
		return nil, fmt.Errorf("%w: chunk %d not in [%d, %d] of doc %d",
			types.ErrChunkOutOfRange, chunkNum, s.firstChunk, s.lastChunk, s.docID)
	}

	text, err := s.reader.ReadField(ctx, chunkNum, s.field)
	if err != nil {
		return nil, fmt.Errorf("failed to read chunk %d: %w", chunkNum, err)
	}

	bump := s.geom.Bump()
	c := &Chunk{
		Num:        chunkNum,
		Text:       text,
		MinWordPos: (chunkNum - s.firstChunk) * bump,
	}
	c.MaxWordPos = c.MinWordPos - 1

	tokens := s.tokenizer.Tokenize(text)
	kept := make([]types.Token, 0, len(tokens))
	wordPos := c.MaxWordPos
	for _, tok := range tokens {
		wordPos += tok.PosIncr
		if chunkNum < s.lastChunk && wordPos >= c.MinWordPos+bump {
			c.Text = text[:tok.Start]
			break
		}
		kept = append(kept, tok)
		c.MaxWordPos = wordPos
	}
	c.Tokens = kept

	// Add evicts the oldest load once the cache is full
	s.cache.Add(chunkNum, c)

	logger.WithFields(logrus.Fields{
		"doc":          s.docID,
		"chunk":        chunkNum,
		"tokens":       len(kept),
		"min_word_pos": c.MinWordPos,
		"max_word_pos": c.MaxWordPos,
	}).Debug("loaded chunk")

	return c, nil
}

// cached reports whether chunkNum is in the cache without touching it
func (s *Source) cached(chunkNum int) bool {
	return s.cache.Contains(chunkNum)
}
