package spans

import (
	"context"
	"fmt"

	"github.com/dshills/chunkspan/internal/chunk"
	"github.com/dshills/chunkspan/pkg/types"
)

// DechunkingQuery translates matches found in chunk records into matches in
// the owning document. Positions are shifted by the chunk's offset within
// its document.
//
// The output is not guaranteed to be ordered: matches inside a chunk overlap
// may be reported twice and out of sequence. Use it only as the outermost
// query.
type DechunkingQuery struct {
	inner  Query
	docMap chunk.DocNumMap
}

// NewDechunkingQuery wraps inner. SetDocNumMap must be called before Spans.
func NewDechunkingQuery(inner Query) *DechunkingQuery {
	return &DechunkingQuery{inner: inner}
}

// SetDocNumMap sets the map used to find the document owning each chunk
func (q *DechunkingQuery) SetDocNumMap(m chunk.DocNumMap) {
	q.docMap = m
}

func (q *DechunkingQuery) Inner() Query    { return q.inner }
func (q *DechunkingQuery) Field() string   { return q.inner.Field() }
func (q *DechunkingQuery) Terms() []string { return q.inner.Terms() }

// Rewrite rewrites the wrapped query, returning q itself when nothing
// changed.
func (q *DechunkingQuery) Rewrite(ctx context.Context, r PostingsReader) (Query, error) {
	rewritten, err := q.inner.Rewrite(ctx, r)
	if err != nil {
		return nil, err
	}
	if rewritten == q.inner {
		return q, nil
	}
	clone := *q
	clone.inner = rewritten
	return &clone, nil
}

func (q *DechunkingQuery) Spans(ctx context.Context, r PostingsReader) (Spans, error) {
	if q.docMap == nil {
		return nil, types.ErrNoDocNumMap
	}
	geom := chunk.Geometry{ChunkSize: q.docMap.ChunkSize(), ChunkOverlap: q.docMap.ChunkOverlap()}
	if err := geom.Validate(); err != nil {
		return nil, err
	}

	inner, err := q.inner.Spans(ctx, r)
	if err != nil {
		return nil, err
	}
	return &dechunkSpans{
		spans:      inner,
		docMap:     q.docMap,
		bump:       geom.Bump(),
		mainDoc:    chunk.NoDoc,
		firstChunk: chunk.NoDoc,
		lastChunk:  chunk.NoDoc,
	}, nil
}

func (q *DechunkingQuery) String() string {
	return fmt.Sprintf("spanDechunk(%s)", q.inner)
}

type dechunkSpans struct {
	spans  Spans
	docMap chunk.DocNumMap
	bump   int

	mainDoc    int
	firstChunk int
	lastChunk  int
	offset     int
}

func (s *dechunkSpans) Next(ctx context.Context) (bool, error) {
	ok, err := s.spans.Next(ctx)
	if err != nil || !ok {
		return false, err
	}
	if err := s.update(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *dechunkSpans) SkipTo(ctx context.Context, target int) (bool, error) {
	first := s.docMap.FirstChunk(target)
	if first < 0 || target < first {
		first = target
	}
	ok, err := s.spans.SkipTo(ctx, first)
	if err != nil || !ok {
		return false, err
	}
	if err := s.update(); err != nil {
		return false, err
	}
	return true, nil
}

// update refreshes the document range only when the chunk moves past the
// range already known.
func (s *dechunkSpans) update() error {
	chunkNum := s.spans.Doc()
	if chunkNum > s.lastChunk {
		doc := s.docMap.DocNum(chunkNum)
		if doc == chunk.NoDoc {
			return fmt.Errorf("%w: no document owns chunk %d", types.ErrUnknownDoc, chunkNum)
		}
		s.mainDoc = doc
		s.firstChunk = s.docMap.FirstChunk(doc)
		s.lastChunk = s.docMap.LastChunk(doc)
	}
	s.offset = (chunkNum - s.firstChunk) * s.bump
	return nil
}

func (s *dechunkSpans) Doc() int   { return s.mainDoc }
func (s *dechunkSpans) Start() int { return s.spans.Start() + s.offset }
func (s *dechunkSpans) End() int   { return s.spans.End() + s.offset }

func (s *dechunkSpans) Explain() (string, error) {
	e, ok := s.spans.(Explainer)
	if !ok {
		return "", types.ErrExplainUnsupported
	}
	return e.Explain()
}
