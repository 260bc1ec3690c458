package spans

import (
	"context"
	"fmt"

	"github.com/dshills/chunkspan/pkg/types"
)

// ChunkedNotQuery matches the include query except where an exclude match
// lies within slop words of it. Distances are measured across chunk
// boundaries: adjacent chunk records are treated as consecutive windows of
// chunkBump words.
//
// An include match is kept when
//
//	excludeStart - slop >= includeEnd  or  excludeEnd + slop <= includeStart
//
// for every exclude match, so a gap of exactly slop words does not suppress.
type ChunkedNotQuery struct {
	include Query
	exclude Query
	slop    int
	bump    int
}

// NewChunkedNotQuery returns a query for include matches not near exclude
// matches. Both queries must search the same field.
func NewChunkedNotQuery(include, exclude Query, slop int) (*ChunkedNotQuery, error) {
	if include.Field() != exclude.Field() {
		return nil, fmt.Errorf("%w: %q and %q", types.ErrFieldMismatch, include.Field(), exclude.Field())
	}
	return &ChunkedNotQuery{include: include, exclude: exclude, slop: slop, bump: 1}, nil
}

// SetSlop sets the exclusion distance and the distance in words between the
// starts of consecutive chunks.
func (q *ChunkedNotQuery) SetSlop(slop, chunkBump int) {
	q.slop = slop
	q.bump = chunkBump
}

func (q *ChunkedNotQuery) Slop() int       { return q.slop }
func (q *ChunkedNotQuery) Include() Query  { return q.include }
func (q *ChunkedNotQuery) Exclude() Query  { return q.exclude }
func (q *ChunkedNotQuery) Field() string   { return q.include.Field() }
func (q *ChunkedNotQuery) Terms() []string { return q.include.Terms() }

// Rewrite rewrites both clauses, returning q itself when neither changed
func (q *ChunkedNotQuery) Rewrite(ctx context.Context, r PostingsReader) (Query, error) {
	include, err := q.include.Rewrite(ctx, r)
	if err != nil {
		return nil, err
	}
	exclude, err := q.exclude.Rewrite(ctx, r)
	if err != nil {
		return nil, err
	}
	if include == q.include && exclude == q.exclude {
		return q, nil
	}
	clone := *q
	clone.include = include
	clone.exclude = exclude
	return &clone, nil
}

func (q *ChunkedNotQuery) Spans(ctx context.Context, r PostingsReader) (Spans, error) {
	include, err := q.include.Spans(ctx, r)
	if err != nil {
		return nil, err
	}
	exclude, err := q.exclude.Spans(ctx, r)
	if err != nil {
		return nil, err
	}
	return &chunkedNotSpans{
		include:     include,
		exclude:     exclude,
		slop:        q.slop,
		bump:        q.bump,
		moreInclude: true,
		moreExclude: true,
		firstTime:   true,
	}, nil
}

func (q *ChunkedNotQuery) String() string {
	return fmt.Sprintf("spanChunkedNot(%s, %s)", q.include, q.exclude)
}

type chunkedNotSpans struct {
	include Spans
	exclude Spans
	slop    int
	bump    int

	moreInclude bool
	moreExclude bool
	firstTime   bool
}

func (s *chunkedNotSpans) Next(ctx context.Context) (bool, error) {
	var err error
	if s.moreInclude {
		if s.moreInclude, err = s.include.Next(ctx); err != nil {
			return false, err
		}
	}
	if err := s.primeExclude(ctx); err != nil {
		return false, err
	}

	for s.moreInclude && s.moreExclude {
		if err := s.catchUpExclude(ctx); err != nil {
			return false, err
		}
		if s.includeClear() {
			break
		}
		if s.moreInclude, err = s.include.Next(ctx); err != nil {
			return false, err
		}
	}
	return s.moreInclude, nil
}

func (s *chunkedNotSpans) SkipTo(ctx context.Context, target int) (bool, error) {
	var err error
	if s.moreInclude {
		if s.moreInclude, err = s.include.SkipTo(ctx, target); err != nil {
			return false, err
		}
	}
	if !s.moreInclude {
		return false, nil
	}
	if err := s.primeExclude(ctx); err != nil {
		return false, err
	}
	if !s.moreExclude {
		return true, nil
	}

	if err := s.catchUpExclude(ctx); err != nil {
		return false, err
	}
	if s.includeClear() {
		return true, nil
	}
	return s.Next(ctx)
}

func (s *chunkedNotSpans) Doc() int   { return s.include.Doc() }
func (s *chunkedNotSpans) Start() int { return s.include.Start() }
func (s *chunkedNotSpans) End() int   { return s.include.End() }

func (s *chunkedNotSpans) Explain() (string, error) {
	return "", types.ErrExplainUnsupported
}

func (s *chunkedNotSpans) primeExclude(ctx context.Context) error {
	if !s.firstTime {
		return nil
	}
	s.firstTime = false
	var err error
	s.moreExclude, err = s.exclude.Next(ctx)
	return err
}

// catchUpExclude moves the exclude stream up to the first match that is not
// entirely more than slop words before the current include match.
func (s *chunkedNotSpans) catchUpExclude(ctx context.Context) error {
	// A match starting within slop words of its chunk's start may be
	// excluded by a match at the end of the previous chunk.
	includeDoc := s.include.Doc()
	if s.include.Start() < s.slop {
		includeDoc--
	}

	var err error
	if s.moreExclude && includeDoc > s.exclude.Doc() {
		if s.moreExclude, err = s.exclude.SkipTo(ctx, includeDoc); err != nil {
			return err
		}
	}
	for s.moreExclude && s.endPos(s.exclude)+s.slop <= s.startPos(s.include) {
		if s.moreExclude, err = s.exclude.Next(ctx); err != nil {
			return err
		}
	}
	return nil
}

// includeClear reports whether the current include match survives the
// current exclude match.
func (s *chunkedNotSpans) includeClear() bool {
	return !s.moreExclude || s.endPos(s.include) <= s.startPos(s.exclude)-s.slop
}

// baseDoc anchors virtual positions so that the two streams can be compared
// across chunk records.
func (s *chunkedNotSpans) baseDoc() int {
	switch {
	case !s.moreInclude && !s.moreExclude:
		return 0
	case !s.moreInclude:
		return s.exclude.Doc()
	case !s.moreExclude:
		return s.include.Doc()
	default:
		return min(s.include.Doc(), s.exclude.Doc())
	}
}

func (s *chunkedNotSpans) startPos(sp Spans) int {
	return (sp.Doc()-s.baseDoc())*s.bump + sp.Start()
}

func (s *chunkedNotSpans) endPos(sp Spans) int {
	return (sp.Doc()-s.baseDoc())*s.bump + sp.End()
}
