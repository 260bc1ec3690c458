package spans

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// match is one span produced by a staticQuery
type match struct {
	doc, start, end int
}

// staticQuery replays a fixed, ordered list of matches
type staticQuery struct {
	field   string
	matches []match
}

func (q *staticQuery) Field() string   { return q.field }
func (q *staticQuery) Terms() []string { return []string{"static"} }
func (q *staticQuery) String() string  { return fmt.Sprintf("static(%d)", len(q.matches)) }

func (q *staticQuery) Rewrite(ctx context.Context, r PostingsReader) (Query, error) {
	return q, nil
}

func (q *staticQuery) Spans(ctx context.Context, r PostingsReader) (Spans, error) {
	return &staticSpans{matches: q.matches, idx: -1}, nil
}

type staticSpans struct {
	matches []match
	idx     int
}

func (s *staticSpans) Next(ctx context.Context) (bool, error) {
	if s.idx < len(s.matches) {
		s.idx++
	}
	return s.idx < len(s.matches), nil
}

func (s *staticSpans) SkipTo(ctx context.Context, target int) (bool, error) {
	for {
		ok, err := s.Next(ctx)
		if !ok || err != nil {
			return ok, err
		}
		if s.Doc() >= target {
			return true, nil
		}
	}
}

func (s *staticSpans) Doc() int   { return s.matches[s.idx].doc }
func (s *staticSpans) Start() int { return s.matches[s.idx].start }
func (s *staticSpans) End() int   { return s.matches[s.idx].end }

// mapReader serves postings from memory
type mapReader map[string][]Posting

func (r mapReader) Positions(ctx context.Context, field, term string) ([]Posting, error) {
	return r[field+":"+term], nil
}

// collect drains spans into matches
func collect(t *testing.T, sp Spans) []match {
	t.Helper()
	var out []match
	for {
		ok, err := sp.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			return out
		}
		out = append(out, match{sp.Doc(), sp.Start(), sp.End()})
	}
}
