package spans

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sort"
)

// TermQuery matches every occurrence of a single term
type TermQuery struct {
	field string
	term  string
}

// NewTermQuery creates a query for term in field
func NewTermQuery(field, term string) *TermQuery {
	return &TermQuery{field: field, term: term}
}

func (q *TermQuery) Field() string   { return q.field }
func (q *TermQuery) Term() string    { return q.term }
func (q *TermQuery) Terms() []string { return []string{q.term} }

func (q *TermQuery) Rewrite(ctx context.Context, r PostingsReader) (Query, error) {
	return q, nil
}

func (q *TermQuery) Spans(ctx context.Context, r PostingsReader) (Spans, error) {
	postings, err := r.Positions(ctx, q.field, q.term)
	if err != nil {
		return nil, fmt.Errorf("failed to read postings for %s: %w", q, err)
	}
	if !slices.IsSortedFunc(postings, comparePostings) {
		postings = slices.Clone(postings)
		slices.SortFunc(postings, comparePostings)
	}
	return &termSpans{postings: postings, idx: -1}, nil
}

func (q *TermQuery) String() string {
	return fmt.Sprintf("spanTerm(%s:%s)", q.field, q.term)
}

func comparePostings(a, b Posting) int {
	if c := cmp.Compare(a.Record, b.Record); c != 0 {
		return c
	}
	return cmp.Compare(a.Position, b.Position)
}

type termSpans struct {
	postings []Posting
	idx      int
}

func (s *termSpans) Next(ctx context.Context) (bool, error) {
	if s.idx < len(s.postings) {
		s.idx++
	}
	return s.idx < len(s.postings), nil
}

func (s *termSpans) SkipTo(ctx context.Context, target int) (bool, error) {
	if ok, _ := s.Next(ctx); !ok {
		return false, nil
	}
	if s.postings[s.idx].Record < target {
		rest := s.postings[s.idx:]
		s.idx += sort.Search(len(rest), func(i int) bool {
			return rest[i].Record >= target
		})
	}
	return s.idx < len(s.postings), nil
}

func (s *termSpans) Doc() int   { return s.postings[s.idx].Record }
func (s *termSpans) Start() int { return s.postings[s.idx].Position }
func (s *termSpans) End() int   { return s.postings[s.idx].Position + 1 }

func (s *termSpans) Explain() (string, error) {
	if s.idx < 0 || s.idx >= len(s.postings) {
		return "", fmt.Errorf("no current match")
	}
	p := s.postings[s.idx]
	return fmt.Sprintf("term at record %d position %d", p.Record, p.Position), nil
}
