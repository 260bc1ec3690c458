package spans

import "context"

// Spans is a stream of matches ordered by record, then start position.
// A fresh Spans is positioned before its first match.
type Spans interface {
	// Next advances to the next match
	Next(ctx context.Context) (bool, error)
	// SkipTo advances at least once, then on to the first match whose record
	// is >= target. It behaves as if written:
	//
	//	for {
	//	    if ok, err := Next(ctx); !ok || err != nil {
	//	        return ok, err
	//	    }
	//	    if Doc() >= target {
	//	        return true, nil
	//	    }
	//	}
	SkipTo(ctx context.Context, target int) (bool, error)
	// Doc is the record of the current match
	Doc() int
	// Start is the position of the first word of the current match
	Start() int
	// End is the position just past the last word of the current match
	End() int
}

// Explainer is implemented by spans that can describe their current match
type Explainer interface {
	Explain() (string, error)
}

// Posting is one occurrence of a term
type Posting struct {
	Record   int
	Position int
}

// PostingsReader returns the occurrences of a term, ordered by record then
// position.
type PostingsReader interface {
	Positions(ctx context.Context, field, term string) ([]Posting, error)
}

// Query produces spans over an index
type Query interface {
	Field() string
	// Terms lists the terms the query matches
	Terms() []string
	// Rewrite returns an equivalent query in primitive form. A query that is
	// already primitive returns itself.
	Rewrite(ctx context.Context, r PostingsReader) (Query, error)
	Spans(ctx context.Context, r PostingsReader) (Spans, error)
	String() string
}
