// Package limit caps the amount of postings work a single query may do.
package limit

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/dshills/chunkspan/internal/spans"
	"github.com/dshills/chunkspan/pkg/types"
)

// Reader wraps a PostingsReader and counts every position it hands out as
// one unit of work. Once the total exceeds the limit, Positions returns
// types.ErrExcessiveWork. A limit of zero or less disables the check.
type Reader struct {
	wrapped spans.PostingsReader
	limit   int64
	work    atomic.Int64
}

// NewReader creates a limiter around r
func NewReader(r spans.PostingsReader, limit int) *Reader {
	return &Reader{wrapped: r, limit: int64(limit)}
}

func (r *Reader) Positions(ctx context.Context, field, term string) ([]spans.Posting, error) {
	postings, err := r.wrapped.Positions(ctx, field, term)
	if err != nil {
		return nil, err
	}
	if err := r.add(len(postings)); err != nil {
		return nil, fmt.Errorf("reading %s:%s: %w", field, term, err)
	}
	return postings, nil
}

// Charge counts n units of work done outside the reader, such as matches
// consumed by the caller.
func (r *Reader) Charge(n int) error {
	return r.add(n)
}

// Work returns the work counted so far
func (r *Reader) Work() int {
	return int(r.work.Load())
}

func (r *Reader) add(n int) error {
	total := r.work.Add(int64(n))
	if r.limit > 0 && total > r.limit {
		return fmt.Errorf("%w: %d > %d", types.ErrExcessiveWork, total, r.limit)
	}
	return nil
}
