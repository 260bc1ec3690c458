// Package spans provides the span queries used to search chunked documents.
//
// TermQuery is the primitive: every occurrence of one term, one word long.
// Two combinators make chunk records look like whole documents:
//
//   - DechunkingQuery maps each match from its chunk record to the owning
//     document and shifts its positions by the chunk's offset. It must be the
//     outermost query because overlap can make its output repeat or go out of
//     order.
//   - ChunkedNotQuery removes include matches that have an exclude match
//     within slop words, measuring the distance across chunk boundaries.
//
// A typical search:
//
//	not, err := spans.NewChunkedNotQuery(
//	    spans.NewTermQuery("text", "whale"),
//	    spans.NewTermQuery("text", "white"),
//	    10,
//	)
//	if err != nil {
//	    return err
//	}
//	not.SetSlop(10, geom.Bump())
//
//	q := spans.NewDechunkingQuery(not)
//	q.SetDocNumMap(docMap)
//	sp, err := q.Spans(ctx, postings)
//
// Positions in spans are word positions; End is exclusive.
package spans
