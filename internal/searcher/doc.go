// Package searcher runs single-term searches over a chunked text index and
// returns the matching documents with a snippet per hit.
//
// # Basic Usage
//
//	s := searcher.NewSearcher(store, analysis.NewWordTokenizer(), searcher.Options{})
//
//	resp, err := s.Search(ctx, searcher.SearchRequest{
//	    Term:         "whale",
//	    Limit:        10,
//	    ContextWords: 5,
//	})
//
//	for _, result := range resp.Results {
//	    for _, snippet := range result.Snippets {
//	        fmt.Printf("[%s@%d] %s\n", result.DocKey, snippet.Start, snippet.Text)
//	    }
//	}
//
// # Exclusion
//
// An Exclude term drops the hits that lie within Slop words of it. Distances
// are measured in document words, including across chunk boundaries:
//
//	resp, err := s.Search(ctx, searcher.SearchRequest{
//	    Term:    "whale",
//	    Exclude: "ship",
//	    Slop:    3,
//	})
//
// A gap of exactly Slop words keeps the hit.
//
// # Pipeline
//
// Each search opens a storage snapshot and builds
//
//	spanDechunk(spanTerm(field:term))
//	spanDechunk(spanChunkedNot(spanTerm(field:term), spanTerm(field:exclude)))
//
// Matches are found per chunk record and shifted into document positions.
// Words in a chunk overlap are stored twice, so hits are sorted and deduped
// per document. Snippets are then cut concurrently, one goroutine and one
// chunk source per document, bounded by Options.Workers.
//
// # Work Limit
//
// Every posting read and every match consumed counts one unit of work. When
// a search exceeds its limit the response carries the documents found so far
// and Truncated is set; no error is returned.
//
// # Caching
//
// With UseCache set, responses are cached by a SHA-256 hash of the request
// for CacheTTL (default 1 hour). Truncated responses are never cached. Call
// InvalidateCache after the index changes.
//
// # Reading Words
//
// ReadWords lists the words of a document from a position on. Without force
// the listing stops at the end of the section it started in.
package searcher
