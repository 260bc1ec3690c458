// Package types provides shared type definitions for chunkspan.
//
// The types here are used by the chunk reader, the span queries, the searcher
// and the MCP tools, so they carry no behavior beyond validation.
//
// # Tokens
//
// Token is what a tokenizer hands to the chunk reader. Offsets are byte
// offsets into the tokenized text and PosIncr is the position increment from
// the previous token:
//
//	tok := types.Token{Term: "whale", Start: 4, End: 9, PosIncr: 1}
//
// # Positions
//
// Granularity selects which offset a word iterator reports for its current
// word (TermStart, TermEnd, TermEndPlus). FieldStart and FieldEnd exist for
// interface completeness; a chunked document has no single field to point at.
//
// # Results
//
// Hit is a match in document word positions (End exclusive). SearchResult
// groups hits and snippets for one document:
//
//	res := types.SearchResult{
//	    Doc:    42,
//	    DocKey: "moby-dick",
//	    Hits:   []types.Hit{{Doc: 42, Start: 110, End: 111}},
//	}
//
// # Errors
//
// All sentinel errors live in errors.go and are wrapped with fmt.Errorf("%w")
// by the packages that return them, so callers test with errors.Is.
package types
