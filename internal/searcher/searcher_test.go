package searcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dshills/chunkspan/internal/analysis"
	"github.com/dshills/chunkspan/internal/chunk"
	"github.com/dshills/chunkspan/internal/storage"
	"github.com/dshills/chunkspan/internal/testindex"
	"github.com/dshills/chunkspan/pkg/types"
)

const (
	ishmael = "call me ishmael some years ago never mind how long precisely having little or no money in my purse"
	whales  = "the white whale near ship and the old sailor saw one grey whale sleeping far far away from any ship"
)

// setupTestSearcher creates a searcher over an in-memory index holding docs.
// Chunks hold 6 words and start every 4 words.
func setupTestSearcher(t *testing.T, opts Options, docs ...testindex.Doc) (*Searcher, *storage.SQLiteStorage, []int) {
	t.Helper()
	ctx := context.Background()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test storage: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	tok := analysis.NewWordTokenizer()
	builder, err := testindex.NewBuilder(ctx, store, chunk.Geometry{ChunkSize: 6, ChunkOverlap: 2}, tok, DefaultField)
	if err != nil {
		t.Fatalf("failed to create index builder: %v", err)
	}

	ids := make([]int, 0, len(docs))
	for _, doc := range docs {
		id, err := builder.Add(ctx, doc)
		if err != nil {
			t.Fatalf("failed to index %s: %v", doc.Key, err)
		}
		ids = append(ids, id)
	}

	return NewSearcher(store, tok, opts), store, ids
}

func TestNewSearcherDefaults(t *testing.T) {
	s := NewSearcher(nil, analysis.NewWordTokenizer(), Options{})

	if s.opts.DefaultField != DefaultField {
		t.Errorf("expected default field %q, got %q", DefaultField, s.opts.DefaultField)
	}
	if s.opts.Workers != DefaultWorkers {
		t.Errorf("expected %d workers, got %d", DefaultWorkers, s.opts.Workers)
	}
	if s.opts.ChunkCacheSize != chunk.DefaultCacheSize {
		t.Errorf("expected chunk cache size %d, got %d", chunk.DefaultCacheSize, s.opts.ChunkCacheSize)
	}
	if s.cache == nil {
		t.Fatal("expected response cache")
	}
}

// TestValidateRequest tests request validation
func TestValidateRequest(t *testing.T) {
	s := NewSearcher(nil, analysis.NewWordTokenizer(), Options{WorkLimit: 500})

	tests := []struct {
		name      string
		req       SearchRequest
		wantErr   bool
		expectErr error
		validate  func(t *testing.T, req *SearchRequest)
	}{
		{
			name:      "EmptyTerm",
			req:       SearchRequest{Term: "  ... "},
			expectErr: types.ErrEmptyTerm,
		},
		{
			name:      "MultiWordTerm",
			req:       SearchRequest{Term: "white whale"},
			expectErr: types.ErrMultiWordTerm,
		},
		{
			name:      "MultiWordExclude",
			req:       SearchRequest{Term: "whale", Exclude: "old ship"},
			expectErr: types.ErrMultiWordTerm,
		},
		{
			name: "TermIsFolded",
			req:  SearchRequest{Term: " Whale, ", Exclude: "SHIP"},
			validate: func(t *testing.T, req *SearchRequest) {
				if req.Term != "whale" || req.Exclude != "ship" {
					t.Errorf("expected folded terms, got %q and %q", req.Term, req.Exclude)
				}
			},
		},
		{
			name: "Defaults",
			req:  SearchRequest{Term: "whale", ContextWords: -1},
			validate: func(t *testing.T, req *SearchRequest) {
				if req.Field != DefaultField {
					t.Errorf("expected field %q, got %q", DefaultField, req.Field)
				}
				if req.Limit != DefaultLimit {
					t.Errorf("expected default limit %d, got %d", DefaultLimit, req.Limit)
				}
				if req.ContextWords != DefaultContextWords {
					t.Errorf("expected %d context words, got %d", DefaultContextWords, req.ContextWords)
				}
				if req.WorkLimit != 500 {
					t.Errorf("expected work limit 500, got %d", req.WorkLimit)
				}
				if req.CacheTTL != 1*time.Hour {
					t.Errorf("expected default TTL 1h, got %v", req.CacheTTL)
				}
			},
		},
		{
			name: "ExcessiveValuesAreCapped",
			req:  SearchRequest{Term: "whale", Limit: 500, ContextWords: 500},
			validate: func(t *testing.T, req *SearchRequest) {
				if req.Limit != MaxLimit {
					t.Errorf("expected capped limit %d, got %d", MaxLimit, req.Limit)
				}
				if req.ContextWords != MaxContextWords {
					t.Errorf("expected capped context %d, got %d", MaxContextWords, req.ContextWords)
				}
			},
		},
		{
			name:    "NegativeSlop",
			req:     SearchRequest{Term: "whale", Exclude: "ship", Slop: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			err := s.validateRequest(&req)

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if tt.expectErr != nil {
				if !errors.Is(err, tt.expectErr) {
					t.Fatalf("expected %v, got %v", tt.expectErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.validate != nil {
				tt.validate(t, &req)
			}
		})
	}
}

func TestSearchSnippetAcrossChunks(t *testing.T) {
	s, _, ids := setupTestSearcher(t, Options{}, testindex.Doc{Key: "moby", Sections: []string{ishmael}})

	resp, err := s.Search(context.Background(), SearchRequest{Term: "money", ContextWords: 2})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if len(resp.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(resp.Results))
	}
	result := resp.Results[0]
	if result.Doc != ids[0] || result.DocKey != "moby" {
		t.Errorf("expected doc %d (moby), got %d (%s)", ids[0], result.Doc, result.DocKey)
	}
	if err := result.Validate(); err != nil {
		t.Errorf("invalid result: %v", err)
	}

	want := types.Hit{Doc: ids[0], Start: 15, End: 16}
	if len(result.Hits) != 1 || result.Hits[0] != want {
		t.Fatalf("expected hit %+v, got %+v", want, result.Hits)
	}
	if got := result.Snippets[0].Text; got != "or no money in my" {
		t.Errorf("unexpected snippet %q", got)
	}
	if resp.Query != "spanDechunk(spanTerm(text:money))" {
		t.Errorf("unexpected query %q", resp.Query)
	}
}

func TestSearchDedupesOverlapHits(t *testing.T) {
	s, _, _ := setupTestSearcher(t, Options{}, testindex.Doc{Key: "moby", Sections: []string{ishmael}})

	// "ago" is word 5, stored in both chunk 0 and chunk 1
	resp, err := s.Search(context.Background(), SearchRequest{Term: "ago", ContextWords: 1})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if resp.TotalHits != 1 {
		t.Fatalf("expected 1 hit, got %d", resp.TotalHits)
	}
	if got := resp.Results[0].Hits[0].Start; got != 5 {
		t.Errorf("expected hit at 5, got %d", got)
	}
	if got := resp.Results[0].Snippets[0].Text; got != "years ago never" {
		t.Errorf("unexpected snippet %q", got)
	}
}

func TestSearchLimitsDocuments(t *testing.T) {
	s, _, ids := setupTestSearcher(t, Options{},
		testindex.Doc{Key: "first", Sections: []string{ishmael}},
		testindex.Doc{Key: "second", Sections: []string{"money makes money"}},
	)
	ctx := context.Background()

	resp, err := s.Search(ctx, SearchRequest{Term: "money", ContextWords: 5})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Results))
	}
	if resp.Results[1].Doc != ids[1] || len(resp.Results[1].Hits) != 2 {
		t.Errorf("unexpected second result %+v", resp.Results[1])
	}
	if got := resp.Results[1].Snippets[1].Text; got != "money makes money" {
		t.Errorf("unexpected snippet %q", got)
	}

	resp, err = s.Search(ctx, SearchRequest{Term: "money", Limit: 1})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Doc != ids[0] {
		t.Errorf("expected only the first document, got %+v", resp.Results)
	}
	if resp.Truncated {
		t.Error("a document limit is not a truncation")
	}
}

func TestSearchExclude(t *testing.T) {
	s, _, _ := setupTestSearcher(t, Options{}, testindex.Doc{Key: "whales", Sections: []string{whales}})

	resp, err := s.Search(context.Background(), SearchRequest{Term: "whale", Exclude: "ship", Slop: 3, ContextWords: 1})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	// whale@2 is within 3 words of ship@4; whale@12 is clear of both ships
	if resp.TotalHits != 1 {
		t.Fatalf("expected 1 hit, got %+v", resp.Results)
	}
	if got := resp.Results[0].Hits[0].Start; got != 12 {
		t.Errorf("expected hit at 12, got %d", got)
	}
	if got := resp.Results[0].Snippets[0].Text; got != "grey whale sleeping" {
		t.Errorf("unexpected snippet %q", got)
	}
}

func TestSearchStopsAtSectionBoundary(t *testing.T) {
	s, _, _ := setupTestSearcher(t, Options{},
		testindex.Doc{Key: "greek", Sections: []string{"alpha beta gamma", "delta epsilon"}})

	resp, err := s.Search(context.Background(), SearchRequest{Term: "delta", ContextWords: 3})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if resp.TotalHits != 1 {
		t.Fatalf("expected 1 hit, got %d", resp.TotalHits)
	}
	// the second section starts after the boundary chunk
	if got := resp.Results[0].Hits[0].Start; got != 8 {
		t.Errorf("expected hit at 8, got %d", got)
	}
	if got := resp.Results[0].Snippets[0].Text; got != "delta epsilon" {
		t.Errorf("unexpected snippet %q", got)
	}
}

func TestSearchWorkLimit(t *testing.T) {
	s, _, _ := setupTestSearcher(t, Options{}, testindex.Doc{Key: "whales", Sections: []string{whales}})
	ctx := context.Background()

	t.Run("PostingsOverLimit", func(t *testing.T) {
		resp, err := s.Search(ctx, SearchRequest{Term: "far", WorkLimit: 1})
		if err != nil {
			t.Fatalf("expected partial response, got error: %v", err)
		}
		if !resp.Truncated || len(resp.Results) != 0 {
			t.Errorf("expected empty truncated response, got %+v", resp)
		}
	})

	t.Run("MatchesOverLimit", func(t *testing.T) {
		// two postings plus one match fit, the second match does not
		resp, err := s.Search(ctx, SearchRequest{Term: "far", WorkLimit: 3})
		if err != nil {
			t.Fatalf("expected partial response, got error: %v", err)
		}
		if !resp.Truncated {
			t.Error("expected truncated response")
		}
		if resp.TotalHits != 1 {
			t.Errorf("expected 1 hit, got %d", resp.TotalHits)
		}
	})

	t.Run("NoEmptyDocumentOnLimit", func(t *testing.T) {
		s, _, ids := setupTestSearcher(t, Options{},
			testindex.Doc{Key: "a", Sections: []string{"the whale swims"}},
			testindex.Doc{Key: "b", Sections: []string{"one whale sleeps"}},
		)
		// two postings plus the first match fit, the second document's match does not
		resp, err := s.Search(ctx, SearchRequest{Term: "whale", WorkLimit: 3})
		if err != nil {
			t.Fatalf("expected partial response, got error: %v", err)
		}
		if !resp.Truncated {
			t.Error("expected truncated response")
		}
		if len(resp.Results) != 1 {
			t.Fatalf("expected 1 document, got %d", len(resp.Results))
		}
		result := resp.Results[0]
		if result.Doc != ids[0] || len(result.Hits) != 1 || len(result.Snippets) != 1 {
			t.Errorf("expected doc %d with one hit and one snippet, got %+v", ids[0], result)
		}
	})

	t.Run("Unlimited", func(t *testing.T) {
		resp, err := s.Search(ctx, SearchRequest{Term: "far"})
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if resp.Truncated || resp.TotalHits != 2 {
			t.Errorf("expected 2 hits untruncated, got %+v", resp)
		}
	})
}

func TestSearchSkipsDeletedDocuments(t *testing.T) {
	s, store, ids := setupTestSearcher(t, Options{},
		testindex.Doc{Key: "first", Sections: []string{"money talks"}},
		testindex.Doc{Key: "second", Sections: []string{"money walks"}},
	)
	ctx := context.Background()

	// the first document is a single chunk at record 0
	if err := store.MarkDeleted(ctx, 0); err != nil {
		t.Fatalf("failed to delete chunk: %v", err)
	}

	resp, err := s.Search(ctx, SearchRequest{Term: "money"})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Doc != ids[1] {
		t.Errorf("expected only the second document, got %+v", resp.Results)
	}
}

func TestSearchCache(t *testing.T) {
	s, _, _ := setupTestSearcher(t, Options{}, testindex.Doc{Key: "moby", Sections: []string{ishmael}})
	ctx := context.Background()
	req := SearchRequest{Term: "money", UseCache: true}

	first, err := s.Search(ctx, req)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if first.CacheHit {
		t.Error("first search should miss the cache")
	}

	second, err := s.Search(ctx, req)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if !second.CacheHit {
		t.Error("second search should hit the cache")
	}
	if second.Results[0].Snippets[0].Text != first.Results[0].Snippets[0].Text {
		t.Error("cached response differs from the original")
	}

	// mutating a response does not affect the cache
	second.Results[0].Hits[0].Start = -1
	third, err := s.Search(ctx, req)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if third.Results[0].Hits[0].Start != 15 {
		t.Error("cache entry was modified through a response")
	}

	if err := s.InvalidateCache(ctx); err != nil {
		t.Fatalf("failed to invalidate cache: %v", err)
	}
	fourth, err := s.Search(ctx, req)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if fourth.CacheHit {
		t.Error("search after invalidation should miss the cache")
	}
}

func TestSearchCacheExpiry(t *testing.T) {
	s, _, _ := setupTestSearcher(t, Options{}, testindex.Doc{Key: "moby", Sections: []string{ishmael}})
	ctx := context.Background()
	req := SearchRequest{Term: "money", UseCache: true, CacheTTL: time.Nanosecond}

	if _, err := s.Search(ctx, req); err != nil {
		t.Fatalf("search failed: %v", err)
	}
	time.Sleep(time.Millisecond)

	resp, err := s.Search(ctx, req)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if resp.CacheHit {
		t.Error("expired entry should not be served")
	}
}

func TestComputeQueryHash(t *testing.T) {
	base := SearchRequest{Field: "text", Term: "whale", Exclude: "ship", Slop: 2, Limit: 10, ContextWords: 5}

	same := base
	same.UseCache = true
	same.WorkLimit = 99
	if computeQueryHash(base) != computeQueryHash(same) {
		t.Error("cache and work settings should not change the hash")
	}

	other := base
	other.Slop = 3
	if computeQueryHash(base) == computeQueryHash(other) {
		t.Error("different slop should change the hash")
	}
}

func TestReadWords(t *testing.T) {
	s, _, ids := setupTestSearcher(t, Options{},
		testindex.Doc{Key: "whales", Sections: []string{whales}},
		testindex.Doc{Key: "greek", Sections: []string{"alpha beta gamma", "delta epsilon"}},
	)
	ctx := context.Background()

	words, err := s.ReadWords(ctx, ids[0], "", 13, 4, false)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	want := []types.Word{{13, "sleeping"}, {14, "far"}, {15, "far"}, {16, "away"}}
	if len(words) != len(want) {
		t.Fatalf("expected %v, got %v", want, words)
	}
	for i := range want {
		if words[i] != want[i] {
			t.Errorf("word %d: expected %v, got %v", i, want[i], words[i])
		}
	}

	t.Run("StopsAtSection", func(t *testing.T) {
		words, err := s.ReadWords(ctx, ids[1], DefaultField, 0, 10, false)
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if len(words) != 3 {
			t.Errorf("expected 3 words, got %v", words)
		}
	})

	t.Run("Forced", func(t *testing.T) {
		words, err := s.ReadWords(ctx, ids[1], DefaultField, 0, 10, true)
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if len(words) != 5 || words[3] != (types.Word{Pos: 8, Term: "delta"}) {
			t.Errorf("unexpected words %v", words)
		}
	})

	t.Run("PastEnd", func(t *testing.T) {
		words, err := s.ReadWords(ctx, ids[0], "", 100, 5, false)
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if len(words) != 0 {
			t.Errorf("expected no words, got %v", words)
		}
	})

	t.Run("UnknownDoc", func(t *testing.T) {
		_, err := s.ReadWords(ctx, 999, "", 0, 5, false)
		if !errors.Is(err, types.ErrUnknownDoc) {
			t.Errorf("expected ErrUnknownDoc, got %v", err)
		}
	})

	t.Run("IntoBoundary", func(t *testing.T) {
		_, err := s.ReadWords(ctx, ids[1], "", 4, 5, false)
		if !errors.Is(err, types.ErrEmptyChunkSeek) {
			t.Errorf("expected ErrEmptyChunkSeek, got %v", err)
		}
	})
}
