package searcher

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/chunkspan/internal/chunk"
	"github.com/dshills/chunkspan/internal/limit"
	"github.com/dshills/chunkspan/internal/spans"
	"github.com/dshills/chunkspan/internal/storage"
	"github.com/dshills/chunkspan/pkg/logger"
	"github.com/dshills/chunkspan/pkg/types"
)

const (
	DefaultField        = "text"
	DefaultLimit        = 10
	MaxLimit            = 100
	DefaultContextWords = 5
	MaxContextWords     = 50
	DefaultWorkers      = 4
	DefaultCacheSize    = 1000
	MaxReadWords        = 1000
)

// Index opens read snapshots of a chunked index
type Index interface {
	OpenSnapshot(ctx context.Context) (*storage.Snapshot, error)
}

// Options configures a Searcher. Zero values select the defaults.
type Options struct {
	DefaultField   string
	Workers        int // documents whose snippets are extracted concurrently
	CacheSize      int // cached responses
	ChunkCacheSize int // chunks kept per document while extracting snippets
	WorkLimit      int // postings and matches a query may touch; 0 is unlimited
}

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	Field        string
	Term         string
	Exclude      string // optional term that suppresses nearby matches
	Slop         int    // distance in words within which Exclude suppresses Term
	Limit        int    // maximum documents returned
	ContextWords int    // words of context on each side of a hit
	WorkLimit    int    // overrides Options.WorkLimit when > 0
	UseCache     bool   // Whether to use query cache
	CacheTTL     time.Duration
}

// SearchResponse contains search results and metadata
type SearchResponse struct {
	Results   []types.SearchResult
	Query     string
	TotalHits int
	Truncated bool // the work limit stopped the search early
	Work      int
	Duration  time.Duration
	CacheHit  bool
}

// cacheEntry represents a cached search response with expiration time
type cacheEntry struct {
	response  *SearchResponse
	expiresAt time.Time
}

// Searcher runs term queries over a chunked index and cuts snippets around
// the matches.
type Searcher struct {
	index     Index
	tokenizer chunk.Tokenizer
	opts      Options
	cache     *lru.Cache[[32]byte, *cacheEntry]
	cacheMu   sync.RWMutex
}

// NewSearcher creates a new Searcher instance
func NewSearcher(index Index, tokenizer chunk.Tokenizer, opts Options) *Searcher {
	if opts.DefaultField == "" {
		opts.DefaultField = DefaultField
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.ChunkCacheSize <= 0 {
		opts.ChunkCacheSize = chunk.DefaultCacheSize
	}

	cache, err := lru.New[[32]byte, *cacheEntry](opts.CacheSize)
	if err != nil {
		// This should never happen with valid size parameter
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}

	return &Searcher{
		index:     index,
		tokenizer: tokenizer,
		opts:      opts,
		cache:     cache,
	}
}

// Search finds the documents containing the request term and extracts a
// snippet for every hit.
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	startTime := time.Now()

	if err := s.validateRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid search request: %w", err)
	}

	// Check cache if enabled
	if req.UseCache {
		cached, err := s.checkCache(ctx, req)
		if err == nil && cached != nil {
			cached.CacheHit = true
			cached.Duration = time.Since(startTime)
			return cached, nil
		}
	}

	snap, err := s.index.OpenSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	query, err := s.buildQuery(req, snap)
	if err != nil {
		return nil, err
	}

	reader := limit.NewReader(snap, req.WorkLimit)
	hits, truncated, err := s.collectHits(ctx, query, reader, req.Limit)
	if err != nil {
		return nil, err
	}

	results, err := s.buildResults(ctx, snap, req, hits)
	if err != nil {
		return nil, err
	}

	response := &SearchResponse{
		Results:   results,
		Query:     query.String(),
		Truncated: truncated,
		Work:      reader.Work(),
		Duration:  time.Since(startTime),
	}
	for _, r := range results {
		response.TotalHits += len(r.Hits)
	}

	logger.WithFields(logrus.Fields{
		"query":     response.Query,
		"docs":      len(results),
		"hits":      response.TotalHits,
		"work":      response.Work,
		"truncated": truncated,
		"duration":  response.Duration.String(),
	}).Debug("search complete")

	// Truncated responses depend on the work limit and are not reused
	if req.UseCache && !truncated && len(response.Results) > 0 {
		_ = s.storeInCache(ctx, req, response)
	}

	return response, nil
}

// buildQuery turns the request into a dechunked span query
func (s *Searcher) buildQuery(req SearchRequest, snap *storage.Snapshot) (*spans.DechunkingQuery, error) {
	var q spans.Query = spans.NewTermQuery(req.Field, req.Term)
	if req.Exclude != "" {
		notQuery, err := spans.NewChunkedNotQuery(q, spans.NewTermQuery(req.Field, req.Exclude), req.Slop)
		if err != nil {
			return nil, err
		}
		notQuery.SetSlop(req.Slop, snap.Geometry().Bump())
		q = notQuery
	}

	dq := spans.NewDechunkingQuery(q)
	dq.SetDocNumMap(snap.DocNumMap())
	return dq, nil
}

// docHits holds the hits of one document in the order they were found
type docHits struct {
	doc  int
	hits []types.Hit
}

// collectHits reads matches until limit documents are complete. Documents
// come out of the dechunked spans in order, so a match in a new document
// past the limit ends the scan. Work limit errors end the scan early and
// report truncated.
func (s *Searcher) collectHits(ctx context.Context, query spans.Query, reader *limit.Reader, maxDocs int) ([]docHits, bool, error) {
	rewritten, err := query.Rewrite(ctx, reader)
	if err == nil {
		var sp spans.Spans
		sp, err = rewritten.Spans(ctx, reader)
		if err == nil {
			return s.drain(ctx, sp, reader, maxDocs)
		}
	}
	if errors.Is(err, types.ErrExcessiveWork) {
		return nil, true, nil
	}
	return nil, false, err
}

func (s *Searcher) drain(ctx context.Context, sp spans.Spans, reader *limit.Reader, maxDocs int) ([]docHits, bool, error) {
	var docs []docHits
	for {
		ok, err := sp.Next(ctx)
		if errors.Is(err, types.ErrExcessiveWork) {
			return docs, true, nil
		}
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return docs, false, nil
		}

		doc := sp.Doc()
		newDoc := len(docs) == 0 || docs[len(docs)-1].doc != doc
		if newDoc && len(docs) == maxDocs {
			return docs, false, nil
		}

		// a document is only recorded once its first hit is paid for
		if err := reader.Charge(1); err != nil {
			return docs, true, nil
		}
		if newDoc {
			docs = append(docs, docHits{doc: doc})
		}
		cur := &docs[len(docs)-1]
		cur.hits = append(cur.hits, types.Hit{Doc: doc, Start: sp.Start(), End: sp.End()})
	}
}

// buildResults sorts and dedupes hits, then extracts the snippets of each
// document concurrently.
func (s *Searcher) buildResults(ctx context.Context, snap *storage.Snapshot, req SearchRequest, docs []docHits) ([]types.SearchResult, error) {
	results := make([]types.SearchResult, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, d := range docs {
		results[i] = types.SearchResult{Doc: d.doc, Hits: dedupeHits(d.hits)}
		g.Go(func() error {
			key, err := snap.DocKey(gctx, d.doc)
			if err != nil {
				return err
			}
			snippets, err := s.extractSnippets(gctx, snap, req, results[i].Hits)
			if err != nil {
				return fmt.Errorf("failed to extract snippets for doc %d: %w", d.doc, err)
			}
			results[i].DocKey = key
			results[i].Snippets = snippets
			if err := results[i].Validate(); err != nil {
				return fmt.Errorf("invalid result for doc %d: %w", d.doc, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// dedupeHits orders hits by position and drops the repeats reported for
// words that lie in a chunk overlap.
func dedupeHits(hits []types.Hit) []types.Hit {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Start != hits[j].Start {
			return hits[i].Start < hits[j].Start
		}
		return hits[i].End < hits[j].End
	})

	out := hits[:0]
	for i, h := range hits {
		if i > 0 && h == hits[i-1] {
			continue
		}
		out = append(out, h)
	}
	return out
}

// extractSnippets cuts the text around each hit of one document. The source
// is private to the calling goroutine.
func (s *Searcher) extractSnippets(ctx context.Context, snap *storage.Snapshot, req SearchRequest, hits []types.Hit) ([]types.Snippet, error) {
	if len(hits) == 0 {
		return nil, nil
	}
	src, err := chunk.NewSource(snap, snap.DocNumMap(), hits[0].Doc, req.Field, s.tokenizer,
		chunk.WithCacheSize(s.opts.ChunkCacheSize))
	if err != nil {
		return nil, err
	}

	snippets := make([]types.Snippet, 0, len(hits))
	for _, hit := range hits {
		text, err := snippetText(ctx, chunk.NewWordIter(src), hit, req.ContextWords)
		if err != nil {
			return nil, err
		}
		snippets = append(snippets, types.Snippet{Hit: hit, Text: text})
	}
	return snippets, nil
}

// snippetText returns the text from contextWords words before hit to
// contextWords words after it. Context stops at section boundaries.
func snippetText(ctx context.Context, it *chunk.WordIter, hit types.Hit, contextWords int) (string, error) {
	if err := it.SeekFirst(ctx, hit.Start, true); err != nil {
		return "", err
	}
	end := it.Clone()
	if err := end.SeekLast(ctx, hit.End-1, false); err != nil {
		return "", err
	}

	for i := 0; i < contextWords; i++ {
		ok, err := it.Prev(ctx, false)
		if err != nil {
			return "", err
		}
		if !ok {
			break
		}
	}
	for i := 0; i < contextWords; i++ {
		ok, err := end.Next(ctx, false)
		if err != nil {
			return "", err
		}
		if !ok {
			break
		}
	}

	from, err := it.Pos(types.TermStart)
	if err != nil {
		return "", err
	}
	to, err := end.Pos(types.TermEnd)
	if err != nil {
		return "", err
	}
	return from.TextTo(ctx, &to)
}

// ReadWords returns up to count words of a document field, starting with the
// first word at or after position from. Without force the read stops at the
// end of the section holding from.
func (s *Searcher) ReadWords(ctx context.Context, doc int, field string, from, count int, force bool) ([]types.Word, error) {
	if field == "" {
		field = s.opts.DefaultField
	}
	if from < 0 {
		from = 0
	}
	if count <= 0 {
		return nil, nil
	}
	if count > MaxReadWords {
		count = MaxReadWords
	}

	snap, err := s.index.OpenSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	src, err := chunk.NewSource(snap, snap.DocNumMap(), doc, field, s.tokenizer,
		chunk.WithCacheSize(s.opts.ChunkCacheSize))
	if err != nil {
		return nil, err
	}

	it := chunk.NewWordIter(src)
	if err := it.SeekFirst(ctx, from, true); err != nil {
		return nil, err
	}
	if it.WordPos() < from {
		return nil, nil
	}

	words := make([]types.Word, 0, count)
	for len(words) < count {
		words = append(words, types.Word{Pos: it.WordPos(), Term: it.Term()})
		ok, err := it.Next(ctx, force)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
	}
	return words, nil
}

// validateRequest normalizes the search terms and fills in defaults
func (s *Searcher) validateRequest(req *SearchRequest) error {
	if req.Field == "" {
		req.Field = s.opts.DefaultField
	}

	term, err := s.normalizeTerm(req.Term)
	if err != nil {
		return fmt.Errorf("term: %w", err)
	}
	req.Term = term

	if strings.TrimSpace(req.Exclude) != "" {
		exclude, err := s.normalizeTerm(req.Exclude)
		if err != nil {
			return fmt.Errorf("exclude: %w", err)
		}
		req.Exclude = exclude
	} else {
		req.Exclude = ""
	}

	if req.Slop < 0 {
		return fmt.Errorf("slop must be non-negative, got %d", req.Slop)
	}

	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}
	if req.Limit > MaxLimit {
		req.Limit = MaxLimit
	}

	if req.ContextWords < 0 {
		req.ContextWords = DefaultContextWords
	}
	if req.ContextWords > MaxContextWords {
		req.ContextWords = MaxContextWords
	}

	if req.WorkLimit <= 0 {
		req.WorkLimit = s.opts.WorkLimit
	}

	if req.CacheTTL == 0 {
		req.CacheTTL = 1 * time.Hour // Default TTL
	}

	return nil
}

// normalizeTerm returns the indexed form of a single-word term
func (s *Searcher) normalizeTerm(raw string) (string, error) {
	tokens := s.tokenizer.Tokenize(raw)
	switch len(tokens) {
	case 0:
		return "", types.ErrEmptyTerm
	case 1:
		return tokens[0].Term, nil
	default:
		return "", fmt.Errorf("%w: %q", types.ErrMultiWordTerm, raw)
	}
}

// checkCache looks up cached search results
func (s *Searcher) checkCache(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	hash := computeQueryHash(req)
	now := time.Now()

	s.cacheMu.RLock()
	entry, found := s.cache.Get(hash)

	if !found {
		s.cacheMu.RUnlock()
		return nil, fmt.Errorf("cache miss")
	}

	// Check expiry under the read lock
	if now.After(entry.expiresAt) {
		s.cacheMu.RUnlock()

		s.cacheMu.Lock()
		s.cache.Remove(hash)
		s.cacheMu.Unlock()
		return nil, fmt.Errorf("cache expired")
	}

	response := copySearchResponse(entry.response)
	s.cacheMu.RUnlock()

	return response, nil
}

// storeInCache saves search results to cache
func (s *Searcher) storeInCache(ctx context.Context, req SearchRequest, response *SearchResponse) error {
	hash := computeQueryHash(req)

	entry := &cacheEntry{
		response:  copySearchResponse(response),
		expiresAt: time.Now().Add(req.CacheTTL),
	}

	s.cacheMu.Lock()
	s.cache.Add(hash, entry)
	s.cacheMu.Unlock()

	return nil
}

// copySearchResponse creates a deep copy of a SearchResponse
func copySearchResponse(src *SearchResponse) *SearchResponse {
	if src == nil {
		return nil
	}

	dst := *src
	dst.Results = make([]types.SearchResult, len(src.Results))
	for i, result := range src.Results {
		dst.Results[i] = types.SearchResult{
			Doc:      result.Doc,
			DocKey:   result.DocKey,
			Hits:     append([]types.Hit(nil), result.Hits...),
			Snippets: append([]types.Snippet(nil), result.Snippets...),
		}
	}
	return &dst
}

// computeQueryHash computes a unique hash for a search request. Work limit
// and cache settings do not change the results of an untruncated search and
// are left out.
func computeQueryHash(req SearchRequest) [32]byte {
	var data strings.Builder
	data.WriteString(req.Field)
	data.WriteString("|")
	data.WriteString(req.Term)
	data.WriteString("|")
	data.WriteString(req.Exclude)
	data.WriteString(fmt.Sprintf("|%d|%d|%d", req.Slop, req.Limit, req.ContextWords))

	return sha256.Sum256([]byte(data.String()))
}

// InvalidateCache drops every cached response. Call it after the index
// changes.
func (s *Searcher) InvalidateCache(ctx context.Context) error {
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
	return nil
}
