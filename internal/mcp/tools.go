package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/chunkspan/internal/searcher"
	"github.com/dshills/chunkspan/internal/storage"
	"github.com/dshills/chunkspan/pkg/logger"
	"github.com/dshills/chunkspan/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeDocNotFound   = -32001 // No document has the requested id
	ErrorCodeNotIndexed    = -32003 // Index has no geometry yet
	ErrorCodeEmptyQuery    = -32004 // Term parameter is empty
)

const (
	defaultReadCount = 50
)

// handleSearchText handles the search_text tool invocation
func (s *Server) handleSearchText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	term, ok := args["term"].(string)
	if !ok || term == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "term parameter is required and cannot be empty", map[string]interface{}{
			"param":  "term",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", searcher.DefaultLimit)
	if limit < 1 || limit > searcher.MaxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	contextWords := getIntDefault(args, "context", searcher.DefaultContextWords)
	if contextWords < 0 || contextWords > searcher.MaxContextWords {
		return nil, newMCPError(ErrorCodeInvalidParams, "context must be between 0 and 50", map[string]interface{}{
			"param": "context",
			"value": contextWords,
		})
	}

	slop := getIntDefault(args, "slop", 0)
	if slop < 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "slop cannot be negative", map[string]interface{}{
			"param": "slop",
			"value": slop,
		})
	}

	req := searcher.SearchRequest{
		Field:        getStringDefault(args, "field", s.field),
		Term:         term,
		Exclude:      getStringDefault(args, "exclude", ""),
		Slop:         slop,
		Limit:        limit,
		ContextWords: contextWords,
		WorkLimit:    getIntDefault(args, "work_limit", 0),
		UseCache:     getBoolDefault(args, "use_cache", true),
	}

	resp, err := s.searcher.Search(ctx, req)
	if err != nil {
		return nil, searchError(err)
	}

	results := make([]map[string]interface{}, 0, len(resp.Results))
	for _, r := range resp.Results {
		snippets := make([]map[string]interface{}, 0, len(r.Snippets))
		for _, sn := range r.Snippets {
			snippets = append(snippets, map[string]interface{}{
				"start": sn.Start,
				"end":   sn.End,
				"text":  sn.Text,
			})
		}
		results = append(results, map[string]interface{}{
			"doc":      r.Doc,
			"doc_key":  r.DocKey,
			"hits":     len(r.Hits),
			"snippets": snippets,
		})
	}

	response := map[string]interface{}{
		"query":       resp.Query,
		"total_docs":  len(resp.Results),
		"total_hits":  resp.TotalHits,
		"truncated":   resp.Truncated,
		"work":        resp.Work,
		"cache_hit":   resp.CacheHit,
		"duration_ms": resp.Duration.Milliseconds(),
		"results":     results,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleReadWords handles the read_words tool invocation
func (s *Server) handleReadWords(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	doc, ok := getInt(args, "doc")
	if !ok || doc < 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "doc parameter is required", map[string]interface{}{
			"param":  "doc",
			"reason": "missing or negative",
		})
	}

	from := getIntDefault(args, "from", 0)
	if from < 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "from cannot be negative", map[string]interface{}{
			"param": "from",
			"value": from,
		})
	}

	count := getIntDefault(args, "count", defaultReadCount)
	if count < 1 || count > searcher.MaxReadWords {
		return nil, newMCPError(ErrorCodeInvalidParams, "count must be between 1 and 1000", map[string]interface{}{
			"param": "count",
			"value": count,
		})
	}

	field := getStringDefault(args, "field", s.field)
	force := getBoolDefault(args, "force", false)

	words, err := s.searcher.ReadWords(ctx, doc, field, from, count, force)
	switch {
	case errors.Is(err, types.ErrUnknownDoc):
		return nil, newMCPError(ErrorCodeDocNotFound, "document not found", map[string]interface{}{
			"param": "doc",
			"value": doc,
		})
	case errors.Is(err, types.ErrEmptyChunkSeek):
		return nil, newMCPError(ErrorCodeInvalidParams, "position falls between sections", map[string]interface{}{
			"param": "from",
			"value": from,
			"hint":  "set force to skip section boundaries",
		})
	case errors.Is(err, storage.ErrNotFound):
		return nil, notIndexedError(err)
	case err != nil:
		return nil, internalError("read failed", err)
	}

	response := map[string]interface{}{
		"doc":   doc,
		"field": field,
		"from":  from,
		"count": len(words),
		"words": words,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.storage.GetStatus(ctx)
	if err != nil {
		return nil, internalError("failed to get status", err)
	}

	response := map[string]interface{}{
		"indexed": status.Health.GeometryConfigured,
		"geometry": map[string]interface{}{
			"chunk_size":    status.Geometry.ChunkSize,
			"chunk_overlap": status.Geometry.ChunkOverlap,
		},
		"statistics": map[string]interface{}{
			"records_count":  status.RecordsCount,
			"docs_count":     status.DocsCount,
			"chunks_count":   status.ChunksCount,
			"deleted_count":  status.DeletedCount,
			"postings_count": status.PostingsCount,
			"terms_count":    status.TermsCount,
			"index_size_mb":  fmt.Sprintf("%.2f", status.IndexSizeMB),
		},
		"health": map[string]interface{}{
			"database_accessible": status.Health.DatabaseAccessible,
			"geometry_configured": status.Health.GeometryConfigured,
		},
	}
	if !status.Health.GeometryConfigured {
		response["message"] = "Index has no chunk geometry. Build an index before searching."
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// searchError maps searcher errors onto MCP error codes
func searchError(err error) error {
	switch {
	case errors.Is(err, types.ErrEmptyTerm):
		return newMCPError(ErrorCodeEmptyQuery, "term contains no searchable word", map[string]interface{}{
			"error": err.Error(),
		})
	case errors.Is(err, types.ErrMultiWordTerm), errors.Is(err, types.ErrFieldMismatch):
		return newMCPError(ErrorCodeInvalidParams, "invalid search request", map[string]interface{}{
			"error": err.Error(),
		})
	case errors.Is(err, storage.ErrNotFound):
		return notIndexedError(err)
	default:
		return internalError("search failed", err)
	}
}

func notIndexedError(err error) error {
	return newMCPError(ErrorCodeNotIndexed, "index not built", map[string]interface{}{
		"error": err.Error(),
	})
}

func internalError(message string, err error) error {
	logger.WithError(err).WithField("operation", message).Error("tool call failed")
	return newMCPError(ErrorCodeInternalError, message, map[string]interface{}{
		"error": err.Error(),
	})
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getInt extracts an integer parameter. JSON numbers arrive as float64.
func getInt(args map[string]interface{}, key string) (int, bool) {
	switch val := args[key].(type) {
	case float64:
		return int(val), true
	case int:
		return val, true
	}
	return 0, false
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := getInt(args, key); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok && val != "" {
		return val
	}
	return defaultValue
}
