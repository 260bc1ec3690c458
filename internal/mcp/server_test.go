package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/chunkspan/internal/analysis"
	"github.com/dshills/chunkspan/internal/chunk"
	"github.com/dshills/chunkspan/internal/config"
	"github.com/dshills/chunkspan/internal/testindex"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DB:  config.DBConfig{Path: filepath.Join(t.TempDir(), "nested", "chunkspan.db")},
		Log: config.LogConfig{Level: "info", Format: "json"},
		Search: config.SearchConfig{
			DefaultField:   "text",
			Workers:        2,
			CacheSize:      10,
			ChunkCacheSize: 4,
		},
	}
}

// setupTestServer creates a server whose index holds two documents
func setupTestServer(t *testing.T) (*Server, []int) {
	t.Helper()
	ctx := context.Background()

	server, err := NewServer(testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = server.Close() })

	builder, err := testindex.NewBuilder(ctx, server.storage, chunk.Geometry{ChunkSize: 6, ChunkOverlap: 2},
		analysis.NewWordTokenizer(), "text")
	require.NoError(t, err)

	var ids []int
	for _, doc := range []testindex.Doc{
		{Key: "moby", Sections: []string{"Call me Ishmael. Some years ago, never mind how long precisely, having little or no money in my purse."}},
		{Key: "greek", Sections: []string{"alpha beta gamma", "delta epsilon"}},
	} {
		id, err := builder.Add(ctx, doc)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return server, ids
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// decodeResult parses the JSON text of a tool result
func decodeResult(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)

	var text string
	switch c := result.Content[0].(type) {
	case mcp.TextContent:
		text = c.Text
	case *mcp.TextContent:
		text = c.Text
	default:
		t.Fatalf("unexpected content type %T", c)
	}

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	return out
}

func requireMCPError(t *testing.T, err error, code int) {
	t.Helper()
	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr), "expected MCPError, got %v", err)
	assert.Equal(t, code, mcpErr.Code)
}

func TestServer_Initialization(t *testing.T) {
	t.Run("creates database directory", func(t *testing.T) {
		server, err := NewServer(testConfig(t))
		require.NoError(t, err)
		defer server.Close()

		assert.NotNil(t, server.mcp, "MCP server should be initialized")
		assert.NotNil(t, server.storage, "Storage should be initialized")
		assert.NotNil(t, server.searcher, "Searcher should be initialized")
		assert.Equal(t, "text", server.field)
	})

	t.Run("expands home directory", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)

		path, err := expandHome("~/.chunkspan/index.db")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, ".chunkspan", "index.db"), path)

		path, err = expandHome("relative.db")
		require.NoError(t, err)
		assert.Equal(t, "relative.db", path)
	})
}

func TestHandleSearchText(t *testing.T) {
	server, ids := setupTestServer(t)
	ctx := context.Background()

	result, err := server.handleSearchText(ctx, callRequest("search_text", map[string]interface{}{
		"term":    "MONEY",
		"context": float64(2),
	}))
	require.NoError(t, err)
	out := decodeResult(t, result)

	assert.Equal(t, float64(1), out["total_hits"])
	assert.Equal(t, false, out["truncated"])
	results := out["results"].([]interface{})
	require.Len(t, results, 1)

	first := results[0].(map[string]interface{})
	assert.Equal(t, float64(ids[0]), first["doc"])
	assert.Equal(t, "moby", first["doc_key"])
	snippet := first["snippets"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "or no money in my", snippet["text"])
	assert.Equal(t, float64(15), snippet["start"])

	t.Run("cached on repeat", func(t *testing.T) {
		result, err := server.handleSearchText(ctx, callRequest("search_text", map[string]interface{}{
			"term":    "money",
			"context": float64(2),
		}))
		require.NoError(t, err)
		assert.Equal(t, true, decodeResult(t, result)["cache_hit"])
	})

	t.Run("work limit truncates", func(t *testing.T) {
		result, err := server.handleSearchText(ctx, callRequest("search_text", map[string]interface{}{
			"term":       "money",
			"work_limit": float64(1),
			"use_cache":  false,
		}))
		require.NoError(t, err)
		assert.Equal(t, true, decodeResult(t, result)["truncated"])
	})
}

func TestHandleSearchTextValidation(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name string
		args map[string]interface{}
		code int
	}{
		{"missing term", map[string]interface{}{}, ErrorCodeEmptyQuery},
		{"punctuation only", map[string]interface{}{"term": "?!"}, ErrorCodeEmptyQuery},
		{"two words", map[string]interface{}{"term": "no money"}, ErrorCodeInvalidParams},
		{"limit too large", map[string]interface{}{"term": "money", "limit": float64(101)}, ErrorCodeInvalidParams},
		{"negative context", map[string]interface{}{"term": "money", "context": float64(-1)}, ErrorCodeInvalidParams},
		{"negative slop", map[string]interface{}{"term": "money", "exclude": "purse", "slop": float64(-2)}, ErrorCodeInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := server.handleSearchText(ctx, callRequest("search_text", tt.args))
			requireMCPError(t, err, tt.code)
		})
	}

	t.Run("invalid arguments", func(t *testing.T) {
		_, err := server.handleSearchText(ctx, mcp.CallToolRequest{})
		requireMCPError(t, err, ErrorCodeInvalidParams)
	})
}

func TestHandleSearchTextNotIndexed(t *testing.T) {
	server, err := NewServer(testConfig(t))
	require.NoError(t, err)
	defer server.Close()

	_, err = server.handleSearchText(context.Background(), callRequest("search_text", map[string]interface{}{"term": "money"}))
	requireMCPError(t, err, ErrorCodeNotIndexed)
}

func TestHandleReadWords(t *testing.T) {
	server, ids := setupTestServer(t)
	ctx := context.Background()

	result, err := server.handleReadWords(ctx, callRequest("read_words", map[string]interface{}{
		"doc":   float64(ids[0]),
		"from":  float64(2),
		"count": float64(3),
	}))
	require.NoError(t, err)
	out := decodeResult(t, result)

	assert.Equal(t, float64(3), out["count"])
	words := out["words"].([]interface{})
	require.Len(t, words, 3)
	assert.Equal(t, map[string]interface{}{"pos": float64(2), "term": "ishmael"}, words[0])
	assert.Equal(t, map[string]interface{}{"pos": float64(4), "term": "years"}, words[2])

	t.Run("stops at section end", func(t *testing.T) {
		result, err := server.handleReadWords(ctx, callRequest("read_words", map[string]interface{}{
			"doc": float64(ids[1]),
		}))
		require.NoError(t, err)
		assert.Equal(t, float64(3), decodeResult(t, result)["count"])
	})

	t.Run("force crosses sections", func(t *testing.T) {
		result, err := server.handleReadWords(ctx, callRequest("read_words", map[string]interface{}{
			"doc":   float64(ids[1]),
			"force": true,
		}))
		require.NoError(t, err)
		assert.Equal(t, float64(5), decodeResult(t, result)["count"])
	})

	t.Run("errors", func(t *testing.T) {
		_, err := server.handleReadWords(ctx, callRequest("read_words", map[string]interface{}{}))
		requireMCPError(t, err, ErrorCodeInvalidParams)

		_, err = server.handleReadWords(ctx, callRequest("read_words", map[string]interface{}{"doc": float64(999)}))
		requireMCPError(t, err, ErrorCodeDocNotFound)

		_, err = server.handleReadWords(ctx, callRequest("read_words", map[string]interface{}{
			"doc":  float64(ids[1]),
			"from": float64(4),
		}))
		requireMCPError(t, err, ErrorCodeInvalidParams)

		_, err = server.handleReadWords(ctx, callRequest("read_words", map[string]interface{}{
			"doc":   float64(ids[1]),
			"count": float64(0),
		}))
		requireMCPError(t, err, ErrorCodeInvalidParams)
	})
}

func TestHandleGetStatus(t *testing.T) {
	t.Run("empty index", func(t *testing.T) {
		server, err := NewServer(testConfig(t))
		require.NoError(t, err)
		defer server.Close()

		result, err := server.handleGetStatus(context.Background(), callRequest("get_status", nil))
		require.NoError(t, err)
		out := decodeResult(t, result)
		assert.Equal(t, false, out["indexed"])
		assert.Contains(t, out, "message")
	})

	t.Run("built index", func(t *testing.T) {
		server, _ := setupTestServer(t)

		result, err := server.handleGetStatus(context.Background(), callRequest("get_status", nil))
		require.NoError(t, err)
		out := decodeResult(t, result)

		assert.Equal(t, true, out["indexed"])
		geometry := out["geometry"].(map[string]interface{})
		assert.Equal(t, float64(6), geometry["chunk_size"])
		assert.Equal(t, float64(2), geometry["chunk_overlap"])

		stats := out["statistics"].(map[string]interface{})
		assert.Equal(t, float64(2), stats["docs_count"])
		health := out["health"].(map[string]interface{})
		assert.Equal(t, true, health["database_accessible"])
	})
}

func TestGetIntDefault(t *testing.T) {
	args := map[string]interface{}{"a": float64(3), "b": 4, "c": "5"}

	assert.Equal(t, 3, getIntDefault(args, "a", 0))
	assert.Equal(t, 4, getIntDefault(args, "b", 0))
	assert.Equal(t, 7, getIntDefault(args, "c", 7))
	assert.Equal(t, 8, getIntDefault(args, "missing", 8))

	_, ok := getInt(args, "c")
	assert.False(t, ok)
}
