package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// searchTextTool returns the tool definition for search_text
func searchTextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_text",
		Description: "Find documents containing a word and return a snippet around every occurrence",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"term": map[string]interface{}{
					"type":        "string",
					"description": "Single word to search for (case-insensitive)",
				},
				"field": map[string]interface{}{
					"type":        "string",
					"description": "Document field to search (defaults to the configured field)",
				},
				"exclude": map[string]interface{}{
					"type":        "string",
					"description": "Optional word; occurrences of term within slop words of it are dropped",
				},
				"slop": map[string]interface{}{
					"type":        "integer",
					"description": "Distance in words within which exclude suppresses a match",
					"default":     0,
					"minimum":     0,
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of documents to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"context": map[string]interface{}{
					"type":        "integer",
					"description": "Words of context on each side of a match (0-50)",
					"default":     5,
					"minimum":     0,
					"maximum":     50,
				},
				"work_limit": map[string]interface{}{
					"type":        "integer",
					"description": "Cap on postings and matches examined; the response is marked truncated when reached",
					"minimum":     0,
				},
				"use_cache": map[string]interface{}{
					"type":        "boolean",
					"description": "If false, bypass the response cache",
					"default":     true,
				},
			},
			Required: []string{"term"},
		},
	}
}

// readWordsTool returns the tool definition for read_words
func readWordsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "read_words",
		Description: "Read consecutive words of a document starting at a word position",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"doc": map[string]interface{}{
					"type":        "integer",
					"description": "Document id as returned by search_text",
					"minimum":     0,
				},
				"field": map[string]interface{}{
					"type":        "string",
					"description": "Document field to read (defaults to the configured field)",
				},
				"from": map[string]interface{}{
					"type":        "integer",
					"description": "Word position to start at",
					"default":     0,
					"minimum":     0,
				},
				"count": map[string]interface{}{
					"type":        "integer",
					"description": "Number of words to read (1-1000)",
					"default":     50,
					"minimum":     1,
					"maximum":     1000,
				},
				"force": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, continue past section boundaries",
					"default":     false,
				},
			},
			Required: []string{"doc"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report chunk geometry and statistics of the open index",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
