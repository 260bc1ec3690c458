// Package mcp implements the Model Context Protocol (MCP) server for chunkspan.
//
// The server exposes three tools to MCP clients:
//   - search_text: Find documents containing a word, with snippets
//   - read_words: Read consecutive words of a document
//   - get_status: Report chunk geometry and index statistics
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// Stdout is reserved for protocol messages; logs go to stderr.
//
// # Tool: search_text
//
//	Request:
//	{
//	  "name": "search_text",
//	  "arguments": {
//	    "term": "whale",
//	    "exclude": "ship",
//	    "slop": 3,
//	    "limit": 10,
//	    "context": 5
//	  }
//	}
//
//	Response:
//	{
//	  "query": "spanDechunk(spanChunkedNot(spanTerm(text:whale), spanTerm(text:ship)))",
//	  "total_docs": 1,
//	  "total_hits": 1,
//	  "truncated": false,
//	  "work": 14,
//	  "cache_hit": false,
//	  "results": [
//	    {
//	      "doc": 4,
//	      "doc_key": "moby-dick",
//	      "hits": 1,
//	      "snippets": [
//	        {"start": 12, "end": 13, "text": "saw one grey whale sleeping far far"}
//	      ]
//	    }
//	  ]
//	}
//
// When work_limit is reached the documents found so far are returned with
// "truncated": true.
//
// # Tool: read_words
//
//	Request:
//	{
//	  "name": "read_words",
//	  "arguments": {"doc": 4, "from": 12, "count": 3}
//	}
//
//	Response:
//	{
//	  "doc": 4,
//	  "field": "text",
//	  "from": 12,
//	  "count": 3,
//	  "words": [
//	    {"pos": 12, "term": "grey"},
//	    {"pos": 13, "term": "whale"},
//	    {"pos": 14, "term": "sleeping"}
//	  ]
//	}
//
// Without "force" the listing stops at the end of the section it started in.
//
// # Tool: get_status
//
//	Response:
//	{
//	  "indexed": true,
//	  "geometry": {"chunk_size": 6, "chunk_overlap": 2},
//	  "statistics": {"docs_count": 2, "chunks_count": 9, ...},
//	  "health": {"database_accessible": true, "geometry_configured": true}
//	}
//
// # MCP Client Configuration
//
//	{
//	  "mcpServers": {
//	    "chunkspan": {
//	      "command": "/usr/local/bin/chunkspan",
//	      "env": {
//	        "CHUNKSPAN_DB_PATH": "~/.chunkspan/index.db"
//	      }
//	    }
//	  }
//	}
//
// # Error Handling
//
// Tool errors are returned as *MCPError values and encoded by mcp-go:
//
//	{
//	  "error": {
//	    "code": -32602,
//	    "message": "limit must be between 1 and 100",
//	    "data": {"param": "limit", "value": 500}
//	  }
//	}
//
// Error codes:
//   - -32602: Invalid params
//   - -32603: Internal error
//   - -32001: Document not found
//   - -32003: Index not built
//   - -32004: Empty query
package mcp
