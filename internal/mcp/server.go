package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/chunkspan/internal/analysis"
	"github.com/dshills/chunkspan/internal/config"
	"github.com/dshills/chunkspan/internal/searcher"
	"github.com/dshills/chunkspan/internal/storage"
	"github.com/dshills/chunkspan/pkg/logger"
)

const (
	// ServerName is the MCP server name
	ServerName = "chunkspan"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	storage  *storage.SQLiteStorage
	searcher *searcher.Searcher
	field    string
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config) (*Server, error) {
	dbPath, err := expandHome(cfg.DB.Path)
	if err != nil {
		return nil, err
	}

	// Create directory if it doesn't exist
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	tokenizer := analysis.NewWordTokenizer(cfg.Search.StopWords...)
	srch := searcher.NewSearcher(store, tokenizer, searcher.Options{
		DefaultField:   cfg.Search.DefaultField,
		Workers:        cfg.Search.Workers,
		CacheSize:      cfg.Search.CacheSize,
		ChunkCacheSize: cfg.Search.ChunkCacheSize,
		WorkLimit:      cfg.Search.WorkLimit,
	})

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:      mcpServer,
		storage:  store,
		searcher: srch,
		field:    cfg.Search.DefaultField,
	}

	// Register tools
	if err := s.registerTools(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	logger.WithField("db_path", dbPath).Info("index opened")
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.storage.Close() }()
	return server.ServeStdio(s.mcp)
}

// Close releases the index without serving
func (s *Server) Close() error {
	return s.storage.Close()
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	s.mcp.AddTool(searchTextTool(), s.handleSearchText)
	s.mcp.AddTool(readWordsTool(), s.handleReadWords)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
	return nil
}

// expandHome resolves a leading ~/ against the user's home directory
func expandHome(path string) (string, error) {
	if len(path) < 2 || path[:2] != "~/" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}
