package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/chunkspan/internal/config"
	"github.com/dshills/chunkspan/internal/mcp"
	"github.com/dshills/chunkspan/internal/storage"
	"github.com/dshills/chunkspan/pkg/logger"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	// Handle version flag
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("chunkspan MCP Server\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", storage.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", storage.DriverName)
		os.Exit(0)
	}

	cfg, err := config.Load(config.DefaultOptions())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// stdout is reserved for the MCP protocol
	logger.SetOutput(os.Stderr)
	logger.SetLevel(cfg.Log.Level)
	logger.SetFormat(cfg.Log.Format)

	logger.WithFields(map[string]interface{}{
		"version":    version,
		"build_mode": storage.BuildMode,
		"driver":     storage.DriverName,
	}).Info("chunkspan MCP server starting")

	server, err := mcp.NewServer(cfg)
	if err != nil {
		logger.Fatalf("Failed to create MCP server: %v", err)
	}

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("MCP server ready, listening on stdio")
		errChan <- server.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		logger.WithField("signal", sig.String()).Info("shutting down")
		cancel()
		_ = server.Close()
	case err := <-errChan:
		if err != nil {
			logger.Fatalf("Server error: %v", err)
		}
	}

	logger.Info("Server stopped")
}
