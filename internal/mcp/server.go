// Package mcp provides an MCP (Model Context Protocol) server for geotree.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/geotree/internal/logging"
	"github.com/nvandessel/geotree/internal/ratelimit"
	"github.com/nvandessel/geotree/internal/store"
	"github.com/nvandessel/geotree/internal/tree"
)

// Server wraps the MCP SDK server and exposes the geotree pipeline as tools.
// Every build call gets its own tree.Manager, so concurrent calls never
// share pipeline state.
type Server struct {
	server       *sdk.Server
	store        store.SnapshotStore
	defaults     tree.Options
	logger       *slog.Logger
	decisions    *logging.DecisionLogger
	auditLogger  *AuditLogger
	toolLimiters ratelimit.ToolLimiters
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "geotree")
	Version string // Server version

	// Store holds saved runs. Nil means an in-memory store.
	Store store.SnapshotStore

	// Defaults are the resolve options used when a call does not override them.
	Defaults tree.Options

	// Decisions receives resolution decisions for every build. May be nil.
	Decisions *logging.DecisionLogger

	// AuditDir, when set, holds audit.jsonl with one line per tool call.
	AuditDir string
}

// NewServer creates a new MCP server with geotree tools.
func NewServer(cfg *Config) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	ss := cfg.Store
	if ss == nil {
		ss = store.NewInMemorySnapshotStore()
	}
	logger := cfg.Defaults.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		Logger: logger,
	})

	s := &Server{
		server:       mcpServer,
		store:        ss,
		defaults:     cfg.Defaults,
		logger:       logger,
		decisions:    cfg.Decisions,
		toolLimiters: ratelimit.NewToolLimiters(),
	}
	if cfg.AuditDir != "" {
		s.auditLogger = NewAuditLogger(cfg.AuditDir)
	}

	s.registerTools()
	s.registerResources()
	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.logger.Info("mcp server starting", "transport", "stdio")
	err := s.server.Run(ctx, &sdk.StdioTransport{})
	s.Close()
	return err
}

// Close closes the store and the audit log.
func (s *Server) Close() error {
	auditErr := s.auditLogger.Close()
	s.auditLogger = nil
	if err := s.store.Close(); err != nil {
		return err
	}
	return auditErr
}
