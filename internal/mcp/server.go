package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/threadscout/threadscout-mcp/internal/cache"
	"github.com/threadscout/threadscout-mcp/internal/config"
	"github.com/threadscout/threadscout-mcp/internal/llm"
	"github.com/threadscout/threadscout-mcp/internal/pipeline"
	"github.com/threadscout/threadscout-mcp/internal/planner"
	"github.com/threadscout/threadscout-mcp/internal/ratelimit"
	"github.com/threadscout/threadscout-mcp/internal/relevance"
	"github.com/threadscout/threadscout-mcp/internal/upstream"
	"github.com/threadscout/threadscout-mcp/pkg/types"
)

const (
	// ServerName is the MCP server name
	ServerName = "threadscout-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"

	// stdioIdentity is the rate-limit identity for the single stdio
	// client this server talks to; CLI one-shots use their own.
	stdioIdentity = "stdio"
	cliIdentity   = "cli"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp       *server.MCPServer
	service   *pipeline.Service
	cache     *cache.Cache
	limiter   *ratelimit.Limiter
	completer llm.Completer // nil when no credential is configured
	logger    *slog.Logger
	started   time.Time
}

// NewServer creates a new MCP server instance. A missing text-generation
// credential is not fatal here: plain search still works, and the
// context_search tool reports the configuration error when invoked.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}

	fetcher := upstream.NewClient(upstream.Options{
		UserAgent: cfg.UserAgent,
		Logger:    logger,
	})

	resultCache := cache.New(cfg.CacheTTLDuration(), cfg.CacheMaxEntries, logger)
	limiter := ratelimit.New(cfg.RateWindowDuration(), cfg.RateMaxPerWindow, logger)

	var (
		plan   pipeline.QueryPlanner
		filter pipeline.RelevanceFilter
	)
	completer, err := cfg.Completer(logger)
	switch {
	case err == nil:
		plan = planner.New(completer, logger)
		filter = relevance.New(completer, relevance.Config{
			MinScore:      cfg.MinRelevance,
			FallbackLimit: cfg.FallbackLimit,
		}, logger)
	case errors.Is(err, llm.ErrNotConfigured):
		completer = nil
		logger.Warn("no text-generation credential; context_search disabled", "cause", err)
	default:
		resultCache.Close()
		limiter.Close()
		return nil, fmt.Errorf("configure text-generation service: %w", err)
	}

	svc := pipeline.New(fetcher, resultCache, limiter, plan, filter, logger)

	s := &Server{
		mcp:       server.NewMCPServer(ServerName, ServerVersion),
		service:   svc,
		cache:     resultCache,
		limiter:   limiter,
		completer: completer,
		logger:    logger,
		started:   time.Now(),
	}
	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer s.Close()
	return server.ServeStdio(s.mcp)
}

// Close stops the background sweepers.
func (s *Server) Close() {
	s.cache.Close()
	s.limiter.Close()
}

// SearchPlain runs one plain keyword search through the wired pipeline.
func (s *Server) SearchPlain(ctx context.Context, q types.SearchQuery) (*types.PlainResult, error) {
	return s.service.SearchPlain(ctx, cliIdentity, q)
}

// SearchWithContext runs one AI-assisted context search through the
// wired pipeline.
func (s *Server) SearchWithContext(ctx context.Context, query string) (*types.ContextResult, error) {
	return s.service.SearchWithContext(ctx, query)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(searchPostsTool(), s.handleSearchPosts)
	s.mcp.AddTool(contextSearchTool(), s.handleContextSearch)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
