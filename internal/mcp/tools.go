package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/threadscout/threadscout-mcp/internal/llm"
	"github.com/threadscout/threadscout-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams  = -32602 // Invalid method parameters
	ErrorCodeInternalError  = -32603 // Internal JSON-RPC error
	ErrorCodeRateLimited    = -32001 // Admission denied; data carries retry_after_ms
	ErrorCodeNotConfigured  = -32002 // Text-generation service missing or unauthorized
	ErrorCodeUpstreamFailed = -32003 // Upstream search failed after retries
)

// handleSearchPosts handles the search_posts tool invocation
func (s *Server) handleSearchPosts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "query parameter is required", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	q := types.SearchQuery{
		Query: query,
		Sort:  types.SortMode(getStringDefault(args, "sort", string(types.SortTop))),
		Time:  types.TimeRange(getStringDefault(args, "time", "")),
	}
	if err := q.Validate(); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, err.Error(), map[string]interface{}{
			"sort": q.Sort,
			"time": q.Time,
		})
	}

	result, err := s.service.SearchPlain(ctx, stdioIdentity, q)
	if err != nil {
		var rle *types.RateLimitError
		if errors.As(err, &rle) {
			return nil, newMCPError(ErrorCodeRateLimited, "rate limited, try again shortly", map[string]interface{}{
				"retry_after_ms": rle.RetryAfter.Milliseconds(),
			})
		}
		return nil, newMCPError(ErrorCodeUpstreamFailed, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleContextSearch handles the context_search tool invocation
func (s *Server) handleContextSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "query parameter is required", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	result, err := s.service.SearchWithContext(ctx, query)
	if err != nil {
		switch {
		case errors.Is(err, llm.ErrNotConfigured), errors.Is(err, llm.ErrUnauthorized):
			return nil, newMCPError(ErrorCodeNotConfigured, "text-generation service unavailable", map[string]interface{}{
				"error": err.Error(),
				"hint":  "set " + llm.EnvOpenAIKey + " or " + llm.EnvAnthropicKey,
			})
		case errors.Is(err, types.ErrAllBranchesFailed):
			return nil, newMCPError(ErrorCodeUpstreamFailed, "all search branches failed, try again", map[string]interface{}{
				"error": err.Error(),
			})
		default:
			return nil, newMCPError(ErrorCodeInternalError, "context search failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := map[string]interface{}{
		"server":         ServerName,
		"version":        ServerVersion,
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"cache": map[string]interface{}{
			"entries": s.cache.Len(),
		},
		"rate_limiter": map[string]interface{}{
			"identities": s.limiter.Len(),
		},
	}
	if s.completer != nil {
		status["ai"] = map[string]interface{}{
			"available": true,
			"provider":  s.completer.Provider(),
			"model":     s.completer.Model(),
		}
	} else {
		status["ai"] = map[string]interface{}{
			"available": false,
		}
	}
	return mcp.NewToolResultText(formatJSON(status)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
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

// getStringDefault extracts a string argument with a fallback
func getStringDefault(args map[string]interface{}, key, def string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return def
}

// formatJSON formats a value as indented JSON for tool results
func formatJSON(v interface{}) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
