package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// searchPostsTool returns the tool definition for search_posts
func searchPostsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_posts",
		Description: "Search the platform's public index by keyword and return up to 100 ranked posts",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Keyword or boolean search expression",
				},
				"sort": map[string]interface{}{
					"type":        "string",
					"description": "Result ranking mode",
					"enum":        []string{"top", "hot"},
					"default":     "top",
				},
				"time": map[string]interface{}{
					"type":        "string",
					"description": "Creation-time bucket; 15days is synthetic and filtered client-side",
					"enum":        []string{"all", "hour", "day", "week", "month", "year", "15days"},
				},
			},
			Required: []string{"query"},
		},
	}
}

// contextSearchTool returns the tool definition for context_search
func contextSearchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "context_search",
		Description: "AI-assisted search: decompose a natural-language request into multiple queries, fetch them concurrently, and keep only relevant posts",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural-language description of what to find",
				},
			},
			Required: []string{"query"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report server uptime, cache occupancy, rate limiter state, and AI availability",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
