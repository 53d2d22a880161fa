// Package mcp exposes the search pipeline as an MCP stdio server with
// three tools: search_posts, context_search, and get_status.
package mcp
