package mcp

import (
	"context"
	"encoding/json"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadscout/threadscout-mcp/internal/config"
	"github.com/threadscout/threadscout-mcp/internal/llm"
)

func newUnconfiguredServer(t *testing.T) *Server {
	t.Helper()
	t.Setenv(llm.EnvProvider, "")
	t.Setenv(llm.EnvOpenAIKey, "")
	t.Setenv(llm.EnvAnthropicKey, "")

	s, err := NewServer(config.Default(), nil)
	require.NoError(t, err, "a missing AI credential must not prevent startup")
	t.Cleanup(s.Close)
	return s
}

func callRequest(args map[string]interface{}) mcpgo.CallToolRequest {
	var req mcpgo.CallToolRequest
	req.Params.Arguments = args
	return req
}

func TestSearchPostsValidation(t *testing.T) {
	s := newUnconfiguredServer(t)

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{name: "missing query", args: map[string]interface{}{}},
		{name: "empty query", args: map[string]interface{}{"query": ""}},
		{name: "bad sort", args: map[string]interface{}{"query": "x", "sort": "controversial"}},
		{name: "bad time", args: map[string]interface{}{"query": "x", "time": "decade"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.handleSearchPosts(context.Background(), callRequest(tt.args))
			require.Error(t, err)
			var me *MCPError
			require.ErrorAs(t, err, &me)
			assert.Equal(t, ErrorCodeInvalidParams, me.Code)
		})
	}
}

func TestContextSearchNotConfigured(t *testing.T) {
	s := newUnconfiguredServer(t)

	_, err := s.handleContextSearch(context.Background(), callRequest(map[string]interface{}{"query": "find me things"}))
	require.Error(t, err)
	var me *MCPError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, ErrorCodeNotConfigured, me.Code)
}

func TestGetStatus(t *testing.T) {
	s := newUnconfiguredServer(t)

	res, err := s.handleGetStatus(context.Background(), callRequest(nil))
	require.NoError(t, err)
	require.Len(t, res.Content, 1)

	text, ok := res.Content[0].(mcpgo.TextContent)
	require.True(t, ok)

	var status map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &status))
	assert.Equal(t, ServerName, status["server"])
	ai, ok := status["ai"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, false, ai["available"])
}
