package relevance

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadscout/threadscout-mcp/internal/llm"
	"github.com/threadscout/threadscout-mcp/pkg/types"
)

type stubCompleter struct {
	completion string
	err        error
	lastReq    llm.Request
}

func (s *stubCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	s.lastReq = req
	return s.completion, s.err
}

func (s *stubCompleter) Provider() string { return "stub" }
func (s *stubCompleter) Model() string    { return "stub-model" }

func threePosts() []types.Post {
	return []types.Post{
		{ID: "p0", Title: "zero", Subreddit: "techsupport"},
		{ID: "p1", Title: "one", Subreddit: "laptops", Excerpt: "fan spins loudly"},
		{ID: "p2", Title: "two", Subreddit: "hardware"},
	}
}

func TestFilterKeepsAndOrdersByScore(t *testing.T) {
	stub := &stubCompleter{completion: `{"0": 2, "1": 9, "2": 7}`}
	f := New(stub, DefaultConfig(), nil)

	kept, stats := f.Filter(context.Background(), threePosts(), "laptop overheating")
	require.Len(t, kept, 2)
	assert.Equal(t, "p1", kept[0].ID)
	assert.Equal(t, 9, kept[0].Relevance)
	assert.Equal(t, "p2", kept[1].ID)
	assert.Equal(t, 7, kept[1].Relevance)

	assert.Equal(t, Stats{Scored: 3, Kept: 2}, stats)
	assert.Contains(t, stub.lastReq.Messages[0].Content, "1. [laptops] one - fan spins loudly")
}

func TestFilterMissingPositionScoresZero(t *testing.T) {
	stub := &stubCompleter{completion: `{"1": 8}`}
	f := New(stub, DefaultConfig(), nil)

	kept, _ := f.Filter(context.Background(), threePosts(), "q")
	require.Len(t, kept, 1)
	assert.Equal(t, "p1", kept[0].ID)
}

func TestFilterFallbackOnUnparsableScores(t *testing.T) {
	stub := &stubCompleter{completion: "I would rate these posts as quite relevant overall."}
	f := New(stub, DefaultConfig(), nil)

	posts := make([]types.Post, 30)
	for i := range posts {
		posts[i] = types.Post{ID: fmt.Sprintf("p%d", i)}
	}

	kept, stats := f.Filter(context.Background(), posts, "q")
	assert.Len(t, kept, DefaultFallbackLimit)
	assert.True(t, stats.Fallback)
	assert.Equal(t, "p0", kept[0].ID, "fallback preserves input order")
	assert.Zero(t, kept[0].Relevance, "fallback posts are unscored")
}

func TestFilterFallbackOnServiceError(t *testing.T) {
	stub := &stubCompleter{err: errors.New("connection refused")}
	f := New(stub, DefaultConfig(), nil)

	kept, stats := f.Filter(context.Background(), threePosts(), "q")
	assert.Len(t, kept, 3)
	assert.True(t, stats.Fallback)
}

func TestFilterConfigurableThreshold(t *testing.T) {
	stub := &stubCompleter{completion: `{"0": 4, "1": 5, "2": 3}`}
	f := New(stub, Config{MinScore: 4, FallbackLimit: 10}, nil)

	kept, _ := f.Filter(context.Background(), threePosts(), "q")
	require.Len(t, kept, 2)
	assert.Equal(t, "p1", kept[0].ID)
	assert.Equal(t, "p0", kept[1].ID)
}

func TestFilterEmptyInput(t *testing.T) {
	stub := &stubCompleter{}
	f := New(stub, DefaultConfig(), nil)

	kept, stats := f.Filter(context.Background(), nil, "q")
	assert.Empty(t, kept)
	assert.Equal(t, Stats{}, stats)
}
