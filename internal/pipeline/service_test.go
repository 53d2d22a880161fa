package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadscout/threadscout-mcp/internal/cache"
	"github.com/threadscout/threadscout-mcp/internal/llm"
	"github.com/threadscout/threadscout-mcp/internal/ratelimit"
	"github.com/threadscout/threadscout-mcp/internal/relevance"
	"github.com/threadscout/threadscout-mcp/pkg/types"
)

// fakeFetcher serves canned results per query string and counts calls.
type fakeFetcher struct {
	mu      sync.Mutex
	results map[string][]types.Post
	errs    map[string]error
	details map[string]string
	calls   int
}

func (f *fakeFetcher) Search(_ context.Context, q types.SearchQuery) ([]types.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err, ok := f.errs[q.Query]; ok {
		return nil, err
	}
	return f.results[q.Query], nil
}

func (f *fakeFetcher) FetchDetail(_ context.Context, permalink string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.details[permalink]
}

func (f *fakeFetcher) searchCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakePlanner struct {
	queries []types.SearchQuery
	err     error
}

func (p *fakePlanner) Plan(context.Context, string) ([]types.SearchQuery, error) {
	return p.queries, p.err
}

type passthroughFilter struct {
	stats relevance.Stats
}

func (f *passthroughFilter) Filter(_ context.Context, posts []types.Post, _ string) ([]types.Post, relevance.Stats) {
	st := f.stats
	st.Scored = len(posts)
	st.Kept = len(posts)
	return posts, st
}

func newTestService(t *testing.T, fetcher Fetcher, p QueryPlanner, f RelevanceFilter) *Service {
	t.Helper()
	c := cache.New(5*time.Minute, 100, nil)
	t.Cleanup(c.Close)
	l := ratelimit.New(2*time.Second, 1, nil)
	t.Cleanup(l.Close)
	return New(fetcher, c, l, p, f, nil)
}

func TestSearchPlainCachesSecondCall(t *testing.T) {
	posts := []types.Post{{ID: "a", Title: "laptop overheating fix", Score: 42}}
	fetcher := &fakeFetcher{results: map[string][]types.Post{"laptop overheating": posts}}
	svc := newTestService(t, fetcher, nil, nil)

	q := types.SearchQuery{Query: "laptop overheating", Sort: types.SortTop}

	first, err := svc.SearchPlain(context.Background(), "client", q)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, posts, first.Posts)

	second, err := svc.SearchPlain(context.Background(), "client", q)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.GreaterOrEqual(t, second.CacheAgeSeconds, int64(0))
	assert.Equal(t, first.Posts, second.Posts)

	assert.Equal(t, 1, fetcher.searchCalls(), "cached repeat must not hit upstream")
}

func TestSearchPlainRateLimited(t *testing.T) {
	fetcher := &fakeFetcher{results: map[string][]types.Post{
		"one": {{ID: "1"}},
		"two": {{ID: "2"}},
	}}
	svc := newTestService(t, fetcher, nil, nil)

	_, err := svc.SearchPlain(context.Background(), "client", types.SearchQuery{Query: "one", Sort: types.SortTop})
	require.NoError(t, err)

	// Different query misses the cache and hits the limiter inside the
	// same window.
	_, err = svc.SearchPlain(context.Background(), "client", types.SearchQuery{Query: "two", Sort: types.SortTop})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrRateLimited)

	var rle *types.RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.Greater(t, rle.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, rle.RetryAfter, 2*time.Second)
}

func TestSearchPlainValidates(t *testing.T) {
	svc := newTestService(t, &fakeFetcher{}, nil, nil)
	_, err := svc.SearchPlain(context.Background(), "client", types.SearchQuery{Sort: types.SortTop})
	assert.ErrorIs(t, err, types.ErrEmptyQuery)
}

func TestSearchWithContextAggregatesBranches(t *testing.T) {
	fetcher := &fakeFetcher{
		results: map[string][]types.Post{
			"q1": {{ID: "a", Score: 10}, {ID: "b", Score: 5}},
			"q3": {{ID: "b", Score: 5}, {ID: "c", Score: 1}},
		},
		errs: map[string]error{"q2": errors.New("upstream exploded")},
	}
	planner := &fakePlanner{queries: []types.SearchQuery{
		{Query: "q1", Sort: types.SortTop},
		{Query: "q2", Sort: types.SortTop},
		{Query: "q3", Sort: types.SortTop},
	}}
	svc := newTestService(t, fetcher, planner, &passthroughFilter{})

	res, err := svc.SearchWithContext(context.Background(), "find things")
	require.NoError(t, err, "one failed branch must not fail the pipeline")

	ids := make([]string, len(res.Posts))
	for i, p := range res.Posts {
		ids[i] = p.ID
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids, "union of surviving branches, deduplicated, first-seen order")

	require.NotNil(t, res.FilterStats)
	assert.Equal(t, 3, res.FilterStats.Planned)
	assert.Equal(t, 4, res.FilterStats.Fetched)
	assert.Equal(t, 3, res.FilterStats.Deduped)
	assert.Len(t, res.QueryContext, 3)
}

func TestSearchWithContextAllBranchesFailed(t *testing.T) {
	fetcher := &fakeFetcher{errs: map[string]error{"q1": errors.New("boom"), "q2": errors.New("boom")}}
	planner := &fakePlanner{queries: []types.SearchQuery{
		{Query: "q1", Sort: types.SortTop},
		{Query: "q2", Sort: types.SortTop},
	}}
	svc := newTestService(t, fetcher, planner, &passthroughFilter{})

	_, err := svc.SearchWithContext(context.Background(), "anything")
	assert.ErrorIs(t, err, types.ErrAllBranchesFailed)
}

func TestSearchWithContextPlannerFailureIsFatal(t *testing.T) {
	planner := &fakePlanner{err: llm.ErrUnauthorized}
	svc := newTestService(t, &fakeFetcher{}, planner, &passthroughFilter{})

	_, err := svc.SearchWithContext(context.Background(), "anything")
	assert.ErrorIs(t, err, llm.ErrUnauthorized)
}

func TestSearchWithContextUnconfigured(t *testing.T) {
	svc := newTestService(t, &fakeFetcher{}, nil, nil)

	_, err := svc.SearchWithContext(context.Background(), "anything")
	assert.ErrorIs(t, err, llm.ErrNotConfigured)
}

func TestSearchWithContextEnrichesExcerpts(t *testing.T) {
	fetcher := &fakeFetcher{
		results: map[string][]types.Post{
			"q1": {
				{ID: "a", Permalink: "/p/a"},
				{ID: "b", Permalink: "/p/b", Excerpt: "already has one"},
			},
		},
		details: map[string]string{"/p/a": "thread replies"},
	}
	planner := &fakePlanner{queries: []types.SearchQuery{{Query: "q1", Sort: types.SortTop}}}
	svc := newTestService(t, fetcher, planner, &passthroughFilter{})

	res, err := svc.SearchWithContext(context.Background(), "anything")
	require.NoError(t, err)
	require.Len(t, res.Posts, 2)
	assert.Equal(t, "thread replies", res.Posts[0].Excerpt)
	assert.Equal(t, "already has one", res.Posts[1].Excerpt)
}
