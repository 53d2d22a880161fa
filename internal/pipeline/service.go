// Package pipeline sequences the search components: the plain path
// (cache, rate limiter, fetcher) and the AI-assisted context path
// (planner, fan-out aggregator, relevance filter).
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/threadscout/threadscout-mcp/internal/cache"
	"github.com/threadscout/threadscout-mcp/internal/llm"
	"github.com/threadscout/threadscout-mcp/internal/ratelimit"
	"github.com/threadscout/threadscout-mcp/internal/relevance"
	"github.com/threadscout/threadscout-mcp/pkg/types"
)

// State names one stage of a context-search invocation. There is no
// mid-pipeline cancellation; a new invocation simply supersedes interest
// in a prior one.
type State string

const (
	StateIdle      State = "idle"
	StatePlanning  State = "planning"
	StateFetching  State = "fetching"
	StateFiltering State = "filtering"
	StateDone      State = "done"
	StateFailed    State = "failed"
)

const (
	// enrichLimit bounds how many posts get a discussion-thread excerpt
	// fetched before filtering.
	enrichLimit = 10
	// enrichConcurrency bounds parallel detail fetches.
	enrichConcurrency = 4
)

// Fetcher retrieves posts from the upstream platform.
type Fetcher interface {
	Search(ctx context.Context, q types.SearchQuery) ([]types.Post, error)
	FetchDetail(ctx context.Context, permalink string) string
}

// QueryPlanner decomposes a natural-language query into structured
// queries.
type QueryPlanner interface {
	Plan(ctx context.Context, query string) ([]types.SearchQuery, error)
}

// RelevanceFilter scores posts against a query and keeps the relevant
// ones. It never fails; degraded output is still output.
type RelevanceFilter interface {
	Filter(ctx context.Context, posts []types.Post, query string) ([]types.Post, relevance.Stats)
}

// Service exposes the two search surfaces. The cache and limiter are
// injected process-lifetime singletons; everything else is request-scoped.
type Service struct {
	fetcher Fetcher
	cache   *cache.Cache
	limiter *ratelimit.Limiter
	planner QueryPlanner
	filter  RelevanceFilter
	logger  *slog.Logger
}

// New creates the pipeline service. planner and filter may be nil when no
// text-generation service is configured; SearchWithContext then fails with
// the configuration error kind.
func New(fetcher Fetcher, c *cache.Cache, l *ratelimit.Limiter, p QueryPlanner, f RelevanceFilter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{fetcher: fetcher, cache: c, limiter: l, planner: p, filter: f, logger: logger}
}

// SearchPlain serves a keyword search: cache first, then admission
// control, then one upstream fetch whose result fills the cache.
func (s *Service) SearchPlain(ctx context.Context, identity string, q types.SearchQuery) (*types.PlainResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	if posts, age, ok := s.cache.Get(q); ok {
		s.logger.Info("cache hit", "query", q.Query, "age", age)
		return &types.PlainResult{
			Posts:           posts,
			Cached:          true,
			CacheAgeSeconds: int64(age.Seconds()),
		}, nil
	}

	if d := s.limiter.Admit(identity); !d.Allowed {
		return nil, &types.RateLimitError{RetryAfter: d.RetryAfter}
	}

	posts, err := s.fetcher.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("plain search: %w", err)
	}

	s.cache.Put(q, posts)
	s.logger.Info("plain search complete", "query", q.Query, "posts", len(posts))
	return &types.PlainResult{Posts: posts, Cached: false}, nil
}

// SearchWithContext runs the AI-assisted pipeline: plan, fan out, dedupe,
// enrich, filter. It bypasses the result cache. Filtering is non-fatal;
// only planning and fetching can fail the invocation.
func (s *Service) SearchWithContext(ctx context.Context, query string) (*types.ContextResult, error) {
	if query == "" {
		return nil, types.ErrEmptyQuery
	}
	if s.planner == nil || s.filter == nil {
		return nil, fmt.Errorf("context search: %w", llm.ErrNotConfigured)
	}

	invocation := uuid.NewString()
	state := StateIdle
	transition := func(next State) {
		state = next
		s.logger.Info("context search state", "invocation", invocation, "state", state)
	}

	transition(StatePlanning)
	queries, err := s.planner.Plan(ctx, query)
	if err != nil {
		transition(StateFailed)
		return nil, fmt.Errorf("context search planning: %w", err)
	}

	transition(StateFetching)
	posts, fetched, failures := aggregate(ctx, s.fetcher, queries, s.logger)
	if failures == len(queries) {
		transition(StateFailed)
		return nil, fmt.Errorf("context search fetching: %w", types.ErrAllBranchesFailed)
	}
	deduped := len(posts)
	s.enrich(ctx, posts)

	transition(StateFiltering)
	kept, stats := s.filter.Filter(ctx, posts, query)

	transition(StateDone)
	return &types.ContextResult{
		Posts:        kept,
		QueryContext: queries,
		FilterStats: &types.FilterStats{
			Planned:  len(queries),
			Fetched:  fetched,
			Deduped:  deduped,
			Scored:   stats.Scored,
			Kept:     stats.Kept,
			Fallback: stats.Fallback,
		},
	}, nil
}

// enrich fetches discussion excerpts for the leading posts that have no
// excerpt of their own, so the relevance filter has text to score.
// Failures are tolerated per item.
func (s *Service) enrich(ctx context.Context, posts []types.Post) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)

	enriched := 0
	for i := range posts {
		if enriched == enrichLimit {
			break
		}
		if posts[i].Excerpt != "" {
			continue
		}
		enriched++
		g.Go(func() error {
			posts[i].Excerpt = s.fetcher.FetchDetail(gctx, posts[i].Permalink)
			return nil
		})
	}
	_ = g.Wait()
}
