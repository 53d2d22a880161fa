package pipeline

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/threadscout/threadscout-mcp/pkg/types"
)

// aggregate runs one fetch per query concurrently, waits for all branches,
// then flattens and deduplicates by post ID (first occurrence wins,
// preserving its position). A failed branch contributes zero posts and a
// diagnostic; it never fails the others.
func aggregate(ctx context.Context, fetcher Fetcher, queries []types.SearchQuery, logger *slog.Logger) (posts []types.Post, fetched int, failures int) {
	branches := make([][]types.Post, len(queries))
	errs := make([]error, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		g.Go(func() error {
			branches[i], errs[i] = fetcher.Search(gctx, q)
			return nil // branch errors are recorded, not propagated
		})
	}
	_ = g.Wait()

	var flat []types.Post
	for i, branch := range branches {
		if errs[i] != nil {
			failures++
			logger.Warn("search branch failed", "query", queries[i].Query, "cause", errs[i])
			continue
		}
		flat = append(flat, branch...)
	}
	fetched = len(flat)
	return types.DedupePosts(flat), fetched, failures
}
