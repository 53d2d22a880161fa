// Package planner decomposes a natural-language query into structured
// search queries using a text-generation service.
package planner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/threadscout/threadscout-mcp/internal/llm"
	"github.com/threadscout/threadscout-mcp/pkg/types"
)

// MaxQueries is how many structured queries one plan may contain.
const MaxQueries = 3

const planTemperature = 0.3

const planPrompt = `You turn a user's natural-language request into search queries for a discussion platform's search index.

Produce exactly 3 queries:
1. A broad query using synonyms and related terms.
2. A high-precision query targeting exact phrases or fields (e.g. title:"...").
3. A query framed around how-to / problem-solving language, or targeting a specific community (e.g. subreddit:...).

User request: %s

Respond with ONLY a JSON array of 3 strings, nothing else.`

// Planner turns a natural-language query into up to MaxQueries structured
// queries.
type Planner struct {
	completer llm.Completer
	logger    *slog.Logger
}

// New creates a planner.
func New(completer llm.Completer, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{completer: completer, logger: logger}
}

// Plan returns the structured queries for query. A malformed completion
// degrades to a single query containing the original text verbatim; only
// service-level failures (unreachable, unauthorized, not configured)
// propagate as errors.
func (p *Planner) Plan(ctx context.Context, query string) ([]types.SearchQuery, error) {
	completion, err := p.completer.Complete(ctx, llm.Request{
		Messages:    []llm.Message{{Role: "user", Content: fmt.Sprintf(planPrompt, query)}},
		Temperature: planTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("plan queries: %w", err)
	}

	var raw []string
	if err := llm.DecodeLoose(completion, &raw); err != nil {
		p.logger.Warn("unparsable plan, falling back to verbatim query", "cause", err)
		return []types.SearchQuery{{Query: query, Sort: types.SortTop}}, nil
	}

	queries := make([]types.SearchQuery, 0, MaxQueries)
	for _, q := range raw {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		queries = append(queries, types.SearchQuery{Query: q, Sort: types.SortTop})
		if len(queries) == MaxQueries {
			break
		}
	}
	if len(queries) == 0 {
		p.logger.Warn("plan produced no usable queries, falling back to verbatim query")
		return []types.SearchQuery{{Query: query, Sort: types.SortTop}}, nil
	}
	return queries, nil
}
