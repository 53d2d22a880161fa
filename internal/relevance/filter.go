// Package relevance scores aggregated posts against the user's original
// query and keeps only sufficiently relevant ones. Scoring failure is
// non-fatal: the filter always produces a result.
package relevance

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/threadscout/threadscout-mcp/internal/llm"
	"github.com/threadscout/threadscout-mcp/pkg/types"
)

const (
	// DefaultMinScore is the 0-10 score a post needs to survive filtering.
	DefaultMinScore = 6
	// DefaultFallbackLimit caps the unscored result set returned when the
	// scoring response cannot be parsed.
	DefaultFallbackLimit = 20

	scoreTemperature   = 0.0
	maxExcerptInPrompt = 200
)

const scorePrompt = `Rate how relevant each post is to the user's request on a scale of 0 (unrelated) to 10 (directly answers it).

User request: %s

Posts:
%s

Respond with ONLY a JSON object mapping each post's index to its integer score, e.g. {"0": 7, "1": 2}.`

// Config tunes the filter thresholds.
type Config struct {
	MinScore      int
	FallbackLimit int
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{MinScore: DefaultMinScore, FallbackLimit: DefaultFallbackLimit}
}

// Stats describes one filtering pass.
type Stats struct {
	Scored   int
	Kept     int
	Fallback bool
}

// Filter scores posts against a natural-language query via one
// text-generation call.
type Filter struct {
	completer llm.Completer
	cfg       Config
	logger    *slog.Logger
}

// New creates a filter. Zero-valued config fields fall back to defaults.
func New(completer llm.Completer, cfg Config, logger *slog.Logger) *Filter {
	if cfg.MinScore <= 0 {
		cfg.MinScore = DefaultMinScore
	}
	if cfg.FallbackLimit <= 0 {
		cfg.FallbackLimit = DefaultFallbackLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Filter{completer: completer, cfg: cfg, logger: logger}
}

// Filter returns the subset of posts scoring at least MinScore, sorted by
// score descending, each carrying its relevance score. Any failure to
// obtain or parse scores degrades to the first FallbackLimit posts
// unscored; a position missing from the scoring map counts as 0.
func (f *Filter) Filter(ctx context.Context, posts []types.Post, query string) ([]types.Post, Stats) {
	if len(posts) == 0 {
		return posts, Stats{}
	}

	completion, err := f.completer.Complete(ctx, llm.Request{
		Messages:    []llm.Message{{Role: "user", Content: fmt.Sprintf(scorePrompt, query, projection(posts))}},
		Temperature: scoreTemperature,
	})
	if err != nil {
		f.logger.Warn("relevance scoring call failed, returning unscored fallback", "cause", err)
		return f.fallback(posts)
	}

	// Models occasionally emit fractional scores; accept and round them.
	var raw map[string]float64
	if err := llm.DecodeLoose(completion, &raw); err != nil {
		f.logger.Warn("unparsable relevance scores, returning unscored fallback", "cause", err)
		return f.fallback(posts)
	}

	kept := make([]types.Post, 0, len(posts))
	for i, p := range posts {
		score := int(math.Round(raw[strconv.Itoa(i)]))
		if score < f.cfg.MinScore {
			continue
		}
		if score > 10 {
			score = 10
		}
		p.Relevance = score
		kept = append(kept, p)
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Relevance > kept[j].Relevance })

	return kept, Stats{Scored: len(posts), Kept: len(kept)}
}

func (f *Filter) fallback(posts []types.Post) ([]types.Post, Stats) {
	if len(posts) > f.cfg.FallbackLimit {
		posts = posts[:f.cfg.FallbackLimit]
	}
	return posts, Stats{Kept: len(posts), Fallback: true}
}

// projection renders the simplified, position-indexed view of each post
// given to the scoring prompt.
func projection(posts []types.Post) string {
	var sb strings.Builder
	for i, p := range posts {
		excerpt := p.Excerpt
		if len(excerpt) > maxExcerptInPrompt {
			excerpt = excerpt[:maxExcerptInPrompt]
		}
		fmt.Fprintf(&sb, "%d. [%s] %s", i, p.Subreddit, p.Title)
		if excerpt != "" {
			sb.WriteString(" - ")
			sb.WriteString(excerpt)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
