// Package upstream retrieves and normalizes search results from the
// content platform's public JSON listing API.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/threadscout/threadscout-mcp/internal/retry"
	"github.com/threadscout/threadscout-mcp/pkg/types"
)

const (
	DefaultBaseURL   = "https://www.reddit.com"
	DefaultUserAgent = "threadscout/1.0 (post search client)"

	// MaxPosts caps the size of one fetched result set.
	MaxPosts = 100
	// maxPages bounds pagination regardless of the post budget.
	maxPages = 4
	// pageSize is the largest page the upstream listing allows.
	pageSize = 100

	// pageDelay is the polite pause between paginated requests. Skipped
	// after the final page.
	defaultPageDelay = time.Second

	defaultTimeout = 10 * time.Second

	maxExcerptLen = 500

	// syntheticWindow is the cutoff for the client-side "last 15 days"
	// bucket, which the upstream has no native equivalent for.
	syntheticWindow = 15 * 24 * time.Hour
)

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	PageDelay time.Duration
	Logger    *slog.Logger
}

// Client pages through the upstream listing endpoint and normalizes items
// into the internal post representation. Safe for concurrent use.
type Client struct {
	baseURL     string
	userAgent   string
	httpClient  *http.Client
	pageDelay   time.Duration
	logger      *slog.Logger
	listRetry   retry.Config
	detailRetry retry.Config

	now func() time.Time
}

// NewClient creates an upstream client.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.PageDelay <= 0 {
		opts.PageDelay = defaultPageDelay
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		baseURL:     opts.BaseURL,
		userAgent:   opts.UserAgent,
		httpClient:  &http.Client{Timeout: opts.Timeout},
		pageDelay:   opts.PageDelay,
		logger:      opts.Logger,
		listRetry:   retry.ListingConfig(),
		detailRetry: retry.DetailConfig(),
		now:         time.Now,
	}
}

// listingEnvelope mirrors the upstream listing response shape.
type listingEnvelope struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Data itemData `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type itemData struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	Permalink   string  `json:"permalink"`
	Subreddit   string  `json:"subreddit"`
	CreatedUTC  float64 `json:"created_utc"`
	Author      string  `json:"author"`
	Selftext    string  `json:"selftext"`
	Body        string  `json:"body"`
}

// Search fetches up to MaxPosts posts for q, sorted by score descending.
// A page failure after the retry budget stops paging and returns whatever
// was accumulated; only a failure with nothing accumulated is an error.
func (c *Client) Search(ctx context.Context, q types.SearchQuery) ([]types.Post, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	timeParam := q.Time
	var cutoff time.Time
	if q.Time == types.TimeLast15Days {
		// Nearest native bucket, then discard anything older than the
		// synthetic cutoff computed at fetch start.
		timeParam = types.TimeMonth
		cutoff = c.now().Add(-syntheticWindow)
	}

	var posts []types.Post
	seen := make(map[string]struct{})
	after := ""

	for page := 0; page < maxPages; page++ {
		env, err := retry.Do(ctx, c.listRetry, c.logger, "upstream listing", func() (*listingEnvelope, error) {
			return c.fetchPage(ctx, q.Query, q.Sort, timeParam, after)
		})
		if err != nil {
			if len(posts) == 0 {
				return nil, fmt.Errorf("search %q: %w", q.Query, err)
			}
			c.logger.Warn("page fetch failed, returning partial results",
				"query", q.Query, "page", page, "accumulated", len(posts), "cause", err)
			break
		}

		if len(env.Data.Children) == 0 {
			break
		}
		for _, child := range env.Data.Children {
			p := normalize(child.Data)
			if p.ID == "" {
				continue
			}
			if _, dup := seen[p.ID]; dup {
				continue
			}
			// Items exactly at the 15-day edge are kept.
			if !cutoff.IsZero() && p.CreatedAt.Before(cutoff) {
				continue
			}
			seen[p.ID] = struct{}{}
			posts = append(posts, p)
		}

		after = env.Data.After
		if after == "" || len(posts) >= MaxPosts {
			break
		}

		// More pages remain: politeness delay before the next request.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pageDelay):
		}
	}

	sort.SliceStable(posts, func(i, j int) bool { return posts[i].Score > posts[j].Score })
	if len(posts) > MaxPosts {
		posts = posts[:MaxPosts]
	}
	return posts, nil
}

func (c *Client) fetchPage(ctx context.Context, query string, sortMode types.SortMode, timeRange types.TimeRange, after string) (*listingEnvelope, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("sort", string(sortMode))
	params.Set("limit", strconv.Itoa(pageSize))
	params.Set("raw_json", "1")
	if timeRange != "" {
		params.Set("t", string(timeRange))
	}
	if after != "" {
		params.Set("after", after)
	}

	body, err := c.get(ctx, c.baseURL+"/search.json?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var env listingEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}
	return &env, nil
}

// get performs one GET and classifies non-2xx statuses for the retry
// executor.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &retry.StatusError{Status: resp.StatusCode, Body: string(snippet)}
	}
	return io.ReadAll(resp.Body)
}

// normalize maps one upstream item onto the internal representation.
func normalize(d itemData) types.Post {
	excerpt := d.Selftext
	if len(excerpt) > maxExcerptLen {
		excerpt = excerpt[:maxExcerptLen]
	}
	return types.Post{
		ID:          d.ID,
		Title:       d.Title,
		Score:       d.Score,
		NumComments: d.NumComments,
		Permalink:   DefaultBaseURL + d.Permalink,
		Subreddit:   d.Subreddit,
		CreatedAt:   time.Unix(int64(d.CreatedUTC), 0).UTC(),
		Author:      d.Author,
		Excerpt:     excerpt,
	}
}
