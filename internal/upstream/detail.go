package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/threadscout/threadscout-mcp/internal/retry"
)

const maxDetailReplies = 10

// Reply bodies the upstream substitutes for removed content.
var tombstones = map[string]struct{}{
	"[deleted]": {},
	"[removed]": {},
}

// FetchDetail retrieves up to maxDetailReplies top-level replies for one
// item and joins them into a single excerpt string. It never fails the
// caller: any error yields an empty string so work on other items can
// proceed.
func (c *Client) FetchDetail(ctx context.Context, permalink string) string {
	path := permalinkPath(permalink)
	if path == "" {
		return ""
	}

	endpoint := fmt.Sprintf("%s%s.json?limit=%d&raw_json=1", c.baseURL, strings.TrimSuffix(path, "/"), maxDetailReplies)

	body, err := retry.Do(ctx, c.detailRetry, c.logger, "upstream detail", func() ([]byte, error) {
		return c.get(ctx, endpoint)
	})
	if err != nil {
		c.logger.Warn("detail fetch failed", "permalink", permalink, "cause", err)
		return ""
	}

	// The detail endpoint returns a two-element array; the second element
	// is the reply listing.
	var envelopes []listingEnvelope
	if err := json.Unmarshal(body, &envelopes); err != nil {
		c.logger.Warn("detail decode failed", "permalink", permalink, "cause", err)
		return ""
	}
	if len(envelopes) < 2 {
		return ""
	}

	var replies []string
	for _, child := range envelopes[1].Data.Children {
		text := strings.TrimSpace(child.Data.Body)
		if text == "" {
			continue
		}
		if _, gone := tombstones[text]; gone {
			continue
		}
		replies = append(replies, text)
		if len(replies) >= maxDetailReplies {
			break
		}
	}
	return strings.Join(replies, "\n\n")
}

// permalinkPath reduces a permalink to its path so detail requests follow
// the client's configured origin.
func permalinkPath(permalink string) string {
	if strings.HasPrefix(permalink, "/") {
		return permalink
	}
	u, err := url.Parse(permalink)
	if err != nil {
		return ""
	}
	return u.Path
}
