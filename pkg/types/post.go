package types

import "time"

// Post is a normalized search result from the upstream platform.
type Post struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Score       int       `json:"score"`
	NumComments int       `json:"num_comments"`
	Permalink   string    `json:"permalink"`
	Subreddit   string    `json:"subreddit"`
	CreatedAt   time.Time `json:"created_at"`
	Author      string    `json:"author"`
	Excerpt     string    `json:"excerpt,omitempty"`

	// Relevance is set only after a post has passed the relevance filter
	// (range 1-10; 0 means unscored).
	Relevance int `json:"relevance,omitempty"`
}

// DedupePosts removes duplicate IDs from a flattened result set.
// The first occurrence wins and keeps its position.
func DedupePosts(posts []Post) []Post {
	seen := make(map[string]struct{}, len(posts))
	out := make([]Post, 0, len(posts))
	for _, p := range posts {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}
