// Package cache provides time-bounded memoization of completed searches,
// keyed by normalized query parameters. Entries are immutable once stored;
// staleness is handled by lazy eviction on read plus a periodic sweep.
package cache

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/threadscout/threadscout-mcp/pkg/types"
)

const (
	DefaultTTL        = 5 * time.Minute
	DefaultMaxEntries = 1000

	sweepInterval = time.Minute
)

// entry is a stored result list plus its creation instant. Never mutated
// in place; a fresh Put replaces the whole entry.
type entry struct {
	posts     []types.Post
	createdAt time.Time
}

// Cache memoizes search results with a TTL. Safe for concurrent use; the
// underlying LRU bounds memory if many distinct queries arrive within one
// TTL window.
type Cache struct {
	ttl    time.Duration
	store  *lru.Cache[string, *entry]
	logger *slog.Logger

	now  func() time.Time
	done chan struct{}
	once sync.Once
}

// New creates a cache and starts its background sweep. Close must be
// called to stop the sweeper.
func New(ttl time.Duration, maxEntries int, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	store, err := lru.New[string, *entry](maxEntries)
	if err != nil {
		// Only reachable with a non-positive size, which is guarded above.
		panic(err)
	}
	c := &Cache{
		ttl:    ttl,
		store:  store,
		logger: logger,
		now:    time.Now,
		done:   make(chan struct{}),
	}
	go c.sweepLoop(sweepInterval)
	return c
}

// Key normalizes query parameters into the cache key: lowercased, trimmed
// query text joined with sort and time bucket.
func Key(q types.SearchQuery) string {
	parts := []string{strings.ToLower(strings.TrimSpace(q.Query)), string(q.Sort)}
	if q.Time != "" {
		parts = append(parts, string(q.Time))
	}
	return strings.Join(parts, "|")
}

// Get returns the cached posts for q and their age. A hit past the TTL is
// evicted and reported as a miss. The age is computed at call time from
// the entry's creation instant.
func (c *Cache) Get(q types.SearchQuery) ([]types.Post, time.Duration, bool) {
	key := Key(q)
	e, ok := c.store.Get(key)
	if !ok {
		return nil, 0, false
	}
	age := c.now().Sub(e.createdAt)
	if age > c.ttl {
		c.store.Remove(key)
		return nil, 0, false
	}
	// Copy so callers cannot mutate the stored entry.
	posts := make([]types.Post, len(e.posts))
	copy(posts, e.posts)
	return posts, age, true
}

// Put stores posts for q, replacing any previous entry.
func (c *Cache) Put(q types.SearchQuery, posts []types.Post) {
	stored := make([]types.Post, len(posts))
	copy(stored, posts)
	c.store.Add(Key(q), &entry{posts: stored, createdAt: c.now()})
}

// Len returns the number of stored entries, including any not yet swept.
func (c *Cache) Len() int {
	return c.store.Len()
}

// Close stops the background sweeper.
func (c *Cache) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *Cache) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

// sweep evicts every entry past the TTL.
func (c *Cache) sweep() {
	now := c.now()
	removed := 0
	for _, key := range c.store.Keys() {
		if e, ok := c.store.Peek(key); ok && now.Sub(e.createdAt) > c.ttl {
			c.store.Remove(key)
			removed++
		}
	}
	if removed > 0 && c.logger != nil {
		c.logger.Debug("swept expired cache entries", "removed", removed, "remaining", c.store.Len())
	}
}
