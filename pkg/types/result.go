package types

// PlainResult is the response envelope for a plain keyword search.
type PlainResult struct {
	Posts           []Post `json:"posts"`
	Cached          bool   `json:"cached"`
	CacheAgeSeconds int64  `json:"cache_age_seconds,omitempty"`
}

// FilterStats reports how many posts survived each stage of a context
// search.
type FilterStats struct {
	Planned  int  `json:"planned_queries"`
	Fetched  int  `json:"fetched"`
	Deduped  int  `json:"deduped"`
	Scored   int  `json:"scored"`
	Kept     int  `json:"kept"`
	Fallback bool `json:"fallback,omitempty"`
}

// ContextResult is the response envelope for an AI-assisted context search.
type ContextResult struct {
	Posts        []Post        `json:"posts"`
	QueryContext []SearchQuery `json:"query_context"`
	FilterStats  *FilterStats  `json:"filter_stats,omitempty"`
}
