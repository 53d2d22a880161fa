package types

// SortMode selects the upstream ranking for a search.
type SortMode string

const (
	SortTop SortMode = "top"
	SortHot SortMode = "hot"
)

// TimeRange restricts results to a creation-time bucket. All values except
// TimeLast15Days map directly onto upstream buckets; TimeLast15Days is
// synthetic and is satisfied by requesting TimeMonth and filtering
// client-side.
type TimeRange string

const (
	TimeAll        TimeRange = "all"
	TimeHour       TimeRange = "hour"
	TimeDay        TimeRange = "day"
	TimeWeek       TimeRange = "week"
	TimeMonth      TimeRange = "month"
	TimeYear       TimeRange = "year"
	TimeLast15Days TimeRange = "15days"
)

// SearchQuery is an immutable description of one upstream search.
type SearchQuery struct {
	Query string    `json:"query"`
	Sort  SortMode  `json:"sort"`
	Time  TimeRange `json:"time,omitempty"`
}

// Validate checks that the query text and enumerations are usable.
func (q SearchQuery) Validate() error {
	if q.Query == "" {
		return ErrEmptyQuery
	}
	switch q.Sort {
	case SortTop, SortHot:
	default:
		return ErrInvalidSort
	}
	switch q.Time {
	case "", TimeAll, TimeHour, TimeDay, TimeWeek, TimeMonth, TimeYear, TimeLast15Days:
	default:
		return ErrInvalidTimeRange
	}
	return nil
}
