package domain

// DateRange holds ISO dates (YYYY-MM-DD). End may be empty.
type DateRange struct {
	Start string
	End   string
}

type PriceRange struct {
	Min *float64
	Max *float64
}

// DurationRange bounds activity duration in minutes.
type DurationRange struct {
	Min *int
	Max *int
}

type SearchFilters struct {
	Categories []string
	Price      *PriceRange
	RatingMin  *float64
	Duration   *DurationRange
	Flags      []string
}

type SortSpec struct {
	By    string // default|price|rating
	Order string // asc|desc
}

type PageSpec struct {
	Page  int
	Limit int
}

// SearchRequest is the normalized inbound request. Invariants (end >= start,
// min <= max on every range, limit <= MaxPageSize) are enforced at the HTTP
// boundary before the orchestrator sees it.
type SearchRequest struct {
	Location LocationSpec
	Dates    DateRange
	Filters  *SearchFilters
	Sort     SortSpec
	Page     PageSpec
	Currency string // 3-letter, uppercase
	Language string // 2-letter, lowercase
}

const MaxPageSize = 50
