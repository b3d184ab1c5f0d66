package domain

import "time"

// ImageVariants buckets image URLs by rendered height:
// small <= 200px, medium <= 600px, large above.
type ImageVariants struct {
	Small  string `json:"small,omitempty"`
	Medium string `json:"medium,omitempty"`
	Large  string `json:"large,omitempty"`
}

type ActivityImage struct {
	URL      string        `json:"url"`
	IsCover  bool          `json:"is_cover"`
	Variants ImageVariants `json:"variants"`
}

type Pricing struct {
	FromPrice     float64  `json:"from_price"`
	Currency      string   `json:"currency"`
	OriginalPrice *float64 `json:"original_price,omitempty"`
	Discounted    bool     `json:"is_discounted"`
}

type Rating struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

type Duration struct {
	Minutes   int    `json:"minutes"`
	Formatted string `json:"formatted"`
}

// Activity is the internal result shape an upstream product is transformed
// into. ID is the provider's product code.
type Activity struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Images       []ActivityImage `json:"images"`
	Pricing      Pricing         `json:"pricing"`
	Rating       Rating          `json:"rating"`
	Duration     Duration        `json:"duration"`
	Categories   []string        `json:"categories"`
	Flags        []string        `json:"flags"`
	BookingURL   string          `json:"booking_url"`
	Confirmation string          `json:"confirmation_type"`
	Destination  string          `json:"destination"`
	Country      string          `json:"country"`
	Availability string          `json:"availability"`
}

// SearchResults is the paginated result set returned to callers and stored
// wholesale as a cache payload.
type SearchResults struct {
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	Activities []Activity `json:"activities"`
}

// CacheInfo annotates a response with how it was served.
type CacheInfo struct {
	Cached    bool       `json:"cached"`
	CachedAt  *time.Time `json:"cached_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type SearchResponse struct {
	Location ResolvedLocation `json:"location"`
	Filters  map[string]any   `json:"filters_applied"`
	Results  SearchResults    `json:"results"`
	Cache    CacheInfo        `json:"cache_info"`
}
