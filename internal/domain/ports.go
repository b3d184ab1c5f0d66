package domain

import "context"

// ProductQuery carries the mapped upstream search parameters.
type ProductQuery struct {
	DestinationID string
	StartDate     string
	EndDate       string
	Tags          []int
	LowestPrice   *float64
	HighestPrice  *float64
	RatingFrom    *float64
	Flags         []string
	Sort          string // DEFAULT|PRICE|TRAVELER_RATING
	Order         string // ASCENDING|DESCENDING
	Start         int    // 1-based offset
	Count         int
	Currency      string
	Language      string
}

// ProviderClient is the upstream activity-marketplace API, always reached
// through the retrying adapter.
type ProviderClient interface {
	SearchProducts(ctx context.Context, q ProductQuery) (map[string]any, error)
	ListTags(ctx context.Context, lang string) ([]map[string]any, error)
	ListDestinations(ctx context.Context) ([]map[string]any, error)
}

// PlaceCatalog is the store the LocationResolver matches against.
type PlaceCatalog interface {
	// ListByCountry returns up to limit resolvable places, unscoped when
	// countryCode is empty.
	ListByCountry(ctx context.Context, countryCode string, limit int) ([]Place, error)
	// Nearest returns the closest resolvable place within radiusKm, or
	// (nil, nil) when none lies within the radius.
	Nearest(ctx context.Context, lat, lon, radiusKm float64) (*PlaceHit, error)
	// Revision changes whenever the catalog contents change.
	Revision(ctx context.Context) (string, error)
	UpsertPlace(ctx context.Context, p Place) error
}

// TagStore persists the synchronized taxonomy between process restarts.
type TagStore interface {
	UpsertTag(ctx context.Context, t TaxonomyEntry) error
	ListTags(ctx context.Context) ([]TaxonomyEntry, error)
}

// ActivityCatalog is the durable, best-effort record of items seen in
// upstream responses.
type ActivityCatalog interface {
	UpsertActivity(ctx context.Context, a Activity) error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
	// DelPattern removes all keys matching a glob pattern, returning the
	// number deleted.
	DelPattern(ctx context.Context, pattern string) (int, error)
}
