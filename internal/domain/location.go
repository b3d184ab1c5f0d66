package domain

// GeoInput is a coordinate pair plus a search radius in kilometers.
type GeoInput struct {
	Lat      float64
	Lon      float64
	RadiusKm float64
}

// LocationSpec is a tagged union: exactly one of City (with optional
// CountryHint), Geo, or DestinationID is populated. Validation happens at
// the HTTP boundary, not in the resolver.
type LocationSpec struct {
	City          string
	CountryHint   string // ISO 3166-1 alpha-2, only meaningful with City
	Geo           *GeoInput
	DestinationID string
}

// ResolvedLocation is the outcome of a successful resolution.
// Confidence is 0..100; DistanceKm is set only for geo lookups.
type ResolvedLocation struct {
	DestinationID string   `json:"destination_id"`
	MatchedName   string   `json:"matched_name,omitempty"`
	Confidence    float64  `json:"confidence"`
	DistanceKm    *float64 `json:"distance_km,omitempty"`
}

// Place is a row of the place catalog the resolver matches against.
type Place struct {
	DestinationID string
	Name          string
	Kind          string // city|region|country|attraction|...
	CountryCode   string
	Lat           *float64
	Lon           *float64
	Weight        int // importance weight used for tie-breaking
}

// PlaceHit is a place plus its great-circle distance from a query point.
type PlaceHit struct {
	Place
	DistanceKm float64
}
