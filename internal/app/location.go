package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/agext/levenshtein"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"trip_activities/internal/domain"
)

// LocationResolver maps heterogeneous location inputs to canonical
// destination identifiers: opaque IDs pass through, free-text names are
// fuzzy-matched against the place catalog, coordinates go through a
// nearest-neighbor lookup.
type LocationResolver struct {
	places        domain.PlaceCatalog
	minConfidence float64
	sampleLimit   int

	mu   sync.Mutex
	memo map[string]memoEntry
}

// memo entries are pinned to a catalog revision so a resync invalidates
// them instead of serving stale matches.
type memoEntry struct {
	rev string
	loc domain.ResolvedLocation
}

func NewLocationResolver(places domain.PlaceCatalog, minConfidence float64, sampleLimit int) *LocationResolver {
	if minConfidence <= 0 {
		minConfidence = 80
	}
	if sampleLimit <= 0 {
		sampleLimit = 1000
	}
	return &LocationResolver{
		places:        places,
		minConfidence: minConfidence,
		sampleLimit:   sampleLimit,
		memo:          make(map[string]memoEntry),
	}
}

func (r *LocationResolver) Resolve(ctx context.Context, spec domain.LocationSpec) (domain.ResolvedLocation, error) {
	// Opaque identifiers are echoed back verbatim; this path never fails.
	if spec.DestinationID != "" {
		return domain.ResolvedLocation{DestinationID: spec.DestinationID, Confidence: 100}, nil
	}
	if spec.City != "" {
		return r.resolveCity(ctx, spec.City, spec.CountryHint)
	}
	if spec.Geo != nil {
		return r.resolveGeo(ctx, *spec.Geo)
	}
	return domain.ResolvedLocation{}, domain.ErrLocationNotFound
}

func (r *LocationResolver) resolveCity(ctx context.Context, city, hint string) (domain.ResolvedLocation, error) {
	hint = strings.ToUpper(strings.TrimSpace(hint))
	query := foldName(city)
	key := "city:" + query + "|" + hint

	rev, err := r.places.Revision(ctx)
	if err != nil {
		return domain.ResolvedLocation{}, fmt.Errorf("%w: place catalog revision: %v", domain.ErrStoreUnavailable, err)
	}
	if loc, ok := r.fromMemo(key, rev); ok {
		return loc, nil
	}

	candidates, err := r.places.ListByCountry(ctx, hint, r.sampleLimit)
	if err != nil {
		return domain.ResolvedLocation{}, fmt.Errorf("%w: place catalog query: %v", domain.ErrStoreUnavailable, err)
	}
	// No candidates reads the same as no match above threshold.
	if len(candidates) == 0 {
		log.Warn().Str("city", city).Str("hint", hint).Msg("no place candidates; destinations sync may be needed")
		return domain.ResolvedLocation{}, domain.ErrLocationNotFound
	}

	var (
		best      domain.Place
		bestScore = -1.0
	)
	params := levenshtein.NewParams()
	for _, c := range candidates {
		score := levenshtein.Similarity(query, foldName(c.Name), params) * 100
		switch {
		case score > bestScore:
			best, bestScore = c, score
		case score == bestScore:
			// ties: higher importance weight first, then alphabetically
			if c.Weight > best.Weight || (c.Weight == best.Weight && c.Name < best.Name) {
				best = c
			}
		}
	}
	if bestScore < r.minConfidence {
		log.Warn().Str("city", city).Float64("best_score", bestScore).Msg("no fuzzy match above threshold")
		return domain.ResolvedLocation{}, domain.ErrLocationNotFound
	}

	loc := domain.ResolvedLocation{
		DestinationID: best.DestinationID,
		MatchedName:   best.Name,
		Confidence:    bestScore,
	}
	log.Info().Str("city", city).Str("matched", best.Name).
		Str("destination_id", best.DestinationID).Float64("score", bestScore).
		Msg("resolved city")
	r.toMemo(key, rev, loc)
	return loc, nil
}

func (r *LocationResolver) resolveGeo(ctx context.Context, geo domain.GeoInput) (domain.ResolvedLocation, error) {
	key := fmt.Sprintf("geo:%.4f|%.4f|%.1f", geo.Lat, geo.Lon, geo.RadiusKm)

	rev, err := r.places.Revision(ctx)
	if err != nil {
		return domain.ResolvedLocation{}, fmt.Errorf("%w: place catalog revision: %v", domain.ErrStoreUnavailable, err)
	}
	if loc, ok := r.fromMemo(key, rev); ok {
		return loc, nil
	}

	hit, err := r.places.Nearest(ctx, geo.Lat, geo.Lon, geo.RadiusKm)
	if err != nil {
		return domain.ResolvedLocation{}, fmt.Errorf("%w: nearest-place query: %v", domain.ErrStoreUnavailable, err)
	}
	if hit == nil {
		log.Warn().Float64("lat", geo.Lat).Float64("lon", geo.Lon).
			Float64("radius_km", geo.RadiusKm).Msg("no destination within radius")
		return domain.ResolvedLocation{}, domain.ErrLocationNotFound
	}

	d := hit.DistanceKm
	loc := domain.ResolvedLocation{
		DestinationID: hit.DestinationID,
		MatchedName:   hit.Name,
		Confidence:    100,
		DistanceKm:    &d,
	}
	log.Info().Float64("lat", geo.Lat).Float64("lon", geo.Lon).
		Str("matched", hit.Name).Float64("distance_km", d).Msg("resolved geo")
	r.toMemo(key, rev, loc)
	return loc, nil
}

func (r *LocationResolver) fromMemo(key, rev string) (domain.ResolvedLocation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.memo[key]
	if !ok || e.rev != rev {
		return domain.ResolvedLocation{}, false
	}
	return e.loc, true
}

func (r *LocationResolver) toMemo(key, rev string, loc domain.ResolvedLocation) {
	r.mu.Lock()
	r.memo[key] = memoEntry{rev: rev, loc: loc}
	r.mu.Unlock()
}

var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldName lowercases, strips diacritics and collapses whitespace so the
// similarity metric compares canonical forms.
func foldName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if out, _, err := transform.String(diacriticStripper, s); err == nil {
		s = out
	}
	return strings.Join(strings.Fields(s), " ")
}
