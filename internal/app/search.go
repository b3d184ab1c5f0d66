package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"trip_activities/internal/domain"
)

const cacheKeyPrefix = "activities:search:"

// sortMapping translates caller sort names to the provider's vocabulary.
var sortMapping = map[string]string{
	"default": "DEFAULT",
	"price":   "PRICE",
	"rating":  "TRAVELER_RATING",
}

// SearchService is the cache-aside orchestrator: resolve location, resolve
// category keywords, serve from cache when valid, otherwise call upstream
// and write through to the catalog and the cache.
type SearchService struct {
	provider domain.ProviderClient
	resolver *LocationResolver
	taxonomy *TaxonomyIndex
	cache    domain.Cache
	catalog  domain.ActivityCatalog
	cacheTTL time.Duration
}

func NewSearchService(
	provider domain.ProviderClient,
	resolver *LocationResolver,
	taxonomy *TaxonomyIndex,
	cache domain.Cache,
	catalog domain.ActivityCatalog,
	cacheTTL time.Duration,
) *SearchService {
	return &SearchService{
		provider: provider,
		resolver: resolver,
		taxonomy: taxonomy,
		cache:    cache,
		catalog:  catalog,
		cacheTTL: cacheTTL,
	}
}

// cachedPayload is the wholesale cache entry; never mutated in place.
type cachedPayload struct {
	Results   domain.SearchResults `json:"results"`
	CachedAt  time.Time            `json:"cached_at"`
	ExpiresAt time.Time            `json:"expires_at"`
}

func (s *SearchService) Search(ctx context.Context, req domain.SearchRequest) (domain.SearchResponse, error) {
	// 1) Resolve location. NotFound terminates the request; never proceed
	// with an unresolved destination.
	loc, err := s.resolver.Resolve(ctx, req.Location)
	if err != nil {
		return domain.SearchResponse{}, err
	}

	// 2) Resolve category keywords; an empty tag set searches unfiltered.
	tags := s.resolveTags(req.Filters)

	// 3) Cache check. A read failure degrades to a miss.
	key := CacheKey(loc.DestinationID, req)
	var cached cachedPayload
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache read failed; treating as miss")
		hit = false
	}
	if hit {
		at, exp := cached.CachedAt, cached.ExpiresAt
		return domain.SearchResponse{
			Location: loc,
			Filters:  filtersSummary(req.Filters),
			Results:  cached.Results,
			Cache:    domain.CacheInfo{Cached: true, CachedAt: &at, ExpiresAt: &exp},
		}, nil
	}

	// 4) Upstream fetch through the retrying client.
	raw, err := s.provider.SearchProducts(ctx, s.buildQuery(loc.DestinationID, req, tags))
	if err != nil {
		return domain.SearchResponse{}, err
	}

	// 5) Transform into the internal shape.
	activities, total := mapSearchResults(raw, s.taxonomy.NameOf)
	results := domain.SearchResults{
		Total:      total,
		Page:       req.Page.Page,
		Limit:      req.Page.Limit,
		Activities: activities,
	}

	// A cancelled request must not write partial state.
	if err := ctx.Err(); err != nil {
		return domain.SearchResponse{}, err
	}

	// 6) Write-through: catalog upserts are best-effort, cache write
	// failures only cost us the next request's latency.
	for _, a := range activities {
		if err := s.catalog.UpsertActivity(ctx, a); err != nil {
			log.Error().Err(err).Str("activity_id", a.ID).Msg("catalog upsert failed")
		}
	}
	now := time.Now().UTC()
	payload := cachedPayload{Results: results, CachedAt: now, ExpiresAt: now.Add(s.cacheTTL)}
	if err := s.cache.Set(ctx, key, payload, int(s.cacheTTL.Seconds())); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache write failed; skipping")
	}

	return domain.SearchResponse{
		Location: loc,
		Filters:  filtersSummary(req.Filters),
		Results:  results,
		Cache:    domain.CacheInfo{Cached: false},
	}, nil
}

// resolveTags maps every category keyword through the taxonomy, deduped and
// sorted. Keywords with no match are logged and skipped.
func (s *SearchService) resolveTags(f *domain.SearchFilters) []int {
	if f == nil || len(f.Categories) == 0 {
		return nil
	}
	set := make(map[int]struct{})
	for _, kw := range f.Categories {
		ids := s.taxonomy.Lookup(kw)
		if len(ids) == 0 {
			log.Warn().Str("category", kw).Msg("no tags matched category keyword")
			continue
		}
		for _, id := range ids {
			set[id] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil
	}
	out := make([]int, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

func (s *SearchService) buildQuery(destinationID string, req domain.SearchRequest, tags []int) domain.ProductQuery {
	q := domain.ProductQuery{
		DestinationID: destinationID,
		StartDate:     req.Dates.Start,
		EndDate:       req.Dates.End,
		Tags:          tags,
		Currency:      req.Currency,
		Language:      req.Language,
		Start:         (req.Page.Page-1)*req.Page.Limit + 1,
		Count:         req.Page.Limit,
	}
	if f := req.Filters; f != nil {
		if f.Price != nil {
			q.LowestPrice, q.HighestPrice = f.Price.Min, f.Price.Max
		}
		q.RatingFrom = f.RatingMin
		q.Flags = f.Flags
	}
	q.Sort = sortMapping[strings.ToLower(req.Sort.By)]
	if q.Sort == "" {
		q.Sort = "DEFAULT"
	}
	if strings.EqualFold(req.Sort.Order, "asc") {
		q.Order = "ASCENDING"
	} else {
		q.Order = "DESCENDING"
	}
	return q
}

// filtersSummary echoes applied filters back to the caller.
func filtersSummary(f *domain.SearchFilters) map[string]any {
	out := map[string]any{}
	if f == nil {
		return out
	}
	if len(f.Categories) > 0 {
		out["categories"] = f.Categories
	}
	if f.Price != nil {
		pr := map[string]any{}
		if f.Price.Min != nil {
			pr["min"] = *f.Price.Min
		}
		if f.Price.Max != nil {
			pr["max"] = *f.Price.Max
		}
		out["price_range"] = pr
	}
	if f.RatingMin != nil {
		out["rating_min"] = *f.RatingMin
	}
	if f.Duration != nil {
		dr := map[string]any{}
		if f.Duration.Min != nil {
			dr["min"] = *f.Duration.Min
		}
		if f.Duration.Max != nil {
			dr["max"] = *f.Duration.Max
		}
		out["duration_minutes"] = dr
	}
	if len(f.Flags) > 0 {
		out["flags"] = f.Flags
	}
	return out
}

/********** cache key **********/

// canonicalKey is the struct serialized into the cache-key digest. Field
// order is fixed by the struct; slices are sorted and strings trimmed, so
// semantically identical requests collide and any semantic change doesn't.
type canonicalKey struct {
	Destination string   `json:"destination"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	Categories  []string `json:"categories,omitempty"`
	PriceMin    *float64 `json:"price_min,omitempty"`
	PriceMax    *float64 `json:"price_max,omitempty"`
	RatingMin   *float64 `json:"rating_min,omitempty"`
	DurationMin *int     `json:"duration_min,omitempty"`
	DurationMax *int     `json:"duration_max,omitempty"`
	Flags       []string `json:"flags,omitempty"`
	Sort        string   `json:"sort"`
	Order       string   `json:"order"`
	Page        int      `json:"page"`
	Limit       int      `json:"limit"`
	Currency    string   `json:"currency"`
	Language    string   `json:"language"`
}

// CacheKey builds the deterministic digest for a normalized request.
func CacheKey(destinationID string, req domain.SearchRequest) string {
	ck := canonicalKey{
		Destination: strings.TrimSpace(destinationID),
		Start:       strings.TrimSpace(req.Dates.Start),
		End:         strings.TrimSpace(req.Dates.End),
		Sort:        strings.ToLower(strings.TrimSpace(req.Sort.By)),
		Order:       strings.ToLower(strings.TrimSpace(req.Sort.Order)),
		Page:        req.Page.Page,
		Limit:       req.Page.Limit,
		Currency:    strings.ToUpper(strings.TrimSpace(req.Currency)),
		Language:    strings.ToLower(strings.TrimSpace(req.Language)),
	}
	if ck.Sort == "" {
		ck.Sort = "default"
	}
	if ck.Order == "" {
		ck.Order = "desc"
	}
	if f := req.Filters; f != nil {
		ck.Categories = canonSlice(f.Categories, strings.ToLower)
		ck.Flags = canonSlice(f.Flags, strings.ToUpper)
		if f.Price != nil {
			ck.PriceMin, ck.PriceMax = f.Price.Min, f.Price.Max
		}
		ck.RatingMin = f.RatingMin
		if f.Duration != nil {
			ck.DurationMin, ck.DurationMax = f.Duration.Min, f.Duration.Max
		}
	}
	b, _ := json.Marshal(ck)
	sum := sha256.Sum256(b)
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

// canonSlice trims, case-folds, dedupes and sorts for order-independence.
func canonSlice(in []string, fold func(string) string) []string {
	if len(in) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = fold(strings.TrimSpace(s))
		if s != "" {
			set[s] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
