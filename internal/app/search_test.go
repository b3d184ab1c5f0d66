package app

import (
	"context"
	"errors"
	"testing"

	"trip_activities/internal/domain"
)

func searchFixture() map[string]any {
	return map[string]any{
		"totalCount": float64(2),
		"products": []any{
			map[string]any{
				"productCode": "P-100",
				"title":       "Louvre Skip-the-Line Tour",
				"tags":        []any{float64(10)},
				"pricing": map[string]any{
					"currency": "EUR",
					"summary":  map[string]any{"fromPrice": float64(49.5)},
				},
				"duration": map[string]any{"fixedDurationInMinutes": float64(150)},
			},
			map[string]any{
				"productCode": "P-200",
				"title":       "Seine River Cruise",
				"tags":        []any{float64(20)},
			},
		},
	}
}

func newSearchHarness(t *testing.T) (*SearchService, *fakeProvider, *fakeCache, *fakeCatalog) {
	t.Helper()
	provider := &fakeProvider{searchResp: searchFixture(), tags: museumTags()}
	places := parisFixture()
	resolver := NewLocationResolver(places, 80, 1000)
	taxonomy := NewTaxonomyIndex(provider, newFakeTagStore(), "en")
	if _, err := taxonomy.Sync(context.Background()); err != nil {
		t.Fatalf("taxonomy sync: %v", err)
	}
	cache := newFakeCache()
	catalog := &fakeCatalog{}
	svc := NewSearchService(provider, resolver, taxonomy, cache, catalog, 0)
	return svc, provider, cache, catalog
}

func baseRequest() domain.SearchRequest {
	return domain.SearchRequest{
		Location: domain.LocationSpec{City: "Paris", CountryHint: "FR"},
		Dates:    domain.DateRange{Start: "2026-09-01", End: "2026-09-05"},
		Sort:     domain.SortSpec{By: "default", Order: "desc"},
		Page:     domain.PageSpec{Page: 1, Limit: 20},
		Currency: "EUR",
		Language: "en",
	}
}

func TestSearch_MissThenHit(t *testing.T) {
	svc, provider, _, catalog := newSearchHarness(t)
	ctx := context.Background()
	req := baseRequest()

	first, err := svc.Search(ctx, req)
	if err != nil {
		t.Fatalf("first search: %v", err)
	}
	if first.Cache.Cached {
		t.Fatal("first search must be a miss")
	}
	if first.Results.Total != 2 || len(first.Results.Activities) != 2 {
		t.Fatalf("unexpected results: %+v", first.Results)
	}
	if provider.searchCalls != 1 {
		t.Fatalf("want 1 upstream call, got %d", provider.searchCalls)
	}
	if len(catalog.upserted) != 2 {
		t.Fatalf("want 2 catalog upserts, got %d", len(catalog.upserted))
	}

	second, err := svc.Search(ctx, req)
	if err != nil {
		t.Fatalf("second search: %v", err)
	}
	if !second.Cache.Cached {
		t.Fatal("second search must be served from cache")
	}
	if second.Cache.CachedAt == nil || second.Cache.ExpiresAt == nil {
		t.Fatal("cached response must carry cache timestamps")
	}
	if provider.searchCalls != 1 {
		t.Fatalf("cached search must not call upstream, got %d calls", provider.searchCalls)
	}
	if second.Results.Total != first.Results.Total {
		t.Fatalf("cached results differ: %d vs %d", second.Results.Total, first.Results.Total)
	}
}

func TestSearch_CategoryKeywordsMapToTags(t *testing.T) {
	svc, provider, _, _ := newSearchHarness(t)
	req := baseRequest()
	req.Filters = &domain.SearchFilters{Categories: []string{"museum", "food"}}

	if _, err := svc.Search(context.Background(), req); err != nil {
		t.Fatalf("search: %v", err)
	}
	got := provider.lastQuery.Tags
	if len(got) != 3 || got[0] != 10 || got[1] != 11 || got[2] != 20 {
		t.Fatalf("query tags = %v, want [10 11 20]", got)
	}
}

func TestSearch_QueryMapping(t *testing.T) {
	svc, provider, _, _ := newSearchHarness(t)
	req := baseRequest()
	req.Sort = domain.SortSpec{By: "rating", Order: "asc"}
	req.Page = domain.PageSpec{Page: 3, Limit: 10}

	if _, err := svc.Search(context.Background(), req); err != nil {
		t.Fatalf("search: %v", err)
	}
	q := provider.lastQuery
	if q.Sort != "TRAVELER_RATING" || q.Order != "ASCENDING" {
		t.Fatalf("sort mapping wrong: %q %q", q.Sort, q.Order)
	}
	if q.Start != 21 || q.Count != 10 {
		t.Fatalf("pagination mapping wrong: start=%d count=%d", q.Start, q.Count)
	}
	if q.DestinationID != "479" {
		t.Fatalf("destination not threaded through: %q", q.DestinationID)
	}
}

func TestSearch_LocationNotFoundIsTerminal(t *testing.T) {
	svc, provider, _, _ := newSearchHarness(t)
	req := baseRequest()
	req.Location = domain.LocationSpec{City: "Zzglorbix"}

	_, err := svc.Search(context.Background(), req)
	if !errors.Is(err, domain.ErrLocationNotFound) {
		t.Fatalf("want ErrLocationNotFound, got %v", err)
	}
	if provider.searchCalls != 0 {
		t.Fatal("unresolved location must not reach upstream")
	}
}

func TestSearch_CacheReadFailureDegradesToMiss(t *testing.T) {
	svc, provider, cache, _ := newSearchHarness(t)
	cache.getErr = errBoom

	resp, err := svc.Search(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if resp.Cache.Cached {
		t.Fatal("broken cache must read as miss")
	}
	if provider.searchCalls != 1 {
		t.Fatalf("want upstream fallback, got %d calls", provider.searchCalls)
	}
}

func TestSearch_CatalogFailureIsNonFatal(t *testing.T) {
	svc, _, _, catalog := newSearchHarness(t)
	catalog.upsertErr = errBoom

	resp, err := svc.Search(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("catalog failure must not fail the search: %v", err)
	}
	if resp.Results.Total != 2 {
		t.Fatalf("unexpected results: %+v", resp.Results)
	}
}

func TestSearch_UpstreamFailurePropagates(t *testing.T) {
	svc, provider, cache, _ := newSearchHarness(t)
	provider.searchErr = errBoom

	_, err := svc.Search(context.Background(), baseRequest())
	if !errors.Is(err, errBoom) {
		t.Fatalf("want upstream error, got %v", err)
	}
	if len(cache.setKeys) != 0 {
		t.Fatal("failed search must not be cached")
	}
}

func TestCacheKey_Deterministic(t *testing.T) {
	a := baseRequest()
	a.Filters = &domain.SearchFilters{
		Categories: []string{"Museums", " food "},
		Flags:      []string{"free_cancellation", "LIKELY_TO_SELL_OUT"},
	}
	b := baseRequest()
	b.Filters = &domain.SearchFilters{
		Categories: []string{"food", "museums"},
		Flags:      []string{"likely_to_sell_out", "FREE_CANCELLATION"},
	}
	if CacheKey("479", a) != CacheKey("479", b) {
		t.Fatal("normalized-equal requests must share a key")
	}
}

func TestCacheKey_SensitiveToSemanticChanges(t *testing.T) {
	base := baseRequest()
	key := CacheKey("479", base)

	changed := baseRequest()
	changed.Dates.End = "2026-09-06"
	if CacheKey("479", changed) == key {
		t.Fatal("date change must change the key")
	}

	if CacheKey("480", base) == key {
		t.Fatal("destination change must change the key")
	}

	paged := baseRequest()
	paged.Page.Page = 2
	if CacheKey("479", paged) == key {
		t.Fatal("page change must change the key")
	}
}
