package app

import (
	"context"
	"errors"
	"testing"

	"trip_activities/internal/domain"
)

func f64(v float64) *float64 { return &v }

func parisFixture() *fakePlaces {
	return &fakePlaces{
		rev: "r1",
		places: []domain.Place{
			{DestinationID: "479", Name: "Paris", Kind: "city", CountryCode: "FR", Lat: f64(48.8566), Lon: f64(2.3522), Weight: 90},
			{DestinationID: "24853", Name: "Paris", Kind: "city", CountryCode: "US", Lat: f64(33.6609), Lon: f64(-95.5555), Weight: 10},
			{DestinationID: "904", Name: "Marseille", Kind: "city", CountryCode: "FR", Lat: f64(43.2965), Lon: f64(5.3698), Weight: 40},
		},
	}
}

func TestResolve_OpaqueIDPassesThrough(t *testing.T) {
	places := parisFixture()
	places.fail = errBoom // must never be touched
	r := NewLocationResolver(places, 80, 1000)

	loc, err := r.Resolve(context.Background(), domain.LocationSpec{DestinationID: "d-123"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if loc.DestinationID != "d-123" || loc.Confidence != 100 {
		t.Fatalf("unexpected resolution: %+v", loc)
	}
}

func TestResolve_CountryHintScopesMatch(t *testing.T) {
	r := NewLocationResolver(parisFixture(), 80, 1000)

	loc, err := r.Resolve(context.Background(), domain.LocationSpec{City: "paris", CountryHint: "FR"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if loc.DestinationID != "479" {
		t.Fatalf("want french Paris (479), got %q", loc.DestinationID)
	}
	if loc.Confidence < 99 {
		t.Fatalf("exact match should score ~100, got %f", loc.Confidence)
	}
}

func TestResolve_TieBreaksOnWeight(t *testing.T) {
	// no hint: both Paris rows score identically, the heavier one wins
	r := NewLocationResolver(parisFixture(), 80, 1000)

	loc, err := r.Resolve(context.Background(), domain.LocationSpec{City: "Paris"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if loc.DestinationID != "479" {
		t.Fatalf("want weight-90 Paris, got %q", loc.DestinationID)
	}
}

func TestResolve_DiacriticsAndCaseFolded(t *testing.T) {
	places := parisFixture()
	places.places = append(places.places, domain.Place{
		DestinationID: "801", Name: "São Paulo", Kind: "city", CountryCode: "BR", Weight: 80,
	})
	r := NewLocationResolver(places, 80, 1000)

	loc, err := r.Resolve(context.Background(), domain.LocationSpec{City: "  sao   PAULO "})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if loc.DestinationID != "801" {
		t.Fatalf("want São Paulo, got %+v", loc)
	}
}

func TestResolve_BelowThresholdIsNotFound(t *testing.T) {
	r := NewLocationResolver(parisFixture(), 80, 1000)

	_, err := r.Resolve(context.Background(), domain.LocationSpec{City: "Zzglorbix"})
	if !errors.Is(err, domain.ErrLocationNotFound) {
		t.Fatalf("want ErrLocationNotFound, got %v", err)
	}
}

func TestResolve_StoreFailureIsNotNotFound(t *testing.T) {
	places := parisFixture()
	places.fail = errBoom
	r := NewLocationResolver(places, 80, 1000)

	_, err := r.Resolve(context.Background(), domain.LocationSpec{City: "Paris"})
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("want ErrStoreUnavailable, got %v", err)
	}
	if errors.Is(err, domain.ErrLocationNotFound) {
		t.Fatal("store failure must not read as not-found")
	}
}

func TestResolve_GeoNearestWithinRadius(t *testing.T) {
	r := NewLocationResolver(parisFixture(), 80, 1000)

	loc, err := r.Resolve(context.Background(), domain.LocationSpec{
		Geo: &domain.GeoInput{Lat: 48.85, Lon: 2.35, RadiusKm: 50},
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if loc.DestinationID != "479" {
		t.Fatalf("want Paris, got %+v", loc)
	}
	if loc.DistanceKm == nil {
		t.Fatal("geo resolution must report a distance")
	}
	if loc.Confidence != 100 {
		t.Fatalf("geo hit should be confidence 100, got %f", loc.Confidence)
	}
}

func TestResolve_GeoOutsideRadiusIsNotFound(t *testing.T) {
	r := NewLocationResolver(parisFixture(), 80, 1000)

	// middle of the Atlantic
	_, err := r.Resolve(context.Background(), domain.LocationSpec{
		Geo: &domain.GeoInput{Lat: 30, Lon: -40, RadiusKm: 25},
	})
	if !errors.Is(err, domain.ErrLocationNotFound) {
		t.Fatalf("want ErrLocationNotFound, got %v", err)
	}
}

func TestResolve_MemoPinnedToCatalogRevision(t *testing.T) {
	places := parisFixture()
	r := NewLocationResolver(places, 80, 1000)
	ctx := context.Background()

	if _, err := r.Resolve(ctx, domain.LocationSpec{City: "Paris", CountryHint: "FR"}); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if _, err := r.Resolve(ctx, domain.LocationSpec{City: "Paris", CountryHint: "FR"}); err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if places.listCalls != 1 {
		t.Fatalf("second resolve should hit the memo, got %d catalog queries", places.listCalls)
	}

	// a catalog change bumps the revision and must invalidate the memo
	places.mu.Lock()
	places.rev = "r2"
	places.mu.Unlock()
	if _, err := r.Resolve(ctx, domain.LocationSpec{City: "Paris", CountryHint: "FR"}); err != nil {
		t.Fatalf("post-resync resolve: %v", err)
	}
	if places.listCalls != 2 {
		t.Fatalf("revision change should bypass the memo, got %d catalog queries", places.listCalls)
	}
}

func TestResolve_EmptySpecIsNotFound(t *testing.T) {
	r := NewLocationResolver(parisFixture(), 80, 1000)
	_, err := r.Resolve(context.Background(), domain.LocationSpec{})
	if !errors.Is(err, domain.ErrLocationNotFound) {
		t.Fatalf("want ErrLocationNotFound, got %v", err)
	}
}
