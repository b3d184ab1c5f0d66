package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"trip_activities/internal/domain"
)

// fakePlaces is an in-memory PlaceCatalog with scriptable failures.
type fakePlaces struct {
	mu     sync.Mutex
	places []domain.Place
	rev    string
	fail   error

	listCalls int
}

func (f *fakePlaces) ListByCountry(_ context.Context, countryCode string, limit int) ([]domain.Place, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.fail != nil {
		return nil, f.fail
	}
	var out []domain.Place
	for _, p := range f.places {
		if countryCode != "" && p.CountryCode != countryCode {
			continue
		}
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakePlaces) Nearest(_ context.Context, lat, lon, radiusKm float64) (*domain.PlaceHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	// crude flat-earth distance is plenty for fixtures
	var best *domain.PlaceHit
	for _, p := range f.places {
		if p.Lat == nil || p.Lon == nil {
			continue
		}
		dLat, dLon := (*p.Lat-lat)*111.0, (*p.Lon-lon)*78.0
		dist := sqrtApprox(dLat*dLat + dLon*dLon)
		if dist > radiusKm {
			continue
		}
		if best == nil || dist < best.DistanceKm {
			hit := domain.PlaceHit{Place: p, DistanceKm: dist}
			best = &hit
		}
	}
	return best, nil
}

func sqrtApprox(x float64) float64 {
	if x <= 0 {
		return 0
	}
	g := x
	for i := 0; i < 20; i++ {
		g = (g + x/g) / 2
	}
	return g
}

func (f *fakePlaces) Revision(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return "", f.fail
	}
	return f.rev, nil
}

func (f *fakePlaces) UpsertPlace(_ context.Context, p domain.Place) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.places = append(f.places, p)
	return nil
}

// fakeProvider scripts upstream responses and counts calls.
type fakeProvider struct {
	mu           sync.Mutex
	searchResp   map[string]any
	searchErr    error
	searchCalls  int
	lastQuery    domain.ProductQuery
	tags         []map[string]any
	tagsErr      error
	destinations []map[string]any
	destErr      error
}

func (f *fakeProvider) SearchProducts(_ context.Context, q domain.ProductQuery) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	f.lastQuery = q
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchResp, nil
}

func (f *fakeProvider) ListTags(context.Context, string) ([]map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tagsErr != nil {
		return nil, f.tagsErr
	}
	return f.tags, nil
}

func (f *fakeProvider) ListDestinations(context.Context) ([]map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.destErr != nil {
		return nil, f.destErr
	}
	return f.destinations, nil
}

// fakeTagStore keeps tags in a map.
type fakeTagStore struct {
	mu        sync.Mutex
	tags      map[int]domain.TaxonomyEntry
	upsertErr error
	listErr   error
}

func newFakeTagStore() *fakeTagStore {
	return &fakeTagStore{tags: make(map[int]domain.TaxonomyEntry)}
}

func (f *fakeTagStore) UpsertTag(_ context.Context, t domain.TaxonomyEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.tags[t.TagID] = t
	return nil
}

func (f *fakeTagStore) ListTags(context.Context) ([]domain.TaxonomyEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.TaxonomyEntry, 0, len(f.tags))
	for _, t := range f.tags {
		out = append(out, t)
	}
	return out, nil
}

// fakeCache is a map-backed Cache; TTLs are ignored.
type fakeCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	getErr  error
	setErr  error
	getFn   func(key string, dst any) (bool, error)
	setKeys []string
}

func newFakeCache() *fakeCache { return &fakeCache{data: map[string][]byte{}} }

func (f *fakeCache) Get(_ context.Context, key string, dst any) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return false, f.getErr
	}
	if f.getFn != nil {
		return f.getFn(key, dst)
	}
	b, ok := f.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (f *fakeCache) Set(_ context.Context, key string, v any, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f.data[key] = b
	f.setKeys = append(f.setKeys, key)
	return nil
}

func (f *fakeCache) Del(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

func (f *fakeCache) DelPattern(_ context.Context, _ string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.data)
	f.data = map[string][]byte{}
	return n, nil
}

// fakeCatalog records upserted activities.
type fakeCatalog struct {
	mu        sync.Mutex
	upserted  []domain.Activity
	upsertErr error
}

func (f *fakeCatalog) UpsertActivity(_ context.Context, a domain.Activity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, a)
	return nil
}

var errBoom = errors.New("boom")
