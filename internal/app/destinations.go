package app

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"trip_activities/internal/adapters/observability"
	"trip_activities/internal/domain"
)

// parentCountryCodes maps well-known country-level destination refs to ISO
// codes. Refs outside this table keep an empty country code and are still
// resolvable, just never by country hint.
var parentCountryCodes = map[int]string{
	79:  "FR",
	184: "GB",
	105: "IT",
	209: "ES",
	244: "US",
	94:  "NL",
	241: "AE",
}

// destinationKinds normalizes the provider's destination types.
var destinationKinds = map[string]string{
	"CITY":       "city",
	"REGION":     "region",
	"COUNTRY":    "country",
	"ATTRACTION": "attraction",
}

// DestinationsSync refreshes the place catalog from the provider's
// destination listing with a bounded number of concurrent upserts.
type DestinationsSync struct {
	provider domain.ProviderClient
	places   domain.PlaceCatalog
	workers  int
}

func NewDestinationsSync(provider domain.ProviderClient, places domain.PlaceCatalog, workers int) *DestinationsSync {
	if workers <= 0 {
		workers = 8
	}
	return &DestinationsSync{provider: provider, places: places, workers: workers}
}

func (s *DestinationsSync) Sync(ctx context.Context) (domain.SyncReport, error) {
	report := domain.SyncReport{StartedAt: time.Now().UTC()}
	log.Info().Int("workers", s.workers).Msg("destinations sync starting")

	raw, err := s.provider.ListDestinations(ctx)
	if err != nil {
		observability.ObserveSync("destinations", false)
		report.CompletedAt = time.Now().UTC()
		return report, err
	}
	report.Fetched = len(raw)

	sem := semaphore.NewWeighted(int64(s.workers))
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, d := range raw {
		place, ok := mapDestination(d)
		if !ok {
			report.Errors++
			continue
		}
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			observability.ObserveSync("destinations", false)
			report.CompletedAt = time.Now().UTC()
			return report, err
		}
		wg.Add(1)
		go func(p domain.Place) {
			defer wg.Done()
			defer sem.Release(1)
			if err := s.places.UpsertPlace(ctx, p); err != nil {
				log.Error().Err(err).Str("destination_id", p.DestinationID).Msg("place upsert failed")
				mu.Lock()
				report.Errors++
				mu.Unlock()
				return
			}
			mu.Lock()
			report.Updated++
			mu.Unlock()
		}(place)
	}
	wg.Wait()

	report.CompletedAt = time.Now().UTC()
	observability.ObserveSync("destinations", true)
	log.Info().
		Int("fetched", report.Fetched).
		Int("updated", report.Updated).
		Int("errors", report.Errors).
		Msg("destinations sync completed")
	return report, nil
}

// mapDestination transforms a provider destination payload into a Place.
func mapDestination(d map[string]any) (domain.Place, bool) {
	ref := lookupInt(d, "ref", "destinationId")
	name := lookupStr(d, "name", "destinationName")
	if ref == nil || name == "" {
		return domain.Place{}, false
	}
	p := domain.Place{
		DestinationID: strconv.Itoa(*ref),
		Name:          name,
		Kind:          "city",
	}
	if t := lookupStr(d, "destinationType", "type"); t != "" {
		if k, ok := destinationKinds[t]; ok {
			p.Kind = k
		}
	}
	if parent := lookupInt(d, "parentRef", "parentId"); parent != nil {
		p.CountryCode = parentCountryCodes[*parent]
	}
	if lat := lookupFloat(d, "center.latitude", "latitude"); lat != nil {
		p.Lat = lat
	}
	if lon := lookupFloat(d, "center.longitude", "longitude"); lon != nil {
		p.Lon = lon
	}
	if w := lookupInt(d, "weight", "sortOrder"); w != nil {
		p.Weight = *w
	}
	return p, true
}
