package httpserver

import (
	"encoding/json"
	"errors"
	"testing"

	"trip_activities/internal/domain"
)

func decodeDTO(t *testing.T, body string) searchRequestDTO {
	t.Helper()
	var dto searchRequestDTO
	if err := json.Unmarshal([]byte(body), &dto); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return dto
}

func TestToDomain_Defaults(t *testing.T) {
	dto := decodeDTO(t, `{
		"location": {"city": "Paris", "country": "fr"},
		"dates": {"start": "2026-09-01"}
	}`)
	req, err := dto.toDomain()
	if err != nil {
		t.Fatalf("toDomain: %v", err)
	}
	if req.Location.City != "Paris" || req.Location.CountryHint != "FR" {
		t.Fatalf("location: %+v", req.Location)
	}
	if req.Sort.By != "default" || req.Sort.Order != "desc" {
		t.Fatalf("sort defaults: %+v", req.Sort)
	}
	if req.Page.Page != 1 || req.Page.Limit != 20 {
		t.Fatalf("page defaults: %+v", req.Page)
	}
	if req.Currency != "EUR" || req.Language != "en" {
		t.Fatalf("locale defaults: %q %q", req.Currency, req.Language)
	}
}

func TestToDomain_GeoDefaultsRadius(t *testing.T) {
	dto := decodeDTO(t, `{
		"location": {"lat": 48.85, "lon": 2.35},
		"dates": {"start": "2026-09-01"}
	}`)
	req, err := dto.toDomain()
	if err != nil {
		t.Fatalf("toDomain: %v", err)
	}
	if req.Location.Geo == nil || req.Location.Geo.RadiusKm != 25 {
		t.Fatalf("geo: %+v", req.Location.Geo)
	}
}

func TestToDomain_Rejections(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"no location variant", `{"dates": {"start": "2026-09-01"}}`},
		{"two location variants", `{"location": {"city": "Paris", "destination_id": "479"}, "dates": {"start": "2026-09-01"}}`},
		{"lat without lon", `{"location": {"lat": 48.85}, "dates": {"start": "2026-09-01"}}`},
		{"lat out of range", `{"location": {"lat": 95, "lon": 2.35}, "dates": {"start": "2026-09-01"}}`},
		{"radius too large", `{"location": {"lat": 48.85, "lon": 2.35, "radius_km": 900}, "dates": {"start": "2026-09-01"}}`},
		{"missing start date", `{"location": {"city": "Paris"}}`},
		{"malformed start date", `{"location": {"city": "Paris"}, "dates": {"start": "01/09/2026"}}`},
		{"end before start", `{"location": {"city": "Paris"}, "dates": {"start": "2026-09-05", "end": "2026-09-01"}}`},
		{"bad country hint", `{"location": {"city": "Paris", "country": "FRA"}, "dates": {"start": "2026-09-01"}}`},
		{"price min over max", `{"location": {"city": "Paris"}, "dates": {"start": "2026-09-01"}, "filters": {"price_min": 100, "price_max": 50}}`},
		{"negative price", `{"location": {"city": "Paris"}, "dates": {"start": "2026-09-01"}, "filters": {"price_min": -1}}`},
		{"rating out of range", `{"location": {"city": "Paris"}, "dates": {"start": "2026-09-01"}, "filters": {"rating_min": 6}}`},
		{"duration min over max", `{"location": {"city": "Paris"}, "dates": {"start": "2026-09-01"}, "filters": {"duration_min": 240, "duration_max": 60}}`},
		{"bad sort", `{"location": {"city": "Paris"}, "dates": {"start": "2026-09-01"}, "sort": {"by": "popularity"}}`},
		{"zero page", `{"location": {"city": "Paris"}, "dates": {"start": "2026-09-01"}, "pagination": {"page": -1}}`},
		{"limit over cap", `{"location": {"city": "Paris"}, "dates": {"start": "2026-09-01"}, "pagination": {"limit": 51}}`},
		{"bad currency", `{"location": {"city": "Paris"}, "dates": {"start": "2026-09-01"}, "currency": "EURO"}`},
		{"bad language", `{"location": {"city": "Paris"}, "dates": {"start": "2026-09-01"}, "language": "eng"}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			dto := decodeDTO(t, c.body)
			_, err := dto.toDomain()
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("want validation error, got %v", err)
			}
		})
	}
}

func TestToDomain_NormalizesFiltersAndLocale(t *testing.T) {
	dto := decodeDTO(t, `{
		"location": {"destination_id": " 479 "},
		"dates": {"start": "2026-09-01", "end": "2026-09-05"},
		"filters": {"categories": [" museums ", ""], "flags": ["free_cancellation"]},
		"currency": "usd",
		"language": "FR"
	}`)
	req, err := dto.toDomain()
	if err != nil {
		t.Fatalf("toDomain: %v", err)
	}
	if req.Location.DestinationID != "479" {
		t.Fatalf("destination id not trimmed: %q", req.Location.DestinationID)
	}
	if len(req.Filters.Categories) != 1 || req.Filters.Categories[0] != "museums" {
		t.Fatalf("categories: %v", req.Filters.Categories)
	}
	if len(req.Filters.Flags) != 1 || req.Filters.Flags[0] != "FREE_CANCELLATION" {
		t.Fatalf("flags: %v", req.Filters.Flags)
	}
	if req.Currency != "USD" || req.Language != "fr" {
		t.Fatalf("locale: %q %q", req.Currency, req.Language)
	}
}
