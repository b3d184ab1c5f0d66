package httpserver

import (
	"regexp"
	"strings"
	"time"

	"trip_activities/internal/domain"
)

var (
	currencyRe = regexp.MustCompile(`^[A-Z]{3}$`)
	languageRe = regexp.MustCompile(`^[a-z]{2}$`)
	countryRe  = regexp.MustCompile(`^[A-Z]{2}$`)
)

const dateLayout = "2006-01-02"

// searchRequestDTO is the JSON body of POST /v1/activities/search.
type searchRequestDTO struct {
	Location struct {
		City          string   `json:"city"`
		Country       string   `json:"country"`
		Lat           *float64 `json:"lat"`
		Lon           *float64 `json:"lon"`
		RadiusKm      *float64 `json:"radius_km"`
		DestinationID string   `json:"destination_id"`
	} `json:"location"`
	Dates struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"dates"`
	Filters *struct {
		Categories  []string `json:"categories"`
		PriceMin    *float64 `json:"price_min"`
		PriceMax    *float64 `json:"price_max"`
		RatingMin   *float64 `json:"rating_min"`
		DurationMin *int     `json:"duration_min"`
		DurationMax *int     `json:"duration_max"`
		Flags       []string `json:"flags"`
	} `json:"filters"`
	Sort *struct {
		By    string `json:"by"`
		Order string `json:"order"`
	} `json:"sort"`
	Pagination *struct {
		Page  int `json:"page"`
		Limit int `json:"limit"`
	} `json:"pagination"`
	Currency string `json:"currency"`
	Language string `json:"language"`
}

// toDomain validates the DTO and produces the normalized request. All
// boundary invariants live here so the orchestrator can trust its input.
func (dto *searchRequestDTO) toDomain() (domain.SearchRequest, error) {
	var req domain.SearchRequest

	loc, err := dto.location()
	if err != nil {
		return req, err
	}
	req.Location = loc

	if dto.Dates.Start == "" {
		return req, domain.Invalid("dates.start", "required")
	}
	start, err := time.Parse(dateLayout, dto.Dates.Start)
	if err != nil {
		return req, domain.Invalid("dates.start", "must be YYYY-MM-DD")
	}
	req.Dates.Start = dto.Dates.Start
	if dto.Dates.End != "" {
		end, err := time.Parse(dateLayout, dto.Dates.End)
		if err != nil {
			return req, domain.Invalid("dates.end", "must be YYYY-MM-DD")
		}
		if end.Before(start) {
			return req, domain.Invalid("dates.end", "must not be before dates.start")
		}
		req.Dates.End = dto.Dates.End
	}

	filters, err := dto.filters()
	if err != nil {
		return req, err
	}
	req.Filters = filters

	req.Sort = domain.SortSpec{By: "default", Order: "desc"}
	if dto.Sort != nil {
		if dto.Sort.By != "" {
			by := strings.ToLower(dto.Sort.By)
			switch by {
			case "default", "price", "rating":
				req.Sort.By = by
			default:
				return req, domain.Invalid("sort.by", "must be one of default, price, rating")
			}
		}
		if dto.Sort.Order != "" {
			order := strings.ToLower(dto.Sort.Order)
			if order != "asc" && order != "desc" {
				return req, domain.Invalid("sort.order", "must be asc or desc")
			}
			req.Sort.Order = order
		}
	}

	req.Page = domain.PageSpec{Page: 1, Limit: 20}
	if dto.Pagination != nil {
		if dto.Pagination.Page != 0 {
			if dto.Pagination.Page < 1 {
				return req, domain.Invalid("pagination.page", "must be >= 1")
			}
			req.Page.Page = dto.Pagination.Page
		}
		if dto.Pagination.Limit != 0 {
			if dto.Pagination.Limit < 1 || dto.Pagination.Limit > domain.MaxPageSize {
				return req, domain.Invalid("pagination.limit", "must be between 1 and 50")
			}
			req.Page.Limit = dto.Pagination.Limit
		}
	}

	req.Currency = "EUR"
	if dto.Currency != "" {
		cur := strings.ToUpper(strings.TrimSpace(dto.Currency))
		if !currencyRe.MatchString(cur) {
			return req, domain.Invalid("currency", "must be a 3-letter ISO code")
		}
		req.Currency = cur
	}
	req.Language = "en"
	if dto.Language != "" {
		lang := strings.ToLower(strings.TrimSpace(dto.Language))
		if !languageRe.MatchString(lang) {
			return req, domain.Invalid("language", "must be a 2-letter ISO code")
		}
		req.Language = lang
	}
	return req, nil
}

func (dto *searchRequestDTO) location() (domain.LocationSpec, error) {
	l := dto.Location
	hasCity := strings.TrimSpace(l.City) != ""
	hasGeo := l.Lat != nil || l.Lon != nil
	hasID := strings.TrimSpace(l.DestinationID) != ""

	variants := 0
	for _, v := range []bool{hasCity, hasGeo, hasID} {
		if v {
			variants++
		}
	}
	if variants != 1 {
		return domain.LocationSpec{}, domain.Invalid("location", "exactly one of city, lat/lon, or destination_id is required")
	}

	switch {
	case hasID:
		return domain.LocationSpec{DestinationID: strings.TrimSpace(l.DestinationID)}, nil
	case hasCity:
		spec := domain.LocationSpec{City: strings.TrimSpace(l.City)}
		if l.Country != "" {
			cc := strings.ToUpper(strings.TrimSpace(l.Country))
			if !countryRe.MatchString(cc) {
				return spec, domain.Invalid("location.country", "must be a 2-letter ISO code")
			}
			spec.CountryHint = cc
		}
		return spec, nil
	default:
		if l.Lat == nil || l.Lon == nil {
			return domain.LocationSpec{}, domain.Invalid("location", "lat and lon are both required for geo search")
		}
		if *l.Lat < -90 || *l.Lat > 90 {
			return domain.LocationSpec{}, domain.Invalid("location.lat", "must be between -90 and 90")
		}
		if *l.Lon < -180 || *l.Lon > 180 {
			return domain.LocationSpec{}, domain.Invalid("location.lon", "must be between -180 and 180")
		}
		radius := 25.0
		if l.RadiusKm != nil {
			if *l.RadiusKm <= 0 || *l.RadiusKm > 500 {
				return domain.LocationSpec{}, domain.Invalid("location.radius_km", "must be between 0 and 500")
			}
			radius = *l.RadiusKm
		}
		return domain.LocationSpec{Geo: &domain.GeoInput{Lat: *l.Lat, Lon: *l.Lon, RadiusKm: radius}}, nil
	}
}

func (dto *searchRequestDTO) filters() (*domain.SearchFilters, error) {
	f := dto.Filters
	if f == nil {
		return nil, nil
	}
	out := &domain.SearchFilters{Flags: normalizeFlags(f.Flags)}
	for _, c := range f.Categories {
		if c = strings.TrimSpace(c); c != "" {
			out.Categories = append(out.Categories, c)
		}
	}
	if f.PriceMin != nil || f.PriceMax != nil {
		if f.PriceMin != nil && *f.PriceMin < 0 {
			return nil, domain.Invalid("filters.price_min", "must be >= 0")
		}
		if f.PriceMax != nil && *f.PriceMax < 0 {
			return nil, domain.Invalid("filters.price_max", "must be >= 0")
		}
		if f.PriceMin != nil && f.PriceMax != nil && *f.PriceMin > *f.PriceMax {
			return nil, domain.Invalid("filters.price_min", "must not exceed filters.price_max")
		}
		out.Price = &domain.PriceRange{Min: f.PriceMin, Max: f.PriceMax}
	}
	if f.RatingMin != nil {
		if *f.RatingMin < 0 || *f.RatingMin > 5 {
			return nil, domain.Invalid("filters.rating_min", "must be between 0 and 5")
		}
		out.RatingMin = f.RatingMin
	}
	if f.DurationMin != nil || f.DurationMax != nil {
		if f.DurationMin != nil && *f.DurationMin < 0 {
			return nil, domain.Invalid("filters.duration_min", "must be >= 0")
		}
		if f.DurationMax != nil && *f.DurationMax <= 0 {
			return nil, domain.Invalid("filters.duration_max", "must be > 0")
		}
		if f.DurationMin != nil && f.DurationMax != nil && *f.DurationMin > *f.DurationMax {
			return nil, domain.Invalid("filters.duration_min", "must not exceed filters.duration_max")
		}
		out.Duration = &domain.DurationRange{Min: f.DurationMin, Max: f.DurationMax}
	}
	return out, nil
}

func normalizeFlags(in []string) []string {
	var out []string
	for _, fl := range in {
		if fl = strings.ToUpper(strings.TrimSpace(fl)); fl != "" {
			out = append(out, fl)
		}
	}
	return out
}
