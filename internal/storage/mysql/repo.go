package mysql

import (
	"context"
	"database/sql"
	"encoding/json"

	"trip_activities/internal/domain"
)

func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func valInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) UpsertPlace(ctx context.Context, p domain.Place) error {
	_, err := r.db.ExecContext(ctx, upsertPlaceSQL,
		p.DestinationID,
		p.Name,
		p.Kind,
		p.CountryCode,
		valF64(p.Lat),
		valF64(p.Lon),
		p.Weight,
	)
	return err
}

func (r *Repo) ListByCountry(ctx context.Context, countryCode string, limit int) ([]domain.Place, error) {
	rows, err := r.db.QueryContext(ctx, listPlacesByCountrySQL, countryCode, countryCode, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Place
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) Nearest(ctx context.Context, lat, lon, radiusKm float64) (*domain.PlaceHit, error) {
	row := r.db.QueryRowContext(ctx, nearestPlaceSQL, lat, lon, lat, radiusKm)

	var (
		hit     domain.PlaceHit
		pLat    sql.NullFloat64
		pLon    sql.NullFloat64
		country sql.NullString
	)
	if err := row.Scan(
		&hit.DestinationID,
		&hit.Name,
		&hit.Kind,
		&country,
		&pLat, &pLon,
		&hit.Weight,
		&hit.DistanceKm,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if country.Valid {
		hit.CountryCode = country.String
	}
	if pLat.Valid {
		hit.Lat = &pLat.Float64
	}
	if pLon.Valid {
		hit.Lon = &pLon.Float64
	}
	return &hit, nil
}

func (r *Repo) Revision(ctx context.Context) (string, error) {
	var rev string
	if err := r.db.QueryRowContext(ctx, placesRevisionSQL).Scan(&rev); err != nil {
		return "", err
	}
	return rev, nil
}

func (r *Repo) UpsertTag(ctx context.Context, t domain.TaxonomyEntry) error {
	names, _ := json.Marshal(t.NamesByLang)
	_, err := r.db.ExecContext(ctx, upsertTagSQL,
		t.TagID,
		t.Name,
		valInt(t.ParentTagID),
		string(names),
		t.SyncedAt,
	)
	return err
}

func (r *Repo) ListTags(ctx context.Context) ([]domain.TaxonomyEntry, error) {
	rows, err := r.db.QueryContext(ctx, listTagsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TaxonomyEntry
	for rows.Next() {
		var (
			t        domain.TaxonomyEntry
			parent   sql.NullInt64
			namesRaw []byte
			syncedAt sql.NullTime
		)
		if err := rows.Scan(&t.TagID, &t.Name, &parent, &namesRaw, &syncedAt); err != nil {
			return nil, err
		}
		if parent.Valid {
			p := int(parent.Int64)
			t.ParentTagID = &p
		}
		if len(namesRaw) > 0 {
			_ = json.Unmarshal(namesRaw, &t.NamesByLang)
		}
		if syncedAt.Valid {
			t.SyncedAt = syncedAt.Time.UTC()
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repo) UpsertActivity(ctx context.Context, a domain.Activity) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, upsertActivitySQL,
		a.ID,
		a.Title,
		a.Destination,
		a.Country,
		string(payload),
	)
	return err
}

// FetchCount reports how many times an activity has been upserted.
func (r *Repo) FetchCount(ctx context.Context, id string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT fetch_count FROM activities WHERE id = ?`, id).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlace(row rowScanner) (domain.Place, error) {
	var (
		p       domain.Place
		country sql.NullString
		lat     sql.NullFloat64
		lon     sql.NullFloat64
	)
	if err := row.Scan(&p.DestinationID, &p.Name, &p.Kind, &country, &lat, &lon, &p.Weight); err != nil {
		return domain.Place{}, err
	}
	if country.Valid {
		p.CountryCode = country.String
	}
	if lat.Valid {
		p.Lat = &lat.Float64
	}
	if lon.Valid {
		p.Lon = &lon.Float64
	}
	return p, nil
}
