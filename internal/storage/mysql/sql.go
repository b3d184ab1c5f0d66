package mysql

const upsertPlaceSQL = `
INSERT INTO places
  (destination_id, name, kind, country_code, lat, lon, weight)
VALUES
  (?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  name         = VALUES(name),
  kind         = VALUES(kind),
  country_code = VALUES(country_code),
  lat          = VALUES(lat),
  lon          = VALUES(lon),
  weight       = VALUES(weight),
  updated_at   = CURRENT_TIMESTAMP
`

// Resolution candidates: cities first by importance, then name for stable
// ordering. An empty country code widens to the whole catalog.
const listPlacesByCountrySQL = `
SELECT destination_id, name, kind, country_code, lat, lon, weight
FROM places
WHERE kind = 'city'
  AND (? = '' OR country_code = ?)
ORDER BY weight DESC, name
LIMIT ?
`

// Great-circle distance via the spherical law of cosines. LEAST guards the
// ACOS argument against floating-point drift above 1.0.
const nearestPlaceSQL = `
SELECT destination_id, name, kind, country_code, lat, lon, weight,
  (6371 * ACOS(LEAST(1.0,
     COS(RADIANS(?)) * COS(RADIANS(lat)) * COS(RADIANS(lon) - RADIANS(?)) +
     SIN(RADIANS(?)) * SIN(RADIANS(lat))
  ))) AS distance_km
FROM places
WHERE kind = 'city' AND lat IS NOT NULL AND lon IS NOT NULL
HAVING distance_km <= ?
ORDER BY distance_km
LIMIT 1
`

// Cheap change marker: row count plus the newest update stamp.
const placesRevisionSQL = `
SELECT CONCAT(COUNT(*), ':', COALESCE(MAX(UNIX_TIMESTAMP(updated_at)), 0))
FROM places
`

const upsertTagSQL = `
INSERT INTO tags
  (tag_id, name, parent_tag_id, names_by_language, synced_at)
VALUES
  (?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  name              = VALUES(name),
  parent_tag_id     = VALUES(parent_tag_id),
  names_by_language = VALUES(names_by_language),
  synced_at         = VALUES(synced_at)
`

const listTagsSQL = `
SELECT tag_id, name, parent_tag_id, names_by_language, synced_at
FROM tags
ORDER BY tag_id
`

// fetch_count tracks how often an activity has appeared in upstream
// responses; the row itself is replaced with the freshest payload.
const upsertActivitySQL = `
INSERT INTO activities
  (id, title, destination, country, payload, fetch_count)
VALUES
  (?, ?, ?, ?, ?, 1)
ON DUPLICATE KEY UPDATE
  title        = VALUES(title),
  destination  = VALUES(destination),
  country      = VALUES(country),
  payload      = VALUES(payload),
  fetch_count  = fetch_count + 1,
  last_updated = CURRENT_TIMESTAMP
`
