package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog/log"

	"trip_activities/internal/adapters/viator"
	"trip_activities/internal/app"
	"trip_activities/internal/domain"
)

type Handlers struct {
	Search       *app.SearchService
	Taxonomy     *app.TaxonomyIndex
	Destinations *app.DestinationsSync
	Cache        domain.Cache
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(30, time.Minute))
		r.Post("/v1/activities/search", h.searchActivities)
	})
	s.mux.Get("/v1/tags", h.listTags)

	s.mux.Post("/admin/taxonomy/sync", h.syncTaxonomy)
	s.mux.Post("/admin/destinations/sync", h.syncDestinations)
	s.mux.Post("/admin/cache/invalidate", h.invalidateCache)
}

func writeProblem(w http.ResponseWriter, status int, code, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Code: code, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps the domain error taxonomy onto stable HTTP codes.
func writeError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		writeProblem(w, http.StatusBadRequest, "validation_error", "Invalid Request", ve.Error())
		return
	}
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeProblem(w, http.StatusBadRequest, "validation_error", "Invalid Request", err.Error())
	case errors.Is(err, domain.ErrLocationNotFound):
		writeProblem(w, http.StatusNotFound, "location_not_found", "Location Not Found", "no destination matched the given location")
	case errors.Is(err, domain.ErrStoreUnavailable):
		writeProblem(w, http.StatusServiceUnavailable, "store_unavailable", "Store Unavailable", "a backing store is temporarily unreachable")
	default:
		var pe *viator.PermanentError
		var te *viator.TransientError
		switch {
		case errors.As(err, &pe):
			writeProblem(w, http.StatusBadGateway, "upstream_permanent", "Upstream Rejected Request", pe.Error())
		case errors.As(err, &te), errors.Is(err, viator.ErrRateLimited):
			writeProblem(w, http.StatusServiceUnavailable, "upstream_transient", "Upstream Unavailable", "the activity provider is temporarily unavailable")
		default:
			writeProblem(w, http.StatusInternalServerError, "internal_error", "Internal Error", "")
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func (h *Handlers) searchActivities(w http.ResponseWriter, r *http.Request) {
	var dto searchRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeProblem(w, http.StatusBadRequest, "validation_error", "Invalid Request", "body must be valid JSON")
		return
	}
	req, err := dto.toDomain()
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := h.Search.Search(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) listTags(w http.ResponseWriter, r *http.Request) {
	entries := h.Taxonomy.Find(r.URL.Query().Get("q"))
	out := struct {
		Total int                    `json:"total"`
		Tags  []domain.TaxonomyEntry `json:"tags"`
	}{Total: len(entries), Tags: entries}

	etag, body := calcETagAndBody(out)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write listTags body")
	}
}

func (h *Handlers) syncTaxonomy(w http.ResponseWriter, r *http.Request) {
	report, err := h.Taxonomy.Sync(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handlers) syncDestinations(w http.ResponseWriter, r *http.Request) {
	report, err := h.Destinations.Sync(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handlers) invalidateCache(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Pattern string `json:"pattern"`
	}
	// an empty body is fine; the default pattern clears search results
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body.Pattern == "" {
		body.Pattern = "activities:search:*"
	}
	deleted, err := h.Cache.DelPattern(r.Context(), body.Pattern)
	if err != nil {
		writeError(w, err)
		return
	}
	log.Info().Str("pattern", body.Pattern).Int("deleted", deleted).Msg("cache invalidated")
	writeJSON(w, http.StatusOK, map[string]any{"pattern": body.Pattern, "deleted": deleted})
}
