package app

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"trip_activities/internal/adapters/observability"
	"trip_activities/internal/domain"
)

// TaxonomyIndex serves keyword → tag-id lookups from an immutable snapshot.
// Sync builds a complete replacement snapshot and swaps it in one atomic
// store, so readers never observe a half-synced taxonomy.
type TaxonomyIndex struct {
	provider domain.ProviderClient
	store    domain.TagStore
	lang     string

	snap   atomic.Pointer[taxonomySnapshot]
	syncMu sync.Mutex // serializes Sync runs; readers never block
}

type taxonomySnapshot struct {
	entries []domain.TaxonomyEntry
	rows    []tagSearchRow
	names   map[int]string
}

// tagSearchRow pre-lowers every name once so Lookup stays allocation-light.
type tagSearchRow struct {
	tagID int
	names []string
}

func NewTaxonomyIndex(provider domain.ProviderClient, store domain.TagStore, lang string) *TaxonomyIndex {
	if lang == "" {
		lang = "en"
	}
	ix := &TaxonomyIndex{provider: provider, store: store, lang: lang}
	ix.snap.Store(buildSnapshot(nil))
	return ix
}

// Warm rebuilds the snapshot from the persisted tag store so lookups work
// before the first live sync.
func (ix *TaxonomyIndex) Warm(ctx context.Context) error {
	entries, err := ix.store.ListTags(ctx)
	if err != nil {
		return err
	}
	ix.snap.Store(buildSnapshot(entries))
	log.Info().Int("tags", len(entries)).Msg("taxonomy index warmed from store")
	return nil
}

// Lookup returns the sorted set of tag ids whose canonical or translated
// names contain the keyword (case-insensitive). An empty result is a valid
// outcome: the caller searches unfiltered rather than failing.
func (ix *TaxonomyIndex) Lookup(keyword string) []int {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if kw == "" {
		return nil
	}
	snap := ix.snap.Load()
	var ids []int
	for _, row := range snap.rows {
		for _, n := range row.names {
			if strings.Contains(n, kw) {
				ids = append(ids, row.tagID)
				break
			}
		}
	}
	sort.Ints(ids)
	return ids
}

// Find returns the full entries matching a keyword, or every entry when the
// keyword is empty. Backs the tags listing endpoint.
func (ix *TaxonomyIndex) Find(keyword string) []domain.TaxonomyEntry {
	snap := ix.snap.Load()
	if strings.TrimSpace(keyword) == "" {
		out := make([]domain.TaxonomyEntry, len(snap.entries))
		copy(out, snap.entries)
		return out
	}
	matched := ix.Lookup(keyword)
	set := make(map[int]struct{}, len(matched))
	for _, id := range matched {
		set[id] = struct{}{}
	}
	var out []domain.TaxonomyEntry
	for _, e := range snap.entries {
		if _, ok := set[e.TagID]; ok {
			out = append(out, e)
		}
	}
	return out
}

// NameOf maps a tag id back to its canonical name.
func (ix *TaxonomyIndex) NameOf(tagID int) (string, bool) {
	name, ok := ix.snap.Load().names[tagID]
	return name, ok
}

// Sync fetches the complete taxonomy in one pass, persists it, and replaces
// the queryable snapshot wholesale. A failed fetch leaves the prior
// snapshot serving.
func (ix *TaxonomyIndex) Sync(ctx context.Context) (domain.SyncReport, error) {
	ix.syncMu.Lock()
	defer ix.syncMu.Unlock()

	report := domain.SyncReport{StartedAt: time.Now().UTC()}
	log.Info().Str("lang", ix.lang).Msg("taxonomy sync starting")

	raw, err := ix.provider.ListTags(ctx, ix.lang)
	if err != nil {
		observability.ObserveSync("taxonomy", false)
		report.CompletedAt = time.Now().UTC()
		return report, err
	}
	report.Fetched = len(raw)

	now := time.Now().UTC()
	entries := make([]domain.TaxonomyEntry, 0, len(raw))
	for _, t := range raw {
		entry, ok := mapTag(t, now)
		if !ok {
			report.Errors++
			continue
		}
		if entry.ParentTagID == nil {
			report.RootTags++
		} else {
			report.ChildTags++
		}
		if err := ix.store.UpsertTag(ctx, entry); err != nil {
			log.Error().Err(err).Int("tag_id", entry.TagID).Msg("tag upsert failed")
			report.Errors++
			continue
		}
		entries = append(entries, entry)
		report.Updated++
	}

	ix.snap.Store(buildSnapshot(entries))
	report.CompletedAt = time.Now().UTC()
	observability.ObserveSync("taxonomy", true)
	log.Info().
		Int("fetched", report.Fetched).
		Int("updated", report.Updated).
		Int("errors", report.Errors).
		Int("root_tags", report.RootTags).
		Int("child_tags", report.ChildTags).
		Msg("taxonomy sync completed")
	return report, nil
}

func buildSnapshot(entries []domain.TaxonomyEntry) *taxonomySnapshot {
	snap := &taxonomySnapshot{
		entries: entries,
		rows:    make([]tagSearchRow, 0, len(entries)),
		names:   make(map[int]string, len(entries)),
	}
	for _, e := range entries {
		row := tagSearchRow{tagID: e.TagID, names: make([]string, 0, 1+len(e.NamesByLang))}
		row.names = append(row.names, strings.ToLower(e.Name))
		for _, n := range e.NamesByLang {
			row.names = append(row.names, strings.ToLower(n))
		}
		snap.rows = append(snap.rows, row)
		snap.names[e.TagID] = e.Name
	}
	return snap
}

// mapTag transforms a provider tag payload into a TaxonomyEntry.
func mapTag(t map[string]any, syncedAt time.Time) (domain.TaxonomyEntry, bool) {
	id := lookupInt(t, "tagId")
	if id == nil {
		return domain.TaxonomyEntry{}, false
	}
	entry := domain.TaxonomyEntry{
		TagID:    *id,
		Name:     lookupStr(t, "tagName"),
		SyncedAt: syncedAt,
	}
	if p := lookupInt(t, "parentTagId"); p != nil {
		entry.ParentTagID = p
	}
	if names, ok := t["allNamesByLocale"].(map[string]any); ok {
		entry.NamesByLang = make(map[string]string, len(names))
		for lang, v := range names {
			if s, ok := v.(string); ok && s != "" {
				entry.NamesByLang[lang] = s
			}
		}
	}
	return entry, true
}
