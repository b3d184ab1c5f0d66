package domain

import "time"

// TaxonomyEntry is one tag of the provider's category taxonomy.
// ParentTagID is nil for root tags.
type TaxonomyEntry struct {
	TagID       int               `json:"tag_id"`
	Name        string            `json:"name"`
	ParentTagID *int              `json:"parent_tag_id,omitempty"`
	NamesByLang map[string]string `json:"names_by_language,omitempty"`
	SyncedAt    time.Time         `json:"synced_at"`
}

// SyncReport summarizes one taxonomy or destinations sync run.
type SyncReport struct {
	Fetched     int       `json:"fetched"`
	Updated     int       `json:"updated"`
	Errors      int       `json:"errors"`
	RootTags    int       `json:"root_tags,omitempty"`
	ChildTags   int       `json:"child_tags,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}
