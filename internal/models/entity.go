// Package models defines the transport-level types shared by storage, index,
// service and API layers.
package models

import "time"

// FileMeta describes one Markdown file in the vault.
type FileMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntitySummary is the lightweight form returned by list, timeline and search.
type EntitySummary struct {
	Path      string    `json:"path"`
	ID        string    `json:"id,omitempty"`
	Kind      string    `json:"kind"`
	Name      string    `json:"name"`
	Checksum  string    `json:"checksum"`
	Tags      []string  `json:"tags,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TimelineEntry is an entity with a parsed story date.
type TimelineEntry struct {
	EntitySummary
	DateText    string `json:"date_text"`
	DateMillis  int64  `json:"date_ms"`
	Display     string `json:"display"`
	Precision   string `json:"precision"`
	Approximate bool   `json:"approximate,omitempty"`
	IsBCE       bool   `json:"is_bce,omitempty"`
}

// SearchHit is one full-text search match.
type SearchHit struct {
	Path    string `json:"path"`
	Kind    string `json:"kind"`
	Name    string `json:"name"`
	Snippet string `json:"snippet"`
}
