package models

import (
	"fmt"
	"strings"
)

// TitleEntry is a discovered movie or show.
// ExternalID holds the TMDB identifier; the empty string means the id is absent.
type TitleEntry struct {
	Title      string    `json:"title"`
	MediaType  MediaType `json:"mediaType"`
	ExternalID string    `json:"externalId,omitempty"`
}

// HasExternalID reports whether the entry carries an identifier
func (e TitleEntry) HasExternalID() bool {
	return e.ExternalID != ""
}

// Key returns the identity of the entry within a run
func (e TitleEntry) Key() string {
	return string(e.MediaType) + "|" + strings.ToLower(strings.TrimSpace(e.Title))
}

// Normalize trims fields so whitespace-only identifiers become absent
func (e TitleEntry) Normalize() TitleEntry {
	e.Title = strings.TrimSpace(e.Title)
	e.ExternalID = strings.TrimSpace(e.ExternalID)
	return e
}

// Validate checks the manifest invariant for a single entry
func (e TitleEntry) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("entry has an empty title")
	}
	if !e.MediaType.IsValid() {
		return fmt.Errorf("entry %q has invalid media type %q", e.Title, e.MediaType)
	}
	if e.ExternalID != "" && strings.TrimSpace(e.ExternalID) == "" {
		return fmt.Errorf("entry %q has a blank external id", e.Title)
	}
	return nil
}

// DedupEntries removes duplicates by (title, media type), keeping the first occurrence.
// A later duplicate that carries an id fills in a missing id of the kept entry.
func DedupEntries(entries []TitleEntry) []TitleEntry {
	seen := make(map[string]int, len(entries))
	result := make([]TitleEntry, 0, len(entries))
	for _, entry := range entries {
		key := entry.Key()
		if idx, ok := seen[key]; ok {
			if !result[idx].HasExternalID() && entry.HasExternalID() {
				result[idx].ExternalID = entry.ExternalID
			}
			continue
		}
		seen[key] = len(result)
		result = append(result, entry)
	}
	return result
}
