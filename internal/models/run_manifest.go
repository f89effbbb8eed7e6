package models

import "fmt"

// RunManifest is the ordered working set of titles persisted between runs
type RunManifest []TitleEntry

// Validate checks every entry and reports the first invalid one
func (m RunManifest) Validate() error {
	for i, entry := range m {
		if err := entry.Validate(); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return nil
}

// Normalize returns a copy with every entry normalized
func (m RunManifest) Normalize() RunManifest {
	out := make(RunManifest, len(m))
	for i, entry := range m {
		out[i] = entry.Normalize()
	}
	return out
}
