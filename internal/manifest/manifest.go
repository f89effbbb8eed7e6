// Package manifest persists the working set of titles (titles.json) between runs.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/Belphemur/BackdropFetcher/internal/apperrors"
	"github.com/Belphemur/BackdropFetcher/internal/config"
	"github.com/Belphemur/BackdropFetcher/internal/models"
)

// Store reads and writes the manifest file. Writes go through a temp file
// and a rename so readers never observe a half-written manifest.
type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the manifest location
func (s *Store) Path() string {
	return s.path
}

// Load reads the manifest. A missing file is reported as fs.ErrNotExist, an
// unparsable one as *apperrors.ErrManifestCorruption.
func (s *Store) Load() ([]models.TitleEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("manifest %s: %w", s.path, fs.ErrNotExist)
		}
		return nil, &apperrors.ErrManifestCorruption{Path: s.path, Err: err}
	}

	var raw models.RunManifest
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &apperrors.ErrManifestCorruption{Path: s.path, Err: err}
	}

	entries := raw.Normalize()
	if err := entries.Validate(); err != nil {
		return nil, &apperrors.ErrManifestCorruption{Path: s.path, Err: err}
	}
	return entries, nil
}

// Save replaces the manifest with entries
func (s *Store) Save(entries []models.TitleEntry) error {
	if entries == nil {
		entries = []models.TitleEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(append(data, '\n'))
}

// Reset truncates the manifest to an empty list
func (s *Store) Reset() error {
	logger := config.GetLogger()
	logger.Warn().Str("path", s.path).Msg("Resetting manifest to an empty list")

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write([]byte("[]\n"))
}

// LoadOrReset loads the manifest; when it is absent or unreadable it is reset
// and read once more. A second failure is returned as corruption.
func (s *Store) LoadOrReset() ([]models.TitleEntry, error) {
	logger := config.GetLogger()
	entries, err := s.Load()
	if err == nil {
		return entries, nil
	}
	logger.Warn().Err(err).Str("path", s.path).Msg("Manifest unavailable")

	if resetErr := s.Reset(); resetErr != nil {
		return nil, &apperrors.ErrManifestCorruption{Path: s.path, Err: resetErr}
	}
	entries, err = s.Load()
	if err != nil {
		var corrupt *apperrors.ErrManifestCorruption
		if errors.As(err, &corrupt) {
			return nil, err
		}
		return nil, &apperrors.ErrManifestCorruption{Path: s.path, Err: err}
	}
	return entries, nil
}

func (s *Store) write(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".titles-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp manifest: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp manifest: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace manifest: %w", err)
	}
	return nil
}
