package manifest

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/Belphemur/BackdropFetcher/internal/apperrors"
	"github.com/Belphemur/BackdropFetcher/internal/models"
)

func TestStore_RoundTrip(t *testing.T) {
	t.Parallel()
	store := NewStore(filepath.Join(t.TempDir(), "config", "titles.json"))
	entries := []models.TitleEntry{
		{Title: "Movie X", MediaType: models.MediaTypeMovie, ExternalID: "42"},
		{Title: "Show Y", MediaType: models.MediaTypeShow},
	}

	if err := store.Save(entries); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, entries) {
		t.Errorf("Load() = %+v, want %+v", got, entries)
	}

	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(store.Path()), ".titles-*"))
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestStore_SaveNilWritesEmptyArray(t *testing.T) {
	t.Parallel()
	store := NewStore(filepath.Join(t.TempDir(), "titles.json"))
	if err := store.Save(nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[]\n" {
		t.Errorf("file = %q, want empty array", data)
	}
}

func TestStore_LoadMissing(t *testing.T) {
	t.Parallel()
	store := NewStore(filepath.Join(t.TempDir(), "titles.json"))
	_, err := store.Load()
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestStore_LoadCorrupt(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "{{{"},
		{"object instead of array", `{"title":"x"}`},
		{"empty title", `[{"title":"","mediaType":"movie"}]`},
		{"bad media type", `[{"title":"x","mediaType":"music"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "titles.json")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := NewStore(path).Load()
			if !errors.Is(err, &apperrors.ErrManifestCorruption{}) {
				t.Errorf("expected ErrManifestCorruption, got %v", err)
			}
		})
	}
}

func TestStore_LoadNormalizesBlankIDs(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "titles.json")
	content := `[{"title":" Movie X ","mediaType":"movies","externalId":"  "}]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := NewStore(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []models.TitleEntry{{Title: "Movie X", MediaType: models.MediaTypeMovie}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

func TestStore_LoadOrReset(t *testing.T) {
	t.Parallel()

	t.Run("corrupt file is reset", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "titles.json")
		if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
			t.Fatal(err)
		}
		got, err := NewStore(path).LoadOrReset()
		if err != nil {
			t.Fatalf("LoadOrReset: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected empty manifest, got %+v", got)
		}
		data, _ := os.ReadFile(path)
		if string(data) != "[]\n" {
			t.Errorf("manifest should be reset on disk, got %q", data)
		}
	})

	t.Run("missing file is created", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "nested", "titles.json")
		got, err := NewStore(path).LoadOrReset()
		if err != nil {
			t.Fatalf("LoadOrReset: %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("expected empty non-nil manifest, got %#v", got)
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("manifest should exist: %v", err)
		}
	})

	t.Run("valid file is kept", func(t *testing.T) {
		t.Parallel()
		store := NewStore(filepath.Join(t.TempDir(), "titles.json"))
		entries := []models.TitleEntry{{Title: "Movie X", MediaType: models.MediaTypeMovie, ExternalID: "42"}}
		if err := store.Save(entries); err != nil {
			t.Fatal(err)
		}
		got, err := store.LoadOrReset()
		if err != nil {
			t.Fatalf("LoadOrReset: %v", err)
		}
		if !reflect.DeepEqual(got, entries) {
			t.Errorf("LoadOrReset() = %+v, want %+v", got, entries)
		}
	})

	t.Run("unwritable location is corruption", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		blocker := filepath.Join(dir, "blocker")
		if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := NewStore(filepath.Join(blocker, "titles.json")).LoadOrReset()
		if !errors.Is(err, &apperrors.ErrManifestCorruption{}) {
			t.Errorf("expected ErrManifestCorruption, got %v", err)
		}
	})
}
