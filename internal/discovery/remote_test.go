package discovery

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/Belphemur/BackdropFetcher/internal/apperrors"
	"github.com/Belphemur/BackdropFetcher/internal/config"
	"github.com/Belphemur/BackdropFetcher/internal/models"
	"github.com/Belphemur/BackdropFetcher/internal/testutil"
	"github.com/rs/zerolog"
)

type fakeList struct {
	body        string
	contentType string
	err         error
}

type fakeListFetcher map[string]fakeList

func (f fakeListFetcher) FetchList(_ context.Context, ref string) ([]byte, string, error) {
	list, ok := f[ref]
	if !ok {
		return nil, "", fmt.Errorf("unexpected list %s", ref)
	}
	if list.err != nil {
		return nil, "", list.err
	}
	return []byte(list.body), list.contentType, nil
}

func remoteConfig(movies, shows string) *config.Config {
	cfg := config.Default()
	cfg.Discovery.Mode = config.DiscoveryModeRemote
	cfg.Discovery.MoviesList = movies
	cfg.Discovery.ShowsList = shows
	return cfg
}

func TestRemoteDiscoverer_Discover(t *testing.T) {
	lists := fakeListFetcher{
		"https://lists.example/movies.json": {
			contentType: "application/json",
			body:        `[{"title":"Movie X","tmdb_id":101},{"title":"Heat"},{"title":"movie x"}]`,
		},
		"https://lists.example/shows.html": {
			contentType: "text/html",
			body: testutil.GenerateListHTML([]testutil.ListItemOptions{
				{Title: "Show Y", TMDBID: 1399},
				{Title: "Dark"},
			}),
		},
	}

	d := New(remoteConfig("https://lists.example/movies.json", "https://lists.example/shows.html"), lists, zerolog.Nop())
	entries, err := d.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	want := []models.TitleEntry{
		{Title: "Movie X", MediaType: models.MediaTypeMovie, ExternalID: "101"},
		{Title: "Heat", MediaType: models.MediaTypeMovie},
		{Title: "Show Y", MediaType: models.MediaTypeShow, ExternalID: "1399"},
		{Title: "Dark", MediaType: models.MediaTypeShow},
	}
	if !reflect.DeepEqual(entries, want) {
		t.Errorf("Discover() = %+v, want %+v", entries, want)
	}
}

func TestRemoteDiscoverer_OneListFails(t *testing.T) {
	lists := fakeListFetcher{
		"movies": {err: apperrors.NewStatusError("list", 503)},
		"shows":  {contentType: "application/json", body: `[{"name":"Dark"}]`},
	}

	entries, err := New(remoteConfig("movies", "shows"), lists, zerolog.Nop()).Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(entries) != 1 || entries[0].MediaType != models.MediaTypeShow {
		t.Errorf("expected only the show list, got %+v", entries)
	}
}

func TestRemoteDiscoverer_AllListsFail(t *testing.T) {
	lists := fakeListFetcher{
		"movies": {contentType: "application/json", body: `{"page":1}`},
		"shows":  {err: errors.New("connection refused")},
	}

	_, err := New(remoteConfig("movies", "shows"), lists, zerolog.Nop()).Discover(context.Background())
	var discoveryErr *apperrors.ErrDiscovery
	if !errors.As(err, &discoveryErr) {
		t.Fatalf("expected ErrDiscovery, got %v", err)
	}
}
