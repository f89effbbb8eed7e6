package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Belphemur/BackdropFetcher/internal/apperrors"
	"github.com/Belphemur/BackdropFetcher/internal/config"
	"github.com/Belphemur/BackdropFetcher/internal/models"
	"github.com/Belphemur/BackdropFetcher/internal/testutil"
)

// newTestConfig points every provider at the fake server
func newTestConfig(serverURL string) *config.Config {
	cfg := config.Default()
	cfg.ClientTimeout = "5s"
	cfg.Providers.TMDB = config.ProviderConfig{APIKey: "tmdb-key", BaseURL: serverURL + "/tmdb", ImageBaseURL: serverURL + "/img"}
	cfg.Providers.TVDB = config.ProviderConfig{APIKey: "tvdb-key", BaseURL: serverURL + "/tvdb"}
	cfg.Providers.Fanart = config.ProviderConfig{APIKey: "fanart-key", BaseURL: serverURL + "/fanart"}
	return cfg
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewHTTPClient(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.ClientTimeout = "7s"
	cfg.UserAgent = ""
	cfg.ProxyConnectionString = "://not a url"

	httpClient := NewHTTPClient(cfg)
	if httpClient.Timeout != 7*time.Second {
		t.Errorf("Timeout = %v, want 7s", httpClient.Timeout)
	}

	resp, err := httpClient.Get(server.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()

	if gotUA != config.DefaultUserAgent {
		t.Errorf("User-Agent = %q, want default", gotUA)
	}
}

func TestTMDBClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != "tmdb-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/tmdb/search/movie":
			switch r.URL.Query().Get("query") {
			case "Movie X":
				writeJSON(w, map[string]any{"results": []map[string]any{{"id": 101, "title": "Movie X"}, {"id": 202, "title": "Movie X 2"}}})
			case "Broken":
				_, _ = w.Write([]byte("{not json"))
			default:
				writeJSON(w, map[string]any{"results": []any{}})
			}
		case "/tmdb/search/tv":
			writeJSON(w, map[string]any{"results": []map[string]any{{"id": 1399, "name": "Show Y"}}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	cfg := newTestConfig(server.URL)
	tmdb := NewTMDBClient(cfg.Providers.TMDB, NewHTTPClient(cfg))
	ctx := context.Background()

	tests := []struct {
		name       string
		title      string
		mediaType  models.MediaType
		wantID     string
		wantReason string
	}{
		{"first result wins", "Movie X", models.MediaTypeMovie, "101", ""},
		{"show search", "Show Y", models.MediaTypeShow, "1399", ""},
		{"no results", "Nothing", models.MediaTypeMovie, "", apperrors.ReasonNoResults},
		{"malformed body", "Broken", models.MediaTypeMovie, "", apperrors.ReasonMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := tmdb.Search(ctx, tt.title, tt.mediaType)
			if tt.wantReason == "" {
				if err != nil {
					t.Fatalf("Search() error = %v", err)
				}
				if id != tt.wantID {
					t.Errorf("Search() = %q, want %q", id, tt.wantID)
				}
				return
			}
			var resErr *apperrors.ErrIdentifierResolution
			if !errors.As(err, &resErr) {
				t.Fatalf("Search() error = %v, want *ErrIdentifierResolution", err)
			}
			if resErr.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", resErr.Reason, tt.wantReason)
			}
		})
	}
}

func TestTMDBClient_Search_FailureReasons(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := newTestConfig(server.URL)
	ctx := context.Background()

	_, err := NewTMDBClient(cfg.Providers.TMDB, NewHTTPClient(cfg)).Search(ctx, "Movie X", models.MediaTypeMovie)
	var resErr *apperrors.ErrIdentifierResolution
	if !errors.As(err, &resErr) || resErr.Reason != apperrors.ReasonTransport {
		t.Fatalf("expected transport reason, got %v", err)
	}

	cfg.Providers.TMDB.APIKey = ""
	_, err = NewTMDBClient(cfg.Providers.TMDB, NewHTTPClient(cfg)).Search(ctx, "Movie X", models.MediaTypeMovie)
	if !errors.As(err, &resErr) || resErr.Reason != apperrors.ReasonMissingAPIKey {
		t.Fatalf("expected missing key reason, got %v", err)
	}
}

func TestTMDBClient_ListBackdrops(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tmdb/movie/101/images" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(testutil.GenerateTMDBImagesJSON([]testutil.ImageOptions{
			{Path: "/a.jpg"},
			{Path: "/b.jpg", Language: testutil.StringPtr("en")},
			{Path: ""},
			{Path: "/c.png", Language: testutil.StringPtr("xx")},
		})))
	}))
	defer server.Close()

	cfg := newTestConfig(server.URL)
	tmdb := NewTMDBClient(cfg.Providers.TMDB, NewHTTPClient(cfg))

	candidates, err := tmdb.ListBackdrops(context.Background(), models.MediaTypeMovie, "101")
	if err != nil {
		t.Fatalf("ListBackdrops() error = %v", err)
	}
	if len(candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(candidates))
	}
	if candidates[0].SourceURL != server.URL+"/img/a.jpg" {
		t.Errorf("SourceURL = %q", candidates[0].SourceURL)
	}
	if candidates[0].Language != nil {
		t.Errorf("expected nil language for null tag, got %q", *candidates[0].Language)
	}
	if candidates[1].LanguageTag() != "en" {
		t.Errorf("LanguageTag() = %q, want en", candidates[1].LanguageTag())
	}

	_, err = tmdb.ListBackdrops(context.Background(), models.MediaTypeShow, "999")
	var transportErr *apperrors.ErrProviderTransport
	if !errors.As(err, &transportErr) || transportErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 transport error, got %v", err)
	}
}

func TestTMDBClient_TVDBID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tmdb/tv/1399/external_ids":
			writeJSON(w, map[string]any{"tvdb_id": 121361})
		case "/tmdb/tv/5/external_ids":
			writeJSON(w, map[string]any{"tvdb_id": nil})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	cfg := newTestConfig(server.URL)
	tmdb := NewTMDBClient(cfg.Providers.TMDB, NewHTTPClient(cfg))

	id, err := tmdb.TVDBID(context.Background(), "1399")
	if err != nil || id != "121361" {
		t.Fatalf("TVDBID() = %q, %v; want 121361", id, err)
	}
	if _, err := tmdb.TVDBID(context.Background(), "5"); !errors.Is(err, &apperrors.ErrNotFound{}) {
		t.Fatalf("expected not found for missing mapping, got %v", err)
	}
}

func TestFanartClient_ListBackdrops(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != "fanart-key" && strings.HasPrefix(r.URL.Path, "/fanart") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/fanart/movies/101":
			_, _ = w.Write([]byte(testutil.GenerateFanartJSON("moviebackground", []testutil.ImageOptions{
				{Path: "https://assets.fanart.tv/a.jpg", Language: testutil.StringPtr("")},
				{Path: "https://assets.fanart.tv/b.jpg", Language: testutil.StringPtr("en")},
			})))
		case "/tmdb/tv/1399/external_ids":
			writeJSON(w, map[string]any{"tvdb_id": 121361})
		case "/fanart/tv/121361":
			_, _ = w.Write([]byte(testutil.GenerateFanartJSON("showbackground", []testutil.ImageOptions{
				{Path: "https://assets.fanart.tv/s.jpg", Language: testutil.StringPtr("00")},
			})))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	cfg := newTestConfig(server.URL)
	providers, _ := NewProviders(cfg, NewHTTPClient(cfg))
	fanart := providers[models.ProviderFanart]
	ctx := context.Background()

	movie, err := fanart.ListBackdrops(ctx, models.MediaTypeMovie, "101")
	if err != nil {
		t.Fatalf("movie ListBackdrops() error = %v", err)
	}
	if len(movie) != 2 || movie[0].LanguageTag() != "" || movie[1].LanguageTag() != "en" {
		t.Fatalf("unexpected movie candidates: %+v", movie)
	}

	show, err := fanart.ListBackdrops(ctx, models.MediaTypeShow, "1399")
	if err != nil {
		t.Fatalf("show ListBackdrops() error = %v", err)
	}
	if len(show) != 1 || show[0].SourceURL != "https://assets.fanart.tv/s.jpg" {
		t.Fatalf("unexpected show candidates: %+v", show)
	}
}

func TestFanartClient_MissingKey(t *testing.T) {
	cfg := newTestConfig("http://127.0.0.1:1")
	cfg.Providers.Fanart.APIKey = ""
	providers, _ := NewProviders(cfg, NewHTTPClient(cfg))

	_, err := providers[models.ProviderFanart].ListBackdrops(context.Background(), models.MediaTypeMovie, "101")
	if !errors.Is(err, &apperrors.ErrConfiguration{}) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !apperrors.IsProviderFailure(err) {
		t.Error("missing key should count as a provider failure")
	}
}

func TestTVDBClient_ListBackdrops(t *testing.T) {
	var logins atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/tvdb/login" {
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if r.Method != http.MethodPost || body["apikey"] != "tvdb-key" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			logins.Add(1)
			writeJSON(w, map[string]any{"data": map[string]string{"token": "tok"}})
			return
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/tvdb/search/remoteid/1399":
			writeJSON(w, map[string]any{"data": []map[string]any{{"series": map[string]any{"id": 121361}}}})
		case "/tvdb/search/remoteid/101":
			writeJSON(w, map[string]any{"data": []map[string]any{{"movie": map[string]any{"id": 55}}}})
		case "/tvdb/series/121361/artworks":
			if r.URL.Query().Get("type") != "3" {
				t.Errorf("type query = %q, want 3", r.URL.Query().Get("type"))
			}
			_, _ = w.Write([]byte(`{"data":{"artworks":[
				{"image":"https://artworks.thetvdb.com/s1.jpg","language":null,"type":3},
				{"image":"https://artworks.thetvdb.com/s2.jpg","language":"eng","type":3}
			]}}`))
		case "/tvdb/movies/55/extended":
			_, _ = w.Write([]byte(`{"data":{"artworks":[
				{"image":"https://artworks.thetvdb.com/poster.jpg","language":"eng","type":14},
				{"image":"https://artworks.thetvdb.com/bg.jpg","language":null,"type":15}
			]}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	cfg := newTestConfig(server.URL)
	tvdb := NewTVDBClient(cfg.Providers.TVDB, NewHTTPClient(cfg))
	ctx := context.Background()

	show, err := tvdb.ListBackdrops(ctx, models.MediaTypeShow, "1399")
	if err != nil {
		t.Fatalf("show ListBackdrops() error = %v", err)
	}
	if len(show) != 2 || show[0].Language != nil || show[1].LanguageTag() != "eng" {
		t.Fatalf("unexpected show candidates: %+v", show)
	}

	movie, err := tvdb.ListBackdrops(ctx, models.MediaTypeMovie, "101")
	if err != nil {
		t.Fatalf("movie ListBackdrops() error = %v", err)
	}
	if len(movie) != 1 || movie[0].SourceURL != "https://artworks.thetvdb.com/bg.jpg" {
		t.Fatalf("unexpected movie candidates: %+v", movie)
	}

	if logins.Load() != 1 {
		t.Errorf("expected a single login, got %d", logins.Load())
	}
}

func TestTVDBClient_LoginFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	cfg := newTestConfig(server.URL)
	_, err := NewTVDBClient(cfg.Providers.TVDB, NewHTTPClient(cfg)).ListBackdrops(context.Background(), models.MediaTypeShow, "1399")
	var transportErr *apperrors.ErrProviderTransport
	if !errors.As(err, &transportErr) || transportErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 transport error, got %v", err)
	}
}

func TestFetcher(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/img/a.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write([]byte("jpeg-bytes"))
		case "/lists/movies.json":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"title":"Movie X"}]`))
		case "/empty":
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	fetcher := NewFetcher(NewHTTPClient(newTestConfig(server.URL)))
	ctx := context.Background()

	data, err := fetcher.FetchBytes(ctx, server.URL+"/img/a.jpg")
	if err != nil || string(data) != "jpeg-bytes" {
		t.Fatalf("FetchBytes() = %q, %v", data, err)
	}

	body, contentType, err := fetcher.FetchList(ctx, server.URL+"/lists/movies.json")
	if err != nil {
		t.Fatalf("FetchList() error = %v", err)
	}
	if contentType != "application/json" || !strings.Contains(string(body), "Movie X") {
		t.Errorf("FetchList() = %q, %q", body, contentType)
	}

	if _, err := fetcher.FetchBytes(ctx, server.URL+"/missing.jpg"); !errors.Is(err, &apperrors.ErrProviderTransport{}) {
		t.Errorf("expected transport error for 404, got %v", err)
	}
	if _, err := fetcher.FetchBytes(ctx, server.URL+"/empty"); err == nil {
		t.Error("expected error for empty body")
	}
}

func TestTMDBClient_CompressedResponses(t *testing.T) {
	body := []byte(testutil.GenerateTMDBImagesJSON([]testutil.ImageOptions{{Path: "/a.jpg"}, {Path: "/b.jpg"}}))
	encoders := map[string]func(*testing.T, []byte) []byte{
		"gzip": encodeGzip,
		"br":   encodeBrotli,
		"zstd": encodeZstd,
	}

	for encoding, encode := range encoders {
		t.Run(encoding, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if !strings.Contains(r.Header.Get("Accept-Encoding"), encoding) {
					t.Errorf("Accept-Encoding %q does not advertise %s", r.Header.Get("Accept-Encoding"), encoding)
				}
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Content-Encoding", encoding)
				_, _ = w.Write(encode(t, body))
			}))
			defer server.Close()

			cfg := newTestConfig(server.URL)
			candidates, err := NewTMDBClient(cfg.Providers.TMDB, NewHTTPClient(cfg)).ListBackdrops(context.Background(), models.MediaTypeMovie, "101")
			if err != nil {
				t.Fatalf("ListBackdrops() error = %v", err)
			}
			if len(candidates) != 2 {
				t.Errorf("expected 2 candidates, got %d", len(candidates))
			}
		})
	}
}
