package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/Belphemur/BackdropFetcher/internal/apperrors"
	"github.com/Belphemur/BackdropFetcher/internal/client"
	"github.com/Belphemur/BackdropFetcher/internal/config"
	"github.com/Belphemur/BackdropFetcher/internal/metrics"
	"github.com/Belphemur/BackdropFetcher/internal/models"
)

// ErrAllDownloadsFailed is returned by Persist when no candidate could be saved
var ErrAllDownloadsFailed = errors.New("all downloads failed")

var imageExtensions = map[string]string{
	".jpg":  ".jpg",
	".jpeg": ".jpg",
	".png":  ".png",
	".webp": ".webp",
}

// DefaultBackdropDownloader stores backdrops on the local filesystem
type DefaultBackdropDownloader struct {
	fetcher client.ImageFetcher
	rootDir string
	layout  string
	runLog  zerolog.Logger
}

// NewBackdropDownloader creates a downloader writing under rootDir with the given layout
func NewBackdropDownloader(fetcher client.ImageFetcher, rootDir, layout string, runLog zerolog.Logger) BackdropDownloader {
	return &DefaultBackdropDownloader{
		fetcher: fetcher,
		rootDir: rootDir,
		layout:  layout,
		runLog:  runLog,
	}
}

// Dir returns the directory holding the backdrops of a media type
func (d *DefaultBackdropDownloader) Dir(mediaType models.MediaType) string {
	if d.layout == config.LayoutFlat {
		return d.rootDir
	}
	return filepath.Join(d.rootDir, mediaType.DirName())
}

// Persist saves each candidate independently; failures are logged and skipped
func (d *DefaultBackdropDownloader) Persist(ctx context.Context, entry models.TitleEntry, provider models.Provider, candidates []models.Candidate) ([]string, error) {
	logger := config.GetLogger()
	dir := d.Dir(entry.MediaType)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &apperrors.ErrPersistence{Path: dir, Err: err}
	}

	safeTitle := SafeFileName(entry.Title)
	saved := make([]string, 0, len(candidates))
	for i, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return saved, err
		}

		target := filepath.Join(dir, fmt.Sprintf("%s_%s_%d%s", safeTitle, provider, i+1, extensionFor(candidate.SourceURL)))
		if info, err := os.Stat(target); err == nil && info.Mode().IsRegular() && info.Size() > 0 {
			metrics.BackdropDownloadsTotal.WithLabelValues("reused").Inc()
			d.runLog.Info().Str("title", entry.Title).Str("file", filepath.Base(target)).Msg("Backdrop already present, reusing")
			saved = append(saved, target)
			continue
		}

		size, err := d.save(ctx, candidate.SourceURL, target)
		if err != nil {
			metrics.BackdropDownloadsTotal.WithLabelValues("error").Inc()
			logger.Warn().Err(err).Str("title", entry.Title).Str("url", candidate.SourceURL).Msg("Failed to persist backdrop")
			d.runLog.Warn().Err(err).Str("title", entry.Title).Str("url", candidate.SourceURL).Msg("Backdrop download failed, skipping")
			continue
		}

		metrics.BackdropDownloadsTotal.WithLabelValues("downloaded").Inc()
		metrics.DownloadedBytesTotal.Add(float64(size))
		d.runLog.Info().
			Str("title", entry.Title).
			Str("provider", provider.String()).
			Str("file", filepath.Base(target)).
			Str("size", humanize.Bytes(uint64(size))).
			Msg("Backdrop saved")
		saved = append(saved, target)
	}

	if len(saved) == 0 && len(candidates) > 0 {
		return nil, ErrAllDownloadsFailed
	}
	d.pruneStale(dir, safeTitle, provider, len(candidates), entry.Title)
	return saved, nil
}

// pruneStale removes backdrops of the title and provider numbered above keep,
// left behind when backdrop_limit was lowered or the provider returned fewer images.
func (d *DefaultBackdropDownloader) pruneStale(dir, safeTitle string, provider models.Provider, keep int, title string) {
	logger := config.GetLogger()
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn().Err(err).Str("dir", dir).Msg("Failed to list backdrops for pruning")
		return
	}
	prefix := fmt.Sprintf("%s_%s_", safeTitle, provider)
	for _, de := range dirEntries {
		if !de.Type().IsRegular() {
			continue
		}
		n, ok := backdropIndex(de.Name(), prefix)
		if !ok || n <= keep {
			continue
		}
		stale := filepath.Join(dir, de.Name())
		if err := os.Remove(stale); err != nil {
			logger.Warn().Err(err).Str("file", stale).Msg("Failed to remove stale backdrop")
			continue
		}
		metrics.BackdropDownloadsTotal.WithLabelValues("pruned").Inc()
		d.runLog.Info().Str("title", title).Str("file", de.Name()).Msg("Stale backdrop removed")
	}
}

// backdropIndex parses the 1-based index of a "<prefix><n><ext>" backdrop file name
func backdropIndex(name, prefix string) (int, bool) {
	rest, ok := strings.CutPrefix(name, prefix)
	if !ok {
		return 0, false
	}
	ext := filepath.Ext(rest)
	if _, known := imageExtensions[ext]; !known || ext == ".jpeg" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(rest, ext))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// save fetches the image and moves it into place through a temp file
func (d *DefaultBackdropDownloader) save(ctx context.Context, sourceURL, target string) (int, error) {
	body, err := d.fetcher.FetchBytes(ctx, sourceURL)
	if err != nil {
		return 0, &apperrors.ErrPersistence{Path: target, Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".backdrop-*.part")
	if err != nil {
		return 0, &apperrors.ErrPersistence{Path: target, Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		cleanup()
		return 0, &apperrors.ErrPersistence{Path: target, Err: err}
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return 0, &apperrors.ErrPersistence{Path: target, Err: err}
	}
	if err := os.Rename(tmpName, target); err != nil {
		cleanup()
		return 0, &apperrors.ErrPersistence{Path: target, Err: err}
	}
	return len(body), nil
}

// extensionFor picks the file extension from the URL path, .jpg when unknown
func extensionFor(sourceURL string) string {
	p := sourceURL
	if u, err := url.Parse(sourceURL); err == nil {
		p = u.Path
	}
	if ext, ok := imageExtensions[strings.ToLower(path.Ext(p))]; ok {
		return ext
	}
	return ".jpg"
}

// SafeFileName turns a title into a filesystem-safe name.
// Diacritics are stripped, reserved characters become "_" and whitespace collapses to one space.
func SafeFileName(title string) string {
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(stripMarks, title)
	if err != nil {
		stripped = title
	}

	var b strings.Builder
	for _, r := range stripped {
		switch {
		case strings.ContainsRune(`<>:"/\|?*`, r), unicode.IsControl(r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}

	name := strings.Join(strings.Fields(b.String()), " ")
	name = strings.TrimRight(name, ". ")
	if name == "" {
		return "untitled"
	}
	return name
}
