package discovery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Belphemur/BackdropFetcher/internal/config"
	"github.com/Belphemur/BackdropFetcher/internal/models"
	"github.com/rs/zerolog"
)

// tmdbToken matches the "tmdb-<digits>" folder tag, optionally wrapped in {}, [] or ()
var tmdbToken = regexp.MustCompile(`(?i)[\{\[\(]?\s*tmdb-(\d+)\s*[\}\]\)]?`)

// ParseFolderName extracts the title and TMDB id from a library folder name.
// ok is false when the name carries no tmdb token or nothing is left besides it.
func ParseFolderName(name string) (title, tmdbID string, ok bool) {
	loc := tmdbToken.FindStringSubmatchIndex(name)
	if loc == nil {
		return "", "", false
	}
	tmdbID = strings.TrimLeft(name[loc[2]:loc[3]], "0")
	if tmdbID == "" {
		return "", "", false
	}
	title = strings.Join(strings.Fields(name[:loc[0]]+" "+name[loc[1]:]), " ")
	if title == "" {
		return "", "", false
	}
	return title, tmdbID, true
}

type localDiscoverer struct {
	sources []source
	runLog  zerolog.Logger
}

func (d *localDiscoverer) Discover(ctx context.Context) ([]models.TitleEntry, error) {
	// Roots may point at the same folder; each untagged folder is reported once
	warned := make(map[string]struct{})
	return collect(ctx, d.sources, d.runLog, func(ctx context.Context, src source) ([]models.TitleEntry, error) {
		return d.scan(ctx, src, warned)
	})
}

func (d *localDiscoverer) scan(ctx context.Context, src source, warned map[string]struct{}) ([]models.TitleEntry, error) {
	logger := config.GetLogger()

	dirEntries, err := os.ReadDir(src.ref)
	if err != nil {
		return nil, fmt.Errorf("failed to list library folder: %w", err)
	}

	var entries []models.TitleEntry
	for _, de := range dirEntries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !de.IsDir() || strings.HasPrefix(de.Name(), ".") {
			continue
		}

		title, id, ok := ParseFolderName(de.Name())
		if !ok {
			path := filepath.Join(src.ref, de.Name())
			if _, done := warned[path]; !done {
				warned[path] = struct{}{}
				reason := "folder name has no tmdb-<id> tag"
				if tmdbToken.MatchString(de.Name()) {
					reason = "folder name has an empty title"
				}
				logger.Warn().Str("folder", path).Str("reason", reason).Msg("Skipping library folder")
				d.runLog.Warn().Msgf("Skipping %s: %s", path, reason)
			}
			continue
		}

		entries = append(entries, models.TitleEntry{
			Title:      title,
			MediaType:  src.mediaType,
			ExternalID: id,
		})
	}
	return entries, nil
}
