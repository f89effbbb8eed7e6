package discovery

import (
	"context"

	"github.com/Belphemur/BackdropFetcher/internal/client"
	"github.com/Belphemur/BackdropFetcher/internal/models"
	"github.com/Belphemur/BackdropFetcher/internal/parser"
	"github.com/rs/zerolog"
)

type remoteDiscoverer struct {
	sources []source
	lists   client.ListFetcher
	parser  parser.Parser[parser.ListItem]
	runLog  zerolog.Logger
}

func (d *remoteDiscoverer) Discover(ctx context.Context) ([]models.TitleEntry, error) {
	return collect(ctx, d.sources, d.runLog, d.fetch)
}

func (d *remoteDiscoverer) fetch(ctx context.Context, src source) ([]models.TitleEntry, error) {
	body, contentType, err := d.lists.FetchList(ctx, src.ref)
	if err != nil {
		return nil, err
	}

	items, err := d.parser.Parse(body, contentType)
	if err != nil {
		return nil, err
	}

	entries := make([]models.TitleEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, models.TitleEntry{
			Title:      item.Title,
			MediaType:  src.mediaType,
			ExternalID: item.ExternalID,
		}.Normalize())
	}
	return entries, nil
}
