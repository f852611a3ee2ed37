// Package manual serves metadata for user-entered media straight from
// stored items. It honors the same contract as the network adapters so the
// façade and the status engine never special-case it.
package manual

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/go-jet/jet/v2/sqlite"
	"github.com/trackarr/trackarr/pkg/media"
	"github.com/trackarr/trackarr/pkg/provider"
	"github.com/trackarr/trackarr/pkg/storage"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/model"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/table"
)

type Client struct {
	store storage.ItemStorage
}

func New(store storage.ItemStorage) *Client {
	return &Client{store: store}
}

// Search matches stored manual items by title substring.
func (c *Client) Search(ctx context.Context, mediaType media.Type, query string, page int) (*provider.SearchPage, error) {
	items, err := c.store.ListItems(ctx,
		table.Item.Source.EQ(sqlite.String(string(media.SourceManual))).
			AND(table.Item.MediaType.EQ(sqlite.String(string(mediaType)))).
			AND(table.Item.Title.LIKE(sqlite.String("%"+query+"%"))),
	)
	if err != nil {
		return nil, err
	}

	results := make([]provider.SearchResult, 0, len(items))
	for _, item := range items {
		results = append(results, provider.SearchResult{
			MediaID:   item.MediaID,
			MediaType: mediaType,
			Source:    media.SourceManual,
			Title:     item.Title,
			Image:     item.Image,
		})
	}

	return &provider.SearchPage{
		Page:         1,
		TotalPages:   1,
		TotalResults: len(results),
		Results:      results,
	}, nil
}

// Detail synthesizes metadata from stored items. TV payloads are assembled
// from the season and episode items sharing the show's media id.
func (c *Client) Detail(ctx context.Context, mediaType media.Type, mediaID string) (*provider.Metadata, error) {
	root, err := c.store.GetItem(ctx,
		table.Item.MediaID.EQ(sqlite.String(mediaID)).
			AND(table.Item.Source.EQ(sqlite.String(string(media.SourceManual)))).
			AND(table.Item.MediaType.EQ(sqlite.String(string(mediaType)))).
			AND(table.Item.SeasonNumber.IS_NULL()),
	)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, &provider.Error{
				Provider:   media.SourceManual,
				StatusCode: http.StatusNotFound,
				Message:    fmt.Sprintf("no manual %s with id %s", mediaType.Label(), mediaID),
			}
		}
		return nil, err
	}

	m := &provider.Metadata{
		MediaID:   mediaID,
		MediaType: mediaType,
		Source:    media.SourceManual,
		Title:     root.Title,
		Image:     root.Image,
		Details:   map[string]string{},
	}

	if mediaType != media.TypeTV {
		// flat manual media has no provider-known total
		return m, nil
	}

	children, err := c.store.ListItems(ctx,
		table.Item.MediaID.EQ(sqlite.String(mediaID)).
			AND(table.Item.Source.EQ(sqlite.String(string(media.SourceManual)))).
			AND(table.Item.SeasonNumber.IS_NOT_NULL()),
	)
	if err != nil {
		return nil, err
	}

	m.Seasons = make(map[int32]*provider.SeasonMetadata)
	var total int32
	for _, child := range children {
		n := *child.SeasonNumber
		season, ok := m.Seasons[n]
		if !ok {
			season = &provider.SeasonMetadata{SeasonNumber: n, Title: root.Title, Image: root.Image}
			m.Seasons[n] = season
			m.SeasonNumbers = append(m.SeasonNumbers, n)
		}

		if child.MediaType == string(media.TypeSeason) {
			if child.Title != "" {
				season.Title = child.Title
			}
			if child.Image != "" {
				season.Image = child.Image
			}
			continue
		}

		if child.MediaType == string(media.TypeEpisode) && child.EpisodeNumber != nil {
			season.Episodes = append(season.Episodes, provider.EpisodeMetadata{
				EpisodeNumber: *child.EpisodeNumber,
				Title:         child.Title,
				Image:         child.Image,
			})
			total++
		}
	}

	sortSeasonNumbers(m.SeasonNumbers)
	for _, season := range m.Seasons {
		sortEpisodes(season.Episodes)
	}
	m.MaxProgress = &total
	m.Details["seasons"] = fmt.Sprintf("%d", len(m.Seasons))

	return m, nil
}

// NextEpisodeItem allocates the item for a not-yet-recorded episode of a
// manual show, creating it on first watch.
func (c *Client) NextEpisodeItem(ctx context.Context, mediaID, title string, seasonNumber, episodeNumber int32) (*model.Item, error) {
	return c.store.GetOrCreateItem(ctx, model.Item{
		MediaID:       mediaID,
		Source:        string(media.SourceManual),
		MediaType:     string(media.TypeEpisode),
		Title:         title,
		SeasonNumber:  &seasonNumber,
		EpisodeNumber: &episodeNumber,
	})
}

// ProcessEpisodes marks which episodes of a season payload already have a
// watch recorded, diffing metadata against the stored watch events.
func ProcessEpisodes(season *provider.SeasonMetadata, watched []storage.Episode) {
	seen := make(map[int32]bool, len(watched))
	for _, w := range watched {
		if w.Item.EpisodeNumber != nil {
			seen[*w.Item.EpisodeNumber] = true
		}
	}

	for i := range season.Episodes {
		season.Episodes[i].Watched = seen[season.Episodes[i].EpisodeNumber]
	}
}

func sortSeasonNumbers(numbers []int32) {
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
}

func sortEpisodes(episodes []provider.EpisodeMetadata) {
	sort.Slice(episodes, func(i, j int) bool { return episodes[i].EpisodeNumber < episodes[j].EpisodeNumber })
}

var _ provider.Client = (*Client)(nil)
