// Package provider normalizes heterogeneous metadata sources into one
// schema and dispatches lookups by media type and source.
package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/oapi-codegen/runtime/types"
	"github.com/trackarr/trackarr/pkg/media"
)

// SearchResult is one hit from a provider search.
type SearchResult struct {
	MediaID   string       `json:"media_id"`
	MediaType media.Type   `json:"media_type"`
	Source    media.Source `json:"source"`
	Title     string       `json:"title"`
	Image     string       `json:"image"`
}

// SearchPage is a page of search hits with the provider's own pagination.
type SearchPage struct {
	Page         int            `json:"page"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results"`
	Results      []SearchResult `json:"results"`
}

// Metadata is the normalized detail payload every adapter produces.
type Metadata struct {
	MediaID   string       `json:"media_id"`
	MediaType media.Type   `json:"media_type"`
	Source    media.Source `json:"source"`
	Title     string       `json:"title"`
	Image     string       `json:"image"`
	Synopsis  string       `json:"synopsis"`
	// MaxProgress is the provider-reported total unit count, the completion
	// threshold. Nil when the provider doesn't know (ongoing series).
	MaxProgress *int32 `json:"max_progress"`
	// Details holds type-specific display fields such as release_date,
	// status, genres.
	Details map[string]string `json:"details"`
	// Seasons is populated for tv metadata, keyed by season number.
	Seasons map[int32]*SeasonMetadata `json:"seasons,omitempty"`
	// SeasonNumbers lists the provider's seasons in order, for tv metadata.
	SeasonNumbers []int32 `json:"season_numbers,omitempty"`
	// Events are known upcoming or past release dates.
	Events []EventMetadata `json:"events,omitempty"`
}

// SeasonMetadata is one season inside a tv payload.
type SeasonMetadata struct {
	SeasonNumber int32             `json:"season_number"`
	Title        string            `json:"title"`
	Image        string            `json:"image"`
	Synopsis     string            `json:"synopsis"`
	Episodes     []EpisodeMetadata `json:"episodes"`
}

// EpisodeMetadata is one episode inside a season payload. Watched is filled
// in when the payload is assembled for a tracked show's detail view.
type EpisodeMetadata struct {
	EpisodeNumber int32       `json:"episode_number"`
	Title         string      `json:"title"`
	Image         string      `json:"image"`
	AirDate       *types.Date `json:"air_date"`
	Watched       bool        `json:"watched"`
}

// EventMetadata is a known release date for an item.
type EventMetadata struct {
	EpisodeNumber *int32     `json:"episode_number"`
	Date          types.Date `json:"date"`
}

// Client is the contract every adapter implements.
type Client interface {
	Search(ctx context.Context, mediaType media.Type, query string, page int) (*SearchPage, error)
	Detail(ctx context.Context, mediaType media.Type, mediaID string) (*Metadata, error)
}

type key struct {
	mediaType media.Type
	source    media.Source
}

// Registry dispatches metadata lookups to the adapter registered for a
// media type and source pair. The table is built once at startup.
type Registry struct {
	clients map[key]Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[key]Client)}
}

// Register installs a client for the given type and source pair.
func (r *Registry) Register(mediaType media.Type, source media.Source, client Client) {
	r.clients[key{mediaType: mediaType, source: source}] = client
}

func (r *Registry) client(mediaType media.Type, source media.Source) (Client, error) {
	// hierarchical types resolve through their show's adapter
	lookupType := mediaType
	if mediaType == media.TypeSeason || mediaType == media.TypeEpisode {
		lookupType = media.TypeTV
	}

	c, ok := r.clients[key{mediaType: lookupType, source: source}]
	if !ok {
		return nil, &Error{
			Provider:   source,
			StatusCode: http.StatusNotImplemented,
			Message:    fmt.Sprintf("no provider for %s from %s", mediaType.Label(), source.Label()),
		}
	}
	return c, nil
}

// Search queries the adapter for the type and source, falling back to the
// type's default source when none is given.
func (r *Registry) Search(ctx context.Context, mediaType media.Type, source media.Source, query string, page int) (*SearchPage, error) {
	if source == "" {
		source = media.DefaultSource(mediaType)
	}
	if page < 1 {
		page = 1
	}

	c, err := r.client(mediaType, source)
	if err != nil {
		return nil, err
	}

	return c.Search(ctx, mediaType, query, page)
}

// GetMetadata fetches normalized metadata for a piece of media. For season
// and episode lookups it fetches the parent show's payload and indexes into
// it, since most providers have no season-only endpoint.
func (r *Registry) GetMetadata(ctx context.Context, mediaType media.Type, source media.Source, mediaID string, seasonNumber, episodeNumber *int32) (*Metadata, error) {
	if source == "" {
		source = media.DefaultSource(mediaType)
	}

	c, err := r.client(mediaType, source)
	if err != nil {
		return nil, err
	}

	switch mediaType {
	case media.TypeSeason:
		if seasonNumber == nil {
			return nil, fmt.Errorf("season lookup for %s %s requires a season number", source, mediaID)
		}
		show, err := c.Detail(ctx, media.TypeTV, mediaID)
		if err != nil {
			return nil, err
		}
		return seasonMetadata(show, source, mediaID, *seasonNumber)

	case media.TypeEpisode:
		if seasonNumber == nil || episodeNumber == nil {
			return nil, fmt.Errorf("episode lookup for %s %s requires season and episode numbers", source, mediaID)
		}
		show, err := c.Detail(ctx, media.TypeTV, mediaID)
		if err != nil {
			return nil, err
		}
		season, err := seasonMetadata(show, source, mediaID, *seasonNumber)
		if err != nil {
			return nil, err
		}
		return episodeMetadata(season, source, mediaID, *seasonNumber, *episodeNumber)

	default:
		return c.Detail(ctx, mediaType, mediaID)
	}
}

// seasonMetadata projects one season out of a show payload. A missing season
// number signals that local numbering drifted from the provider's.
func seasonMetadata(show *Metadata, source media.Source, mediaID string, seasonNumber int32) (*Metadata, error) {
	season, ok := show.Seasons[seasonNumber]
	if !ok {
		return nil, &Error{
			Provider:   source,
			StatusCode: http.StatusNotFound,
			Message:    fmt.Sprintf("season %d not found for %s %s (%s)", seasonNumber, source, mediaID, show.Title),
		}
	}

	max := int32(len(season.Episodes))
	title := season.Title
	if title == "" {
		title = show.Title
	}
	image := season.Image
	if image == "" {
		image = show.Image
	}
	synopsis := season.Synopsis
	if synopsis == "" {
		synopsis = show.Synopsis
	}

	m := &Metadata{
		MediaID:     mediaID,
		MediaType:   media.TypeSeason,
		Source:      source,
		Title:       title,
		Image:       image,
		Synopsis:    synopsis,
		MaxProgress: &max,
		Details:     show.Details,
		Seasons:     map[int32]*SeasonMetadata{seasonNumber: season},
	}
	return m, nil
}

// episodeMetadata projects one episode out of a season payload.
func episodeMetadata(season *Metadata, source media.Source, mediaID string, seasonNumber, episodeNumber int32) (*Metadata, error) {
	for _, ep := range season.Seasons[seasonNumber].Episodes {
		if ep.EpisodeNumber != episodeNumber {
			continue
		}

		one := int32(1)
		title := ep.Title
		if title == "" {
			title = season.Title
		}
		image := ep.Image
		if image == "" {
			image = season.Image
		}
		details := map[string]string{}
		if ep.AirDate != nil {
			details["air_date"] = ep.AirDate.String()
		}
		return &Metadata{
			MediaID:     mediaID,
			MediaType:   media.TypeEpisode,
			Source:      source,
			Title:       title,
			Image:       image,
			MaxProgress: &one,
			Details:     details,
		}, nil
	}

	return nil, &Error{
		Provider:   source,
		StatusCode: http.StatusNotFound,
		Message:    fmt.Sprintf("episode %d of season %d not found for %s %s", episodeNumber, seasonNumber, source, mediaID),
	}
}
