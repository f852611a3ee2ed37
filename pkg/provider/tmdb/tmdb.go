// Package tmdb adapts The Movie Database API for movies and shows.
package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/oapi-codegen/runtime/types"
	"github.com/trackarr/trackarr/pkg/media"
	"github.com/trackarr/trackarr/pkg/provider"
)

const (
	defaultBaseURL = "https://api.themoviedb.org/3"
	imageBaseURL   = "https://image.tmdb.org/t/p/w500"

	// TMDB caps append_to_response at 20 sub-requests per call.
	seasonsPerRequest = 20
)

type Client struct {
	apiKey  string
	baseURL string
	doer    *provider.Doer
}

func New(apiKey string, opts ...provider.DoerOption) *Client {
	opts = append([]provider.DoerOption{provider.WithErrorParser(parseError)}, opts...)
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		doer:    provider.NewDoer(media.SourceTMDB, opts...),
	}
}

// parseError pulls TMDB's status_message out of an error body.
func parseError(_ int, body []byte) string {
	var payload struct {
		StatusMessage string `json:"status_message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.StatusMessage
}

type searchResponse struct {
	Page         int `json:"page"`
	TotalPages   int `json:"total_pages"`
	TotalResults int `json:"total_results"`
	Results      []struct {
		ID         int    `json:"id"`
		Title      string `json:"title"`
		Name       string `json:"name"`
		PosterPath string `json:"poster_path"`
	} `json:"results"`
}

// Search queries TMDB's movie or tv search.
func (c *Client) Search(ctx context.Context, mediaType media.Type, query string, page int) (*provider.SearchPage, error) {
	endpoint := fmt.Sprintf("%s/search/%s?%s", c.baseURL, mediaType, url.Values{
		"api_key": {c.apiKey},
		"query":   {query},
		"page":    {strconv.Itoa(page)},
	}.Encode())

	var resp searchResponse
	if err := c.doer.JSON(ctx, http.MethodGet, endpoint, nil, nil, &resp); err != nil {
		return nil, err
	}

	results := make([]provider.SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		title := r.Title
		if title == "" {
			title = r.Name
		}
		results = append(results, provider.SearchResult{
			MediaID:   strconv.Itoa(r.ID),
			MediaType: mediaType,
			Source:    media.SourceTMDB,
			Title:     title,
			Image:     image(r.PosterPath),
		})
	}

	return &provider.SearchPage{
		Page:         resp.Page,
		TotalPages:   resp.TotalPages,
		TotalResults: resp.TotalResults,
		Results:      results,
	}, nil
}

// Detail fetches normalized metadata. TV payloads include every season with
// its episodes so season and episode lookups can index into them.
func (c *Client) Detail(ctx context.Context, mediaType media.Type, mediaID string) (*provider.Metadata, error) {
	switch mediaType {
	case media.TypeMovie:
		return c.movie(ctx, mediaID)
	case media.TypeTV:
		return c.show(ctx, mediaID)
	default:
		return nil, &provider.Error{
			Provider:   media.SourceTMDB,
			StatusCode: http.StatusNotImplemented,
			Message:    fmt.Sprintf("tmdb does not serve %s metadata", mediaType.Label()),
		}
	}
}

type movieResponse struct {
	Title       string  `json:"title"`
	PosterPath  string  `json:"poster_path"`
	Overview    string  `json:"overview"`
	ReleaseDate string  `json:"release_date"`
	Status      string  `json:"status"`
	Runtime     int     `json:"runtime"`
	Genres      []genre `json:"genres"`
}

type genre struct {
	Name string `json:"name"`
}

func (c *Client) movie(ctx context.Context, mediaID string) (*provider.Metadata, error) {
	endpoint := fmt.Sprintf("%s/movie/%s?api_key=%s", c.baseURL, mediaID, c.apiKey)

	var resp movieResponse
	if err := c.doer.JSON(ctx, http.MethodGet, endpoint, nil, nil, &resp); err != nil {
		return nil, err
	}

	one := int32(1)
	m := &provider.Metadata{
		MediaID:     mediaID,
		MediaType:   media.TypeMovie,
		Source:      media.SourceTMDB,
		Title:       resp.Title,
		Image:       image(resp.PosterPath),
		Synopsis:    resp.Overview,
		MaxProgress: &one,
		Details: map[string]string{
			"release_date": resp.ReleaseDate,
			"status":       resp.Status,
			"genres":       genreNames(resp.Genres),
		},
	}
	if resp.Runtime > 0 {
		m.Details["runtime"] = fmt.Sprintf("%dm", resp.Runtime)
	}
	if resp.ReleaseDate != "" {
		if d, err := parseDate(resp.ReleaseDate); err == nil {
			m.Events = append(m.Events, provider.EventMetadata{Date: d})
		}
	}
	return m, nil
}

type showResponse struct {
	Name             string  `json:"name"`
	PosterPath       string  `json:"poster_path"`
	Overview         string  `json:"overview"`
	FirstAirDate     string  `json:"first_air_date"`
	Status           string  `json:"status"`
	NumberOfEpisodes int32   `json:"number_of_episodes"`
	Genres           []genre `json:"genres"`
	Seasons          []struct {
		SeasonNumber int32 `json:"season_number"`
	} `json:"seasons"`
}

type seasonResponse struct {
	Name       string `json:"name"`
	PosterPath string `json:"poster_path"`
	Overview   string `json:"overview"`
	Episodes   []struct {
		EpisodeNumber int32  `json:"episode_number"`
		Name          string `json:"name"`
		StillPath     string `json:"still_path"`
		AirDate       string `json:"air_date"`
	} `json:"episodes"`
}

// show fetches a tv payload plus all of its seasons. TMDB appends at most
// twenty sub-requests per call, so large shows take several round trips.
func (c *Client) show(ctx context.Context, mediaID string) (*provider.Metadata, error) {
	endpoint := fmt.Sprintf("%s/tv/%s?api_key=%s", c.baseURL, mediaID, c.apiKey)

	var base showResponse
	if err := c.doer.JSON(ctx, http.MethodGet, endpoint, nil, nil, &base); err != nil {
		return nil, err
	}

	numbers := make([]int32, 0, len(base.Seasons))
	for _, s := range base.Seasons {
		// season 0 holds specials, not part of the watch order
		if s.SeasonNumber == 0 {
			continue
		}
		numbers = append(numbers, s.SeasonNumber)
	}

	m := &provider.Metadata{
		MediaID:       mediaID,
		MediaType:     media.TypeTV,
		Source:        media.SourceTMDB,
		Title:         base.Name,
		Image:         image(base.PosterPath),
		Synopsis:      base.Overview,
		MaxProgress:   &base.NumberOfEpisodes,
		SeasonNumbers: numbers,
		Seasons:       make(map[int32]*provider.SeasonMetadata, len(numbers)),
		Details: map[string]string{
			"first_air_date": base.FirstAirDate,
			"status":         base.Status,
			"genres":         genreNames(base.Genres),
			"seasons":        strconv.Itoa(len(numbers)),
		},
	}

	for start := 0; start < len(numbers); start += seasonsPerRequest {
		stop := start + seasonsPerRequest
		if stop > len(numbers) {
			stop = len(numbers)
		}

		keys := make([]string, 0, stop-start)
		for _, n := range numbers[start:stop] {
			keys = append(keys, fmt.Sprintf("season/%d", n))
		}

		chunk := fmt.Sprintf("%s/tv/%s?api_key=%s&append_to_response=%s",
			c.baseURL, mediaID, c.apiKey, url.QueryEscape(strings.Join(keys, ",")))

		var payload map[string]json.RawMessage
		if err := c.doer.JSON(ctx, http.MethodGet, chunk, nil, nil, &payload); err != nil {
			return nil, err
		}

		for _, n := range numbers[start:stop] {
			raw, ok := payload[fmt.Sprintf("season/%d", n)]
			if !ok {
				continue
			}
			var season seasonResponse
			if err := json.Unmarshal(raw, &season); err != nil {
				return nil, &provider.Error{Provider: media.SourceTMDB, Message: fmt.Sprintf("unexpected season payload: %v", err)}
			}
			m.Seasons[n] = normalizeSeason(n, season, m)
		}
	}

	return m, nil
}

func normalizeSeason(number int32, season seasonResponse, show *provider.Metadata) *provider.SeasonMetadata {
	normalized := &provider.SeasonMetadata{
		SeasonNumber: number,
		Title:        season.Name,
		Image:        image(season.PosterPath),
		Synopsis:     season.Overview,
		Episodes:     make([]provider.EpisodeMetadata, 0, len(season.Episodes)),
	}

	for _, ep := range season.Episodes {
		normalizedEp := provider.EpisodeMetadata{
			EpisodeNumber: ep.EpisodeNumber,
			Title:         ep.Name,
			Image:         image(ep.StillPath),
		}
		if ep.AirDate != "" {
			if d, err := parseDate(ep.AirDate); err == nil {
				normalizedEp.AirDate = &d
				n := ep.EpisodeNumber
				show.Events = append(show.Events, provider.EventMetadata{EpisodeNumber: &n, Date: d})
			}
		}
		normalized.Episodes = append(normalized.Episodes, normalizedEp)
	}

	return normalized
}

func parseDate(s string) (types.Date, error) {
	var d types.Date
	err := d.UnmarshalText([]byte(s))
	return d, err
}

func genreNames(genres []genre) string {
	names := make([]string, 0, len(genres))
	for _, g := range genres {
		names = append(names, g.Name)
	}
	return strings.Join(names, ", ")
}

func image(path string) string {
	if path == "" {
		return ""
	}
	return imageBaseURL + path
}

var _ provider.Client = (*Client)(nil)
