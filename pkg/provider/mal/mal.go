// Package mal adapts the MyAnimeList v2 API for anime and manga.
package mal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/trackarr/trackarr/pkg/media"
	"github.com/trackarr/trackarr/pkg/provider"
)

const (
	defaultBaseURL = "https://api.myanimelist.net/v2"
	pageSize       = 20

	animeFields = "title,main_picture,synopsis,num_episodes,status,start_date,end_date,media_type,genres"
	mangaFields = "title,main_picture,synopsis,num_chapters,status,start_date,end_date,media_type,genres"
)

type Client struct {
	clientID string
	baseURL  string
	doer     *provider.Doer
}

func New(clientID string, opts ...provider.DoerOption) *Client {
	opts = append([]provider.DoerOption{provider.WithErrorParser(parseError)}, opts...)
	return &Client{
		clientID: clientID,
		baseURL:  defaultBaseURL,
		doer:     provider.NewDoer(media.SourceMAL, opts...),
	}
}

// parseError pulls MAL's message or error field out of an error body.
func parseError(_ int, body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

func (c *Client) header() http.Header {
	return http.Header{"X-MAL-CLIENT-ID": {c.clientID}}
}

func endpointFor(mediaType media.Type) (string, error) {
	switch mediaType {
	case media.TypeAnime:
		return "anime", nil
	case media.TypeManga:
		return "manga", nil
	default:
		return "", &provider.Error{
			Provider:   media.SourceMAL,
			StatusCode: http.StatusNotImplemented,
			Message:    fmt.Sprintf("myanimelist does not serve %s metadata", mediaType.Label()),
		}
	}
}

type picture struct {
	Large  string `json:"large"`
	Medium string `json:"medium"`
}

func (p picture) best() string {
	if p.Large != "" {
		return p.Large
	}
	return p.Medium
}

type searchResponse struct {
	Data []struct {
		Node struct {
			ID          int     `json:"id"`
			Title       string  `json:"title"`
			MainPicture picture `json:"main_picture"`
		} `json:"node"`
	} `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
}

// Search queries MAL. The API paginates with offsets and an opaque next
// link, so total counts are unknown and pages are synthesized.
func (c *Client) Search(ctx context.Context, mediaType media.Type, query string, page int) (*provider.SearchPage, error) {
	kind, err := endpointFor(mediaType)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, kind, url.Values{
		"q":      {query},
		"limit":  {strconv.Itoa(pageSize)},
		"offset": {strconv.Itoa((page - 1) * pageSize)},
	}.Encode())

	var resp searchResponse
	if err := c.doer.JSON(ctx, http.MethodGet, endpoint, c.header(), nil, &resp); err != nil {
		return nil, err
	}

	results := make([]provider.SearchResult, 0, len(resp.Data))
	for _, d := range resp.Data {
		results = append(results, provider.SearchResult{
			MediaID:   strconv.Itoa(d.Node.ID),
			MediaType: mediaType,
			Source:    media.SourceMAL,
			Title:     d.Node.Title,
			Image:     d.Node.MainPicture.best(),
		})
	}

	totalPages := page
	if resp.Paging.Next != "" {
		totalPages = page + 1
	}

	return &provider.SearchPage{
		Page:         page,
		TotalPages:   totalPages,
		TotalResults: (page-1)*pageSize + len(results),
		Results:      results,
	}, nil
}

type detailResponse struct {
	Title       string  `json:"title"`
	MainPicture picture `json:"main_picture"`
	Synopsis    string  `json:"synopsis"`
	NumEpisodes int32   `json:"num_episodes"`
	NumChapters int32   `json:"num_chapters"`
	Status      string  `json:"status"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	MediaKind   string  `json:"media_type"`
	Genres      []struct {
		Name string `json:"name"`
	} `json:"genres"`
}

// Detail fetches normalized anime or manga metadata.
func (c *Client) Detail(ctx context.Context, mediaType media.Type, mediaID string) (*provider.Metadata, error) {
	kind, err := endpointFor(mediaType)
	if err != nil {
		return nil, err
	}

	fields := animeFields
	if mediaType == media.TypeManga {
		fields = mangaFields
	}
	endpoint := fmt.Sprintf("%s/%s/%s?fields=%s", c.baseURL, kind, mediaID, url.QueryEscape(fields))

	var resp detailResponse
	if err := c.doer.JSON(ctx, http.MethodGet, endpoint, c.header(), nil, &resp); err != nil {
		return nil, err
	}

	m := &provider.Metadata{
		MediaID:   mediaID,
		MediaType: mediaType,
		Source:    media.SourceMAL,
		Title:     resp.Title,
		Image:     resp.MainPicture.best(),
		Synopsis:  resp.Synopsis,
		Details: map[string]string{
			"status":     resp.Status,
			"start_date": resp.StartDate,
			"end_date":   resp.EndDate,
			"format":     resp.MediaKind,
		},
	}

	// zero means the provider doesn't know the total yet
	total := resp.NumEpisodes
	if mediaType == media.TypeManga {
		total = resp.NumChapters
	}
	if total > 0 {
		m.MaxProgress = &total
	}

	genres := ""
	for i, g := range resp.Genres {
		if i > 0 {
			genres += ", "
		}
		genres += g.Name
	}
	m.Details["genres"] = genres

	return m, nil
}

var _ provider.Client = (*Client)(nil)
