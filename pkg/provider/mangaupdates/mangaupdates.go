// Package mangaupdates adapts the MangaUpdates API for manga.
package mangaupdates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/trackarr/trackarr/pkg/media"
	"github.com/trackarr/trackarr/pkg/provider"
)

const (
	defaultBaseURL = "https://api.mangaupdates.com/v1"
	pageSize       = 20
)

type Client struct {
	baseURL string
	doer    *provider.Doer
}

func New(opts ...provider.DoerOption) *Client {
	opts = append([]provider.DoerOption{provider.WithErrorParser(parseError)}, opts...)
	return &Client{
		baseURL: defaultBaseURL,
		doer:    provider.NewDoer(media.SourceMangaUpdates, opts...),
	}
}

func parseError(_ int, body []byte) string {
	var payload struct {
		Reason string `json:"reason"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Reason != "" {
		return payload.Reason
	}
	return payload.Status
}

type seriesImage struct {
	URL struct {
		Original string `json:"original"`
	} `json:"url"`
}

type searchResponse struct {
	TotalHits int `json:"total_hits"`
	Results   []struct {
		Record struct {
			SeriesID int64       `json:"series_id"`
			Title    string      `json:"title"`
			Image    seriesImage `json:"image"`
		} `json:"record"`
	} `json:"results"`
}

// Search posts a series search.
func (c *Client) Search(ctx context.Context, mediaType media.Type, query string, page int) (*provider.SearchPage, error) {
	if mediaType != media.TypeManga {
		return nil, notManga(mediaType)
	}

	payload, err := json.Marshal(map[string]any{
		"search":  query,
		"page":    page,
		"perpage": pageSize,
	})
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := c.doer.JSON(ctx, http.MethodPost, c.baseURL+"/series/search", nil, payload, &resp); err != nil {
		return nil, err
	}

	results := make([]provider.SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, provider.SearchResult{
			MediaID:   fmt.Sprintf("%d", r.Record.SeriesID),
			MediaType: media.TypeManga,
			Source:    media.SourceMangaUpdates,
			Title:     r.Record.Title,
			Image:     r.Record.Image.URL.Original,
		})
	}

	totalPages := (resp.TotalHits + pageSize - 1) / pageSize
	return &provider.SearchPage{
		Page:         page,
		TotalPages:   totalPages,
		TotalResults: resp.TotalHits,
		Results:      results,
	}, nil
}

type seriesResponse struct {
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	Image         seriesImage `json:"image"`
	Year          string      `json:"year"`
	Completed     bool        `json:"completed"`
	LatestChapter int32       `json:"latest_chapter"`
	Genres        []struct {
		Genre string `json:"genre"`
	} `json:"genres"`
}

// Detail fetches normalized manga metadata. The latest chapter only counts
// as a completion total once the series is done.
func (c *Client) Detail(ctx context.Context, mediaType media.Type, mediaID string) (*provider.Metadata, error) {
	if mediaType != media.TypeManga {
		return nil, notManga(mediaType)
	}

	endpoint := fmt.Sprintf("%s/series/%s", c.baseURL, mediaID)

	var resp seriesResponse
	if err := c.doer.JSON(ctx, http.MethodGet, endpoint, nil, nil, &resp); err != nil {
		return nil, err
	}

	status := "Ongoing"
	if resp.Completed {
		status = "Complete"
	}

	genres := ""
	for i, g := range resp.Genres {
		if i > 0 {
			genres += ", "
		}
		genres += g.Genre
	}

	m := &provider.Metadata{
		MediaID:   mediaID,
		MediaType: media.TypeManga,
		Source:    media.SourceMangaUpdates,
		Title:     resp.Title,
		Image:     resp.Image.URL.Original,
		Synopsis:  resp.Description,
		Details: map[string]string{
			"year":   resp.Year,
			"status": status,
			"genres": genres,
		},
	}

	if resp.Completed && resp.LatestChapter > 0 {
		m.MaxProgress = &resp.LatestChapter
	}

	return m, nil
}

func notManga(mediaType media.Type) error {
	return &provider.Error{
		Provider:   media.SourceMangaUpdates,
		StatusCode: http.StatusNotImplemented,
		Message:    fmt.Sprintf("mangaupdates does not serve %s metadata", mediaType.Label()),
	}
}

var _ provider.Client = (*Client)(nil)
