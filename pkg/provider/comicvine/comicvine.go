// Package comicvine adapts the Comic Vine API for comic volumes.
package comicvine

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
	defaultBaseURL = "https://comicvine.gamespot.com/api"
	pageSize       = 20

	// volume resources are prefixed with Comic Vine's type id
	volumePrefix = "4050"
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
		doer:    provider.NewDoer(media.SourceComicVine, opts...),
	}
}

// parseError reads Comic Vine's error field, which is "OK" on success and a
// message otherwise.
func parseError(_ int, body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Error == "OK" {
		return ""
	}
	return payload.Error
}

type volume struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Image struct {
		MediumURL string `json:"medium_url"`
	} `json:"image"`
	Description   string `json:"description"`
	StartYear     string `json:"start_year"`
	CountOfIssues int32  `json:"count_of_issues"`
	Publisher     struct {
		Name string `json:"name"`
	} `json:"publisher"`
}

type searchResponse struct {
	NumberOfTotalResults int      `json:"number_of_total_results"`
	Results              []volume `json:"results"`
}

// Search queries Comic Vine volumes.
func (c *Client) Search(ctx context.Context, mediaType media.Type, query string, page int) (*provider.SearchPage, error) {
	if mediaType != media.TypeComic {
		return nil, notComics(mediaType)
	}

	endpoint := fmt.Sprintf("%s/search/?%s", c.baseURL, url.Values{
		"api_key":   {c.apiKey},
		"format":    {"json"},
		"resources": {"volume"},
		"query":     {query},
		"page":      {strconv.Itoa(page)},
		"limit":     {strconv.Itoa(pageSize)},
	}.Encode())

	var resp searchResponse
	if err := c.doer.JSON(ctx, http.MethodGet, endpoint, nil, nil, &resp); err != nil {
		return nil, err
	}

	results := make([]provider.SearchResult, 0, len(resp.Results))
	for _, v := range resp.Results {
		results = append(results, provider.SearchResult{
			MediaID:   strconv.Itoa(v.ID),
			MediaType: media.TypeComic,
			Source:    media.SourceComicVine,
			Title:     v.Name,
			Image:     v.Image.MediumURL,
		})
	}

	totalPages := (resp.NumberOfTotalResults + pageSize - 1) / pageSize
	return &provider.SearchPage{
		Page:         page,
		TotalPages:   totalPages,
		TotalResults: resp.NumberOfTotalResults,
		Results:      results,
	}, nil
}

type volumeResponse struct {
	Results volume `json:"results"`
}

// Detail fetches normalized comic volume metadata.
func (c *Client) Detail(ctx context.Context, mediaType media.Type, mediaID string) (*provider.Metadata, error) {
	if mediaType != media.TypeComic {
		return nil, notComics(mediaType)
	}

	endpoint := fmt.Sprintf("%s/volume/%s-%s/?%s", c.baseURL, volumePrefix, mediaID, url.Values{
		"api_key": {c.apiKey},
		"format":  {"json"},
	}.Encode())

	var resp volumeResponse
	if err := c.doer.JSON(ctx, http.MethodGet, endpoint, nil, nil, &resp); err != nil {
		return nil, err
	}

	v := resp.Results
	m := &provider.Metadata{
		MediaID:   mediaID,
		MediaType: media.TypeComic,
		Source:    media.SourceComicVine,
		Title:     v.Name,
		Image:     v.Image.MediumURL,
		Synopsis:  v.Description,
		Details: map[string]string{
			"start_year": v.StartYear,
			"publisher":  v.Publisher.Name,
		},
	}
	if v.CountOfIssues > 0 {
		m.MaxProgress = &v.CountOfIssues
	}

	return m, nil
}

func notComics(mediaType media.Type) error {
	return &provider.Error{
		Provider:   media.SourceComicVine,
		StatusCode: http.StatusNotImplemented,
		Message:    fmt.Sprintf("comic vine does not serve %s metadata", mediaType.Label()),
	}
}

var _ provider.Client = (*Client)(nil)
