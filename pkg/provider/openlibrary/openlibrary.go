// Package openlibrary adapts the Open Library API for books.
package openlibrary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/trackarr/trackarr/pkg/media"
	"github.com/trackarr/trackarr/pkg/provider"
)

const (
	defaultBaseURL = "https://openlibrary.org"
	coverBaseURL   = "https://covers.openlibrary.org/b/id"

	pageSize = 20
)

type Client struct {
	baseURL string
	doer    *provider.Doer
}

func New(opts ...provider.DoerOption) *Client {
	opts = append([]provider.DoerOption{provider.WithErrorParser(parseError)}, opts...)
	return &Client{
		baseURL: defaultBaseURL,
		doer:    provider.NewDoer(media.SourceOpenLibrary, opts...),
	}
}

func parseError(_ int, body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Error
}

type searchResponse struct {
	NumFound int `json:"numFound"`
	Docs     []struct {
		Key        string   `json:"key"`
		Title      string   `json:"title"`
		CoverID    int      `json:"cover_i"`
		AuthorName []string `json:"author_name"`
	} `json:"docs"`
}

// Search queries Open Library works.
func (c *Client) Search(ctx context.Context, mediaType media.Type, query string, page int) (*provider.SearchPage, error) {
	if mediaType != media.TypeBook {
		return nil, notBooks(mediaType)
	}

	endpoint := fmt.Sprintf("%s/search.json?%s", c.baseURL, url.Values{
		"q":     {query},
		"page":  {strconv.Itoa(page)},
		"limit": {strconv.Itoa(pageSize)},
	}.Encode())

	var resp searchResponse
	if err := c.doer.JSON(ctx, http.MethodGet, endpoint, nil, nil, &resp); err != nil {
		return nil, err
	}

	results := make([]provider.SearchResult, 0, len(resp.Docs))
	for _, doc := range resp.Docs {
		results = append(results, provider.SearchResult{
			MediaID:   workID(doc.Key),
			MediaType: media.TypeBook,
			Source:    media.SourceOpenLibrary,
			Title:     doc.Title,
			Image:     cover(doc.CoverID),
		})
	}

	totalPages := (resp.NumFound + pageSize - 1) / pageSize
	return &provider.SearchPage{
		Page:         page,
		TotalPages:   totalPages,
		TotalResults: resp.NumFound,
		Results:      results,
	}, nil
}

type workResponse struct {
	Title            string          `json:"title"`
	Description      json.RawMessage `json:"description"`
	Covers           []int           `json:"covers"`
	Subjects         []string        `json:"subjects"`
	FirstPublishDate string          `json:"first_publish_date"`
}

// Detail fetches normalized book metadata. Page counts live on editions,
// not works, so MaxProgress stays unknown.
func (c *Client) Detail(ctx context.Context, mediaType media.Type, mediaID string) (*provider.Metadata, error) {
	if mediaType != media.TypeBook {
		return nil, notBooks(mediaType)
	}

	endpoint := fmt.Sprintf("%s/works/%s.json", c.baseURL, mediaID)

	var resp workResponse
	if err := c.doer.JSON(ctx, http.MethodGet, endpoint, nil, nil, &resp); err != nil {
		return nil, err
	}

	coverID := 0
	if len(resp.Covers) > 0 {
		coverID = resp.Covers[0]
	}

	subjects := resp.Subjects
	if len(subjects) > 5 {
		subjects = subjects[:5]
	}

	return &provider.Metadata{
		MediaID:   mediaID,
		MediaType: media.TypeBook,
		Source:    media.SourceOpenLibrary,
		Title:     resp.Title,
		Image:     cover(coverID),
		Synopsis:  description(resp.Description),
		Details: map[string]string{
			"first_publish_date": resp.FirstPublishDate,
			"subjects":           strings.Join(subjects, ", "),
		},
	}, nil
}

// description handles Open Library's two shapes, a bare string and a typed
// value object.
func description(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain
	}

	var typed struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &typed); err == nil {
		return typed.Value
	}
	return ""
}

func notBooks(mediaType media.Type) error {
	return &provider.Error{
		Provider:   media.SourceOpenLibrary,
		StatusCode: http.StatusNotImplemented,
		Message:    fmt.Sprintf("open library does not serve %s metadata", mediaType.Label()),
	}
}

func workID(key string) string {
	return strings.TrimPrefix(key, "/works/")
}

func cover(id int) string {
	if id == 0 {
		return ""
	}
	return fmt.Sprintf("%s/%d-M.jpg", coverBaseURL, id)
}

var _ provider.Client = (*Client)(nil)
