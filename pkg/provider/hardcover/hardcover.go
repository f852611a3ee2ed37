// Package hardcover adapts the Hardcover GraphQL API for books.
package hardcover

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/trackarr/trackarr/pkg/media"
	"github.com/trackarr/trackarr/pkg/provider"
)

const (
	defaultGraphqlURL = "https://api.hardcover.app/v1/graphql"
	pageSize          = 20
)

type Client struct {
	token      string
	graphqlURL string
	doer       *provider.Doer
}

func New(token string, opts ...provider.DoerOption) *Client {
	opts = append([]provider.DoerOption{provider.WithErrorParser(parseError)}, opts...)
	return &Client{
		token:      token,
		graphqlURL: defaultGraphqlURL,
		doer:       provider.NewDoer(media.SourceHardcover, opts...),
	}
}

// parseError reads the first GraphQL error message.
func parseError(_ int, body []byte) string {
	var payload struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if len(payload.Errors) > 0 {
		return payload.Errors[0].Message
	}
	return ""
}

func (c *Client) header() http.Header {
	return http.Header{"Authorization": {"Bearer " + c.token}}
}

// post sends a GraphQL request and surfaces in-body errors, which GraphQL
// returns with a 200 status.
func (c *Client) post(ctx context.Context, query string, variables map[string]any, dest any) error {
	payload, err := json.Marshal(map[string]any{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		return err
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := c.doer.JSON(ctx, http.MethodPost, c.graphqlURL, c.header(), payload, &envelope); err != nil {
		return err
	}
	if len(envelope.Errors) > 0 {
		return &provider.Error{
			Provider:   media.SourceHardcover,
			StatusCode: http.StatusOK,
			Message:    envelope.Errors[0].Message,
		}
	}

	return json.Unmarshal(envelope.Data, dest)
}

const searchQuery = `
query Search($query: String!, $page: Int!, $perPage: Int!) {
  search(query: $query, query_type: "Book", page: $page, per_page: $perPage) {
    results
  }
}`

type searchResults struct {
	Search struct {
		Results struct {
			Found int `json:"found"`
			Hits  []struct {
				Document struct {
					ID    string `json:"id"`
					Title string `json:"title"`
					Image struct {
						URL string `json:"url"`
					} `json:"image"`
				} `json:"document"`
			} `json:"hits"`
		} `json:"results"`
	} `json:"search"`
}

// Search queries Hardcover books.
func (c *Client) Search(ctx context.Context, mediaType media.Type, query string, page int) (*provider.SearchPage, error) {
	if mediaType != media.TypeBook {
		return nil, notBooks(mediaType)
	}

	var resp searchResults
	err := c.post(ctx, searchQuery, map[string]any{
		"query":   query,
		"page":    page,
		"perPage": pageSize,
	}, &resp)
	if err != nil {
		return nil, err
	}

	results := make([]provider.SearchResult, 0, len(resp.Search.Results.Hits))
	for _, hit := range resp.Search.Results.Hits {
		results = append(results, provider.SearchResult{
			MediaID:   hit.Document.ID,
			MediaType: media.TypeBook,
			Source:    media.SourceHardcover,
			Title:     hit.Document.Title,
			Image:     hit.Document.Image.URL,
		})
	}

	found := resp.Search.Results.Found
	totalPages := (found + pageSize - 1) / pageSize
	return &provider.SearchPage{
		Page:         page,
		TotalPages:   totalPages,
		TotalResults: found,
		Results:      results,
	}, nil
}

const bookQuery = `
query Book($id: Int!) {
  books_by_pk(id: $id) {
    title
    description
    pages
    release_date
    cached_image
  }
}`

type bookResults struct {
	Book *struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Pages       int32  `json:"pages"`
		ReleaseDate string `json:"release_date"`
		CachedImage struct {
			URL string `json:"url"`
		} `json:"cached_image"`
	} `json:"books_by_pk"`
}

// Detail fetches normalized book metadata with the page count as the
// completion total.
func (c *Client) Detail(ctx context.Context, mediaType media.Type, mediaID string) (*provider.Metadata, error) {
	if mediaType != media.TypeBook {
		return nil, notBooks(mediaType)
	}

	id, err := strconv.Atoi(mediaID)
	if err != nil {
		return nil, &provider.Error{
			Provider:   media.SourceHardcover,
			StatusCode: http.StatusBadRequest,
			Message:    fmt.Sprintf("hardcover ids are numeric, got %q", mediaID),
		}
	}

	var resp bookResults
	if err := c.post(ctx, bookQuery, map[string]any{"id": id}, &resp); err != nil {
		return nil, err
	}
	if resp.Book == nil {
		return nil, &provider.Error{
			Provider:   media.SourceHardcover,
			StatusCode: http.StatusNotFound,
			Message:    fmt.Sprintf("book %s not found", mediaID),
		}
	}

	m := &provider.Metadata{
		MediaID:   mediaID,
		MediaType: media.TypeBook,
		Source:    media.SourceHardcover,
		Title:     resp.Book.Title,
		Image:     resp.Book.CachedImage.URL,
		Synopsis:  resp.Book.Description,
		Details: map[string]string{
			"release_date": resp.Book.ReleaseDate,
		},
	}
	if resp.Book.Pages > 0 {
		m.MaxProgress = &resp.Book.Pages
	}

	return m, nil
}

func notBooks(mediaType media.Type) error {
	return &provider.Error{
		Provider:   media.SourceHardcover,
		StatusCode: http.StatusNotImplemented,
		Message:    fmt.Sprintf("hardcover does not serve %s metadata", mediaType.Label()),
	}
}

var _ provider.Client = (*Client)(nil)
