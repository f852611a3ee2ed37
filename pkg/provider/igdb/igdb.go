// Package igdb adapts the Internet Game Database API for games. IGDB
// authenticates through Twitch client-credentials tokens which expire, so
// the adapter caches the token and refreshes once on a 401.
package igdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/trackarr/trackarr/pkg/media"
	"github.com/trackarr/trackarr/pkg/provider"
)

const (
	defaultBaseURL  = "https://api.igdb.com/v4"
	defaultTokenURL = "https://id.twitch.tv/oauth2/token"

	coverBaseURL = "https://images.igdb.com/igdb/image/upload/t_cover_big"

	pageSize = 20
)

type Client struct {
	clientID     string
	clientSecret string
	baseURL      string
	tokenURL     string
	doer         *provider.Doer

	mu      sync.Mutex
	token   string
	expires time.Time
}

func New(clientID, clientSecret string, opts ...provider.DoerOption) *Client {
	opts = append([]provider.DoerOption{provider.WithErrorParser(parseError)}, opts...)
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      defaultBaseURL,
		tokenURL:     defaultTokenURL,
		doer:         provider.NewDoer(media.SourceIGDB, opts...),
	}
}

// parseError handles both of IGDB's error shapes, an array of titled
// objects and a flat message object.
func parseError(_ int, body []byte) string {
	var list []struct {
		Title string `json:"title"`
		Cause string `json:"cause"`
	}
	if err := json.Unmarshal(body, &list); err == nil && len(list) > 0 {
		if list[0].Title != "" {
			return list[0].Title
		}
		return list[0].Cause
	}

	var flat struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &flat); err == nil {
		return flat.Message
	}
	return ""
}

// bearer returns the cached token, fetching a fresh one when empty.
// Concurrent refreshes may race; any valid token wins.
func (c *Client) bearer(ctx context.Context) (string, error) {
	c.mu.Lock()
	token := c.token
	expires := c.expires
	c.mu.Unlock()
	if token != "" && time.Now().Before(expires) {
		return token, nil
	}

	endpoint := fmt.Sprintf("%s?%s", c.tokenURL, url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"grant_type":    {"client_credentials"},
	}.Encode())

	var resp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := c.doer.JSON(ctx, http.MethodPost, endpoint, nil, nil, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", &provider.Error{Provider: media.SourceIGDB, Message: "twitch auth returned no token"}
	}

	c.mu.Lock()
	c.token = resp.AccessToken
	// refresh a minute early so in-flight requests don't catch the expiry
	c.expires = time.Now().Add(time.Duration(resp.ExpiresIn)*time.Second - time.Minute)
	c.mu.Unlock()
	return resp.AccessToken, nil
}

func (c *Client) invalidate() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// query posts an Apicalypse body, refreshing the auth token and retrying
// once when the provider rejects it.
func (c *Client) query(ctx context.Context, endpoint, body string, dest any) error {
	for attempt := 0; attempt < 2; attempt++ {
		token, err := c.bearer(ctx)
		if err != nil {
			return err
		}

		header := http.Header{
			"Client-ID":     {c.clientID},
			"Authorization": {"Bearer " + token},
		}
		err = c.doer.JSON(ctx, http.MethodPost, endpoint, header, []byte(body), dest)
		if err == nil {
			return nil
		}

		if pErr, ok := provider.AsError(err); ok && pErr.StatusCode == http.StatusUnauthorized && attempt == 0 {
			c.invalidate()
			continue
		}
		return err
	}
	return nil
}

type game struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Summary string `json:"summary"`
	Cover   struct {
		ImageID string `json:"image_id"`
	} `json:"cover"`
	FirstReleaseDate int64 `json:"first_release_date"`
	Genres           []struct {
		Name string `json:"name"`
	} `json:"genres"`
}

// Search queries IGDB games by name.
func (c *Client) Search(ctx context.Context, mediaType media.Type, query string, page int) (*provider.SearchPage, error) {
	if mediaType != media.TypeGame {
		return nil, notGames(mediaType)
	}

	body := fmt.Sprintf(`search %q; fields name,cover.image_id; limit %d; offset %d;`,
		query, pageSize, (page-1)*pageSize)

	var games []game
	if err := c.query(ctx, c.baseURL+"/games", body, &games); err != nil {
		return nil, err
	}

	results := make([]provider.SearchResult, 0, len(games))
	for _, g := range games {
		results = append(results, provider.SearchResult{
			MediaID:   strconv.Itoa(g.ID),
			MediaType: media.TypeGame,
			Source:    media.SourceIGDB,
			Title:     g.Name,
			Image:     cover(g.Cover.ImageID),
		})
	}

	totalPages := page
	if len(results) == pageSize {
		totalPages = page + 1
	}

	return &provider.SearchPage{
		Page:         page,
		TotalPages:   totalPages,
		TotalResults: (page-1)*pageSize + len(results),
		Results:      results,
	}, nil
}

// Detail fetches normalized game metadata. Games have no provider-known
// completion total; playtime tracks in minutes without a cap.
func (c *Client) Detail(ctx context.Context, mediaType media.Type, mediaID string) (*provider.Metadata, error) {
	if mediaType != media.TypeGame {
		return nil, notGames(mediaType)
	}

	body := fmt.Sprintf(`fields name,summary,cover.image_id,first_release_date,genres.name; where id = %s;`, mediaID)

	var games []game
	if err := c.query(ctx, c.baseURL+"/games", body, &games); err != nil {
		return nil, err
	}
	if len(games) == 0 {
		return nil, &provider.Error{
			Provider:   media.SourceIGDB,
			StatusCode: http.StatusNotFound,
			Message:    fmt.Sprintf("game %s not found", mediaID),
		}
	}

	g := games[0]
	m := &provider.Metadata{
		MediaID:   mediaID,
		MediaType: media.TypeGame,
		Source:    media.SourceIGDB,
		Title:     g.Name,
		Image:     cover(g.Cover.ImageID),
		Synopsis:  g.Summary,
		Details:   map[string]string{},
	}

	if g.FirstReleaseDate > 0 {
		m.Details["release_date"] = time.Unix(g.FirstReleaseDate, 0).UTC().Format("2006-01-02")
	}
	genres := ""
	for i, genre := range g.Genres {
		if i > 0 {
			genres += ", "
		}
		genres += genre.Name
	}
	m.Details["genres"] = genres

	return m, nil
}

func notGames(mediaType media.Type) error {
	return &provider.Error{
		Provider:   media.SourceIGDB,
		StatusCode: http.StatusNotImplemented,
		Message:    fmt.Sprintf("igdb does not serve %s metadata", mediaType.Label()),
	}
}

func cover(imageID string) string {
	if imageID == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s.jpg", coverBaseURL, imageID)
}

var _ provider.Client = (*Client)(nil)
