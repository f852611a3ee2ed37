package tmdb

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trackarr/trackarr/pkg/media"
	"github.com/trackarr/trackarr/pkg/provider"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/search/tv", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "breaking bad", r.URL.Query().Get("query"))
		fmt.Fprint(w, `{
			"page": 1, "total_pages": 1, "total_results": 2,
			"results": [
				{"id": 1396, "name": "Breaking Bad", "poster_path": "/bb.jpg"},
				{"id": 62016, "name": "Breaking Boundaries", "poster_path": null}
			]
		}`)
	})

	mux.HandleFunc("/movie/603", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"title": "The Matrix", "poster_path": "/matrix.jpg",
			"overview": "A hacker learns the truth.",
			"release_date": "1999-03-30", "status": "Released", "runtime": 136,
			"genres": [{"name": "Action"}, {"name": "Science Fiction"}]
		}`)
	})

	mux.HandleFunc("/tv/1396", func(w http.ResponseWriter, r *http.Request) {
		if appended := r.URL.Query().Get("append_to_response"); appended != "" {
			require.True(t, strings.Contains(appended, "season/1"))
			fmt.Fprint(w, `{
				"season/1": {
					"name": "Season 1", "poster_path": "/s1.jpg", "overview": "The first season.",
					"episodes": [
						{"episode_number": 1, "name": "Pilot", "still_path": "/e1.jpg", "air_date": "2008-01-20"},
						{"episode_number": 2, "name": "Cat's in the Bag...", "still_path": null, "air_date": "2008-01-27"}
					]
				}
			}`)
			return
		}
		fmt.Fprint(w, `{
			"name": "Breaking Bad", "poster_path": "/bb.jpg",
			"overview": "A chemistry teacher turns to crime.",
			"first_air_date": "2008-01-20", "status": "Ended", "number_of_episodes": 2,
			"genres": [{"name": "Drama"}],
			"seasons": [
				{"season_number": 0},
				{"season_number": 1}
			]
		}`)
	})

	mux.HandleFunc("/movie/0", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"status_message": "The resource you requested could not be found."}`)
	})

	return httptest.NewServer(mux)
}

func testClient(srv *httptest.Server) *Client {
	c := New("test-key")
	c.baseURL = srv.URL
	return c
}

func TestSearch(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	page, err := testClient(srv).Search(context.Background(), media.TypeTV, "breaking bad", 1)
	require.Nil(t, err)
	assert.Equal(t, 2, page.TotalResults)
	snaps.MatchJSON(t, page)
}

func TestMovieDetail(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	m, err := testClient(srv).Detail(context.Background(), media.TypeMovie, "603")
	require.Nil(t, err)
	assert.Equal(t, "The Matrix", m.Title)
	require.NotNil(t, m.MaxProgress)
	assert.Equal(t, int32(1), *m.MaxProgress)
	snaps.MatchJSON(t, m)
}

func TestShowDetail(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	m, err := testClient(srv).Detail(context.Background(), media.TypeTV, "1396")
	require.Nil(t, err)

	// specials are excluded from the watch order
	assert.Equal(t, []int32{1}, m.SeasonNumbers)
	require.Contains(t, m.Seasons, int32(1))
	assert.Len(t, m.Seasons[1].Episodes, 2)
	assert.Len(t, m.Events, 2)
	snaps.MatchJSON(t, m)
}

func TestErrorNormalization(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	_, err := testClient(srv).Detail(context.Background(), media.TypeMovie, "0")
	pErr, ok := provider.AsError(err)
	require.True(t, ok)
	assert.Equal(t, media.SourceTMDB, pErr.Provider)
	assert.Equal(t, http.StatusNotFound, pErr.StatusCode)
	assert.Contains(t, pErr.Message, "could not be found")
}

func TestUnsupportedType(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	_, err := testClient(srv).Detail(context.Background(), media.TypeGame, "1")
	pErr, ok := provider.AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotImplemented, pErr.StatusCode)
}
