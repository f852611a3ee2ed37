package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trackarr/trackarr/pkg/media"
)

func TestJSONCachesGets(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"title":"Dune"}`))
	}))
	defer srv.Close()

	doer := NewDoer(media.SourceTMDB)

	var first, second struct {
		Title string `json:"title"`
	}
	err := doer.JSON(context.Background(), http.MethodGet, srv.URL, nil, nil, &first)
	require.Nil(t, err)
	err = doer.JSON(context.Background(), http.MethodGet, srv.URL, nil, nil, &second)
	require.Nil(t, err)

	assert.Equal(t, "Dune", second.Title)
	assert.Equal(t, int32(1), hits.Load())
}

func TestJSONDoesNotCachePosts(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	doer := NewDoer(media.SourceMangaUpdates)

	for i := 0; i < 2; i++ {
		err := doer.JSON(context.Background(), http.MethodPost, srv.URL, nil, []byte(`{"search":"berserk"}`), nil)
		require.Nil(t, err)
	}

	assert.Equal(t, int32(2), hits.Load())
}

func TestJSONNormalizesErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"status_message":"The resource you requested could not be found."}`))
	}))
	defer srv.Close()

	doer := NewDoer(media.SourceTMDB, WithErrorParser(func(_ int, body []byte) string {
		return "The resource you requested could not be found."
	}))

	err := doer.JSON(context.Background(), http.MethodGet, srv.URL, nil, nil, nil)
	pErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, media.SourceTMDB, pErr.Provider)
	assert.Equal(t, http.StatusNotFound, pErr.StatusCode)
	assert.Contains(t, pErr.Message, "could not be found")
}

func TestJSONFallsBackToStatusText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	doer := NewDoer(media.SourceMAL)

	err := doer.JSON(context.Background(), http.MethodGet, srv.URL, nil, nil, nil)
	pErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, "Internal Server Error", pErr.Message)
}
