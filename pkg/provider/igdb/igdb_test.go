package igdb

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trackarr/trackarr/pkg/media"
	"github.com/trackarr/trackarr/pkg/provider"
)

func TestTokenRefreshOn401(t *testing.T) {
	var tokenRequests atomic.Int32
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := tokenRequests.Add(1)
		fmt.Fprintf(w, `{"access_token": "token-%d", "expires_in": 3600}`, n)
	}))
	defer tokenSrv.Close()

	var gameRequests atomic.Int32
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gameRequests.Add(1)
		// the first token is stale, only the refreshed one is accepted
		if r.Header.Get("Authorization") != "Bearer token-2" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"message": "Authorization failure"}`)
			return
		}
		fmt.Fprint(w, `[{"id": 1942, "name": "The Witcher 3", "summary": "Geralt hunts.", "cover": {"image_id": "abc"}}]`)
	}))
	defer apiSrv.Close()

	c := New("client-id", "client-secret")
	c.baseURL = apiSrv.URL
	c.tokenURL = tokenSrv.URL

	m, err := c.Detail(context.Background(), media.TypeGame, "1942")
	require.Nil(t, err)
	assert.Equal(t, "The Witcher 3", m.Title)

	// one failed call, one token refresh, one retry
	assert.Equal(t, int32(2), tokenRequests.Load())
	assert.Equal(t, int32(2), gameRequests.Load())
}

func TestPersistent401Surfaces(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token": "tok", "expires_in": 3600}`)
	}))
	defer tokenSrv.Close()

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message": "Authorization failure"}`)
	}))
	defer apiSrv.Close()

	c := New("client-id", "client-secret")
	c.baseURL = apiSrv.URL
	c.tokenURL = tokenSrv.URL

	_, err := c.Detail(context.Background(), media.TypeGame, "1")
	pErr, ok := provider.AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, pErr.StatusCode)
	assert.Contains(t, pErr.Message, "Authorization failure")
}

func TestGameNotFound(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token": "token-1", "expires_in": 3600}`)
	}))
	defer tokenSrv.Close()

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer apiSrv.Close()

	c := New("client-id", "client-secret")
	c.baseURL = apiSrv.URL
	c.tokenURL = tokenSrv.URL

	_, err := c.Detail(context.Background(), media.TypeGame, "999999")
	pErr, ok := provider.AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, pErr.StatusCode)
}
