package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/trackarr/trackarr/pkg/importer"
	"github.com/trackarr/trackarr/pkg/media"
	"github.com/trackarr/trackarr/pkg/provider"
	"github.com/trackarr/trackarr/pkg/provider/mocks"
	storagesqlite "github.com/trackarr/trackarr/pkg/storage/sqlite"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/model"
	"github.com/trackarr/trackarr/pkg/tracker"
)

func TestServer_Healthz(t *testing.T) {
	t.Run("healthz", func(t *testing.T) {
		s := Server{baseLogger: zap.NewNop().Sugar()}

		req, err := http.NewRequest("GET", "/healthz", nil)
		assert.NoError(t, err)

		rr := httptest.NewRecorder()

		handler := s.Healthz()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		assert.Equal(t, "application/json", rr.Header().Get("content-type"))

		var response GenericResponse
		err = json.Unmarshal(rr.Body.Bytes(), &response)

		assert.NoError(t, err)
		assert.Equal(t, "ok", response.Response)
	})
}

type serverFixture struct {
	server  Server
	handler http.Handler
	movies  *mocks.MockClient
	token   string
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	store, err := storagesqlite.New(":memory:")
	require.NoError(t, err)

	token := "test-token"
	_, err = store.CreateUser(context.Background(), model.User{Username: "tester", Token: token})
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	movies := mocks.NewMockClient(ctrl)
	registry := provider.NewRegistry()
	registry.Register(media.TypeMovie, media.SourceTMDB, movies)
	registry.Register(media.TypeTV, media.SourceTMDB, movies)

	srv := New(zap.NewNop().Sugar(), store, tracker.New(store, registry), ImportSources{})
	return &serverFixture{
		server:  srv,
		handler: srv.Handler(),
		movies:  movies,
		token:   token,
	}
}

func (f *serverFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("X-API-Token", f.token)
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func movieMetadata() *provider.Metadata {
	total := int32(1)
	return &provider.Metadata{
		MediaID:     "603",
		MediaType:   media.TypeMovie,
		Source:      media.SourceTMDB,
		Title:       "The Matrix",
		MaxProgress: &total,
	}
}

func TestServer_RequiresToken(t *testing.T) {
	f := newServerFixture(t)

	req := httptest.NewRequest("GET", "/api/v1/media?media_type=movie", nil)
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req = httptest.NewRequest("GET", "/api/v1/media?media_type=movie", nil)
	req.Header.Set("X-API-Token", "wrong")
	rr = httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestServer_TrackAndList(t *testing.T) {
	f := newServerFixture(t)
	f.movies.EXPECT().Detail(gomock.Any(), media.TypeMovie, "603").Return(movieMetadata(), nil).AnyTimes()

	rr := f.do(t, "POST", "/api/v1/media", map[string]any{
		"media_type": "movie",
		"source":     "tmdb",
		"media_id":   "603",
		"status":     "Planning",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = f.do(t, "GET", "/api/v1/media?media_type=movie", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var response struct {
		Response struct {
			Entries []struct {
				Status string `json:"Status"`
			} `json:"entries"`
		} `json:"response"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	require.Len(t, response.Response.Entries, 1)
	assert.Equal(t, "Planning", response.Response.Entries[0].Status)
}

func TestServer_StatusAndProgress(t *testing.T) {
	f := newServerFixture(t)
	f.movies.EXPECT().Detail(gomock.Any(), media.TypeMovie, "603").Return(movieMetadata(), nil).AnyTimes()

	ref := map[string]any{
		"media_type": "movie",
		"source":     "tmdb",
		"media_id":   "603",
	}

	body := map[string]any{"status": "In progress"}
	for k, v := range ref {
		body[k] = v
	}
	rr := f.do(t, "POST", "/api/v1/media/status", body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = f.do(t, "POST", "/api/v1/media/progress/increase", ref)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	// One unit of progress completes a movie.
	var response struct {
		Response struct {
			Status   string `json:"Status"`
			Progress int32  `json:"Progress"`
		} `json:"response"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Equal(t, "Completed", response.Response.Status)
	assert.Equal(t, int32(1), response.Response.Progress)
}

func TestServer_UnknownMediaTypeRejected(t *testing.T) {
	f := newServerFixture(t)

	rr := f.do(t, "GET", "/api/v1/media?media_type=hologram", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestServer_JellyfinWebhookMarksMovieWatched(t *testing.T) {
	f := newServerFixture(t)
	f.movies.EXPECT().Detail(gomock.Any(), media.TypeMovie, "603").Return(movieMetadata(), nil).AnyTimes()

	payload := map[string]any{
		"Event": "Stop",
		"Item": map[string]any{
			"Type":        "Movie",
			"ProviderIds": map[string]any{"Tmdb": "603"},
			"UserData":    map[string]any{"Played": true},
		},
	}
	b, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/webhook/jellyfin/"+f.token, bytes.NewReader(b))
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	list := f.do(t, "GET", "/api/v1/media?media_type=movie", nil)
	var response struct {
		Response struct {
			Entries []struct {
				Status string `json:"Status"`
			} `json:"entries"`
		} `json:"response"`
	}
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &response))
	require.Len(t, response.Response.Entries, 1)
	assert.Equal(t, "Completed", response.Response.Entries[0].Status)
}

func TestServer_WebhookRejectsBadToken(t *testing.T) {
	f := newServerFixture(t)

	req := httptest.NewRequest("POST", "/webhook/jellyfin/nope", strings.NewReader("{}"))
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestServer_FileImportUpload(t *testing.T) {
	f := newServerFixture(t)

	imported := 0
	f.server.imports = ImportSources{
		Files: map[string]FileImporter{
			"csv": func(ctx context.Context, userID int64, r io.Reader, mode importer.Mode) (*importer.Result, error) {
				b, err := io.ReadAll(r)
				require.NoError(t, err)
				assert.Equal(t, "type,title\n", string(b))
				assert.Equal(t, importer.ModeNew, mode)
				imported++
				return &importer.Result{}, nil
			},
		},
	}
	f.handler = f.server.Handler()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("mode", "new"))
	fw, err := mw.CreateFormFile("file", "export.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("type,title\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/v1/imports/csv", &buf)
	req.Header.Set("X-API-Token", f.token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, 1, imported)
}

func TestServer_ScheduleWithoutSchedulerIs404(t *testing.T) {
	f := newServerFixture(t)

	rr := f.do(t, "POST", "/api/v1/imports/trakt/schedule", map[string]any{"mode": "new"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
