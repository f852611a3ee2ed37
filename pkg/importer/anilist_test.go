package importer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trackarr/trackarr/pkg/media"
)

const anilistPayload = `{
  "data": {
    "anime": {
      "lists": [
        {
          "entries": [
            {
              "status": "COMPLETED",
              "progress": 64,
              "repeat": 1,
              "score": 9.5,
              "startedAt": {"year": 2022, "month": 3, "day": 5},
              "completedAt": {"year": 2022, "month": 6, "day": 1},
              "updatedAt": 1654041600,
              "media": {
                "idMal": 5114,
                "title": {"userPreferred": "Fullmetal Alchemist: Brotherhood"},
                "coverImage": {"large": "https://img.anili.st/5114.jpg"}
              }
            },
            {
              "status": "CURRENT",
              "progress": 3,
              "repeat": 0,
              "updatedAt": 1654041600,
              "media": {
                "idMal": null,
                "title": {"userPreferred": "Donghua Without MAL"},
                "coverImage": {"large": ""}
              }
            }
          ]
        }
      ]
    },
    "manga": {"lists": []}
  }
}`

func TestAniListImportExpandsRepeats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.Write([]byte(anilistPayload))
	}))
	t.Cleanup(server.Close)

	a := NewAniList(f.store)
	a.baseURL = server.URL

	result, err := a.Import(ctx, f.userID, "tester", ModeNew)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Counts[media.TypeAnime])
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "no MyAnimeList id")

	row := f.oneOfType(t, media.TypeAnime)
	assert.Equal(t, string(media.StatusCompleted), row.Media.Status)
	assert.Equal(t, int32(64), row.Media.Progress)
	assert.Equal(t, int32(1), row.Media.Repeats)
	require.NotNil(t, row.Media.EndDate)
	assert.Equal(t, "2022-06-01", row.Media.EndDate.Format("2006-01-02"))

	// one watch-through per repeat plus the live state, all at AniList's
	// own timestamp
	rows := f.history(t, row.Media.ID)
	require.Len(t, rows, 2)
	for _, h := range rows {
		assert.Contains(t, h.Delta, string(media.StatusCompleted))
		assert.Equal(t, "2022-06-01", h.RecordedAt.Format("2006-01-02"))
	}
}

func TestAniListImportIsIdempotentInNewMode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(anilistPayload))
	}))
	t.Cleanup(server.Close)

	a := NewAniList(f.store)
	a.baseURL = server.URL

	_, err := a.Import(ctx, f.userID, "tester", ModeNew)
	require.NoError(t, err)
	result, err := a.Import(ctx, f.userID, "tester", ModeNew)
	require.NoError(t, err)

	assert.Empty(t, result.Counts)
	row := f.oneOfType(t, media.TypeAnime)
	assert.Len(t, f.history(t, row.Media.ID), 2)
}

func TestAniListUnknownUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"errors":[{"message":"User not found","status":404}]}`))
	}))
	t.Cleanup(server.Close)

	a := NewAniList(f.store)
	a.baseURL = server.URL

	_, err := a.Import(ctx, f.userID, "nobody", ModeNew)
	var importErr *Error
	require.ErrorAs(t, err, &importErr)
	assert.Equal(t, "anilist", importErr.Source)
}
