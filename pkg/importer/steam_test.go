package importer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trackarr/trackarr/pkg/media"
	"github.com/trackarr/trackarr/pkg/provider"
	"github.com/trackarr/trackarr/pkg/provider/mocks"
	"go.uber.org/mock/gomock"
)

func TestSteamImportMatchesByTitle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key-1", r.URL.Query().Get("key"))
		assert.Equal(t, "7656119", r.URL.Query().Get("steamid"))
		w.Write([]byte(`{"response":{"game_count":2,"games":[
			{"appid":1145360,"name":"Hades","playtime_forever":600,"rtime_last_played":1700000000},
			{"appid":999,"name":"Qwzx Nothing Like This","playtime_forever":0}
		]}}`))
	}))
	t.Cleanup(server.Close)

	ctrl := gomock.NewController(t)
	igdb := mocks.NewMockClient(ctrl)
	igdb.EXPECT().Search(gomock.Any(), media.TypeGame, gomock.Any(), 1).Return(&provider.SearchPage{
		Results: []provider.SearchResult{
			{MediaID: "113112", MediaType: media.TypeGame, Source: media.SourceIGDB, Title: "Hades"},
		},
	}, nil).Times(2)

	registry := provider.NewRegistry()
	registry.Register(media.TypeGame, media.SourceIGDB, igdb)

	st := NewSteam(f.store, registry, "key-1")
	st.baseURL = server.URL

	result, err := st.Import(ctx, f.userID, "7656119", ModeNew)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Counts[media.TypeGame])
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "no IGDB match")

	game := f.oneOfType(t, media.TypeGame)
	assert.Equal(t, string(media.StatusInProgress), game.Media.Status)
	assert.Equal(t, int32(600), game.Media.Progress)
	assert.Equal(t, "113112", game.Item.MediaID)
}
