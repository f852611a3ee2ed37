package importer

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/trackarr/trackarr/pkg/media"
	"github.com/trackarr/trackarr/pkg/provider"
	"github.com/trackarr/trackarr/pkg/storage"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/model"
)

const defaultSteamURL = "https://api.steampowered.com"

// Steam imports a Steam library. Steam app ids mean nothing to IGDB, so
// each game is matched by title search; names too far from any hit become
// warnings rather than wrong rows.
type Steam struct {
	store     storage.Storage
	providers *provider.Registry
	apiKey    string
	baseURL   string
	doer      *provider.Doer
}

func NewSteam(store storage.Storage, providers *provider.Registry, apiKey string, opts ...provider.DoerOption) *Steam {
	return &Steam{
		store:     store,
		providers: providers,
		apiKey:    apiKey,
		baseURL:   defaultSteamURL,
		doer:      provider.NewDoer(media.Source("steam"), opts...),
	}
}

type steamGame struct {
	AppID           int64  `json:"appid"`
	Name            string `json:"name"`
	PlaytimeForever int32  `json:"playtime_forever"`
	LastPlayed      int64  `json:"rtime_last_played"`
}

func (st *Steam) Import(ctx context.Context, userID int64, steamID string, mode Mode) (*Result, error) {
	endpoint := fmt.Sprintf("%s/IPlayerService/GetOwnedGames/v1/?%s", st.baseURL, url.Values{
		"key":                       {st.apiKey},
		"steamid":                   {steamID},
		"include_appinfo":           {"true"},
		"include_played_free_games": {"true"},
	}.Encode())

	var resp struct {
		Response struct {
			Games []steamGame `json:"games"`
		} `json:"response"`
	}
	if err := st.doer.JSON(ctx, http.MethodGet, endpoint, nil, nil, &resp); err != nil {
		if pErr, ok := provider.AsError(err); ok {
			return nil, &Error{Source: "steam", Message: fmt.Sprintf("fetching owned games for %s", steamID), Err: fmt.Errorf("%s", pErr.Message)}
		}
		return nil, err
	}

	return runImport(ctx, st.store, "steam", userID, mode, func(s *session) error {
		for _, game := range resp.Response.Games {
			entry, ok := st.entry(ctx, s, game)
			if !ok {
				continue
			}
			if err := s.apply(ctx, *entry); err != nil {
				return err
			}
		}
		return nil
	})
}

func (st *Steam) entry(ctx context.Context, s *session, game steamGame) (*Entry, bool) {
	page, err := st.providers.Search(ctx, media.TypeGame, media.SourceIGDB, game.Name, 1)
	if err != nil {
		s.warns.addf("searching IGDB for %q: %v", game.Name, err)
		return nil, false
	}
	match, ok := bestMatch(game.Name, page.Results)
	if !ok {
		s.warns.addf("no IGDB match for %q", game.Name)
		return nil, false
	}

	entry := &Entry{
		Item: model.Item{
			MediaID:   match.MediaID,
			Source:    string(match.Source),
			MediaType: string(media.TypeGame),
			Title:     match.Title,
			Image:     match.Image,
		},
		Status:   media.StatusPlanning,
		Progress: game.PlaytimeForever,
	}
	if game.PlaytimeForever > 0 {
		entry.Status = media.StatusInProgress
	}
	if game.LastPlayed > 0 {
		entry.UpdatedAt = time.Unix(game.LastPlayed, 0).UTC()
	}
	return entry, true
}
