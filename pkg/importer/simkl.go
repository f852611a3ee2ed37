package importer

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/trackarr/trackarr/pkg/media"
	"github.com/trackarr/trackarr/pkg/provider"
	"github.com/trackarr/trackarr/pkg/storage"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/model"
)

const defaultSimklURL = "https://api.simkl.com"

// Simkl imports everything a Simkl account tracks through one sync call.
// Shows and movies resolve through TMDB ids, anime through MyAnimeList ids.
type Simkl struct {
	store       storage.Storage
	clientID    string
	accessToken string
	baseURL     string
	doer        *provider.Doer
}

func NewSimkl(store storage.Storage, clientID, accessToken string, opts ...provider.DoerOption) *Simkl {
	return &Simkl{
		store:       store,
		clientID:    clientID,
		accessToken: accessToken,
		baseURL:     defaultSimklURL,
		doer:        provider.NewDoer(media.Source("simkl"), opts...),
	}
}

var simklStatuses = map[string]media.Status{
	"watching":    media.StatusInProgress,
	"plantowatch": media.StatusPlanning,
	"completed":   media.StatusCompleted,
	"hold":        media.StatusPaused,
	"dropped":     media.StatusDropped,
}

type simklIDs struct {
	Simkl int    `json:"simkl"`
	TMDB  string `json:"tmdb"`
	MAL   string `json:"mal"`
}

type simklShow struct {
	Title  string   `json:"title"`
	IDs    simklIDs `json:"ids"`
	Poster string   `json:"poster"`
}

type simklItem struct {
	Status               string    `json:"status"`
	UserRating           *float64  `json:"user_rating"`
	LastWatchedAt        time.Time `json:"last_watched_at"`
	WatchedEpisodesCount int32     `json:"watched_episodes_count"`
	Show                 simklShow `json:"show"`
	Movie                simklShow `json:"movie"`
	Seasons              []struct {
		Number   int32 `json:"number"`
		Episodes []struct {
			Number int32 `json:"number"`
		} `json:"episodes"`
	} `json:"seasons"`
}

type simklSync struct {
	Shows  []simklItem `json:"shows"`
	Anime  []simklItem `json:"anime"`
	Movies []simklItem `json:"movies"`
}

func (sk *Simkl) Import(ctx context.Context, userID int64, mode Mode) (*Result, error) {
	endpoint := sk.baseURL + "/sync/all-items/?extended=full&episode_watched_at=yes"
	header := http.Header{
		"Authorization": {"Bearer " + sk.accessToken},
		"simkl-api-key": {sk.clientID},
	}

	var sync simklSync
	if err := sk.doer.JSON(ctx, http.MethodPost, endpoint, header, nil, &sync); err != nil {
		if pErr, ok := provider.AsError(err); ok {
			return nil, &Error{Source: "simkl", Message: "fetching synced items", Err: fmt.Errorf("%s", pErr.Message)}
		}
		return nil, err
	}

	return runImport(ctx, sk.store, "simkl", userID, mode, func(s *session) error {
		lists := []struct {
			items     []simklItem
			mediaType media.Type
		}{
			{sync.Movies, media.TypeMovie},
			{sync.Shows, media.TypeTV},
			{sync.Anime, media.TypeAnime},
		}
		for _, list := range lists {
			for _, raw := range list.items {
				entry, ok := sk.entry(s, raw, list.mediaType)
				if !ok {
					continue
				}
				if err := s.apply(ctx, *entry); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (sk *Simkl) entry(s *session, raw simklItem, mediaType media.Type) (*Entry, bool) {
	show := raw.Show
	if mediaType == media.TypeMovie {
		show = raw.Movie
	}

	status, ok := simklStatuses[raw.Status]
	if !ok {
		s.warns.addf("%q has unknown Simkl status %q", show.Title, raw.Status)
		return nil, false
	}

	mediaID, source := show.IDs.TMDB, media.SourceTMDB
	if mediaType == media.TypeAnime {
		mediaID, source = show.IDs.MAL, media.SourceMAL
	}
	if mediaID == "" {
		s.warns.addf("%q has no %s id on Simkl", show.Title, source)
		return nil, false
	}

	entry := &Entry{
		Item: model.Item{
			MediaID:   mediaID,
			Source:    string(source),
			MediaType: string(mediaType),
			Title:     show.Title,
			Image:     show.Poster,
		},
		Status:    status,
		Score:     raw.UserRating,
		UpdatedAt: raw.LastWatchedAt,
	}

	switch mediaType {
	case media.TypeMovie:
		if status == media.StatusCompleted {
			entry.Progress = 1
			watched := raw.LastWatchedAt
			entry.EndDate = &watched
		}
	case media.TypeAnime:
		entry.Progress = raw.WatchedEpisodesCount
	case media.TypeTV:
		for _, season := range raw.Seasons {
			if season.Number == 0 {
				continue
			}
			for _, ep := range season.Episodes {
				entry.Episodes = append(entry.Episodes, EpisodeWatch{
					SeasonNumber:  season.Number,
					EpisodeNumber: ep.Number,
					WatchedAt:     raw.LastWatchedAt,
				})
			}
		}
	}
	return entry, true
}
