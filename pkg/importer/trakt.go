package importer

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/trackarr/trackarr/pkg/media"
	"github.com/trackarr/trackarr/pkg/provider"
	"github.com/trackarr/trackarr/pkg/storage"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/model"
)

const defaultTraktURL = "https://api.trakt.tv"

// Trakt imports a Trakt user's watched history, ratings, and watchlist.
// Items resolve through their TMDB ids; anything Trakt cannot map to TMDB
// becomes a warning.
type Trakt struct {
	store   storage.Storage
	apiKey  string
	baseURL string
	doer    *provider.Doer
}

func NewTrakt(store storage.Storage, apiKey string, opts ...provider.DoerOption) *Trakt {
	return &Trakt{
		store:   store,
		apiKey:  apiKey,
		baseURL: defaultTraktURL,
		doer:    provider.NewDoer(media.Source("trakt"), opts...),
	}
}

type traktIDs struct {
	Trakt int    `json:"trakt"`
	TMDB  *int64 `json:"tmdb"`
}

type traktMedia struct {
	Title string   `json:"title"`
	Year  int      `json:"year"`
	IDs   traktIDs `json:"ids"`
}

type traktWatched struct {
	Plays         int32      `json:"plays"`
	LastWatchedAt time.Time  `json:"last_watched_at"`
	LastUpdatedAt time.Time  `json:"last_updated_at"`
	Movie         traktMedia `json:"movie"`
	Show          traktMedia `json:"show"`
	Seasons       []struct {
		Number   int32 `json:"number"`
		Episodes []struct {
			Number        int32     `json:"number"`
			Plays         int32     `json:"plays"`
			LastWatchedAt time.Time `json:"last_watched_at"`
		} `json:"episodes"`
	} `json:"seasons"`
}

type traktListed struct {
	Type     string     `json:"type"`
	ListedAt time.Time  `json:"listed_at"`
	RatedAt  time.Time  `json:"rated_at"`
	Rating   float64    `json:"rating"`
	Movie    traktMedia `json:"movie"`
	Show     traktMedia `json:"show"`
}

func (t *Trakt) Import(ctx context.Context, userID int64, username string, mode Mode) (*Result, error) {
	ratings, err := t.ratings(ctx, username)
	if err != nil {
		return nil, err
	}

	var watchedMovies, watchedShows []traktWatched
	if err := t.fetch(ctx, username, "watched/movies", &watchedMovies); err != nil {
		return nil, err
	}
	if err := t.fetch(ctx, username, "watched/shows", &watchedShows); err != nil {
		return nil, err
	}
	var watchlist []traktListed
	if err := t.fetch(ctx, username, "watchlist", &watchlist); err != nil {
		return nil, err
	}

	return runImport(ctx, t.store, "trakt", userID, mode, func(s *session) error {
		for _, w := range watchedMovies {
			entry, ok := t.movieEntry(s, w, ratings)
			if !ok {
				continue
			}
			if err := s.apply(ctx, *entry); err != nil {
				return err
			}
		}
		for _, w := range watchedShows {
			entry, ok := t.showEntry(s, w, ratings)
			if !ok {
				continue
			}
			if err := s.apply(ctx, *entry); err != nil {
				return err
			}
		}
		// watchlist last so items already imported as watched collapse
		for _, l := range watchlist {
			entry, ok := t.listedEntry(s, l)
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

func (t *Trakt) fetch(ctx context.Context, username, path string, dest any) error {
	endpoint := fmt.Sprintf("%s/users/%s/%s?extended=full", t.baseURL, url.PathEscape(username), path)
	header := http.Header{
		"trakt-api-version": {"2"},
		"trakt-api-key":     {t.apiKey},
	}
	if err := t.doer.JSON(ctx, http.MethodGet, endpoint, header, nil, dest); err != nil {
		if pErr, ok := provider.AsError(err); ok {
			return &Error{Source: "trakt", Message: fmt.Sprintf("fetching %s's %s", username, path), Err: fmt.Errorf("%s", pErr.Message)}
		}
		return err
	}
	return nil
}

// ratings keys scores by trakt id so watched and watchlist entries can
// carry them without a per-item request.
func (t *Trakt) ratings(ctx context.Context, username string) (map[int]float64, error) {
	var rated []traktListed
	if err := t.fetch(ctx, username, "ratings", &rated); err != nil {
		return nil, err
	}
	scores := make(map[int]float64, len(rated))
	for _, r := range rated {
		m := r.Movie
		if r.Type == "show" {
			m = r.Show
		}
		scores[m.IDs.Trakt] = r.Rating
	}
	return scores, nil
}

func traktItem(m traktMedia, mediaType media.Type) (model.Item, bool) {
	if m.IDs.TMDB == nil {
		return model.Item{}, false
	}
	return model.Item{
		MediaID:   strconv.FormatInt(*m.IDs.TMDB, 10),
		Source:    string(media.SourceTMDB),
		MediaType: string(mediaType),
		Title:     m.Title,
	}, true
}

func (t *Trakt) movieEntry(s *session, w traktWatched, scores map[int]float64) (*Entry, bool) {
	item, ok := traktItem(w.Movie, media.TypeMovie)
	if !ok {
		s.warns.addf("%q has no TMDB id on Trakt", w.Movie.Title)
		return nil, false
	}
	watched := w.LastWatchedAt
	entry := &Entry{
		Item:      item,
		Status:    media.StatusCompleted,
		Progress:  1,
		Repeats:   w.Plays - 1,
		EndDate:   &watched,
		UpdatedAt: w.LastUpdatedAt,
	}
	if score, ok := scores[w.Movie.IDs.Trakt]; ok {
		entry.Score = &score
	}
	return entry, true
}

func (t *Trakt) showEntry(s *session, w traktWatched, scores map[int]float64) (*Entry, bool) {
	item, ok := traktItem(w.Show, media.TypeTV)
	if !ok {
		s.warns.addf("%q has no TMDB id on Trakt", w.Show.Title)
		return nil, false
	}
	entry := &Entry{
		Item:      item,
		Status:    media.StatusInProgress,
		UpdatedAt: w.LastUpdatedAt,
	}
	if score, ok := scores[w.Show.IDs.Trakt]; ok {
		entry.Score = &score
	}
	for _, season := range w.Seasons {
		// specials carry no progress semantics
		if season.Number == 0 {
			continue
		}
		for _, ep := range season.Episodes {
			for play := int32(0); play < max(ep.Plays, 1); play++ {
				entry.Episodes = append(entry.Episodes, EpisodeWatch{
					SeasonNumber:  season.Number,
					EpisodeNumber: ep.Number,
					WatchedAt:     ep.LastWatchedAt,
				})
			}
		}
	}
	return entry, true
}

func (t *Trakt) listedEntry(s *session, l traktListed) (*Entry, bool) {
	m, mediaType := l.Movie, media.TypeMovie
	if l.Type == "show" {
		m, mediaType = l.Show, media.TypeTV
	} else if l.Type != "movie" {
		s.warns.addf("watchlist %s entries are not supported", l.Type)
		return nil, false
	}
	item, ok := traktItem(m, mediaType)
	if !ok {
		s.warns.addf("%q has no TMDB id on Trakt", m.Title)
		return nil, false
	}
	return &Entry{
		Item:      item,
		Status:    media.StatusPlanning,
		UpdatedAt: l.ListedAt,
	}, true
}
