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

const (
	defaultMALURL = "https://api.myanimelist.net/v2"
	malPageSize   = 100
)

// MAL imports a MyAnimeList user's anime and manga lists via the v2 API.
// Private lists come back as 403 and surface as a run-level error.
type MAL struct {
	store    storage.Storage
	clientID string
	baseURL  string
	doer     *provider.Doer
}

func NewMAL(store storage.Storage, clientID string, opts ...provider.DoerOption) *MAL {
	return &MAL{
		store:    store,
		clientID: clientID,
		baseURL:  defaultMALURL,
		doer:     provider.NewDoer(media.SourceMAL, opts...),
	}
}

type malListStatus struct {
	Status          string  `json:"status"`
	Score           float64 `json:"score"`
	EpisodesWatched int32   `json:"num_episodes_watched"`
	ChaptersRead    int32   `json:"num_chapters_read"`
	IsRewatching    bool    `json:"is_rewatching"`
	IsRereading     bool    `json:"is_rereading"`
	TimesRewatched  int32   `json:"num_times_rewatched"`
	TimesReread     int32   `json:"num_times_reread"`
	StartDate       string  `json:"start_date"`
	FinishDate      string  `json:"finish_date"`
	UpdatedAt       string  `json:"updated_at"`
	Comments        string  `json:"comments"`
}

type malListPage struct {
	Data []struct {
		Node struct {
			ID          int    `json:"id"`
			Title       string `json:"title"`
			MainPicture struct {
				Large  string `json:"large"`
				Medium string `json:"medium"`
			} `json:"main_picture"`
		} `json:"node"`
		ListStatus malListStatus `json:"list_status"`
	} `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
}

var malStatuses = map[string]media.Status{
	"watching":      media.StatusInProgress,
	"reading":       media.StatusInProgress,
	"plan_to_watch": media.StatusPlanning,
	"plan_to_read":  media.StatusPlanning,
	"completed":     media.StatusCompleted,
	"dropped":       media.StatusDropped,
	"on_hold":       media.StatusPaused,
}

func (m *MAL) Import(ctx context.Context, userID int64, username string, mode Mode) (*Result, error) {
	return runImport(ctx, m.store, "mal", userID, mode, func(s *session) error {
		for _, mediaType := range []media.Type{media.TypeAnime, media.TypeManga} {
			if err := m.importList(ctx, s, username, mediaType); err != nil {
				return err
			}
		}
		return nil
	})
}

func (m *MAL) importList(ctx context.Context, s *session, username string, mediaType media.Type) error {
	kind, listField := "animelist", "list_status"
	if mediaType == media.TypeManga {
		kind = "mangalist"
	}

	endpoint := fmt.Sprintf("%s/users/%s/%s?%s", m.baseURL, url.PathEscape(username), kind, url.Values{
		"fields": {listField + "{num_times_rewatched,num_times_reread,comments,start_date,finish_date,updated_at}"},
		"limit":  {strconv.Itoa(malPageSize)},
		"nsfw":   {"true"},
	}.Encode())

	header := http.Header{"X-MAL-CLIENT-ID": {m.clientID}}
	for endpoint != "" {
		var page malListPage
		if err := m.doer.JSON(ctx, http.MethodGet, endpoint, header, nil, &page); err != nil {
			if pErr, ok := provider.AsError(err); ok {
				msg := fmt.Sprintf("fetching %s's %s", username, kind)
				if pErr.StatusCode == http.StatusForbidden {
					msg = fmt.Sprintf("%s's %s is private", username, kind)
				}
				return &Error{Source: "mal", Message: msg, Err: fmt.Errorf("%s", pErr.Message)}
			}
			return err
		}

		for _, row := range page.Data {
			entry, ok := m.entry(s, row.Node.ID, row.Node.Title, row.Node.MainPicture.Large, row.ListStatus, mediaType)
			if !ok {
				continue
			}
			if err := s.apply(ctx, *entry); err != nil {
				return err
			}
		}
		endpoint = page.Paging.Next
	}
	return nil
}

func (m *MAL) entry(s *session, id int, title, image string, ls malListStatus, mediaType media.Type) (*Entry, bool) {
	status, ok := malStatuses[ls.Status]
	if !ok {
		s.warns.addf("%q has unknown MyAnimeList status %q", title, ls.Status)
		return nil, false
	}
	if ls.IsRewatching || ls.IsRereading {
		status = media.StatusRepeating
	}

	progress, repeats := ls.EpisodesWatched, ls.TimesRewatched
	if mediaType == media.TypeManga {
		progress, repeats = ls.ChaptersRead, ls.TimesReread
	}

	entry := &Entry{
		Item: model.Item{
			MediaID:   strconv.Itoa(id),
			Source:    string(media.SourceMAL),
			MediaType: string(mediaType),
			Title:     title,
			Image:     image,
		},
		Status:   status,
		Progress: progress,
		Notes:    ls.Comments,
		Repeats:  repeats,
	}
	if ls.Score > 0 {
		score := ls.Score
		entry.Score = &score
	}

	var err error
	if entry.StartDate, err = parseDate(ls.StartDate); err != nil {
		s.warns.addf("%q has unreadable start date %q", title, ls.StartDate)
	}
	if entry.EndDate, err = parseDate(ls.FinishDate); err != nil {
		s.warns.addf("%q has unreadable finish date %q", title, ls.FinishDate)
	}
	if updated, err := time.Parse(time.RFC3339, ls.UpdatedAt); err == nil {
		entry.UpdatedAt = updated.UTC()
	}
	return entry, true
}
