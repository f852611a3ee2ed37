package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/trackarr/trackarr/pkg/media"
	"github.com/trackarr/trackarr/pkg/provider"
	"github.com/trackarr/trackarr/pkg/storage"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/model"
)

const defaultAniListURL = "https://graphql.anilist.co"

// AniList imports a public AniList profile's anime and manga lists. Entries
// whose media carries no MyAnimeList id cannot map to the local MAL-keyed
// items and become warnings.
type AniList struct {
	store   storage.Storage
	baseURL string
	doer    *provider.Doer
}

func NewAniList(store storage.Storage, opts ...provider.DoerOption) *AniList {
	return &AniList{
		store:   store,
		baseURL: defaultAniListURL,
		doer:    provider.NewDoer(media.Source("anilist"), opts...),
	}
}

const anilistQuery = `query ($userName: String!) {
  anime: MediaListCollection(userName: $userName, type: ANIME) {
    lists { entries { ...entry } }
  }
  manga: MediaListCollection(userName: $userName, type: MANGA) {
    lists { entries { ...entry } }
  }
}
fragment entry on MediaList {
  status
  progress
  repeat
  notes
  score(format: POINT_10_DECIMAL)
  startedAt { year month day }
  completedAt { year month day }
  updatedAt
  media {
    idMal
    title { userPreferred }
    coverImage { large }
  }
}`

type anilistEntry struct {
	Status      string      `json:"status"`
	Progress    int32       `json:"progress"`
	Repeat      int32       `json:"repeat"`
	Notes       string      `json:"notes"`
	Score       float64     `json:"score"`
	StartedAt   anilistDate `json:"startedAt"`
	CompletedAt anilistDate `json:"completedAt"`
	UpdatedAt   int64       `json:"updatedAt"`
	Media       struct {
		IDMal *int64 `json:"idMal"`
		Title struct {
			UserPreferred string `json:"userPreferred"`
		} `json:"title"`
		CoverImage struct {
			Large string `json:"large"`
		} `json:"coverImage"`
	} `json:"media"`
}

type anilistDate struct {
	Year  *int `json:"year"`
	Month *int `json:"month"`
	Day   *int `json:"day"`
}

func (d anilistDate) time() *time.Time {
	if d.Year == nil {
		return nil
	}
	month, day := 1, 1
	if d.Month != nil {
		month = *d.Month
	}
	if d.Day != nil {
		day = *d.Day
	}
	t := time.Date(*d.Year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return &t
}

// anilist statuses to local ones
var anilistStatuses = map[string]media.Status{
	"CURRENT":   media.StatusInProgress,
	"PLANNING":  media.StatusPlanning,
	"COMPLETED": media.StatusCompleted,
	"DROPPED":   media.StatusDropped,
	"PAUSED":    media.StatusPaused,
	"REPEATING": media.StatusRepeating,
}

func (a *AniList) Import(ctx context.Context, userID int64, username string, mode Mode) (*Result, error) {
	payload, err := json.Marshal(map[string]any{
		"query":     anilistQuery,
		"variables": map[string]string{"userName": username},
	})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data map[string]struct {
			Lists []struct {
				Entries []anilistEntry `json:"entries"`
			} `json:"lists"`
		} `json:"data"`
	}
	header := http.Header{"Content-Type": {"application/json"}}
	if err := a.doer.JSON(ctx, http.MethodPost, a.baseURL, header, payload, &resp); err != nil {
		if pErr, ok := provider.AsError(err); ok {
			return nil, &Error{Source: "anilist", Message: fmt.Sprintf("fetching %s's lists", username), Err: fmt.Errorf("%s", pErr.Message)}
		}
		return nil, err
	}

	return runImport(ctx, a.store, "anilist", userID, mode, func(s *session) error {
		for key, mediaType := range map[string]media.Type{"anime": media.TypeAnime, "manga": media.TypeManga} {
			for _, list := range resp.Data[key].Lists {
				for _, raw := range list.Entries {
					entry, ok := a.entry(s, raw, mediaType)
					if !ok {
						continue
					}
					if err := s.apply(ctx, *entry); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
}

func (a *AniList) entry(s *session, raw anilistEntry, mediaType media.Type) (*Entry, bool) {
	title := raw.Media.Title.UserPreferred
	if raw.Media.IDMal == nil {
		s.warns.addf("%q has no MyAnimeList id on AniList", title)
		return nil, false
	}
	status, ok := anilistStatuses[raw.Status]
	if !ok {
		s.warns.addf("%q has unknown AniList status %q", title, raw.Status)
		return nil, false
	}

	entry := &Entry{
		Item: model.Item{
			MediaID:   strconv.FormatInt(*raw.Media.IDMal, 10),
			Source:    string(media.SourceMAL),
			MediaType: string(mediaType),
			Title:     title,
			Image:     raw.Media.CoverImage.Large,
		},
		Status:    status,
		Progress:  raw.Progress,
		Notes:     raw.Notes,
		Repeats:   raw.Repeat,
		StartDate: raw.StartedAt.time(),
		EndDate:   raw.CompletedAt.time(),
		UpdatedAt: time.Unix(raw.UpdatedAt, 0).UTC(),
	}
	if raw.Score > 0 {
		score := raw.Score
		entry.Score = &score
	}
	return entry, true
}
