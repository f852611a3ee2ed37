package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/trackarr/trackarr/pkg/media"
	"github.com/trackarr/trackarr/pkg/provider"
	"github.com/trackarr/trackarr/pkg/storage"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/model"
)

const (
	defaultKitsuURL = "https://kitsu.io/api/edge"
	kitsuPageSize   = 500
)

// Kitsu imports a Kitsu user's anime and manga libraries. Kitsu speaks
// JSON:API, so media attributes and MyAnimeList id mappings arrive as
// side-loaded included resources keyed by type and id.
type Kitsu struct {
	store   storage.Storage
	baseURL string
	doer    *provider.Doer
}

func NewKitsu(store storage.Storage, opts ...provider.DoerOption) *Kitsu {
	return &Kitsu{
		store:   store,
		baseURL: defaultKitsuURL,
		doer:    provider.NewDoer(media.Source("kitsu"), opts...),
	}
}

var kitsuStatuses = map[string]media.Status{
	"current":   media.StatusInProgress,
	"planned":   media.StatusPlanning,
	"completed": media.StatusCompleted,
	"on_hold":   media.StatusPaused,
	"dropped":   media.StatusDropped,
}

type kitsuResource struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Attributes struct {
		// library-entries
		Status         string     `json:"status"`
		Progress       int32      `json:"progress"`
		RatingTwenty   *float64   `json:"ratingTwenty"`
		Reconsuming    bool       `json:"reconsuming"`
		ReconsumeCount int32      `json:"reconsumeCount"`
		Notes          string     `json:"notes"`
		StartedAt      *time.Time `json:"startedAt"`
		FinishedAt     *time.Time `json:"finishedAt"`
		ProgressedAt   *time.Time `json:"progressedAt"`

		// anime and manga
		CanonicalTitle string `json:"canonicalTitle"`
		PosterImage    struct {
			Medium string `json:"medium"`
		} `json:"posterImage"`

		// mappings
		ExternalSite string `json:"externalSite"`
		ExternalID   string `json:"externalId"`
	} `json:"attributes"`
	Relationships map[string]struct {
		Data json.RawMessage `json:"data"`
	} `json:"relationships"`
}

type kitsuPage struct {
	Data     []kitsuResource `json:"data"`
	Included []kitsuResource `json:"included"`
	Links    struct {
		Next string `json:"next"`
	} `json:"links"`
}

func (k *Kitsu) Import(ctx context.Context, userID int64, username string, mode Mode) (*Result, error) {
	kitsuUserID, err := k.lookupUser(ctx, username)
	if err != nil {
		return nil, err
	}

	return runImport(ctx, k.store, "kitsu", userID, mode, func(s *session) error {
		for _, kind := range []string{"anime", "manga"} {
			if err := k.importLibrary(ctx, s, kitsuUserID, kind); err != nil {
				return err
			}
		}
		return nil
	})
}

func (k *Kitsu) lookupUser(ctx context.Context, username string) (string, error) {
	endpoint := fmt.Sprintf("%s/users?%s", k.baseURL, url.Values{"filter[name]": {username}}.Encode())
	var page kitsuPage
	if err := k.doer.JSON(ctx, http.MethodGet, endpoint, nil, nil, &page); err != nil {
		if pErr, ok := provider.AsError(err); ok {
			return "", &Error{Source: "kitsu", Message: fmt.Sprintf("looking up %s", username), Err: fmt.Errorf("%s", pErr.Message)}
		}
		return "", err
	}
	if len(page.Data) == 0 {
		return "", &Error{Source: "kitsu", Message: fmt.Sprintf("no Kitsu user named %s", username)}
	}
	return page.Data[0].ID, nil
}

func (k *Kitsu) importLibrary(ctx context.Context, s *session, kitsuUserID, kind string) error {
	mediaType := media.TypeAnime
	if kind == "manga" {
		mediaType = media.TypeManga
	}

	endpoint := fmt.Sprintf("%s/library-entries?%s", k.baseURL, url.Values{
		"filter[user_id]": {kitsuUserID},
		"filter[kind]":    {kind},
		"include":         {kind + "," + kind + ".mappings"},
		"page[limit]":     {fmt.Sprint(kitsuPageSize)},
	}.Encode())

	for endpoint != "" {
		var page kitsuPage
		if err := k.doer.JSON(ctx, http.MethodGet, endpoint, nil, nil, &page); err != nil {
			if pErr, ok := provider.AsError(err); ok {
				return &Error{Source: "kitsu", Message: "fetching " + kind + " library", Err: fmt.Errorf("%s", pErr.Message)}
			}
			return err
		}

		included := indexKitsu(page.Included)
		for _, raw := range page.Data {
			entry, ok := k.entry(s, raw, included, kind, mediaType)
			if !ok {
				continue
			}
			if err := s.apply(ctx, *entry); err != nil {
				return err
			}
		}
		endpoint = page.Links.Next
	}
	return nil
}

// indexKitsu keys side-loaded resources by "type/id" and groups mapping
// resources under their owning media the same way.
func indexKitsu(included []kitsuResource) map[string]kitsuResource {
	index := make(map[string]kitsuResource, len(included))
	for _, r := range included {
		index[r.Type+"/"+r.ID] = r
	}
	return index
}

type kitsuRef struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

func (k *Kitsu) entry(s *session, raw kitsuResource, included map[string]kitsuResource, kind string, mediaType media.Type) (*Entry, bool) {
	rel, ok := raw.Relationships[kind]
	if !ok {
		return nil, false
	}
	var ref kitsuRef
	if err := json.Unmarshal(rel.Data, &ref); err != nil {
		return nil, false
	}
	mediaRes, ok := included[ref.Type+"/"+ref.ID]
	if !ok {
		return nil, false
	}
	title := mediaRes.Attributes.CanonicalTitle

	status, ok := kitsuStatuses[raw.Attributes.Status]
	if !ok {
		s.warns.addf("%q has unknown Kitsu status %q", title, raw.Attributes.Status)
		return nil, false
	}
	if raw.Attributes.Reconsuming {
		status = media.StatusRepeating
	}

	malID := k.malID(mediaRes, included, kind)
	if malID == "" {
		s.warns.addf("%q has no MyAnimeList mapping on Kitsu", title)
		return nil, false
	}

	entry := &Entry{
		Item: model.Item{
			MediaID:   malID,
			Source:    string(media.SourceMAL),
			MediaType: string(mediaType),
			Title:     title,
			Image:     mediaRes.Attributes.PosterImage.Medium,
		},
		Status:    status,
		Progress:  raw.Attributes.Progress,
		Notes:     raw.Attributes.Notes,
		Repeats:   raw.Attributes.ReconsumeCount,
		StartDate: raw.Attributes.StartedAt,
		EndDate:   raw.Attributes.FinishedAt,
	}
	if raw.Attributes.ProgressedAt != nil {
		entry.UpdatedAt = raw.Attributes.ProgressedAt.UTC()
	}
	if raw.Attributes.RatingTwenty != nil {
		score := *raw.Attributes.RatingTwenty / 2
		entry.Score = &score
	}
	return entry, true
}

// malID walks the media's mapping relationship for the myanimelist entry.
func (k *Kitsu) malID(mediaRes kitsuResource, included map[string]kitsuResource, kind string) string {
	rel, ok := mediaRes.Relationships["mappings"]
	if !ok {
		return ""
	}
	var refs []kitsuRef
	if err := json.Unmarshal(rel.Data, &refs); err != nil {
		return ""
	}
	for _, ref := range refs {
		mapping, ok := included[ref.Type+"/"+ref.ID]
		if !ok {
			continue
		}
		if mapping.Attributes.ExternalSite == "myanimelist/"+kind {
			return mapping.Attributes.ExternalID
		}
	}
	return ""
}
