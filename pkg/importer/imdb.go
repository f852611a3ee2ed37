package importer

import (
	"context"
	"io"
	"strconv"

	"github.com/trackarr/trackarr/pkg/media"
	"github.com/trackarr/trackarr/pkg/provider"
	"github.com/trackarr/trackarr/pkg/storage"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/model"
)

// IMDB imports an IMDb ratings export. IMDb ids never reach the metadata
// layer, so each title is matched against TMDB by search; rating exports
// only contain finished titles, so everything lands as completed.
type IMDB struct {
	store     storage.Storage
	providers *provider.Registry
}

func NewIMDB(store storage.Storage, providers *provider.Registry) *IMDB {
	return &IMDB{store: store, providers: providers}
}

// imdbTypes maps IMDb's "Title Type" column onto local media types.
var imdbTypes = map[string]media.Type{
	"movie":          media.TypeMovie,
	"tv movie":       media.TypeMovie,
	"tv special":     media.TypeMovie,
	"tv series":      media.TypeTV,
	"tv mini series": media.TypeTV,
}

func (im *IMDB) Import(ctx context.Context, userID int64, r io.Reader, mode Mode) (*Result, error) {
	rows, err := readRows(r)
	if err != nil {
		return nil, &Error{Source: "imdb", Message: "unreadable ratings export", Err: err}
	}

	return runImport(ctx, im.store, "imdb", userID, mode, func(s *session) error {
		for _, row := range rows {
			entry, ok := im.entry(ctx, s, row)
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

func (im *IMDB) entry(ctx context.Context, s *session, row csvRow) (*Entry, bool) {
	title := row.get("title")
	mediaType, ok := imdbTypes[normalizeTitle(row.get("title type"))]
	if !ok {
		s.warns.addf("%s titles like %q are not supported", row.get("title type"), title)
		return nil, false
	}

	page, err := im.providers.Search(ctx, mediaType, media.SourceTMDB, title, 1)
	if err != nil {
		s.warns.addf("searching TMDB for %q: %v", title, err)
		return nil, false
	}
	match, ok := bestMatch(title, page.Results)
	if !ok {
		s.warns.addf("no TMDB match for %q", title)
		return nil, false
	}

	entry := &Entry{
		Item: model.Item{
			MediaID:   match.MediaID,
			Source:    string(match.Source),
			MediaType: string(mediaType),
			Title:     match.Title,
			Image:     match.Image,
		},
		Status: media.StatusCompleted,
	}
	if mediaType == media.TypeMovie {
		entry.Progress = 1
	}

	if v := row.get("your rating"); v != "" {
		score, err := strconv.ParseFloat(v, 64)
		if err != nil {
			s.warns.addf("%q has unreadable rating %q", title, v)
		} else {
			entry.Score = &score
		}
	}
	rated, err := parseDate(row.get("date rated"))
	if err != nil {
		s.warns.addf("%q has unreadable rating date %q", title, row.get("date rated"))
	} else if rated != nil {
		entry.EndDate = rated
		entry.UpdatedAt = *rated
	}
	return entry, true
}
