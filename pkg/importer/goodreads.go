package importer

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/trackarr/trackarr/pkg/media"
	"github.com/trackarr/trackarr/pkg/provider"
	"github.com/trackarr/trackarr/pkg/storage"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/model"
)

// Goodreads imports a Goodreads library export. Books are matched against
// Open Library by title search since Goodreads ids have no mapping there.
type Goodreads struct {
	store     storage.Storage
	providers *provider.Registry
}

func NewGoodreads(store storage.Storage, providers *provider.Registry) *Goodreads {
	return &Goodreads{store: store, providers: providers}
}

// goodreadsShelves maps the exclusive shelf column onto statuses. Custom
// shelves fall outside the three built-ins and are skipped with a warning.
var goodreadsShelves = map[string]media.Status{
	"read":              media.StatusCompleted,
	"currently-reading": media.StatusInProgress,
	"to-read":           media.StatusPlanning,
}

func (g *Goodreads) Import(ctx context.Context, userID int64, r io.Reader, mode Mode) (*Result, error) {
	rows, err := readRows(r)
	if err != nil {
		return nil, &Error{Source: "goodreads", Message: "unreadable library export", Err: err}
	}

	return runImport(ctx, g.store, "goodreads", userID, mode, func(s *session) error {
		for _, row := range rows {
			entry, ok := g.entry(ctx, s, row)
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

func (g *Goodreads) entry(ctx context.Context, s *session, row csvRow) (*Entry, bool) {
	title := row.get("title")
	status, ok := goodreadsShelves[strings.ToLower(row.get("exclusive shelf"))]
	if !ok {
		s.warns.addf("%q sits on unsupported shelf %q", title, row.get("exclusive shelf"))
		return nil, false
	}

	page, err := g.providers.Search(ctx, media.TypeBook, media.SourceOpenLibrary, title, 1)
	if err != nil {
		s.warns.addf("searching Open Library for %q: %v", title, err)
		return nil, false
	}
	match, ok := bestMatch(title, page.Results)
	if !ok {
		s.warns.addf("no Open Library match for %q", title)
		return nil, false
	}

	entry := &Entry{
		Item: model.Item{
			MediaID:   match.MediaID,
			Source:    string(match.Source),
			MediaType: string(media.TypeBook),
			Title:     match.Title,
			Image:     match.Image,
		},
		Status: status,
		Notes:  row.get("my review"),
	}

	if status == media.StatusCompleted {
		if pages, err := strconv.ParseInt(row.get("number of pages"), 10, 32); err == nil {
			entry.Progress = int32(pages)
		}
		if reads, err := strconv.ParseInt(row.get("read count"), 10, 32); err == nil && reads > 1 {
			entry.Repeats = int32(reads - 1)
		}
	}
	if rating, err := strconv.ParseFloat(row.get("my rating"), 64); err == nil && rating > 0 {
		// goodreads rates out of five stars
		score := rating * 2
		entry.Score = &score
	}
	if read, err := parseDate(row.get("date read")); err == nil && read != nil {
		entry.EndDate = read
		entry.UpdatedAt = *read
	}
	if added, err := parseDate(row.get("date added")); err == nil && added != nil && entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = *added
	}
	return entry, true
}
