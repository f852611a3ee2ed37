package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/trackarr/trackarr/pkg/media"
	"github.com/trackarr/trackarr/pkg/storage"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/model"
)

// CSV imports the tracker's own export format: one row per tracked media,
// plus one row per episode watch with media_type "episode".
type CSV struct {
	store storage.Storage
}

func NewCSV(store storage.Storage) *CSV {
	return &CSV{store: store}
}

const csvSource = "csv"

func (c *CSV) Import(ctx context.Context, userID int64, r io.Reader, mode Mode) (*Result, error) {
	rows, err := readRows(r)
	if err != nil {
		return nil, &Error{Source: csvSource, Message: "unreadable export", Err: err}
	}

	return runImport(ctx, c.store, csvSource, userID, mode, func(s *session) error {
		entries := map[string]*Entry{}
		var order []string

		for _, row := range rows {
			mediaType, err := media.ParseType(row.get("media_type"))
			if err != nil {
				s.warns.addf("skipped %q: %v", row.get("title"), err)
				continue
			}

			if mediaType == media.TypeEpisode {
				if err := attachEpisode(s, entries, &order, row); err != nil {
					s.warns.addf("skipped episode row for %q: %v", row.get("title"), err)
				}
				continue
			}
			if mediaType == media.TypeSeason {
				// season state is derived from episode rows on import
				continue
			}

			entry, err := rowEntry(row, mediaType)
			if err != nil {
				s.warns.addf("skipped %q: %v", row.get("title"), err)
				continue
			}
			key := entryKey(entry.Item)
			if _, ok := entries[key]; !ok {
				order = append(order, key)
			}
			entries[key] = entry
		}

		for _, key := range order {
			if err := s.apply(ctx, *entries[key]); err != nil {
				return err
			}
		}
		return nil
	})
}

func entryKey(item model.Item) string {
	return item.Source + "/" + item.MediaType + "/" + item.MediaID
}

func rowEntry(row csvRow, mediaType media.Type) (*Entry, error) {
	status, err := media.ParseStatus(statusLabel(row.get("status")))
	if err != nil {
		return nil, err
	}

	entry := &Entry{
		Item: model.Item{
			MediaID:   row.get("media_id"),
			Source:    row.get("source"),
			MediaType: string(mediaType),
			Title:     row.get("title"),
			Image:     row.get("image"),
		},
		Status: status,
		Notes:  row.get("notes"),
	}
	if entry.Item.MediaID == "" || entry.Item.Source == "" {
		return nil, fmt.Errorf("missing media id or source")
	}

	if v := row.get("progress"); v != "" {
		p, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("bad progress %q", v)
		}
		entry.Progress = int32(p)
	}
	if v := row.get("repeats"); v != "" {
		p, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("bad repeats %q", v)
		}
		entry.Repeats = int32(p)
	}
	if v := row.get("score"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("bad score %q", v)
		}
		entry.Score = &f
	}

	if entry.StartDate, err = parseDate(row.get("start_date")); err != nil {
		return nil, fmt.Errorf("bad start_date: %w", err)
	}
	if entry.EndDate, err = parseDate(row.get("end_date")); err != nil {
		return nil, fmt.Errorf("bad end_date: %w", err)
	}
	if at, err := parseDate(row.get("updated_at")); err == nil && at != nil {
		entry.UpdatedAt = *at
	}

	return entry, nil
}

// attachEpisode folds an episode watch row into its show's entry, creating a
// minimal in-progress show entry when the export has watches but no show row.
func attachEpisode(s *session, entries map[string]*Entry, order *[]string, row csvRow) error {
	seasonNumber, err := strconv.ParseInt(row.get("season_number"), 10, 32)
	if err != nil {
		return fmt.Errorf("bad season_number %q", row.get("season_number"))
	}
	episodeNumber, err := strconv.ParseInt(row.get("episode_number"), 10, 32)
	if err != nil {
		return fmt.Errorf("bad episode_number %q", row.get("episode_number"))
	}
	watchedAt, err := parseDate(row.get("end_date"))
	if err != nil || watchedAt == nil {
		return fmt.Errorf("bad end_date %q", row.get("end_date"))
	}

	showItem := model.Item{
		MediaID:   row.get("media_id"),
		Source:    row.get("source"),
		MediaType: string(media.TypeTV),
		Title:     row.get("title"),
	}
	key := entryKey(showItem)
	entry, ok := entries[key]
	if !ok {
		entry = &Entry{Item: showItem, Status: media.StatusInProgress, UpdatedAt: *watchedAt}
		entries[key] = entry
		*order = append(*order, key)
	}

	entry.Episodes = append(entry.Episodes, EpisodeWatch{
		SeasonNumber:  int32(seasonNumber),
		EpisodeNumber: int32(episodeNumber),
		WatchedAt:     *watchedAt,
	})
	return nil
}

// csvRow pairs a record with its header for name-based access.
type csvRow struct {
	header map[string]int
	record []string
}

func (r csvRow) get(column string) string {
	idx, ok := r.header[column]
	if !ok || idx >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[idx])
}

func readRows(r io.Reader) ([]csvRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	header := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}

	rows := make([]csvRow, 0, len(records)-1)
	for _, record := range records[1:] {
		rows = append(rows, csvRow{header: header, record: record})
	}
	return rows, nil
}
