package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-jet/jet/v2/sqlite"
	"github.com/trackarr/trackarr/pkg/logger"
	"github.com/trackarr/trackarr/pkg/media"
	"github.com/trackarr/trackarr/pkg/storage"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/model"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/table"
)

// Entry is one normalized imported record. UpdatedAt carries the external
// service's own timestamp; history rows are recorded at that time, not at
// import time.
type Entry struct {
	Item      model.Item
	Status    media.Status
	Progress  int32
	Score     *float64
	StartDate *time.Time
	EndDate   *time.Time
	Notes     string
	Repeats   int32
	UpdatedAt time.Time
	Episodes  []EpisodeWatch
}

// EpisodeWatch is one watched episode inside a tv entry.
type EpisodeWatch struct {
	SeasonNumber  int32
	EpisodeNumber int32
	Title         string
	WatchedAt     time.Time
}

// session applies entries for one import run inside one transaction.
type session struct {
	source string
	store  storage.Storage
	userID int64
	mode   Mode
	counts map[media.Type]int
	warns  warnings
}

func newSession(source string, store storage.Storage, userID int64, mode Mode) *session {
	return &session{
		source: source,
		store:  store,
		userID: userID,
		mode:   mode,
		counts: make(map[media.Type]int),
		warns:  warnings{},
	}
}

func (s *session) result() *Result {
	return &Result{Counts: s.counts, Warnings: s.warns.lines()}
}

// runImport wraps a source's entry production in one storage transaction.
// Any returned error rolls the whole run back, so a systemic failure commits
// nothing.
func runImport(ctx context.Context, store storage.Storage, source string, userID int64, mode Mode, fn func(s *session) error) (*Result, error) {
	var result *Result
	err := store.Tx(ctx, func(tx storage.Storage) error {
		s := newSession(source, tx, userID, mode)
		if err := fn(s); err != nil {
			return err
		}
		result = s.result()
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromCtx(ctx).Infow("import finished", "source", source, "counts", result.Counts, "warnings", len(result.Warnings))
	return result, nil
}

// apply reconciles one entry. In "new" mode an already-tracked item is
// skipped; in "overwrite" mode the existing row and its children are deleted
// first. Panics while processing become UnexpectedError carrying the entry.
func (s *session) apply(ctx context.Context, e Entry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &UnexpectedError{Source: s.source, Entry: e, Err: fmt.Errorf("%v", r)}
		}
	}()

	item, err := s.store.GetOrCreateItem(ctx, e.Item)
	if err != nil {
		return &UnexpectedError{Source: s.source, Entry: e, Err: err}
	}

	existing, err := s.store.GetMedia(ctx, table.Media.UserID.EQ(sqlite.Int64(s.userID)).
		AND(table.Media.ItemID.EQ(sqlite.Int32(item.ID))))
	switch {
	case err == nil:
		if s.mode == ModeNew {
			return nil
		}
		if err := s.store.DeleteMedia(ctx, int64(existing.Media.ID)); err != nil {
			return &UnexpectedError{Source: s.source, Entry: e, Err: err}
		}
	case !errors.Is(err, storage.ErrNotFound):
		return &UnexpectedError{Source: s.source, Entry: e, Err: err}
	}

	row := model.Media{
		ItemID:    item.ID,
		UserID:    int32(s.userID),
		MediaType: e.Item.MediaType,
		Status:    string(e.Status),
		Progress:  e.Progress,
		Score:     e.Score,
		StartDate: e.StartDate,
		EndDate:   e.EndDate,
		Notes:     e.Notes,
		Repeats:   e.Repeats,
	}
	id, err := s.store.CreateMedia(ctx, row)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			// two import rows collapsed onto one item
			return nil
		}
		return &UnexpectedError{Source: s.source, Entry: e, Err: err}
	}
	row.ID = int32(id)

	if err := s.recordImported(ctx, row, item.ID, e); err != nil {
		return &UnexpectedError{Source: s.source, Entry: e, Err: err}
	}

	if len(e.Episodes) > 0 {
		if err := s.applyEpisodes(ctx, e, item, row.ID); err != nil {
			return &UnexpectedError{Source: s.source, Entry: e, Err: err}
		}
	}

	s.counts[media.Type(e.Item.MediaType)]++
	return nil
}

// recordImported writes the entry's history at the external timestamp. A
// completed entry with repeats expands into one Completed history row per
// watch-through plus a final row matching the live status.
func (s *session) recordImported(ctx context.Context, row model.Media, itemID int32, e Entry) error {
	statuses := []media.Status{e.Status}
	if e.Repeats > 0 && (e.Status == media.StatusCompleted || e.Status == media.StatusRepeating) {
		statuses = nil
		for i := int32(0); i < e.Repeats; i++ {
			statuses = append(statuses, media.StatusCompleted)
		}
		statuses = append(statuses, e.Status)
	}

	recordedAt := e.UpdatedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	for _, status := range statuses {
		delta, err := json.Marshal(map[string]map[string]any{
			"status": {"old": nil, "new": string(status)},
		})
		if err != nil {
			return err
		}
		_, err = s.store.RecordHistory(ctx, model.History{
			UserID:     row.UserID,
			MediaType:  row.MediaType,
			MediaID:    &row.ID,
			ItemID:     itemID,
			Delta:      string(delta),
			RecordedAt: recordedAt,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// applyEpisodes materializes a tv entry's watch history: one season row per
// season with watches and one episode row per watch.
func (s *session) applyEpisodes(ctx context.Context, e Entry, showItem *model.Item, showID int32) error {
	bySeason := make(map[int32][]EpisodeWatch)
	for _, w := range e.Episodes {
		bySeason[w.SeasonNumber] = append(bySeason[w.SeasonNumber], w)
	}
	numbers := make([]int32, 0, len(bySeason))
	for n := range bySeason {
		numbers = append(numbers, n)
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })

	for _, n := range numbers {
		watches := bySeason[n]
		seasonNumber := n
		seasonItem, err := s.store.GetOrCreateItem(ctx, model.Item{
			MediaID:      showItem.MediaID,
			Source:       showItem.Source,
			MediaType:    string(media.TypeSeason),
			Title:        showItem.Title,
			Image:        showItem.Image,
			SeasonNumber: &seasonNumber,
		})
		if err != nil {
			return err
		}

		status := media.StatusInProgress
		if e.Status == media.StatusCompleted {
			status = media.StatusCompleted
		}
		last := watches[0].WatchedAt
		distinct := make(map[int32]struct{}, len(watches))
		for _, w := range watches {
			distinct[w.EpisodeNumber] = struct{}{}
			if w.WatchedAt.After(last) {
				last = w.WatchedAt
			}
		}

		seasonRow := model.Media{
			ItemID:      seasonItem.ID,
			UserID:      int32(s.userID),
			MediaType:   string(media.TypeSeason),
			Status:      string(status),
			Progress:    int32(len(distinct)),
			RelatedTvID: &showID,
		}
		seasonID, err := s.store.CreateMedia(ctx, seasonRow)
		if err != nil {
			return err
		}
		seasonRow.ID = int32(seasonID)
		if err := s.recordImported(ctx, seasonRow, seasonItem.ID, Entry{Status: status, UpdatedAt: last}); err != nil {
			return err
		}

		for _, w := range watches {
			episodeNumber := w.EpisodeNumber
			epItem, err := s.store.GetOrCreateItem(ctx, model.Item{
				MediaID:       showItem.MediaID,
				Source:        showItem.Source,
				MediaType:     string(media.TypeEpisode),
				Title:         w.Title,
				SeasonNumber:  &seasonNumber,
				EpisodeNumber: &episodeNumber,
			})
			if err != nil {
				return err
			}

			watchedAt := w.WatchedAt
			_, err = s.store.CreateEpisode(ctx, model.Episode{
				ItemID:   epItem.ID,
				SeasonID: seasonRow.ID,
				EndDate:  &watchedAt,
			})
			if err != nil && !errors.Is(err, storage.ErrDuplicate) {
				return err
			}
		}
	}
	return nil
}
