package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/go-jet/jet/v2/sqlite"
	"github.com/trackarr/trackarr/pkg/logger"
	"github.com/trackarr/trackarr/pkg/media"
	"github.com/trackarr/trackarr/pkg/provider"
	"github.com/trackarr/trackarr/pkg/storage"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/model"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/table"
)

// WatchEpisode records a watch of one episode at the given time, creating
// the show and season tracking rows on first contact and cascading season
// and show status upward. A second watch of an already-watched episode is a
// repeat and needs a distinct watchedAt, the same timestamp twice is a
// caller error surfaced as storage.ErrDuplicate.
func (t *Tracker) WatchEpisode(ctx context.Context, userID int64, ref Ref, watchedAt time.Time) error {
	if ref.SeasonNumber == nil || ref.EpisodeNumber == nil {
		return fmt.Errorf("watching %s requires season and episode numbers", ref)
	}
	if watchedAt.IsZero() {
		watchedAt = time.Now()
	}

	// Manual shows have no provider declaring their episodes: the episode
	// item is allocated at first watch so the synthesized payload below
	// carries it.
	if ref.source() == media.SourceManual {
		title := fmt.Sprintf("Episode %d", *ref.EpisodeNumber)
		if _, err := t.manual.NextEpisodeItem(ctx, ref.MediaID, title, *ref.SeasonNumber, *ref.EpisodeNumber); err != nil {
			return err
		}
	}

	episodeMeta, err := t.providers.GetMetadata(ctx, media.TypeEpisode, ref.Source, ref.MediaID, ref.SeasonNumber, ref.EpisodeNumber)
	if err != nil {
		return err
	}
	showMeta, err := t.providers.GetMetadata(ctx, media.TypeTV, ref.Source, ref.MediaID, nil, nil)
	if err != nil {
		return err
	}
	seasonMeta := showMeta.Seasons[*ref.SeasonNumber]

	return t.store.Tx(ctx, func(store storage.Storage) error {
		h, err := t.ensureSeason(ctx, store, userID, ref, showMeta, seasonMeta)
		if err != nil {
			return err
		}

		epItem, err := resolveItem(ctx, store, ref, episodeMeta)
		if err != nil {
			return err
		}
		id, err := store.CreateEpisode(ctx, model.Episode{
			ItemID:   epItem.ID,
			SeasonID: h.season.Media.ID,
			EndDate:  &watchedAt,
		})
		if err != nil {
			return err
		}

		episodeID := int32(id)
		watched := Delta{"end_date": {Old: nil, New: watchedAt.Format(time.RFC3339)}}
		if err := recordWatch(ctx, store, userID, epItem, &episodeID, watched, watchedAt); err != nil {
			return err
		}

		if err := t.recomputeSeason(ctx, store, h.season, seasonMeta, watchedAt); err != nil {
			return err
		}
		season, err := store.GetMedia(ctx, table.Media.ID.EQ(sqlite.Int32(h.season.Media.ID)))
		if err != nil {
			return err
		}
		if err := t.cascadeSeasonToShow(ctx, store, userID, h.showItem, showMeta, media.Status(season.Media.Status), watchedAt); err != nil {
			return err
		}
		return refreshEvents(ctx, store, h.showItem, showMeta, media.Status(season.Media.Status))
	})
}

// UnwatchEpisode removes the most recent watch of an episode. Season and
// show statuses never regress from an unwatch, only the derived counters
// move.
func (t *Tracker) UnwatchEpisode(ctx context.Context, userID int64, ref Ref) error {
	if ref.SeasonNumber == nil || ref.EpisodeNumber == nil {
		return fmt.Errorf("unwatching %s requires season and episode numbers", ref)
	}

	return t.store.Tx(ctx, func(store storage.Storage) error {
		epItem, err := getItem(ctx, store, ref)
		if err != nil {
			return storage.ErrEpisodeNotFound
		}
		seasonRef := Ref{MediaType: media.TypeSeason, Source: ref.Source, MediaID: ref.MediaID, SeasonNumber: ref.SeasonNumber}
		seasonItem, err := getItem(ctx, store, seasonRef)
		if err != nil {
			return err
		}
		season, err := store.GetMedia(ctx, mediaWhere(userID, seasonItem.ID))
		if err != nil {
			return err
		}

		removed, err := store.DeleteLatestEpisode(ctx, int64(epItem.ID), int64(season.Media.ID))
		if err != nil {
			return err
		}

		var when any
		if removed.Episode.EndDate != nil {
			when = removed.Episode.EndDate.Format(time.RFC3339)
		}
		unwatched := Delta{"end_date": {Old: when, New: nil}}
		if err := recordWatch(ctx, store, userID, epItem, nil, unwatched, time.Now()); err != nil {
			return err
		}

		tree, err := store.GetSeason(ctx, storage.SeasonMedia.ID.EQ(sqlite.Int32(season.Media.ID)))
		if err != nil {
			return err
		}
		next := season.Media
		next.Progress = tree.WatchedProgress()
		next.Repeats = tree.WatchedRepeats()
		_, err = saveMedia(ctx, store, season, next, time.Now())
		return err
	})
}

// recomputeSeason refreshes a season's derived counters after a watch and
// applies the auto transitions: completion when every provider episode has a
// watch, Repeating when a rewatch cycle is underway, and the initial move
// out of Planning.
func (t *Tracker) recomputeSeason(ctx context.Context, store storage.Storage, season *storage.Media, seasonMeta *provider.SeasonMetadata, at time.Time) error {
	tree, err := store.GetSeason(ctx, storage.SeasonMedia.ID.EQ(sqlite.Int32(season.Media.ID)))
	if err != nil {
		return err
	}

	distinct := tree.WatchedProgress()
	total := int32(len(seasonMeta.Episodes))
	full, cycling := watchCycles(tree, seasonMeta)

	next := season.Media
	next.Progress = distinct
	if full >= 1 {
		next.Repeats = full - 1
	}

	current := media.Status(season.Media.Status)
	switch {
	case cycling && (current == media.StatusCompleted || current == media.StatusRepeating):
		next.Status = string(media.StatusRepeating)
	case total > 0 && distinct == total:
		next.Status = string(media.StatusCompleted)
		if next.EndDate == nil {
			next.EndDate = &at
		}
	case current == media.StatusPlanning && distinct > 0:
		next.Status = string(media.StatusInProgress)
		if next.StartDate == nil {
			next.StartDate = &at
		}
	}

	changed, err := applyCascade(ctx, store, season, next, at)
	if err != nil {
		return err
	}
	if changed {
		logger.FromCtx(ctx).Debugw("season recomputed",
			"season", season.Item.Title, "progress", distinct, "status", next.Status)
	}
	return nil
}

// watchCycles reports how many complete watch-throughs the season's episode
// rows represent and whether a further cycle has started. A cycle counts
// only when every provider-listed episode reaches that watch count.
func watchCycles(tree *storage.Season, seasonMeta *provider.SeasonMetadata) (full int32, cycling bool) {
	if len(seasonMeta.Episodes) == 0 {
		return 0, false
	}

	counts := make(map[int32]int32, len(tree.Episodes))
	for _, e := range tree.Episodes {
		if e.Item.EpisodeNumber != nil {
			counts[*e.Item.EpisodeNumber]++
		}
	}

	min := counts[seasonMeta.Episodes[0].EpisodeNumber]
	var max int32
	for _, em := range seasonMeta.Episodes {
		c := counts[em.EpisodeNumber]
		if c < min {
			min = c
		}
		if c > max {
			max = c
		}
	}
	return min, max > min && min >= 1
}

// SetProgress sets absolute progress on a flat media variant. Values above
// the provider total clamp silently; hitting the total completes the media
// and stamps the end date.
func (t *Tracker) SetProgress(ctx context.Context, userID int64, ref Ref, progress int32) (*storage.Media, error) {
	switch ref.MediaType {
	case media.TypeTV, media.TypeSeason, media.TypeEpisode:
		return nil, fmt.Errorf("progress on %s is derived from episode watches", ref.MediaType.Label())
	}

	meta, err := t.providers.GetMetadata(ctx, ref.MediaType, ref.Source, ref.MediaID, nil, nil)
	if err != nil {
		return nil, err
	}

	var out *storage.Media
	err = t.store.Tx(ctx, func(store storage.Storage) error {
		item, err := resolveItem(ctx, store, ref, meta)
		if err != nil {
			return err
		}
		m, _, err := ensureMedia(ctx, store, userID, item, media.StatusPlanning, nil)
		if err != nil {
			return err
		}

		if progress < 0 {
			progress = 0
		}
		if meta.MaxProgress != nil && progress > *meta.MaxProgress {
			progress = *meta.MaxProgress
		}

		now := time.Now()
		next := m.Media
		next.Progress = progress
		if meta.MaxProgress != nil && *meta.MaxProgress > 0 && progress == *meta.MaxProgress {
			next.Status = string(media.StatusCompleted)
			if next.EndDate == nil {
				next.EndDate = &now
			}
		} else if progress > 0 && media.Status(next.Status) == media.StatusPlanning {
			next.Status = string(media.StatusInProgress)
			if next.StartDate == nil {
				next.StartDate = &now
			}
		}

		if _, err := saveMedia(ctx, store, m, next, now); err != nil {
			return err
		}
		out, err = store.GetMedia(ctx, table.Media.ID.EQ(sqlite.Int32(m.Media.ID)))
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// IncreaseProgress steps progress forward by the type's unit: one episode or
// chapter, thirty minutes of playtime for games.
func (t *Tracker) IncreaseProgress(ctx context.Context, userID int64, ref Ref) (*storage.Media, error) {
	return t.stepProgress(ctx, userID, ref, int32(ref.MediaType.ProgressStep()))
}

// DecreaseProgress steps progress backward by the type's unit, clamped at
// zero.
func (t *Tracker) DecreaseProgress(ctx context.Context, userID int64, ref Ref) (*storage.Media, error) {
	return t.stepProgress(ctx, userID, ref, -int32(ref.MediaType.ProgressStep()))
}

func (t *Tracker) stepProgress(ctx context.Context, userID int64, ref Ref, step int32) (*storage.Media, error) {
	item, err := getItem(ctx, t.store, ref)
	if err != nil {
		return nil, err
	}
	m, err := t.store.GetMedia(ctx, mediaWhere(userID, item.ID))
	if err != nil {
		return nil, err
	}
	return t.SetProgress(ctx, userID, ref, m.Media.Progress+step)
}
