package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/go-jet/jet/v2/sqlite"
	"github.com/trackarr/trackarr/pkg/logger"
	"github.com/trackarr/trackarr/pkg/machine"
	"github.com/trackarr/trackarr/pkg/media"
	"github.com/trackarr/trackarr/pkg/provider"
	"github.com/trackarr/trackarr/pkg/storage"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/model"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/table"
)

// cascadeMachine validates engine-driven transitions. Users may set any
// status directly; cascades move through this table so a logic bug surfaces
// as machine.ErrInvalidTransition instead of silently corrupting a tree.
func cascadeMachine(current media.Status) *machine.StateMachine[media.Status] {
	return machine.New(current,
		machine.From(media.StatusPlanning).To(media.StatusInProgress, media.StatusCompleted, media.StatusDropped),
		machine.From(media.StatusInProgress).To(media.StatusCompleted, media.StatusDropped),
		machine.From(media.StatusPaused).To(media.StatusInProgress, media.StatusCompleted, media.StatusDropped),
		machine.From(media.StatusDropped).To(media.StatusInProgress, media.StatusCompleted),
		machine.From(media.StatusCompleted).To(media.StatusRepeating),
		machine.From(media.StatusRepeating).To(media.StatusCompleted, media.StatusDropped),
	)
}

// applyCascade persists an engine-driven mutation, validating any status
// change against the cascade machine first.
func applyCascade(ctx context.Context, store storage.Storage, m *storage.Media, next model.Media, at time.Time) (bool, error) {
	if next.Status != m.Media.Status {
		if err := cascadeMachine(media.Status(m.Media.Status)).ToState(media.Status(next.Status)); err != nil {
			return false, fmt.Errorf("cascading %s from %s to %s: %w", m.Item.Title, m.Media.Status, next.Status, err)
		}
	}
	return saveMedia(ctx, store, m, next, at)
}

// SetStatus sets the tracking status of a piece of media, creating the
// tracking row on first use and running the variant's cascade side effects.
// Metadata resolves before the transaction opens: providers are network-bound
// or read the store themselves, and the write connection must stay free while
// they run. Every write then commits or rolls back as one transaction.
func (t *Tracker) SetStatus(ctx context.Context, userID int64, ref Ref, status media.Status) (*storage.Media, error) {
	if _, err := media.ParseStatus(string(status)); err != nil {
		return nil, err
	}
	if ref.MediaType == media.TypeEpisode {
		return nil, fmt.Errorf("episodes are watched and unwatched, not status-tracked")
	}

	var (
		meta       *provider.Metadata
		seasonMeta *provider.SeasonMetadata
		err        error
	)
	switch ref.MediaType {
	case media.TypeTV:
		meta, err = t.providers.GetMetadata(ctx, media.TypeTV, ref.Source, ref.MediaID, nil, nil)
	case media.TypeSeason:
		if ref.SeasonNumber == nil {
			return nil, fmt.Errorf("season status for %s requires a season number", ref)
		}
		meta, err = t.providers.GetMetadata(ctx, media.TypeTV, ref.Source, ref.MediaID, nil, nil)
		if err != nil {
			return nil, err
		}
		var seasonPayload *provider.Metadata
		seasonPayload, err = t.providers.GetMetadata(ctx, media.TypeSeason, ref.Source, ref.MediaID, ref.SeasonNumber, nil)
		if err == nil {
			seasonMeta = seasonPayload.Seasons[*ref.SeasonNumber]
		}
	default:
		meta, err = t.providers.GetMetadata(ctx, ref.MediaType, ref.Source, ref.MediaID, nil, nil)
	}
	if err != nil {
		return nil, err
	}

	var out *storage.Media
	err = t.store.Tx(ctx, func(store storage.Storage) error {
		var err error
		switch ref.MediaType {
		case media.TypeTV:
			out, err = t.setShowStatus(ctx, store, userID, ref, status, meta)
		case media.TypeSeason:
			out, err = t.setSeasonStatus(ctx, store, userID, ref, status, meta, seasonMeta)
		default:
			out, err = t.setFlatStatus(ctx, store, userID, ref, status, meta)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// setFlatStatus handles the non-hierarchical variants. Completion fills
// progress to the provider total and stamps the end date.
func (t *Tracker) setFlatStatus(ctx context.Context, store storage.Storage, userID int64, ref Ref, status media.Status, meta *provider.Metadata) (*storage.Media, error) {
	item, err := resolveItem(ctx, store, ref, meta)
	if err != nil {
		return nil, err
	}
	m, _, err := ensureMedia(ctx, store, userID, item, status, nil)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	next := m.Media
	next.Status = string(status)
	if status == media.StatusCompleted {
		if meta.MaxProgress != nil {
			next.Progress = *meta.MaxProgress
		}
		if next.EndDate == nil {
			next.EndDate = &now
		}
	}
	if status.Active() && next.StartDate == nil {
		next.StartDate = &now
	}

	if _, err := saveMedia(ctx, store, m, next, now); err != nil {
		return nil, err
	}
	if err := refreshEvents(ctx, store, item, meta, status); err != nil {
		return nil, err
	}

	return store.GetMedia(ctx, table.Media.ID.EQ(sqlite.Int32(m.Media.ID)))
}

// seasonHandle carries the resolved rows a season-level operation works on.
type seasonHandle struct {
	showItem   *model.Item
	show       *storage.Media
	seasonItem *model.Item
	season     *storage.Media
}

// ensureSeason resolves the show and season tracking rows for a season ref,
// creating them in Planning when the user has not tracked them yet.
func (t *Tracker) ensureSeason(ctx context.Context, store storage.Storage, userID int64, ref Ref, showMeta *provider.Metadata, seasonMeta *provider.SeasonMetadata) (*seasonHandle, error) {
	showRef := Ref{MediaType: media.TypeTV, Source: ref.Source, MediaID: ref.MediaID}
	showItem, err := resolveItem(ctx, store, showRef, showMeta)
	if err != nil {
		return nil, err
	}
	show, _, err := ensureMedia(ctx, store, userID, showItem, media.StatusPlanning, nil)
	if err != nil {
		return nil, err
	}

	seasonRef := Ref{
		MediaType:    media.TypeSeason,
		Source:       ref.Source,
		MediaID:      ref.MediaID,
		SeasonNumber: &seasonMeta.SeasonNumber,
	}
	seasonItem, err := resolveItem(ctx, store, seasonRef, &provider.Metadata{
		Title: seasonMeta.Title,
		Image: seasonMeta.Image,
	})
	if err != nil {
		return nil, err
	}
	season, _, err := ensureMedia(ctx, store, userID, seasonItem, media.StatusPlanning, &show.Media.ID)
	if err != nil {
		return nil, err
	}

	return &seasonHandle{showItem: showItem, show: show, seasonItem: seasonItem, season: season}, nil
}

func (t *Tracker) setSeasonStatus(ctx context.Context, store storage.Storage, userID int64, ref Ref, status media.Status, showMeta *provider.Metadata, seasonMeta *provider.SeasonMetadata) (*storage.Media, error) {
	h, err := t.ensureSeason(ctx, store, userID, ref, showMeta, seasonMeta)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if status == media.StatusCompleted {
		if err := t.completeSeason(ctx, store, h.season, seasonMeta, now, false); err != nil {
			return nil, err
		}
	} else {
		next := h.season.Media
		next.Status = string(status)
		if status.Active() && next.StartDate == nil {
			next.StartDate = &now
		}
		if _, err := saveMedia(ctx, store, h.season, next, now); err != nil {
			return nil, err
		}
	}

	if err := t.cascadeSeasonToShow(ctx, store, userID, h.showItem, showMeta, status, now); err != nil {
		return nil, err
	}
	if err := refreshEvents(ctx, store, h.showItem, showMeta, status); err != nil {
		return nil, err
	}

	return store.GetMedia(ctx, table.Media.ID.EQ(sqlite.Int32(h.season.Media.ID)))
}

// completeSeason bulk-creates any episode watches the season is missing per
// provider metadata, then marks the season Completed. When nothing is missing
// and the status already reads Completed this writes nothing, not even
// history. Engine-driven completions validate through the cascade machine.
func (t *Tracker) completeSeason(ctx context.Context, store storage.Storage, season *storage.Media, seasonMeta *provider.SeasonMetadata, now time.Time, engineDriven bool) error {
	tree, err := store.GetSeason(ctx, storage.SeasonMedia.ID.EQ(sqlite.Int32(season.Media.ID)))
	if err != nil {
		return err
	}

	created, err := t.createMissingEpisodes(ctx, store, season, tree, seasonMeta, now)
	if err != nil {
		return err
	}
	if created > 0 {
		logger.FromCtx(ctx).Debugw("backfilled episodes", "season", season.Item.Title, "count", created)
		tree, err = store.GetSeason(ctx, storage.SeasonMedia.ID.EQ(sqlite.Int32(season.Media.ID)))
		if err != nil {
			return err
		}
	}

	next := season.Media
	next.Status = string(media.StatusCompleted)
	next.Progress = tree.WatchedProgress()
	next.Repeats = tree.WatchedRepeats()
	start, end := tree.WatchDates()
	if next.StartDate == nil {
		next.StartDate = start
	}
	if next.EndDate == nil {
		if end != nil {
			next.EndDate = end
		} else {
			next.EndDate = &now
		}
	}

	if engineDriven {
		_, err = applyCascade(ctx, store, season, next, now)
	} else {
		_, err = saveMedia(ctx, store, season, next, now)
	}
	return err
}

// createMissingEpisodes records a watch for every provider episode the season
// tree does not have yet. Already-watched episodes are skipped, which makes
// repeated completion idempotent.
func (t *Tracker) createMissingEpisodes(ctx context.Context, store storage.Storage, season *storage.Media, tree *storage.Season, seasonMeta *provider.SeasonMetadata, now time.Time) (int, error) {
	watched := make(map[int32]bool, len(tree.Episodes))
	for _, e := range tree.Episodes {
		if e.Item.EpisodeNumber != nil {
			watched[*e.Item.EpisodeNumber] = true
		}
	}

	var rows []model.Episode
	for _, em := range seasonMeta.Episodes {
		if watched[em.EpisodeNumber] {
			continue
		}

		item, err := store.GetOrCreateItem(ctx, model.Item{
			MediaID:       season.Item.MediaID,
			Source:        season.Item.Source,
			MediaType:     string(media.TypeEpisode),
			Title:         em.Title,
			Image:         em.Image,
			SeasonNumber:  &seasonMeta.SeasonNumber,
			EpisodeNumber: &em.EpisodeNumber,
		})
		if err != nil {
			return 0, err
		}
		rows = append(rows, model.Episode{
			ItemID:   item.ID,
			SeasonID: season.Media.ID,
			EndDate:  &now,
		})
	}
	if len(rows) == 0 {
		return 0, nil
	}

	if err := store.CreateEpisodes(ctx, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// cascadeSeasonToShow propagates a season status change up to its show.
// Completion only travels upward when every provider-listed season is
// complete; nothing ever auto-regresses a completed show except a rewatch,
// which reads as Repeating.
func (t *Tracker) cascadeSeasonToShow(ctx context.Context, store storage.Storage, userID int64, showItem *model.Item, showMeta *provider.Metadata, seasonStatus media.Status, now time.Time) error {
	show, err := store.GetShow(ctx, mediaWhere(userID, showItem.ID))
	if err != nil {
		return err
	}
	current := media.Status(show.Media.Status)

	switch seasonStatus {
	case media.StatusCompleted:
		if showComplete(show, showMeta) {
			if current == media.StatusCompleted {
				return nil
			}
			next := show.Media
			next.Status = string(media.StatusCompleted)
			if next.EndDate == nil {
				next.EndDate = &now
			}
			_, err := applyCascade(ctx, store, &storage.Media{Media: show.Media, Item: show.Item}, next, now)
			return err
		}
		if current == media.StatusPlanning {
			return t.showInProgress(ctx, store, show, now)
		}

	case media.StatusInProgress, media.StatusRepeating:
		if current.Active() {
			return nil
		}
		if current == media.StatusCompleted {
			next := show.Media
			next.Status = string(media.StatusRepeating)
			_, err := applyCascade(ctx, store, &storage.Media{Media: show.Media, Item: show.Item}, next, now)
			return err
		}
		return t.showInProgress(ctx, store, show, now)

	case media.StatusDropped:
		if current == media.StatusCompleted || current == media.StatusRepeating {
			return nil
		}
		for i := range show.Seasons {
			if media.Status(show.Seasons[i].Media.Status).Active() {
				return nil
			}
		}
		next := show.Media
		next.Status = string(media.StatusDropped)
		_, err := applyCascade(ctx, store, &storage.Media{Media: show.Media, Item: show.Item}, next, now)
		return err
	}

	return nil
}

func (t *Tracker) showInProgress(ctx context.Context, store storage.Storage, show *storage.Show, now time.Time) error {
	next := show.Media
	next.Status = string(media.StatusInProgress)
	if next.StartDate == nil {
		next.StartDate = &now
	}
	_, err := applyCascade(ctx, store, &storage.Media{Media: show.Media, Item: show.Item}, next, now)
	return err
}

// showComplete reports whether every season the provider lists is locally
// tracked and Completed. Seasons the provider reports without episodes are
// ignored, they cannot be watched.
func showComplete(show *storage.Show, showMeta *provider.Metadata) bool {
	for _, n := range showMeta.SeasonNumbers {
		sm := showMeta.Seasons[n]
		if sm == nil || len(sm.Episodes) == 0 {
			continue
		}
		season := show.Season(n)
		if season == nil || media.Status(season.Media.Status) != media.StatusCompleted {
			return false
		}
	}
	return len(showMeta.SeasonNumbers) > 0
}

func (t *Tracker) setShowStatus(ctx context.Context, store storage.Storage, userID int64, ref Ref, status media.Status, showMeta *provider.Metadata) (*storage.Media, error) {
	item, err := resolveItem(ctx, store, ref, showMeta)
	if err != nil {
		return nil, err
	}
	m, _, err := ensureMedia(ctx, store, userID, item, status, nil)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	switch status {
	case media.StatusCompleted:
		if err := t.completeShow(ctx, store, userID, ref, m, showMeta, now); err != nil {
			return nil, err
		}
	case media.StatusDropped:
		if err := t.dropShowSeasons(ctx, store, m, now); err != nil {
			return nil, err
		}
	case media.StatusInProgress:
		if err := t.activateNextSeason(ctx, store, userID, ref, m, showMeta, now); err != nil {
			return nil, err
		}
	}

	next := m.Media
	next.Status = string(status)
	if status == media.StatusCompleted && next.EndDate == nil {
		next.EndDate = &now
	}
	if status.Active() && next.StartDate == nil {
		next.StartDate = &now
	}
	if _, err := saveMedia(ctx, store, m, next, now); err != nil {
		return nil, err
	}
	if err := refreshEvents(ctx, store, item, showMeta, status); err != nil {
		return nil, err
	}

	return store.GetMedia(ctx, table.Media.ID.EQ(sqlite.Int32(m.Media.ID)))
}

// completeShow materializes every provider-listed season that is missing
// locally and cascades each one to Completed, recursively backfilling
// episodes.
func (t *Tracker) completeShow(ctx context.Context, store storage.Storage, userID int64, ref Ref, show *storage.Media, showMeta *provider.Metadata, now time.Time) error {
	for _, n := range showMeta.SeasonNumbers {
		seasonMeta := showMeta.Seasons[n]
		if seasonMeta == nil || len(seasonMeta.Episodes) == 0 {
			continue
		}

		seasonRef := Ref{MediaType: media.TypeSeason, Source: ref.Source, MediaID: ref.MediaID, SeasonNumber: &seasonMeta.SeasonNumber}
		seasonItem, err := resolveItem(ctx, store, seasonRef, &provider.Metadata{Title: seasonMeta.Title, Image: seasonMeta.Image})
		if err != nil {
			return err
		}
		season, _, err := ensureMedia(ctx, store, userID, seasonItem, media.StatusPlanning, &show.Media.ID)
		if err != nil {
			return err
		}

		if err := t.completeSeason(ctx, store, season, seasonMeta, now, true); err != nil {
			return err
		}
	}
	return nil
}

// dropShowSeasons drops every season currently being watched. Planning and
// Completed seasons are untouched.
func (t *Tracker) dropShowSeasons(ctx context.Context, store storage.Storage, show *storage.Media, now time.Time) error {
	seasons, err := store.ListSeasons(ctx, storage.SeasonMedia.RelatedTvID.EQ(sqlite.Int32(show.Media.ID)))
	if err != nil {
		return err
	}

	for _, season := range seasons {
		if !media.Status(season.Media.Status).Active() {
			continue
		}
		next := season.Media
		next.Status = string(media.StatusDropped)
		row := &storage.Media{Media: season.Media, Item: season.Item}
		if _, err := applyCascade(ctx, store, row, next, now); err != nil {
			return err
		}
	}
	return nil
}

// activateNextSeason picks the season to watch when a show goes in progress:
// the first provider-listed season not yet Completed, created on demand when
// the provider lists more seasons than the user has tracked. Selection walks
// the provider's own ordering so numbering gaps are harmless. No-op when a
// season is already active.
func (t *Tracker) activateNextSeason(ctx context.Context, store storage.Storage, userID int64, ref Ref, show *storage.Media, showMeta *provider.Metadata, now time.Time) error {
	tree, err := store.GetShow(ctx, table.Media.ID.EQ(sqlite.Int32(show.Media.ID)))
	if err != nil {
		return err
	}
	for i := range tree.Seasons {
		if media.Status(tree.Seasons[i].Media.Status).Active() {
			return nil
		}
	}

	for _, n := range showMeta.SeasonNumbers {
		seasonMeta := showMeta.Seasons[n]
		if seasonMeta == nil || len(seasonMeta.Episodes) == 0 {
			continue
		}
		if local := tree.Season(n); local != nil && media.Status(local.Media.Status) == media.StatusCompleted {
			continue
		}

		seasonRef := Ref{MediaType: media.TypeSeason, Source: ref.Source, MediaID: ref.MediaID, SeasonNumber: &seasonMeta.SeasonNumber}
		seasonItem, err := resolveItem(ctx, store, seasonRef, &provider.Metadata{Title: seasonMeta.Title, Image: seasonMeta.Image})
		if err != nil {
			return err
		}
		season, _, err := ensureMedia(ctx, store, userID, seasonItem, media.StatusPlanning, &show.Media.ID)
		if err != nil {
			return err
		}

		next := season.Media
		next.Status = string(media.StatusInProgress)
		if next.StartDate == nil {
			next.StartDate = &now
		}
		_, err = applyCascade(ctx, store, season, next, now)
		return err
	}

	// provider lists nothing watchable, only the show row moves
	return nil
}
