// Package tracker implements the status and progress engine: per-user
// tracking rows, the hierarchical tv/season/episode cascades, progress
// clamping, and the append-only history written alongside every mutation.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-jet/jet/v2/sqlite"
	"github.com/oapi-codegen/nullable"
	"github.com/oapi-codegen/runtime/types"
	"github.com/trackarr/trackarr/pkg/logger"
	"github.com/trackarr/trackarr/pkg/media"
	"github.com/trackarr/trackarr/pkg/provider"
	"github.com/trackarr/trackarr/pkg/provider/manual"
	"github.com/trackarr/trackarr/pkg/storage"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/model"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/table"
)

// Tracker drives all tracking mutations. Every operation that touches more
// than one row runs inside a single storage transaction so a failed cascade
// leaves nothing behind. Provider metadata always resolves before a
// transaction opens.
type Tracker struct {
	store     storage.Storage
	providers *provider.Registry
	manual    *manual.Client
}

func New(store storage.Storage, providers *provider.Registry) *Tracker {
	return &Tracker{store: store, providers: providers, manual: manual.New(store)}
}

// Ref names a piece of media the way a user refers to it: provider identity
// plus season and episode numbers for hierarchical types.
type Ref struct {
	MediaType     media.Type   `json:"media_type"`
	Source        media.Source `json:"source"`
	MediaID       string       `json:"media_id"`
	SeasonNumber  *int32       `json:"season_number,omitempty"`
	EpisodeNumber *int32       `json:"episode_number,omitempty"`
}

func (r Ref) source() media.Source {
	if r.Source == "" {
		return media.DefaultSource(r.MediaType)
	}
	return r.Source
}

func (r Ref) String() string {
	s := fmt.Sprintf("%s %s/%s", r.MediaType, r.source(), r.MediaID)
	if r.SeasonNumber != nil {
		s += fmt.Sprintf(" s%d", *r.SeasonNumber)
	}
	if r.EpisodeNumber != nil {
		s += fmt.Sprintf("e%d", *r.EpisodeNumber)
	}
	return s
}

func mediaWhere(userID int64, itemID int32) sqlite.BoolExpression {
	return table.Media.UserID.EQ(sqlite.Int64(userID)).
		AND(table.Media.ItemID.EQ(sqlite.Int32(itemID)))
}

// getItem looks up the canonical item for a ref without creating it.
func getItem(ctx context.Context, store storage.Storage, ref Ref) (*model.Item, error) {
	cond := table.Item.MediaID.EQ(sqlite.String(ref.MediaID)).
		AND(table.Item.Source.EQ(sqlite.String(string(ref.source())))).
		AND(table.Item.MediaType.EQ(sqlite.String(string(ref.MediaType))))
	if ref.SeasonNumber != nil {
		cond = cond.AND(table.Item.SeasonNumber.EQ(sqlite.Int32(*ref.SeasonNumber)))
	} else {
		cond = cond.AND(table.Item.SeasonNumber.IS_NULL())
	}
	if ref.EpisodeNumber != nil {
		cond = cond.AND(table.Item.EpisodeNumber.EQ(sqlite.Int32(*ref.EpisodeNumber)))
	} else {
		cond = cond.AND(table.Item.EpisodeNumber.IS_NULL())
	}
	return store.GetItem(ctx, cond)
}

// resolveItem returns the item for a ref, creating it from provider metadata
// on first reference.
func resolveItem(ctx context.Context, store storage.Storage, ref Ref, meta *provider.Metadata) (*model.Item, error) {
	item := model.Item{
		MediaID:       ref.MediaID,
		Source:        string(ref.source()),
		MediaType:     string(ref.MediaType),
		SeasonNumber:  ref.SeasonNumber,
		EpisodeNumber: ref.EpisodeNumber,
	}
	if meta != nil {
		item.Title = meta.Title
		item.Image = meta.Image
	}
	return store.GetOrCreateItem(ctx, item)
}

// ensureMedia returns the user's tracking row for the item, creating it in
// the given status when absent. Creation is history-recorded.
func ensureMedia(ctx context.Context, store storage.Storage, userID int64, item *model.Item, status media.Status, relatedTV *int32) (*storage.Media, bool, error) {
	m, err := store.GetMedia(ctx, mediaWhere(userID, item.ID))
	if err == nil {
		return m, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, err
	}

	row := model.Media{
		ItemID:      item.ID,
		UserID:      int32(userID),
		MediaType:   item.MediaType,
		Status:      string(status),
		RelatedTvID: relatedTV,
	}
	id, err := store.CreateMedia(ctx, row)
	if err != nil {
		return nil, false, fmt.Errorf("tracking %s: %w", item.Title, err)
	}
	row.ID = int32(id)

	if err := recordCreated(ctx, store, row, time.Now()); err != nil {
		return nil, false, err
	}

	m, err = store.GetMedia(ctx, table.Media.ID.EQ(sqlite.Int64(id)))
	if err != nil {
		return nil, false, err
	}
	return m, true, nil
}

// Track starts tracking a piece of media for a user in the given status,
// running the status's cascade side effects. It is also how status changes on
// already-tracked media are applied.
func (t *Tracker) Track(ctx context.Context, userID int64, ref Ref, status media.Status) (*storage.Media, error) {
	return t.SetStatus(ctx, userID, ref, status)
}

// CreateManual registers a manually entered piece of media, allocating the
// next manual id for its type, and starts tracking it in Planning.
func (t *Tracker) CreateManual(ctx context.Context, userID int64, mediaType media.Type, title, image string) (*storage.Media, error) {
	var out *storage.Media
	err := t.store.Tx(ctx, func(store storage.Storage) error {
		id, err := store.NextManualID(ctx, mediaType)
		if err != nil {
			return err
		}

		item, err := store.GetOrCreateItem(ctx, model.Item{
			MediaID:   id,
			Source:    string(media.SourceManual),
			MediaType: string(mediaType),
			Title:     title,
			Image:     image,
		})
		if err != nil {
			return err
		}

		out, _, err = ensureMedia(ctx, store, userID, item, media.StatusPlanning, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Untrack deletes the user's tracking row for a ref. Season and episode rows
// owned by a tv row go with it. The item itself stays, it may be referenced
// again.
func (t *Tracker) Untrack(ctx context.Context, userID int64, ref Ref) error {
	return t.store.Tx(ctx, func(store storage.Storage) error {
		item, err := getItem(ctx, store, ref)
		if err != nil {
			return err
		}
		m, err := store.GetMedia(ctx, mediaWhere(userID, item.ID))
		if err != nil {
			return err
		}

		if err := store.DeleteMedia(ctx, int64(m.Media.ID)); err != nil {
			return err
		}
		return recordDeleted(ctx, store, m.Media, time.Now())
	})
}

// Update applies a partial edit to score, notes, and dates. Absent fields are
// untouched; explicit nulls clear.
type Update struct {
	Score     nullable.Nullable[float64]    `json:"score,omitempty"`
	Notes     nullable.Nullable[string]     `json:"notes,omitempty"`
	StartDate nullable.Nullable[types.Date] `json:"start_date,omitempty"`
	EndDate   nullable.Nullable[types.Date] `json:"end_date,omitempty"`
}

func (t *Tracker) Update(ctx context.Context, userID int64, ref Ref, update Update) (*storage.Media, error) {
	if update.Score.IsSpecified() && !update.Score.IsNull() {
		score, err := update.Score.Get()
		if err != nil {
			return nil, err
		}
		if score < 0 || score > 10 {
			return nil, fmt.Errorf("score %.1f out of range 0-10", score)
		}
	}

	var out *storage.Media
	err := t.store.Tx(ctx, func(store storage.Storage) error {
		item, err := getItem(ctx, store, ref)
		if err != nil {
			return err
		}
		m, err := store.GetMedia(ctx, mediaWhere(userID, item.ID))
		if err != nil {
			return err
		}

		next := m.Media
		if update.Score.IsSpecified() {
			if update.Score.IsNull() {
				next.Score = nil
			} else {
				score := update.Score.MustGet()
				next.Score = &score
			}
		}
		if update.Notes.IsSpecified() && !update.Notes.IsNull() {
			next.Notes = update.Notes.MustGet()
		}
		if update.StartDate.IsSpecified() {
			next.StartDate = dateValue(update.StartDate)
		}
		if update.EndDate.IsSpecified() {
			next.EndDate = dateValue(update.EndDate)
		}

		changed, err := saveMedia(ctx, store, m, next, time.Now())
		if err != nil {
			return err
		}
		if changed {
			logger.FromCtx(ctx).Debugw("updated track", "media", m.Media.ID, "item", item.Title)
		}

		out, err = store.GetMedia(ctx, table.Media.ID.EQ(sqlite.Int32(m.Media.ID)))
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func dateValue(n nullable.Nullable[types.Date]) *time.Time {
	if n.IsNull() {
		return nil
	}
	d := n.MustGet()
	v := d.Time
	return &v
}
