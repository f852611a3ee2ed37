package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-jet/jet/v2/sqlite"
	"github.com/trackarr/trackarr/pkg/storage"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/model"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/table"
)

// Change is one field transition inside a history delta.
type Change struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// Delta is the field diff recorded for one mutation, keyed by field name.
type Delta map[string]Change

func (d Delta) encode() (string, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("encoding history delta: %w", err)
	}
	return string(raw), nil
}

// mediaDelta diffs the trackable fields of two media rows. An empty delta
// means the mutation is a no-op and must not be persisted.
func mediaDelta(old, next model.Media) Delta {
	d := Delta{}
	if old.Status != next.Status {
		d["status"] = Change{Old: old.Status, New: next.Status}
	}
	if old.Progress != next.Progress {
		d["progress"] = Change{Old: old.Progress, New: next.Progress}
	}
	if !ptrEq(old.Score, next.Score) {
		d["score"] = Change{Old: deref(old.Score), New: deref(next.Score)}
	}
	if !timeEq(old.StartDate, next.StartDate) {
		d["start_date"] = Change{Old: dateString(old.StartDate), New: dateString(next.StartDate)}
	}
	if !timeEq(old.EndDate, next.EndDate) {
		d["end_date"] = Change{Old: dateString(old.EndDate), New: dateString(next.EndDate)}
	}
	if old.Notes != next.Notes {
		d["notes"] = Change{Old: old.Notes, New: next.Notes}
	}
	if old.Repeats != next.Repeats {
		d["repeats"] = Change{Old: old.Repeats, New: next.Repeats}
	}
	return d
}

// saveMedia persists next and records its delta against current in the same
// transaction-backed store. No-op mutations write nothing, history included.
func saveMedia(ctx context.Context, store storage.Storage, current *storage.Media, next model.Media, recordedAt time.Time) (bool, error) {
	delta := mediaDelta(current.Media, next)
	if len(delta) == 0 {
		return false, nil
	}

	if err := store.UpdateMedia(ctx, next); err != nil {
		return false, err
	}

	raw, err := delta.encode()
	if err != nil {
		return false, err
	}
	_, err = store.RecordHistory(ctx, model.History{
		UserID:     next.UserID,
		MediaType:  next.MediaType,
		MediaID:    &next.ID,
		ItemID:     next.ItemID,
		Delta:      raw,
		RecordedAt: recordedAt,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// recordCreated writes the history entry for a freshly tracked media row.
func recordCreated(ctx context.Context, store storage.Storage, row model.Media, recordedAt time.Time) error {
	raw, err := Delta{"status": {Old: nil, New: row.Status}}.encode()
	if err != nil {
		return err
	}
	_, err = store.RecordHistory(ctx, model.History{
		UserID:     row.UserID,
		MediaType:  row.MediaType,
		MediaID:    &row.ID,
		ItemID:     row.ItemID,
		Delta:      raw,
		RecordedAt: recordedAt,
	})
	return err
}

// recordDeleted writes the history entry for an untracked media row. MediaID
// is left unset, the row is gone.
func recordDeleted(ctx context.Context, store storage.Storage, row model.Media, recordedAt time.Time) error {
	raw, err := Delta{"status": {Old: row.Status, New: nil}}.encode()
	if err != nil {
		return err
	}
	_, err = store.RecordHistory(ctx, model.History{
		UserID:     row.UserID,
		MediaType:  row.MediaType,
		ItemID:     row.ItemID,
		Delta:      raw,
		RecordedAt: recordedAt,
	})
	return err
}

// recordWatch writes the history entry for an episode watch or unwatch.
func recordWatch(ctx context.Context, store storage.Storage, userID int64, item *model.Item, episodeID *int32, delta Delta, recordedAt time.Time) error {
	raw, err := delta.encode()
	if err != nil {
		return err
	}
	_, err = store.RecordHistory(ctx, model.History{
		UserID:     int32(userID),
		MediaType:  item.MediaType,
		EpisodeID:  episodeID,
		ItemID:     item.ID,
		Delta:      raw,
		RecordedAt: recordedAt,
	})
	return err
}

// HistoryEntry is one history row decorated for display.
type HistoryEntry struct {
	model.History
	Item        *model.Item `json:"item,omitempty"`
	Changes     Delta       `json:"changes"`
	RecordedAgo string      `json:"recorded_ago"`
}

// History lists a user's mutations newest first, optionally limited.
func (t *Tracker) History(ctx context.Context, userID int64, limit int) ([]*HistoryEntry, error) {
	rows, err := t.store.ListHistory(ctx, table.History.UserID.EQ(sqlite.Int64(userID)))
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	entries := make([]*HistoryEntry, 0, len(rows))
	for _, row := range rows {
		entry := &HistoryEntry{
			History:     *row,
			RecordedAgo: humanize.Time(row.RecordedAt),
		}
		if err := json.Unmarshal([]byte(row.Delta), &entry.Changes); err != nil {
			return nil, fmt.Errorf("decoding history delta %d: %w", row.ID, err)
		}

		item, err := t.store.GetItem(ctx, table.Item.ID.EQ(sqlite.Int32(row.ItemID)))
		if err == nil {
			entry.Item = item
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func ptrEq[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func timeEq(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func dateString(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}
