package tracker

import (
	"context"
	"time"

	"github.com/go-jet/jet/v2/sqlite"
	"github.com/trackarr/trackarr/pkg/media"
	"github.com/trackarr/trackarr/pkg/provider"
	"github.com/trackarr/trackarr/pkg/storage"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/model"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/table"
)

// refreshEvents swaps the item's scheduled release events for the dates the
// provider currently reports. Only media the user plans to or is actively
// consuming keeps a calendar; other statuses leave events as they are.
func refreshEvents(ctx context.Context, store storage.Storage, item *model.Item, meta *provider.Metadata, status media.Status) error {
	if status != media.StatusPlanning && !status.Active() {
		return nil
	}

	events := make([]model.Event, 0, len(meta.Events))
	for _, ev := range meta.Events {
		events = append(events, model.Event{
			ItemID:        item.ID,
			EpisodeNumber: ev.EpisodeNumber,
			Date:          ev.Date.Time,
		})
	}
	return store.ReplaceEvents(ctx, int64(item.ID), events)
}

const timestampFormat = "2006-01-02 15:04:05"

func timestampExp(t time.Time) sqlite.TimestampExpression {
	return sqlite.TimestampExp(sqlite.String(t.Format(timestampFormat)))
}

// nextEvent returns the item's earliest upcoming release date, nil when none
// is scheduled.
func nextEvent(ctx context.Context, store storage.Storage, itemID int32, now time.Time) (*time.Time, error) {
	events, err := store.ListEvents(ctx,
		table.Event.ItemID.EQ(sqlite.Int32(itemID)).
			AND(table.Event.Date.GT(timestampExp(now))),
	)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	return &events[0].Date, nil
}

// Calendar lists a user's upcoming release events across everything they
// track, soonest first.
type CalendarEntry struct {
	Item  model.Item  `json:"item"`
	Event model.Event `json:"event"`
}

func (t *Tracker) Calendar(ctx context.Context, userID int64, until time.Time) ([]*CalendarEntry, error) {
	items, err := t.trackedItemIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	ids := make([]sqlite.Expression, 0, len(items))
	for id := range items {
		ids = append(ids, sqlite.Int32(id))
	}
	events, err := t.store.ListEvents(ctx,
		table.Event.ItemID.IN(ids...).
			AND(table.Event.Date.LT_EQ(timestampExp(until))).
			AND(table.Event.Date.GT_EQ(timestampExp(time.Now()))),
	)
	if err != nil {
		return nil, err
	}

	entries := make([]*CalendarEntry, 0, len(events))
	for _, ev := range events {
		item, err := t.store.GetItem(ctx, table.Item.ID.EQ(sqlite.Int32(ev.ItemID)))
		if err != nil {
			return nil, err
		}
		entries = append(entries, &CalendarEntry{Item: *item, Event: *ev})
	}
	return entries, nil
}

func (t *Tracker) trackedItemIDs(ctx context.Context, userID int64) (map[int32]struct{}, error) {
	rows, err := t.store.ListMedia(ctx, table.Media.UserID.EQ(sqlite.Int64(userID)))
	if err != nil {
		return nil, err
	}
	ids := make(map[int32]struct{}, len(rows))
	for _, m := range rows {
		ids[m.Media.ItemID] = struct{}{}
	}
	return ids, nil
}
