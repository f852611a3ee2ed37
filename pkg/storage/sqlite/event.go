package sqlite

import (
	"context"
	"fmt"

	"github.com/go-jet/jet/v2/sqlite"
	"github.com/trackarr/trackarr/pkg/storage"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/model"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/table"
)

// ReplaceEvents swaps all scheduled release events of an item for the given
// set. Metadata refreshes call this so stale air dates don't linger.
func (s *SQLite) ReplaceEvents(ctx context.Context, itemID int64, events []model.Event) error {
	return s.Tx(ctx, func(store storage.Storage) error {
		tx := store.(*SQLite)

		deleteStmt := table.Event.
			DELETE().
			WHERE(table.Event.ItemID.EQ(sqlite.Int64(itemID)))

		if _, err := tx.handleDelete(ctx, deleteStmt); err != nil {
			return err
		}

		if len(events) == 0 {
			return nil
		}

		insertStmt := table.Event.
			INSERT(table.Event.MutableColumns).
			MODELS(events)

		_, err := tx.handleInsert(ctx, insertStmt)
		return err
	})
}

// ListEvents lists scheduled release events
func (s *SQLite) ListEvents(ctx context.Context, where sqlite.BoolExpression) ([]*model.Event, error) {
	events := make([]*model.Event, 0)

	stmt := table.Event.
		SELECT(table.Event.AllColumns).
		FROM(table.Event).
		WHERE(where).
		ORDER_BY(table.Event.Date.ASC())

	err := stmt.QueryContext(ctx, s.handle(), &events)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	return events, nil
}

var _ storage.EventStorage = (*SQLite)(nil)
