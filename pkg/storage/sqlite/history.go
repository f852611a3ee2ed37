package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/go-jet/jet/v2/sqlite"
	"github.com/trackarr/trackarr/pkg/storage"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/model"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/table"
)

// RecordHistory appends an entry to the history log
func (s *SQLite) RecordHistory(ctx context.Context, entry model.History) (int64, error) {
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now()
	}

	stmt := table.History.
		INSERT(table.History.MutableColumns).
		MODEL(entry)

	result, err := s.handleInsert(ctx, stmt)
	if err != nil {
		return 0, err
	}

	return result.LastInsertId()
}

// ListHistory lists history entries, newest first
func (s *SQLite) ListHistory(ctx context.Context, where sqlite.BoolExpression) ([]*model.History, error) {
	entries := make([]*model.History, 0)

	stmt := table.History.
		SELECT(table.History.AllColumns).
		FROM(table.History).
		WHERE(where).
		ORDER_BY(table.History.RecordedAt.DESC(), table.History.ID.DESC())

	err := stmt.QueryContext(ctx, s.handle(), &entries)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	return entries, nil
}

var _ storage.HistoryStorage = (*SQLite)(nil)
