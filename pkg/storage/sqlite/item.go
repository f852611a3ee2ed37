package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-jet/jet/v2/qrm"
	"github.com/go-jet/jet/v2/sqlite"
	"github.com/trackarr/trackarr/pkg/media"
	"github.com/trackarr/trackarr/pkg/storage"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/model"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/table"
)

// itemIdentity builds the uniqueness condition of an item. Season and episode
// numbers only participate when set, mirroring the partial unique indexes.
func itemIdentity(item model.Item) sqlite.BoolExpression {
	cond := table.Item.MediaID.EQ(sqlite.String(item.MediaID)).
		AND(table.Item.Source.EQ(sqlite.String(item.Source))).
		AND(table.Item.MediaType.EQ(sqlite.String(item.MediaType)))

	if item.SeasonNumber != nil {
		cond = cond.AND(table.Item.SeasonNumber.EQ(sqlite.Int32(*item.SeasonNumber)))
	} else {
		cond = cond.AND(table.Item.SeasonNumber.IS_NULL())
	}

	if item.EpisodeNumber != nil {
		cond = cond.AND(table.Item.EpisodeNumber.EQ(sqlite.Int32(*item.EpisodeNumber)))
	} else {
		cond = cond.AND(table.Item.EpisodeNumber.IS_NULL())
	}

	return cond
}

// GetOrCreateItem returns the item with the same identity, inserting it first
// if it doesn't exist yet.
func (s *SQLite) GetOrCreateItem(ctx context.Context, item model.Item) (*model.Item, error) {
	existing, err := s.GetItem(ctx, itemIdentity(item))
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	stmt := table.Item.
		INSERT(table.Item.MutableColumns).
		MODEL(item)

	_, err = s.handleInsert(ctx, stmt)
	if err != nil && !errors.Is(err, storage.ErrDuplicate) {
		return nil, err
	}

	return s.GetItem(ctx, itemIdentity(item))
}

// GetItem gets an item matching the given condition
func (s *SQLite) GetItem(ctx context.Context, where sqlite.BoolExpression) (*model.Item, error) {
	stmt := table.Item.
		SELECT(table.Item.AllColumns).
		FROM(table.Item).
		WHERE(where)

	var item model.Item
	err := stmt.QueryContext(ctx, s.handle(), &item)
	if err != nil {
		if errors.Is(err, qrm.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	return &item, nil
}

// ListItems lists items matching the given condition
func (s *SQLite) ListItems(ctx context.Context, where sqlite.BoolExpression) ([]*model.Item, error) {
	items := make([]*model.Item, 0)

	stmt := table.Item.
		SELECT(table.Item.AllColumns).
		FROM(table.Item).
		WHERE(where).
		ORDER_BY(table.Item.ID.ASC())

	err := stmt.QueryContext(ctx, s.handle(), &items)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	return items, nil
}

// UpdateItem updates the mutable fields of an item
func (s *SQLite) UpdateItem(ctx context.Context, item model.Item) error {
	stmt := table.Item.
		UPDATE(table.Item.MutableColumns).
		MODEL(item).
		WHERE(table.Item.ID.EQ(sqlite.Int32(item.ID)))

	_, err := s.handleUpdate(ctx, stmt)
	return err
}

// NextManualID allocates the next numeric media id for manually entered media
// of the given type. Manual ids count up from 1 per media type.
func (s *SQLite) NextManualID(ctx context.Context, mediaType media.Type) (string, error) {
	// Raw SQL since Jet doesn't properly handle aggregate queries with custom structs.
	rows, err := s.handle().QueryContext(ctx, `
		SELECT COALESCE(MAX(CAST(media_id AS INTEGER)), 0)
		FROM item
		WHERE source = ? AND media_type = ?
	`, string(media.SourceManual), string(mediaType))
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var max int64
	if rows.Next() {
		if err := rows.Scan(&max); err != nil {
			return "", err
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	return strconv.FormatInt(max+1, 10), nil
}

var _ storage.ItemStorage = (*SQLite)(nil)
