package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-jet/jet/v2/qrm"
	"github.com/go-jet/jet/v2/sqlite"
	"github.com/trackarr/trackarr/pkg/media"
	"github.com/trackarr/trackarr/pkg/storage"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/model"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/table"
)

// CreateMedia stores a new tracking row. A second row for the same item and
// user violates the unique index and returns storage.ErrDuplicate.
func (s *SQLite) CreateMedia(ctx context.Context, m model.Media) (int64, error) {
	stmt := table.Media.
		INSERT(table.Media.MutableColumns.Except(table.Media.CreatedAt, table.Media.UpdatedAt)).
		MODEL(m)

	result, err := s.handleInsert(ctx, stmt)
	if err != nil {
		return 0, err
	}

	return result.LastInsertId()
}

// UpdateMedia updates the mutable fields of a tracking row
func (s *SQLite) UpdateMedia(ctx context.Context, m model.Media) error {
	now := time.Now()
	m.UpdatedAt = &now

	stmt := table.Media.
		UPDATE(table.Media.MutableColumns.Except(table.Media.CreatedAt)).
		MODEL(m).
		WHERE(table.Media.ID.EQ(sqlite.Int32(m.ID)))

	_, err := s.handleUpdate(ctx, stmt)
	return err
}

// DeleteMedia removes a tracking row by id. Seasons related to a deleted TV
// row and their episodes follow via foreign keys.
func (s *SQLite) DeleteMedia(ctx context.Context, id int64) error {
	stmt := table.Media.
		DELETE().
		WHERE(table.Media.ID.EQ(sqlite.Int64(id)))

	_, err := s.handleDelete(ctx, stmt)
	return err
}

// GetMedia gets a tracking row with its item
func (s *SQLite) GetMedia(ctx context.Context, where sqlite.BoolExpression) (*storage.Media, error) {
	stmt := sqlite.
		SELECT(
			table.Media.AllColumns,
			table.Item.AllColumns,
		).
		FROM(table.Media.
			INNER_JOIN(table.Item, table.Media.ItemID.EQ(table.Item.ID)),
		).
		WHERE(where)

	var m storage.Media
	err := stmt.QueryContext(ctx, s.handle(), &m)
	if err != nil {
		if errors.Is(err, qrm.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get media: %w", err)
	}

	return &m, nil
}

// ListMedia lists tracking rows with their items
func (s *SQLite) ListMedia(ctx context.Context, where sqlite.BoolExpression, orderBy ...sqlite.OrderByClause) ([]*storage.Media, error) {
	if len(orderBy) == 0 {
		orderBy = []sqlite.OrderByClause{table.Media.ID.ASC()}
	}

	stmt := sqlite.
		SELECT(
			table.Media.AllColumns,
			table.Item.AllColumns,
		).
		FROM(table.Media.
			INNER_JOIN(table.Item, table.Media.ItemID.EQ(table.Item.ID)),
		).
		WHERE(where).
		ORDER_BY(orderBy...)

	results := make([]*storage.Media, 0)
	err := stmt.QueryContext(ctx, s.handle(), &results)
	if err != nil {
		return nil, fmt.Errorf("failed to list media: %w", err)
	}

	return results, nil
}

// showStatement joins a TV row with its seasons, their items and their watch
// events so one query loads the whole tree.
func showStatement(where sqlite.BoolExpression) sqlite.SelectStatement {
	return sqlite.
		SELECT(
			table.Media.AllColumns,
			table.Item.AllColumns,
			storage.SeasonMedia.AllColumns,
			storage.SeasonItem.AllColumns,
			table.Episode.AllColumns,
			storage.EpisodeItem.AllColumns,
		).
		FROM(table.Media.
			INNER_JOIN(table.Item, table.Media.ItemID.EQ(table.Item.ID)).
			LEFT_JOIN(storage.SeasonMedia, storage.SeasonMedia.RelatedTvID.EQ(table.Media.ID)).
			LEFT_JOIN(storage.SeasonItem, storage.SeasonMedia.ItemID.EQ(storage.SeasonItem.ID)).
			LEFT_JOIN(table.Episode, table.Episode.SeasonID.EQ(storage.SeasonMedia.ID)).
			LEFT_JOIN(storage.EpisodeItem, table.Episode.ItemID.EQ(storage.EpisodeItem.ID)),
		).
		WHERE(where.AND(table.Media.MediaType.EQ(sqlite.String(string(media.TypeTV))))).
		ORDER_BY(
			table.Media.ID.ASC(),
			storage.SeasonItem.SeasonNumber.ASC(),
			storage.EpisodeItem.EpisodeNumber.ASC(),
			table.Episode.EndDate.ASC(),
		)
}

// GetShow gets a TV tracking row with its full season and episode tree
func (s *SQLite) GetShow(ctx context.Context, where sqlite.BoolExpression) (*storage.Show, error) {
	var show storage.Show
	err := showStatement(where).QueryContext(ctx, s.handle(), &show)
	if err != nil {
		if errors.Is(err, qrm.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get show: %w", err)
	}

	return &show, nil
}

// ListShows lists TV tracking rows with their full trees
func (s *SQLite) ListShows(ctx context.Context, where sqlite.BoolExpression) ([]*storage.Show, error) {
	shows := make([]*storage.Show, 0)
	err := showStatement(where).QueryContext(ctx, s.handle(), &shows)
	if err != nil {
		return nil, fmt.Errorf("failed to list shows: %w", err)
	}

	return shows, nil
}

// seasonStatement joins season rows with their items and watch events. The
// where condition references storage.SeasonMedia and storage.SeasonItem.
func seasonStatement(where sqlite.BoolExpression) sqlite.SelectStatement {
	return sqlite.
		SELECT(
			storage.SeasonMedia.AllColumns,
			storage.SeasonItem.AllColumns,
			table.Episode.AllColumns,
			storage.EpisodeItem.AllColumns,
		).
		FROM(storage.SeasonMedia.
			INNER_JOIN(storage.SeasonItem, storage.SeasonMedia.ItemID.EQ(storage.SeasonItem.ID)).
			LEFT_JOIN(table.Episode, table.Episode.SeasonID.EQ(storage.SeasonMedia.ID)).
			LEFT_JOIN(storage.EpisodeItem, table.Episode.ItemID.EQ(storage.EpisodeItem.ID)),
		).
		WHERE(where.AND(storage.SeasonMedia.MediaType.EQ(sqlite.String(string(media.TypeSeason))))).
		ORDER_BY(
			storage.SeasonMedia.ID.ASC(),
			storage.EpisodeItem.EpisodeNumber.ASC(),
			table.Episode.EndDate.ASC(),
		)
}

// GetSeason gets a season tracking row with its watch events
func (s *SQLite) GetSeason(ctx context.Context, where sqlite.BoolExpression) (*storage.Season, error) {
	var season storage.Season
	err := seasonStatement(where).QueryContext(ctx, s.handle(), &season)
	if err != nil {
		if errors.Is(err, qrm.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get season: %w", err)
	}

	return &season, nil
}

// ListSeasons lists season tracking rows with their watch events
func (s *SQLite) ListSeasons(ctx context.Context, where sqlite.BoolExpression) ([]*storage.Season, error) {
	seasons := make([]*storage.Season, 0)
	err := seasonStatement(where).QueryContext(ctx, s.handle(), &seasons)
	if err != nil {
		return nil, fmt.Errorf("failed to list seasons: %w", err)
	}

	return seasons, nil
}

var _ storage.MediaStorage = (*SQLite)(nil)
