package sqlite

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-jet/jet/v2/qrm"
	"github.com/go-jet/jet/v2/sqlite"
	"github.com/trackarr/trackarr/pkg/storage"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/model"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/table"
)

// CreateEpisode records a watch of an episode. A second watch with the same
// date violates the unique index and returns storage.ErrDuplicate.
func (s *SQLite) CreateEpisode(ctx context.Context, e model.Episode) (int64, error) {
	stmt := table.Episode.
		INSERT(table.Episode.MutableColumns.Except(table.Episode.CreatedAt)).
		MODEL(e)

	result, err := s.handleInsert(ctx, stmt)
	if err != nil {
		return 0, err
	}

	return result.LastInsertId()
}

// CreateEpisodes records watches in bulk, used by the completion cascade and
// the importers
func (s *SQLite) CreateEpisodes(ctx context.Context, episodes []model.Episode) error {
	if len(episodes) == 0 {
		return nil
	}

	stmt := table.Episode.
		INSERT(table.Episode.MutableColumns.Except(table.Episode.CreatedAt)).
		MODELS(episodes)

	_, err := s.handleInsert(ctx, stmt)
	return err
}

// ListEpisodes lists watch events with their items
func (s *SQLite) ListEpisodes(ctx context.Context, where sqlite.BoolExpression) ([]*storage.Episode, error) {
	episodes := make([]*storage.Episode, 0)

	stmt := sqlite.
		SELECT(
			table.Episode.AllColumns,
			storage.EpisodeItem.AllColumns,
		).
		FROM(table.Episode.
			INNER_JOIN(storage.EpisodeItem, table.Episode.ItemID.EQ(storage.EpisodeItem.ID)),
		).
		WHERE(where).
		ORDER_BY(storage.EpisodeItem.EpisodeNumber.ASC(), table.Episode.EndDate.ASC())

	err := stmt.QueryContext(ctx, s.handle(), &episodes)
	if err != nil {
		return nil, fmt.Errorf("failed to list episodes: %w", err)
	}

	return episodes, nil
}

// DeleteLatestEpisode removes the most recent watch of the item within the
// season and returns it. Undated watches count as the oldest.
func (s *SQLite) DeleteLatestEpisode(ctx context.Context, itemID, seasonID int64) (*storage.Episode, error) {
	stmt := sqlite.
		SELECT(
			table.Episode.AllColumns,
			storage.EpisodeItem.AllColumns,
		).
		FROM(table.Episode.
			INNER_JOIN(storage.EpisodeItem, table.Episode.ItemID.EQ(storage.EpisodeItem.ID)),
		).
		WHERE(
			table.Episode.ItemID.EQ(sqlite.Int64(itemID)).
				AND(table.Episode.SeasonID.EQ(sqlite.Int64(seasonID))),
		).
		ORDER_BY(table.Episode.EndDate.DESC(), table.Episode.ID.DESC()).
		LIMIT(1)

	var episode storage.Episode
	err := stmt.QueryContext(ctx, s.handle(), &episode)
	if err != nil {
		if errors.Is(err, qrm.ErrNoRows) {
			return nil, storage.ErrEpisodeNotFound
		}
		return nil, fmt.Errorf("failed to find latest watch: %w", err)
	}

	if err := s.DeleteEpisode(ctx, int64(episode.Episode.ID)); err != nil {
		return nil, err
	}

	return &episode, nil
}

// DeleteEpisode removes a watch event by id
func (s *SQLite) DeleteEpisode(ctx context.Context, id int64) error {
	stmt := table.Episode.
		DELETE().
		WHERE(table.Episode.ID.EQ(sqlite.Int64(id)))

	_, err := s.handleDelete(ctx, stmt)
	return err
}

var _ storage.EpisodeStorage = (*SQLite)(nil)
