// Package storage defines the persistence contract for the tracker: canonical
// items, per-user media rows, episode watch events, release events, the
// append-only history log, and background jobs.
package storage

import (
	"context"
	"errors"

	"github.com/go-jet/jet/v2/sqlite"
	"github.com/trackarr/trackarr/pkg/media"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/model"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/table"
)

// Aliased tables used by the season and episode tree queries. Conditions
// passed to GetSeason and ListSeasons reference SeasonMedia and SeasonItem
// instead of the base tables.
var (
	SeasonMedia = table.Media.AS("season")
	SeasonItem  = table.Item.AS("season_item")
	EpisodeItem = table.Item.AS("episode_item")
)

var (
	// ErrNotFound is returned when no row matches a lookup.
	ErrNotFound = errors.New("not found in storage")
	// ErrDuplicate is returned when an insert violates a uniqueness
	// constraint. Import paths treat it as "already tracked".
	ErrDuplicate = errors.New("entity already exists")
	// ErrEpisodeNotFound is returned when an unwatch targets an episode with
	// no recorded watch.
	ErrEpisodeNotFound = errors.New("no watch recorded for episode")
)

// Storage is the full persistence surface. Tx runs fn against a
// transaction-backed Storage; every write inside commits or rolls back
// together, which the status engine relies on for cascades.
type Storage interface {
	UserStorage
	ItemStorage
	MediaStorage
	EpisodeStorage
	EventStorage
	HistoryStorage
	JobStorage
	StatisticsStorage

	Tx(ctx context.Context, fn func(Storage) error) error
}

type UserStorage interface {
	CreateUser(ctx context.Context, user model.User) (int64, error)
	GetUser(ctx context.Context, where sqlite.BoolExpression) (*model.User, error)
}

type ItemStorage interface {
	// GetOrCreateItem returns the existing item with the same identity or
	// inserts a new one. Identity is (media_id, source, media_type) plus the
	// season and episode numbers when present.
	GetOrCreateItem(ctx context.Context, item model.Item) (*model.Item, error)
	GetItem(ctx context.Context, where sqlite.BoolExpression) (*model.Item, error)
	ListItems(ctx context.Context, where sqlite.BoolExpression) ([]*model.Item, error)
	UpdateItem(ctx context.Context, item model.Item) error
	// NextManualID allocates the next numeric media id for manually entered
	// media of the given type.
	NextManualID(ctx context.Context, mediaType media.Type) (string, error)
}

type MediaStorage interface {
	CreateMedia(ctx context.Context, m model.Media) (int64, error)
	UpdateMedia(ctx context.Context, m model.Media) error
	DeleteMedia(ctx context.Context, id int64) error
	GetMedia(ctx context.Context, where sqlite.BoolExpression) (*Media, error)
	ListMedia(ctx context.Context, where sqlite.BoolExpression, orderBy ...sqlite.OrderByClause) ([]*Media, error)

	// GetShow and ListShows load TV rows with their full season and episode
	// tree in a single joined query.
	GetShow(ctx context.Context, where sqlite.BoolExpression) (*Show, error)
	ListShows(ctx context.Context, where sqlite.BoolExpression) ([]*Show, error)
	// GetSeason and ListSeasons load season rows with their watch events.
	GetSeason(ctx context.Context, where sqlite.BoolExpression) (*Season, error)
	ListSeasons(ctx context.Context, where sqlite.BoolExpression) ([]*Season, error)
}

type EpisodeStorage interface {
	CreateEpisode(ctx context.Context, e model.Episode) (int64, error)
	CreateEpisodes(ctx context.Context, episodes []model.Episode) error
	ListEpisodes(ctx context.Context, where sqlite.BoolExpression) ([]*Episode, error)
	// DeleteLatestEpisode removes the most recent watch of the item within
	// the season and returns it.
	DeleteLatestEpisode(ctx context.Context, itemID, seasonID int64) (*Episode, error)
	DeleteEpisode(ctx context.Context, id int64) error
}

type EventStorage interface {
	// ReplaceEvents swaps all scheduled release events of an item.
	ReplaceEvents(ctx context.Context, itemID int64, events []model.Event) error
	ListEvents(ctx context.Context, where sqlite.BoolExpression) ([]*model.Event, error)
}

type HistoryStorage interface {
	RecordHistory(ctx context.Context, entry model.History) (int64, error)
	ListHistory(ctx context.Context, where sqlite.BoolExpression) ([]*model.History, error)
}

type StatisticsStorage interface {
	// StatusDistribution counts a user's media rows per type and status.
	StatusDistribution(ctx context.Context, userID int64) (map[media.Type]map[media.Status]int, error)
	// ScoreDistribution bins a user's scores per media type into integer
	// buckets 0 through 10.
	ScoreDistribution(ctx context.Context, userID int64) (map[media.Type][]int, error)
}

// Media is a tracking row joined with its canonical item.
type Media struct {
	model.Media
	Item model.Item
}

// Episode is a watch event joined with its canonical item.
type Episode struct {
	model.Episode
	Item model.Item `alias:"episode_item.*"`
}

// Season is a tracked season with its watch events.
type Season struct {
	model.Media `alias:"season.*"`
	Item        model.Item `alias:"season_item.*"`
	Episodes    []Episode
}

// Show is a tracked TV show with its full descendant tree.
type Show struct {
	model.Media
	Item    model.Item
	Seasons []Season
}
