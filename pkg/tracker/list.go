package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/go-jet/jet/v2/sqlite"
	"github.com/trackarr/trackarr/pkg/logger"
	"github.com/trackarr/trackarr/pkg/media"
	"github.com/trackarr/trackarr/pkg/provider"
	"github.com/trackarr/trackarr/pkg/provider/manual"
	"github.com/trackarr/trackarr/pkg/storage"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/table"
)

// Entry is one tracked row decorated with the derived fields dashboards
// need: the provider's completion total and the next scheduled release.
type Entry struct {
	storage.Media
	MaxProgress *int32     `json:"max_progress,omitempty"`
	NextEvent   *time.Time `json:"next_event,omitempty"`
}

// ListOptions filter and order a user's list.
type ListOptions struct {
	Status media.Status
	Sort   Sort
}

type Sort string

const (
	SortRecent   Sort = "recent"
	SortTitle    Sort = "title"
	SortScore    Sort = "score"
	SortProgress Sort = "progress"
)

func orderClauses(sort Sort) []sqlite.OrderByClause {
	switch sort {
	case SortTitle:
		return []sqlite.OrderByClause{table.Item.Title.ASC()}
	case SortScore:
		return []sqlite.OrderByClause{table.Media.Score.DESC()}
	case SortProgress:
		return []sqlite.OrderByClause{table.Media.Progress.DESC()}
	case SortRecent:
		return []sqlite.OrderByClause{table.Media.UpdatedAt.DESC(), table.Media.ID.DESC()}
	}
	return nil
}

// List returns a user's tracked media of one type, annotated best-effort:
// provider totals come from the cached metadata layer and a lookup failure
// degrades to a missing annotation instead of failing the whole list.
func (t *Tracker) List(ctx context.Context, userID int64, mediaType media.Type, opts ListOptions) ([]*Entry, error) {
	where := table.Media.UserID.EQ(sqlite.Int64(userID)).
		AND(table.Media.MediaType.EQ(sqlite.String(string(mediaType))))
	if opts.Status != "" {
		where = where.AND(table.Media.Status.EQ(sqlite.String(string(opts.Status))))
	}

	if mediaType == media.TypeTV {
		return t.listShows(ctx, where)
	}

	rows, err := t.store.ListMedia(ctx, where, orderClauses(opts.Sort)...)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	entries := make([]*Entry, 0, len(rows))
	for _, row := range rows {
		entry := &Entry{Media: *row}
		t.annotate(ctx, entry, now)
		entries = append(entries, entry)
	}
	return entries, nil
}

// listShows loads tv rows with their trees in one query and derives progress
// and dates from the episode watches instead of the stored columns.
func (t *Tracker) listShows(ctx context.Context, where sqlite.BoolExpression) ([]*Entry, error) {
	shows, err := t.store.ListShows(ctx, where)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	entries := make([]*Entry, 0, len(shows))
	for _, show := range shows {
		row := storage.Media{Media: show.Media, Item: show.Item}
		row.Media.Progress = show.WatchedProgress()
		start, end := show.WatchDates()
		row.Media.StartDate = start
		if media.Status(show.Media.Status) == media.StatusCompleted {
			if show.Media.EndDate != nil {
				row.Media.EndDate = show.Media.EndDate
			} else {
				row.Media.EndDate = end
			}
		}

		entry := &Entry{Media: row}
		t.annotate(ctx, entry, now)
		entries = append(entries, entry)
	}
	return entries, nil
}

// annotate fills MaxProgress and NextEvent. Provider errors only cost the
// annotation.
func (t *Tracker) annotate(ctx context.Context, entry *Entry, now time.Time) {
	ref := Ref{
		MediaType:    media.Type(entry.Media.MediaType),
		Source:       media.Source(entry.Item.Source),
		MediaID:      entry.Item.MediaID,
		SeasonNumber: entry.Item.SeasonNumber,
	}
	meta, err := t.providers.GetMetadata(ctx, ref.MediaType, ref.Source, ref.MediaID, ref.SeasonNumber, nil)
	if err != nil {
		logger.FromCtx(ctx).Debugw("annotation lookup failed", "item", entry.Item.Title, "error", err)
	} else {
		entry.MaxProgress = maxProgress(meta)
	}

	next, err := nextEvent(ctx, t.store, entry.Item.ID, now)
	if err == nil {
		entry.NextEvent = next
	}
}

// maxProgress reads the completion total out of a payload. TV totals sum the
// season episode counts.
func maxProgress(meta *provider.Metadata) *int32 {
	if meta.MediaType != media.TypeTV {
		return meta.MaxProgress
	}

	var total int32
	for _, n := range meta.SeasonNumbers {
		if s := meta.Seasons[n]; s != nil {
			total += int32(len(s.Episodes))
		}
	}
	if total == 0 {
		return nil
	}
	return &total
}

// Get returns one tracked entry with its full provider payload.
type Detail struct {
	Entry
	Metadata *provider.Metadata `json:"metadata"`
}

func (t *Tracker) Get(ctx context.Context, userID int64, ref Ref) (*Detail, error) {
	item, err := getItem(ctx, t.store, ref)
	if err != nil {
		return nil, err
	}
	m, err := t.store.GetMedia(ctx, mediaWhere(userID, item.ID))
	if err != nil {
		return nil, err
	}

	meta, err := t.providers.GetMetadata(ctx, ref.MediaType, ref.Source, ref.MediaID, ref.SeasonNumber, ref.EpisodeNumber)
	if err != nil {
		return nil, err
	}

	if ref.MediaType == media.TypeTV {
		t.markWatched(ctx, userID, item.ID, meta)
	}

	entry := Entry{Media: *m, MaxProgress: maxProgress(meta)}
	next, err := nextEvent(ctx, t.store, item.ID, time.Now())
	if err == nil {
		entry.NextEvent = next
	}
	return &Detail{Entry: entry, Metadata: meta}, nil
}

// markWatched flags the episodes of a show payload the user has a watch
// recorded for. A missing tree only costs the flags.
func (t *Tracker) markWatched(ctx context.Context, userID int64, itemID int32, meta *provider.Metadata) {
	show, err := t.store.GetShow(ctx, mediaWhere(userID, itemID))
	if err != nil {
		return
	}
	for _, n := range meta.SeasonNumbers {
		season := show.Season(n)
		if season == nil {
			continue
		}
		manual.ProcessEpisodes(meta.Seasons[n], season.Episodes)
	}
}

// Statistics summarizes a user's tracking: row counts per type and status
// and score histograms per type.
type Statistics struct {
	StatusCounts map[media.Type]map[media.Status]int `json:"status_counts"`
	ScoreBuckets map[media.Type][]int                `json:"score_buckets"`
}

func (t *Tracker) Statistics(ctx context.Context, userID int64) (*Statistics, error) {
	statuses, err := t.store.StatusDistribution(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("status distribution: %w", err)
	}
	scores, err := t.store.ScoreDistribution(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("score distribution: %w", err)
	}
	return &Statistics{StatusCounts: statuses, ScoreBuckets: scores}, nil
}

// Search proxies the provider facade for the server and CLI layers.
func (t *Tracker) Search(ctx context.Context, mediaType media.Type, source media.Source, query string, page int) (*provider.SearchPage, error) {
	return t.providers.Search(ctx, mediaType, source, query, page)
}
