package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/trackarr/trackarr/pkg/media"
	"github.com/trackarr/trackarr/pkg/storage"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/model"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/table"

	"github.com/go-jet/jet/v2/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	store := initSqlite(t)
	assert.NotNil(t, store)
}

func TestUserStorage(t *testing.T) {
	ctx := context.Background()
	store := initSqlite(t)

	id, err := store.CreateUser(ctx, model.User{Username: "sam", Token: "tok-1"})
	assert.Nil(t, err)
	assert.NotZero(t, id)

	user, err := store.GetUser(ctx, table.User.Username.EQ(sqlite.String("sam")))
	assert.Nil(t, err)
	assert.Equal(t, "sam", user.Username)
	assert.Equal(t, "tok-1", user.Token)

	_, err = store.GetUser(ctx, table.User.Username.EQ(sqlite.String("nobody")))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.CreateUser(ctx, model.User{Username: "sam", Token: "tok-2"})
	assert.ErrorIs(t, err, storage.ErrDuplicate)
}

func TestItemIdentity(t *testing.T) {
	ctx := context.Background()
	store := initSqlite(t)

	show := model.Item{MediaID: "1396", Source: "tmdb", MediaType: "tv", Title: "Breaking Bad"}
	first, err := store.GetOrCreateItem(ctx, show)
	require.Nil(t, err)

	again, err := store.GetOrCreateItem(ctx, show)
	require.Nil(t, err)
	assert.Equal(t, first.ID, again.ID)

	one := int32(1)
	two := int32(2)
	season1, err := store.GetOrCreateItem(ctx, model.Item{MediaID: "1396", Source: "tmdb", MediaType: "season", Title: "Breaking Bad", SeasonNumber: &one})
	require.Nil(t, err)
	assert.NotEqual(t, first.ID, season1.ID)

	season2, err := store.GetOrCreateItem(ctx, model.Item{MediaID: "1396", Source: "tmdb", MediaType: "season", Title: "Breaking Bad", SeasonNumber: &two})
	require.Nil(t, err)
	assert.NotEqual(t, season1.ID, season2.ID)

	ep, err := store.GetOrCreateItem(ctx, model.Item{MediaID: "1396", Source: "tmdb", MediaType: "episode", Title: "Breaking Bad", SeasonNumber: &one, EpisodeNumber: &two})
	require.Nil(t, err)

	epAgain, err := store.GetOrCreateItem(ctx, model.Item{MediaID: "1396", Source: "tmdb", MediaType: "episode", Title: "Breaking Bad", SeasonNumber: &one, EpisodeNumber: &two})
	require.Nil(t, err)
	assert.Equal(t, ep.ID, epAgain.ID)
}

func TestNextManualID(t *testing.T) {
	ctx := context.Background()
	store := initSqlite(t)

	id, err := store.NextManualID(ctx, media.TypeBook)
	assert.Nil(t, err)
	assert.Equal(t, "1", id)

	_, err = store.GetOrCreateItem(ctx, model.Item{MediaID: id, Source: "manual", MediaType: "book", Title: "Blood Meridian"})
	require.Nil(t, err)

	id, err = store.NextManualID(ctx, media.TypeBook)
	assert.Nil(t, err)
	assert.Equal(t, "2", id)

	// other types keep their own sequence
	id, err = store.NextManualID(ctx, media.TypeGame)
	assert.Nil(t, err)
	assert.Equal(t, "1", id)
}

func TestMediaStorage(t *testing.T) {
	ctx := context.Background()
	store := initSqlite(t)

	userID, item := seedUserAndItem(t, store, "flcl", "movie", "603")

	score := 8.5
	id, err := store.CreateMedia(ctx, model.Media{
		ItemID:    item.ID,
		UserID:    int32(userID),
		MediaType: "movie",
		Status:    "Completed",
		Progress:  1,
		Score:     &score,
	})
	require.Nil(t, err)

	got, err := store.GetMedia(ctx, table.Media.ID.EQ(sqlite.Int64(id)))
	require.Nil(t, err)
	assert.Equal(t, "Completed", got.Media.Status)
	assert.Equal(t, item.Title, got.Item.Title)
	assert.Equal(t, 8.5, *got.Media.Score)

	// same item and user is a duplicate
	_, err = store.CreateMedia(ctx, model.Media{ItemID: item.ID, UserID: int32(userID), MediaType: "movie", Status: "Planning"})
	assert.ErrorIs(t, err, storage.ErrDuplicate)

	got.Media.Status = "Repeating"
	got.Media.Repeats = 1
	err = store.UpdateMedia(ctx, got.Media)
	assert.Nil(t, err)

	got, err = store.GetMedia(ctx, table.Media.ID.EQ(sqlite.Int64(id)))
	require.Nil(t, err)
	assert.Equal(t, "Repeating", got.Media.Status)
	assert.Equal(t, int32(1), got.Media.Repeats)

	err = store.DeleteMedia(ctx, id)
	assert.Nil(t, err)

	_, err = store.GetMedia(ctx, table.Media.ID.EQ(sqlite.Int64(id)))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestShowTree(t *testing.T) {
	ctx := context.Background()
	store := initSqlite(t)

	userID, showItem := seedUserAndItem(t, store, "walt", "tv", "1396")

	showID, err := store.CreateMedia(ctx, model.Media{
		ItemID:    showItem.ID,
		UserID:    int32(userID),
		MediaType: "tv",
		Status:    "In progress",
	})
	require.Nil(t, err)

	one := int32(1)
	seasonItem, err := store.GetOrCreateItem(ctx, model.Item{MediaID: "1396", Source: "tmdb", MediaType: "season", Title: "Breaking Bad", SeasonNumber: &one})
	require.Nil(t, err)

	related := int32(showID)
	seasonID, err := store.CreateMedia(ctx, model.Media{
		ItemID:      seasonItem.ID,
		UserID:      int32(userID),
		MediaType:   "season",
		Status:      "In progress",
		RelatedTvID: &related,
	})
	require.Nil(t, err)

	watched := time.Date(2026, 2, 1, 20, 0, 0, 0, time.UTC)
	for _, n := range []int32{1, 2, 3} {
		n := n
		epItem, err := store.GetOrCreateItem(ctx, model.Item{MediaID: "1396", Source: "tmdb", MediaType: "episode", Title: "Breaking Bad", SeasonNumber: &one, EpisodeNumber: &n})
		require.Nil(t, err)

		d := watched.AddDate(0, 0, int(n))
		_, err = store.CreateEpisode(ctx, model.Episode{ItemID: epItem.ID, SeasonID: int32(seasonID), EndDate: &d})
		require.Nil(t, err)
	}

	show, err := store.GetShow(ctx, table.Media.ID.EQ(sqlite.Int64(showID)))
	require.Nil(t, err)
	assert.Equal(t, "In progress", show.Media.Status)
	assert.Equal(t, "Breaking Bad", show.Item.Title)
	require.Len(t, show.Seasons, 1)

	season := show.Seasons[0]
	assert.Equal(t, int32(1), *season.Item.SeasonNumber)
	assert.Len(t, season.Episodes, 3)
	assert.Equal(t, int32(3), season.WatchedProgress())
	assert.Equal(t, int32(3), show.WatchedProgress())

	start, end := show.WatchDates()
	require.NotNil(t, start)
	require.NotNil(t, end)
	assert.True(t, start.Before(*end))

	// deleting the show cascades to seasons and watches
	err = store.DeleteMedia(ctx, showID)
	require.Nil(t, err)

	seasons, err := store.ListSeasons(ctx, storage.SeasonMedia.UserID.EQ(sqlite.Int64(userID)))
	require.Nil(t, err)
	assert.Empty(t, seasons)

	episodes, err := store.ListEpisodes(ctx, table.Episode.SeasonID.EQ(sqlite.Int64(seasonID)))
	require.Nil(t, err)
	assert.Empty(t, episodes)
}

func TestEpisodeWatches(t *testing.T) {
	ctx := context.Background()
	store := initSqlite(t)

	userID, showItem := seedUserAndItem(t, store, "rewatcher", "tv", "604")
	showID, err := store.CreateMedia(ctx, model.Media{ItemID: showItem.ID, UserID: int32(userID), MediaType: "tv", Status: "In progress"})
	require.Nil(t, err)

	one := int32(1)
	seasonItem, err := store.GetOrCreateItem(ctx, model.Item{MediaID: "604", Source: "tmdb", MediaType: "season", Title: "Futurama", SeasonNumber: &one})
	require.Nil(t, err)
	related := int32(showID)
	seasonID, err := store.CreateMedia(ctx, model.Media{ItemID: seasonItem.ID, UserID: int32(userID), MediaType: "season", Status: "In progress", RelatedTvID: &related})
	require.Nil(t, err)

	epItem, err := store.GetOrCreateItem(ctx, model.Item{MediaID: "604", Source: "tmdb", MediaType: "episode", Title: "Futurama", SeasonNumber: &one, EpisodeNumber: &one})
	require.Nil(t, err)

	firstWatch := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	secondWatch := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)

	_, err = store.CreateEpisode(ctx, model.Episode{ItemID: epItem.ID, SeasonID: int32(seasonID), EndDate: &firstWatch})
	require.Nil(t, err)
	_, err = store.CreateEpisode(ctx, model.Episode{ItemID: epItem.ID, SeasonID: int32(seasonID), EndDate: &secondWatch})
	require.Nil(t, err)

	// same episode on the same date is a duplicate
	_, err = store.CreateEpisode(ctx, model.Episode{ItemID: epItem.ID, SeasonID: int32(seasonID), EndDate: &secondWatch})
	assert.ErrorIs(t, err, storage.ErrDuplicate)

	season, err := store.GetSeason(ctx, storage.SeasonMedia.ID.EQ(sqlite.Int64(seasonID)))
	require.Nil(t, err)
	assert.Len(t, season.Episodes, 2)
	assert.Equal(t, int32(1), season.WatchedProgress())
	assert.Equal(t, int32(1), season.WatchedRepeats())

	// unwatch removes the most recent watch
	removed, err := store.DeleteLatestEpisode(ctx, int64(epItem.ID), seasonID)
	require.Nil(t, err)
	assert.True(t, removed.Episode.EndDate.Equal(secondWatch))

	removed, err = store.DeleteLatestEpisode(ctx, int64(epItem.ID), seasonID)
	require.Nil(t, err)
	assert.True(t, removed.Episode.EndDate.Equal(firstWatch))

	_, err = store.DeleteLatestEpisode(ctx, int64(epItem.ID), seasonID)
	assert.ErrorIs(t, err, storage.ErrEpisodeNotFound)
}

func TestEventStorage(t *testing.T) {
	ctx := context.Background()
	store := initSqlite(t)

	_, item := seedUserAndItem(t, store, "cal", "tv", "82856")

	two := int32(2)
	err := store.ReplaceEvents(ctx, int64(item.ID), []model.Event{
		{ItemID: item.ID, Date: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)},
		{ItemID: item.ID, EpisodeNumber: &two, Date: time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC)},
	})
	require.Nil(t, err)

	events, err := store.ListEvents(ctx, table.Event.ItemID.EQ(sqlite.Int32(item.ID)))
	require.Nil(t, err)
	require.Len(t, events, 2)
	assert.True(t, events[0].Date.Before(events[1].Date))

	// a refresh replaces the previous set
	err = store.ReplaceEvents(ctx, int64(item.ID), []model.Event{
		{ItemID: item.ID, Date: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)},
	})
	require.Nil(t, err)

	events, err = store.ListEvents(ctx, table.Event.ItemID.EQ(sqlite.Int32(item.ID)))
	require.Nil(t, err)
	assert.Len(t, events, 1)
}

func TestHistoryStorage(t *testing.T) {
	ctx := context.Background()
	store := initSqlite(t)

	userID, item := seedUserAndItem(t, store, "hist", "anime", "5114")

	_, err := store.RecordHistory(ctx, model.History{
		UserID:    int32(userID),
		MediaType: "anime",
		ItemID:    item.ID,
		Delta:     `{"status":["Planning","In progress"]}`,
	})
	require.Nil(t, err)

	_, err = store.RecordHistory(ctx, model.History{
		UserID:    int32(userID),
		MediaType: "anime",
		ItemID:    item.ID,
		Delta:     `{"progress":[0,64]}`,
	})
	require.Nil(t, err)

	entries, err := store.ListHistory(ctx, table.History.UserID.EQ(sqlite.Int64(userID)))
	require.Nil(t, err)
	require.Len(t, entries, 2)
	// newest first
	assert.Contains(t, entries[0].Delta, "progress")
}

func TestJobStorage(t *testing.T) {
	ctx := context.Background()
	store := initSqlite(t)

	userID, err := store.CreateUser(ctx, model.User{Username: "worker", Token: "tok-w"})
	require.Nil(t, err)

	id, err := store.CreateJob(ctx, model.Job{
		Type:   "import",
		Source: "anilist",
		UserID: int32(userID),
		Mode:   "new",
	}, storage.JobStatePending)
	require.Nil(t, err)

	job, err := store.GetJob(ctx, id)
	require.Nil(t, err)
	assert.Equal(t, storage.JobStatePending, job.State())

	// pending can't jump straight to done
	err = store.UpdateJobState(ctx, id, storage.JobStateDone, nil)
	assert.NotNil(t, err)

	err = store.UpdateJobState(ctx, id, storage.JobStateRunning, nil)
	require.Nil(t, err)

	job, err = store.GetJob(ctx, id)
	require.Nil(t, err)
	assert.NotNil(t, job.StartedAt)

	msg := "rate limited"
	err = store.UpdateJobState(ctx, id, storage.JobStateError, &msg)
	require.Nil(t, err)

	jobs, err := store.ListJobsByState(ctx, storage.JobStateError)
	require.Nil(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "rate limited", *jobs[0].Error)
	assert.NotNil(t, jobs[0].FinishedAt)

	err = store.DeleteJob(ctx, id)
	assert.Nil(t, err)
}

func TestStatusDistribution(t *testing.T) {
	ctx := context.Background()
	store := initSqlite(t)

	userID, err := store.CreateUser(ctx, model.User{Username: "stats", Token: "tok-s"})
	require.Nil(t, err)

	seed := []struct {
		mediaID   string
		mediaType string
		status    string
		score     *float64
	}{
		{"1", "movie", "Completed", ptr(9.0)},
		{"2", "movie", "Completed", ptr(7.0)},
		{"3", "movie", "Dropped", nil},
		{"4", "anime", "In progress", ptr(9.0)},
	}
	for _, s := range seed {
		item, err := store.GetOrCreateItem(ctx, model.Item{MediaID: s.mediaID, Source: "tmdb", MediaType: s.mediaType, Title: "t" + s.mediaID})
		require.Nil(t, err)
		_, err = store.CreateMedia(ctx, model.Media{ItemID: item.ID, UserID: int32(userID), MediaType: s.mediaType, Status: s.status, Score: s.score})
		require.Nil(t, err)
	}

	dist, err := store.StatusDistribution(ctx, userID)
	require.Nil(t, err)
	assert.Equal(t, 2, dist[media.TypeMovie][media.StatusCompleted])
	assert.Equal(t, 1, dist[media.TypeMovie][media.StatusDropped])
	assert.Equal(t, 1, dist[media.TypeAnime][media.StatusInProgress])

	scores, err := store.ScoreDistribution(ctx, userID)
	require.Nil(t, err)
	assert.Equal(t, 1, scores[media.TypeMovie][9])
	assert.Equal(t, 1, scores[media.TypeMovie][7])
	assert.Equal(t, 1, scores[media.TypeAnime][9])
}

func TestTxRollback(t *testing.T) {
	ctx := context.Background()
	store := initSqlite(t)

	userID, item := seedUserAndItem(t, store, "txer", "movie", "550")

	boom := errors.New("boom")
	err := store.Tx(ctx, func(tx storage.Storage) error {
		_, err := tx.CreateMedia(ctx, model.Media{ItemID: item.ID, UserID: int32(userID), MediaType: "movie", Status: "Completed"})
		require.Nil(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	// the insert rolled back with the error
	_, err = store.GetMedia(ctx, table.Media.ItemID.EQ(sqlite.Int32(item.ID)))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = store.Tx(ctx, func(tx storage.Storage) error {
		_, err := tx.CreateMedia(ctx, model.Media{ItemID: item.ID, UserID: int32(userID), MediaType: "movie", Status: "Completed"})
		return err
	})
	assert.Nil(t, err)

	_, err = store.GetMedia(ctx, table.Media.ItemID.EQ(sqlite.Int32(item.ID)))
	assert.Nil(t, err)
}

func initSqlite(t *testing.T) storage.Storage {
	store, err := New(":memory:")
	require.Nil(t, err)
	return store
}

func seedUserAndItem(t *testing.T, store storage.Storage, username, mediaType, mediaID string) (int64, *model.Item) {
	t.Helper()
	ctx := context.Background()

	userID, err := store.CreateUser(ctx, model.User{Username: username, Token: "tok-" + username})
	require.Nil(t, err)

	item, err := store.GetOrCreateItem(ctx, model.Item{
		MediaID:   mediaID,
		Source:    "tmdb",
		MediaType: mediaType,
		Title:     "Breaking Bad",
	})
	require.Nil(t, err)

	return userID, item
}

func ptr[T any](v T) *T { return &v }
