package tracker

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/go-jet/jet/v2/sqlite"
	"github.com/oapi-codegen/nullable"
	"github.com/oapi-codegen/runtime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trackarr/trackarr/pkg/media"
	"github.com/trackarr/trackarr/pkg/provider"
	"github.com/trackarr/trackarr/pkg/provider/manual"
	"github.com/trackarr/trackarr/pkg/provider/mocks"
	"github.com/trackarr/trackarr/pkg/storage"
	storagesqlite "github.com/trackarr/trackarr/pkg/storage/sqlite"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/model"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/table"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	tracker *Tracker
	store   storage.Storage
	client  *mocks.MockClient
	userID  int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := storagesqlite.New(":memory:")
	require.NoError(t, err)

	userID, err := store.CreateUser(context.Background(), model.User{Username: "tester", Token: "secret"})
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)

	registry := provider.NewRegistry()
	registry.Register(media.TypeTV, media.SourceTMDB, client)
	registry.Register(media.TypeAnime, media.SourceMAL, client)
	registry.Register(media.TypeGame, media.SourceIGDB, client)

	return &fixture{
		tracker: New(store, registry),
		store:   store,
		client:  client,
		userID:  userID,
	}
}

func ptr[T any](v T) *T { return &v }

// tvMeta builds a show payload with the given episode count per season.
func tvMeta(id, title string, seasons map[int32]int) *provider.Metadata {
	m := &provider.Metadata{
		MediaID:   id,
		MediaType: media.TypeTV,
		Source:    media.SourceTMDB,
		Title:     title,
		Details:   map[string]string{},
		Seasons:   map[int32]*provider.SeasonMetadata{},
	}
	for n := range seasons {
		m.SeasonNumbers = append(m.SeasonNumbers, n)
	}
	sort.Slice(m.SeasonNumbers, func(i, j int) bool { return m.SeasonNumbers[i] < m.SeasonNumbers[j] })

	for _, n := range m.SeasonNumbers {
		sm := &provider.SeasonMetadata{SeasonNumber: n, Title: fmt.Sprintf("%s Season %d", title, n)}
		for e := int32(1); e <= int32(seasons[n]); e++ {
			sm.Episodes = append(sm.Episodes, provider.EpisodeMetadata{
				EpisodeNumber: e,
				Title:         fmt.Sprintf("Episode %d", e),
			})
		}
		m.Seasons[n] = sm
	}
	return m
}

func animeMeta(id, title string, episodes int32) *provider.Metadata {
	return &provider.Metadata{
		MediaID:     id,
		MediaType:   media.TypeAnime,
		Source:      media.SourceMAL,
		Title:       title,
		MaxProgress: &episodes,
		Details:     map[string]string{},
	}
}

func (f *fixture) seasonRow(t *testing.T, ref Ref) *storage.Media {
	t.Helper()
	item, err := getItem(context.Background(), f.store, ref)
	require.NoError(t, err)
	m, err := f.store.GetMedia(context.Background(), mediaWhere(f.userID, item.ID))
	require.NoError(t, err)
	return m
}

func (f *fixture) historyCount(t *testing.T) int {
	t.Helper()
	rows, err := f.store.ListHistory(context.Background(), table.History.UserID.EQ(sqlite.Int64(f.userID)))
	require.NoError(t, err)
	return len(rows)
}

func (f *fixture) episodeCount(t *testing.T) int {
	t.Helper()
	rows, err := f.store.ListEpisodes(context.Background(), table.Episode.ID.GT_EQ(sqlite.Int64(0)))
	require.NoError(t, err)
	return len(rows)
}

func tvRef(id string) Ref {
	return Ref{MediaType: media.TypeTV, Source: media.SourceTMDB, MediaID: id}
}

func seasonRef(id string, n int32) Ref {
	return Ref{MediaType: media.TypeSeason, Source: media.SourceTMDB, MediaID: id, SeasonNumber: &n}
}

func episodeRef(id string, s, e int32) Ref {
	return Ref{MediaType: media.TypeEpisode, Source: media.SourceTMDB, MediaID: id, SeasonNumber: &s, EpisodeNumber: &e}
}

func TestWatchEpisodeCascades(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	meta := tvMeta("100", "Two Seasons", map[int32]int{1: 2, 2: 2})
	f.client.EXPECT().Detail(gomock.Any(), media.TypeTV, "100").Return(meta, nil).AnyTimes()

	require.NoError(t, f.tracker.WatchEpisode(ctx, f.userID, episodeRef("100", 1, 1), time.Now()))

	season := f.seasonRow(t, seasonRef("100", 1))
	assert.Equal(t, string(media.StatusInProgress), season.Media.Status)
	assert.Equal(t, int32(1), season.Media.Progress)
	show := f.seasonRow(t, tvRef("100"))
	assert.Equal(t, string(media.StatusInProgress), show.Media.Status)

	// finishing a non-final season completes the season only
	require.NoError(t, f.tracker.WatchEpisode(ctx, f.userID, episodeRef("100", 1, 2), time.Now()))
	season = f.seasonRow(t, seasonRef("100", 1))
	assert.Equal(t, string(media.StatusCompleted), season.Media.Status)
	assert.NotNil(t, season.Media.EndDate)
	show = f.seasonRow(t, tvRef("100"))
	assert.Equal(t, string(media.StatusInProgress), show.Media.Status)

	// the final episode of the final season completes season and show at once
	require.NoError(t, f.tracker.WatchEpisode(ctx, f.userID, episodeRef("100", 2, 1), time.Now()))
	require.NoError(t, f.tracker.WatchEpisode(ctx, f.userID, episodeRef("100", 2, 2), time.Now()))

	season = f.seasonRow(t, seasonRef("100", 2))
	assert.Equal(t, string(media.StatusCompleted), season.Media.Status)
	show = f.seasonRow(t, tvRef("100"))
	assert.Equal(t, string(media.StatusCompleted), show.Media.Status)
	assert.NotNil(t, show.Media.EndDate)
}

func TestSeasonCompletedBackfillsAndCompletesShow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	meta := tvMeta("1396", "Breaking Bad", map[int32]int{1: 7})
	f.client.EXPECT().Detail(gomock.Any(), media.TypeTV, "1396").Return(meta, nil).AnyTimes()

	_, err := f.tracker.SetStatus(ctx, f.userID, seasonRef("1396", 1), media.StatusCompleted)
	require.NoError(t, err)

	assert.Equal(t, 7, f.episodeCount(t))
	season := f.seasonRow(t, seasonRef("1396", 1))
	assert.Equal(t, string(media.StatusCompleted), season.Media.Status)
	assert.Equal(t, int32(7), season.Media.Progress)

	// the only season completing completes the show
	show := f.seasonRow(t, tvRef("1396"))
	assert.Equal(t, string(media.StatusCompleted), show.Media.Status)
}

func TestSeasonCompletionIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	meta := tvMeta("1396", "Breaking Bad", map[int32]int{1: 7})
	f.client.EXPECT().Detail(gomock.Any(), media.TypeTV, "1396").Return(meta, nil).AnyTimes()

	_, err := f.tracker.SetStatus(ctx, f.userID, seasonRef("1396", 1), media.StatusCompleted)
	require.NoError(t, err)

	episodes := f.episodeCount(t)
	history := f.historyCount(t)

	// nothing is missing, so nothing may be written, history included
	_, err = f.tracker.SetStatus(ctx, f.userID, seasonRef("1396", 1), media.StatusCompleted)
	require.NoError(t, err)

	assert.Equal(t, episodes, f.episodeCount(t))
	assert.Equal(t, history, f.historyCount(t))
}

func TestShowCompletedMaterializesEverySeason(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	meta := tvMeta("200", "Long Runner", map[int32]int{1: 3, 2: 4})
	f.client.EXPECT().Detail(gomock.Any(), media.TypeTV, "200").Return(meta, nil).AnyTimes()

	_, err := f.tracker.SetStatus(ctx, f.userID, tvRef("200"), media.StatusCompleted)
	require.NoError(t, err)

	assert.Equal(t, 7, f.episodeCount(t))
	for _, n := range []int32{1, 2} {
		season := f.seasonRow(t, seasonRef("200", n))
		assert.Equal(t, string(media.StatusCompleted), season.Media.Status, "season %d", n)
	}
	show := f.seasonRow(t, tvRef("200"))
	assert.Equal(t, string(media.StatusCompleted), show.Media.Status)
}

func TestShowDroppedDropsOnlyInProgressSeasons(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	meta := tvMeta("300", "Mixed Feelings", map[int32]int{1: 2, 2: 2})
	f.client.EXPECT().Detail(gomock.Any(), media.TypeTV, "300").Return(meta, nil).AnyTimes()

	require.NoError(t, f.tracker.WatchEpisode(ctx, f.userID, episodeRef("300", 1, 1), time.Now()))
	_, err := f.tracker.SetStatus(ctx, f.userID, seasonRef("300", 2), media.StatusPlanning)
	require.NoError(t, err)

	_, err = f.tracker.SetStatus(ctx, f.userID, tvRef("300"), media.StatusDropped)
	require.NoError(t, err)

	assert.Equal(t, string(media.StatusDropped), f.seasonRow(t, seasonRef("300", 1)).Media.Status)
	assert.Equal(t, string(media.StatusPlanning), f.seasonRow(t, seasonRef("300", 2)).Media.Status)
	assert.Equal(t, string(media.StatusDropped), f.seasonRow(t, tvRef("300")).Media.Status)
}

func TestShowInProgressActivatesNextSeason(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	meta := tvMeta("400", "Next Up", map[int32]int{1: 1, 2: 2})
	f.client.EXPECT().Detail(gomock.Any(), media.TypeTV, "400").Return(meta, nil).AnyTimes()

	_, err := f.tracker.SetStatus(ctx, f.userID, seasonRef("400", 1), media.StatusCompleted)
	require.NoError(t, err)

	_, err = f.tracker.SetStatus(ctx, f.userID, tvRef("400"), media.StatusInProgress)
	require.NoError(t, err)

	// season 2 did not exist yet, it gets created and activated
	assert.Equal(t, string(media.StatusInProgress), f.seasonRow(t, seasonRef("400", 2)).Media.Status)

	// with a season already active, another activation is a no-op
	history := f.historyCount(t)
	_, err = f.tracker.SetStatus(ctx, f.userID, tvRef("400"), media.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, history, f.historyCount(t))
}

func TestUnwatchRemovesMostRecentOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	meta := tvMeta("500", "Rewatched", map[int32]int{1: 2})
	f.client.EXPECT().Detail(gomock.Any(), media.TypeTV, "500").Return(meta, nil).AnyTimes()

	first := time.Date(2026, 1, 1, 20, 0, 0, 0, time.UTC)
	second := time.Date(2026, 2, 1, 20, 0, 0, 0, time.UTC)
	require.NoError(t, f.tracker.WatchEpisode(ctx, f.userID, episodeRef("500", 1, 1), first))
	require.NoError(t, f.tracker.WatchEpisode(ctx, f.userID, episodeRef("500", 1, 1), second))
	require.Equal(t, 2, f.episodeCount(t))

	require.NoError(t, f.tracker.UnwatchEpisode(ctx, f.userID, episodeRef("500", 1, 1)))

	rows, err := f.store.ListEpisodes(ctx, table.Episode.ID.GT_EQ(sqlite.Int64(0)))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, first.Unix(), rows[0].Episode.EndDate.Unix())

	// unwatching an episode with no watch recorded fails
	require.NoError(t, f.tracker.UnwatchEpisode(ctx, f.userID, episodeRef("500", 1, 1)))
	err = f.tracker.UnwatchEpisode(ctx, f.userID, episodeRef("500", 1, 1))
	assert.ErrorIs(t, err, storage.ErrEpisodeNotFound)
}

func TestUnwatchDoesNotRegressStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	meta := tvMeta("510", "Stays Done", map[int32]int{1: 1})
	f.client.EXPECT().Detail(gomock.Any(), media.TypeTV, "510").Return(meta, nil).AnyTimes()

	require.NoError(t, f.tracker.WatchEpisode(ctx, f.userID, episodeRef("510", 1, 1), time.Now()))
	require.Equal(t, string(media.StatusCompleted), f.seasonRow(t, seasonRef("510", 1)).Media.Status)

	require.NoError(t, f.tracker.UnwatchEpisode(ctx, f.userID, episodeRef("510", 1, 1)))

	season := f.seasonRow(t, seasonRef("510", 1))
	assert.Equal(t, string(media.StatusCompleted), season.Media.Status)
	assert.Equal(t, int32(0), season.Media.Progress)
}

func TestRepeatWatchCycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	meta := tvMeta("520", "Comfort Show", map[int32]int{1: 2})
	f.client.EXPECT().Detail(gomock.Any(), media.TypeTV, "520").Return(meta, nil).AnyTimes()

	base := time.Date(2026, 3, 1, 21, 0, 0, 0, time.UTC)
	require.NoError(t, f.tracker.WatchEpisode(ctx, f.userID, episodeRef("520", 1, 1), base))
	require.NoError(t, f.tracker.WatchEpisode(ctx, f.userID, episodeRef("520", 1, 2), base.Add(time.Hour)))
	require.Equal(t, string(media.StatusCompleted), f.seasonRow(t, seasonRef("520", 1)).Media.Status)

	// starting over flips the season and show to Repeating
	require.NoError(t, f.tracker.WatchEpisode(ctx, f.userID, episodeRef("520", 1, 1), base.AddDate(0, 1, 0)))
	assert.Equal(t, string(media.StatusRepeating), f.seasonRow(t, seasonRef("520", 1)).Media.Status)
	assert.Equal(t, string(media.StatusRepeating), f.seasonRow(t, tvRef("520")).Media.Status)

	// finishing the rewatch lands back on Completed with a repeat counted
	require.NoError(t, f.tracker.WatchEpisode(ctx, f.userID, episodeRef("520", 1, 2), base.AddDate(0, 1, 1)))
	season := f.seasonRow(t, seasonRef("520", 1))
	assert.Equal(t, string(media.StatusCompleted), season.Media.Status)
	assert.Equal(t, int32(1), season.Media.Repeats)
	assert.Equal(t, string(media.StatusCompleted), f.seasonRow(t, tvRef("520")).Media.Status)
}

func TestProviderFailureLeavesNoState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	meta := tvMeta("600", "Flaky Provider", map[int32]int{1: 3})

	gomock.InOrder(
		f.client.EXPECT().Detail(gomock.Any(), media.TypeTV, "600").Return(meta, nil),
		f.client.EXPECT().Detail(gomock.Any(), media.TypeTV, "600").Return(nil, &provider.Error{
			Provider:   media.SourceTMDB,
			StatusCode: 503,
			Message:    "upstream unavailable",
		}),
	)

	_, err := f.tracker.SetStatus(ctx, f.userID, seasonRef("600", 1), media.StatusCompleted)
	require.Error(t, err)
	pErr, ok := provider.AsError(err)
	require.True(t, ok)
	assert.Equal(t, 503, pErr.StatusCode)

	// metadata failed before the transaction opened, nothing was tracked
	rows, err := f.store.ListMedia(ctx, table.Media.UserID.EQ(sqlite.Int64(f.userID)))
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Zero(t, f.episodeCount(t))
	assert.Zero(t, f.historyCount(t))
}

func TestProgressClampsAndAutoCompletes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ref := Ref{MediaType: media.TypeAnime, Source: media.SourceMAL, MediaID: "5114"}
	f.client.EXPECT().Detail(gomock.Any(), media.TypeAnime, "5114").Return(animeMeta("5114", "Fullmetal Alchemist: Brotherhood", 64), nil).AnyTimes()

	m, err := f.tracker.SetProgress(ctx, f.userID, ref, 99)
	require.NoError(t, err)

	assert.Equal(t, int32(64), m.Media.Progress)
	assert.Equal(t, string(media.StatusCompleted), m.Media.Status)
	assert.NotNil(t, m.Media.EndDate)
}

func TestProgressSteps(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ref := Ref{MediaType: media.TypeGame, Source: media.SourceIGDB, MediaID: "1942"}
	f.client.EXPECT().Detail(gomock.Any(), media.TypeGame, "1942").Return(&provider.Metadata{
		MediaID:   "1942",
		MediaType: media.TypeGame,
		Source:    media.SourceIGDB,
		Title:     "The Witcher 3",
		Details:   map[string]string{},
	}, nil).AnyTimes()

	m, err := f.tracker.SetProgress(ctx, f.userID, ref, 60)
	require.NoError(t, err)
	require.Equal(t, int32(60), m.Media.Progress)
	assert.Equal(t, string(media.StatusInProgress), m.Media.Status)

	m, err = f.tracker.IncreaseProgress(ctx, f.userID, ref)
	require.NoError(t, err)
	assert.Equal(t, int32(90), m.Media.Progress)

	m, err = f.tracker.DecreaseProgress(ctx, f.userID, ref)
	require.NoError(t, err)
	assert.Equal(t, int32(60), m.Media.Progress)
}

func TestProgressDecreaseClampsAtZero(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ref := Ref{MediaType: media.TypeAnime, Source: media.SourceMAL, MediaID: "20"}
	f.client.EXPECT().Detail(gomock.Any(), media.TypeAnime, "20").Return(animeMeta("20", "Naruto", 220), nil).AnyTimes()

	_, err := f.tracker.SetProgress(ctx, f.userID, ref, 1)
	require.NoError(t, err)
	m, err := f.tracker.DecreaseProgress(ctx, f.userID, ref)
	require.NoError(t, err)
	require.Equal(t, int32(0), m.Media.Progress)

	m, err = f.tracker.DecreaseProgress(ctx, f.userID, ref)
	require.NoError(t, err)
	assert.Equal(t, int32(0), m.Media.Progress)
}

func TestNoOpStatusSkipsHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ref := Ref{MediaType: media.TypeAnime, Source: media.SourceMAL, MediaID: "1"}
	f.client.EXPECT().Detail(gomock.Any(), media.TypeAnime, "1").Return(animeMeta("1", "Cowboy Bebop", 26), nil).AnyTimes()

	_, err := f.tracker.SetStatus(ctx, f.userID, ref, media.StatusPaused)
	require.NoError(t, err)
	history := f.historyCount(t)

	_, err = f.tracker.SetStatus(ctx, f.userID, ref, media.StatusPaused)
	require.NoError(t, err)
	assert.Equal(t, history, f.historyCount(t))
}

func TestUpdatePatchesFields(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ref := Ref{MediaType: media.TypeAnime, Source: media.SourceMAL, MediaID: "30"}
	f.client.EXPECT().Detail(gomock.Any(), media.TypeAnime, "30").Return(animeMeta("30", "Evangelion", 26), nil).AnyTimes()

	_, err := f.tracker.SetStatus(ctx, f.userID, ref, media.StatusCompleted)
	require.NoError(t, err)

	m, err := f.tracker.Update(ctx, f.userID, ref, Update{
		Score: nullable.NewNullableWithValue(9.5),
		Notes: nullable.NewNullableWithValue("rewatch with the movies"),
	})
	require.NoError(t, err)
	require.NotNil(t, m.Media.Score)
	assert.Equal(t, 9.5, *m.Media.Score)
	assert.Equal(t, "rewatch with the movies", m.Media.Notes)

	// explicit null clears
	m, err = f.tracker.Update(ctx, f.userID, ref, Update{Score: nullable.NewNullNullable[float64]()})
	require.NoError(t, err)
	assert.Nil(t, m.Media.Score)

	_, err = f.tracker.Update(ctx, f.userID, ref, Update{Score: nullable.NewNullableWithValue(11.0)})
	assert.Error(t, err)
}

func TestHistoryRecordsDeltas(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ref := Ref{MediaType: media.TypeAnime, Source: media.SourceMAL, MediaID: "40"}
	f.client.EXPECT().Detail(gomock.Any(), media.TypeAnime, "40").Return(animeMeta("40", "Trigun", 26), nil).AnyTimes()

	_, err := f.tracker.SetStatus(ctx, f.userID, ref, media.StatusPlanning)
	require.NoError(t, err)
	_, err = f.tracker.SetProgress(ctx, f.userID, ref, 5)
	require.NoError(t, err)

	entries, err := f.tracker.History(ctx, f.userID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// newest first: the progress change
	change, ok := entries[0].Changes["progress"]
	require.True(t, ok)
	assert.EqualValues(t, 5, change.New)
	change, ok = entries[0].Changes["status"]
	require.True(t, ok)
	assert.Equal(t, string(media.StatusInProgress), change.New)
	assert.NotEmpty(t, entries[0].RecordedAgo)

	change, ok = entries[1].Changes["status"]
	require.True(t, ok)
	assert.Nil(t, change.Old)
	assert.Equal(t, string(media.StatusPlanning), change.New)
}

func TestListAnnotations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	premiere := time.Now().AddDate(0, 0, 14).Truncate(24 * time.Hour)
	meta := animeMeta("50", "Upcoming Season", 12)
	meta.Events = []provider.EventMetadata{{Date: types.Date{Time: premiere}}}
	f.client.EXPECT().Detail(gomock.Any(), media.TypeAnime, "50").Return(meta, nil).AnyTimes()

	_, err := f.tracker.SetStatus(ctx, f.userID, Ref{MediaType: media.TypeAnime, Source: media.SourceMAL, MediaID: "50"}, media.StatusPlanning)
	require.NoError(t, err)

	entries, err := f.tracker.List(ctx, f.userID, media.TypeAnime, ListOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.NotNil(t, entries[0].MaxProgress)
	assert.Equal(t, int32(12), *entries[0].MaxProgress)
	require.NotNil(t, entries[0].NextEvent)
	assert.Equal(t, premiere.Unix(), entries[0].NextEvent.Unix())
}

func TestListShowsDerivesProgress(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	meta := tvMeta("700", "Derived", map[int32]int{1: 4})
	f.client.EXPECT().Detail(gomock.Any(), media.TypeTV, "700").Return(meta, nil).AnyTimes()

	require.NoError(t, f.tracker.WatchEpisode(ctx, f.userID, episodeRef("700", 1, 1), time.Now()))
	require.NoError(t, f.tracker.WatchEpisode(ctx, f.userID, episodeRef("700", 1, 2), time.Now().Add(time.Minute)))

	entries, err := f.tracker.List(ctx, f.userID, media.TypeTV, ListOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	assert.Equal(t, int32(2), entries[0].Media.Progress)
	require.NotNil(t, entries[0].MaxProgress)
	assert.Equal(t, int32(4), *entries[0].MaxProgress)
	assert.NotNil(t, entries[0].Media.StartDate)
}

func TestUntrackRemovesTree(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	meta := tvMeta("800", "Short Lived", map[int32]int{1: 2})
	f.client.EXPECT().Detail(gomock.Any(), media.TypeTV, "800").Return(meta, nil).AnyTimes()

	require.NoError(t, f.tracker.WatchEpisode(ctx, f.userID, episodeRef("800", 1, 1), time.Now()))

	require.NoError(t, f.tracker.Untrack(ctx, f.userID, tvRef("800")))

	rows, err := f.store.ListMedia(ctx, table.Media.UserID.EQ(sqlite.Int64(f.userID)))
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Zero(t, f.episodeCount(t))

	// the canonical items stay for future re-tracking
	items, err := f.store.ListItems(ctx, table.Item.MediaID.EQ(sqlite.String("800")))
	require.NoError(t, err)
	assert.NotEmpty(t, items)
}

func TestCreateManualAllocatesIDs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.tracker.CreateManual(ctx, f.userID, media.TypeBook, "My Zine", "")
	require.NoError(t, err)
	second, err := f.tracker.CreateManual(ctx, f.userID, media.TypeBook, "My Other Zine", "")
	require.NoError(t, err)

	assert.Equal(t, "1", first.Item.MediaID)
	assert.Equal(t, "2", second.Item.MediaID)
	assert.Equal(t, string(media.StatusPlanning), first.Media.Status)
}

// newManualFixture wires the engine against the manual adapter on the same
// live store, the way serve assembles it. The adapter reads items through
// the outer store, so these tests also prove mutations never hold the write
// connection across a metadata lookup.
func newManualFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := storagesqlite.New(":memory:")
	require.NoError(t, err)

	userID, err := store.CreateUser(context.Background(), model.User{Username: "tester", Token: "secret"})
	require.NoError(t, err)

	registry := provider.NewRegistry()
	mc := manual.New(store)
	registry.Register(media.TypeMovie, media.SourceManual, mc)
	registry.Register(media.TypeTV, media.SourceManual, mc)

	return &fixture{
		tracker: New(store, registry),
		store:   store,
		userID:  userID,
	}
}

func TestManualMediaStatusAndProgress(t *testing.T) {
	ctx := context.Background()
	f := newManualFixture(t)

	created, err := f.tracker.CreateManual(ctx, f.userID, media.TypeMovie, "Home Movie", "")
	require.NoError(t, err)
	ref := Ref{MediaType: media.TypeMovie, Source: media.SourceManual, MediaID: created.Item.MediaID}

	m, err := f.tracker.SetStatus(ctx, f.userID, ref, media.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, string(media.StatusInProgress), m.Media.Status)
	assert.NotNil(t, m.Media.StartDate)

	m, err = f.tracker.SetProgress(ctx, f.userID, ref, 3)
	require.NoError(t, err)
	assert.Equal(t, int32(3), m.Media.Progress)

	m, err = f.tracker.SetStatus(ctx, f.userID, ref, media.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, string(media.StatusCompleted), m.Media.Status)
	assert.NotNil(t, m.Media.EndDate)
}

func TestManualShowWatchCreatesEpisodes(t *testing.T) {
	ctx := context.Background()
	f := newManualFixture(t)

	created, err := f.tracker.CreateManual(ctx, f.userID, media.TypeTV, "Home Show", "")
	require.NoError(t, err)
	id := created.Item.MediaID

	// no episode items exist yet, the watch allocates them
	first := Ref{MediaType: media.TypeEpisode, Source: media.SourceManual, MediaID: id, SeasonNumber: ptr(int32(1)), EpisodeNumber: ptr(int32(1))}
	base := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)
	require.NoError(t, f.tracker.WatchEpisode(ctx, f.userID, first, base))

	epItem, err := getItem(ctx, f.store, first)
	require.NoError(t, err)
	assert.Equal(t, "Episode 1", epItem.Title)

	second := Ref{MediaType: media.TypeEpisode, Source: media.SourceManual, MediaID: id, SeasonNumber: ptr(int32(1)), EpisodeNumber: ptr(int32(2))}
	require.NoError(t, f.tracker.WatchEpisode(ctx, f.userID, second, base.Add(time.Hour)))

	detail, err := f.tracker.Get(ctx, f.userID, Ref{MediaType: media.TypeTV, Source: media.SourceManual, MediaID: id})
	require.NoError(t, err)
	require.NotNil(t, detail.MaxProgress)
	assert.Equal(t, int32(2), *detail.MaxProgress)

	season := detail.Metadata.Seasons[1]
	require.NotNil(t, season)
	require.Len(t, season.Episodes, 2)
	assert.True(t, season.Episodes[0].Watched)
	assert.True(t, season.Episodes[1].Watched)
}

func TestStatistics(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ref := Ref{MediaType: media.TypeAnime, Source: media.SourceMAL, MediaID: "60"}
	f.client.EXPECT().Detail(gomock.Any(), media.TypeAnime, "60").Return(animeMeta("60", "Stats Bait", 12), nil).AnyTimes()

	_, err := f.tracker.SetStatus(ctx, f.userID, ref, media.StatusCompleted)
	require.NoError(t, err)
	_, err = f.tracker.Update(ctx, f.userID, ref, Update{Score: nullable.NewNullableWithValue(8.0)})
	require.NoError(t, err)

	stats, err := f.tracker.Statistics(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.StatusCounts[media.TypeAnime][media.StatusCompleted])
	assert.Equal(t, 1, stats.ScoreBuckets[media.TypeAnime][8])
}
