package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trackarr/trackarr/pkg/media"
)

type fakeClient struct {
	detail   *Metadata
	page     *SearchPage
	err      error
	detailed int
	searched int
}

func (f *fakeClient) Search(_ context.Context, _ media.Type, _ string, _ int) (*SearchPage, error) {
	f.searched++
	return f.page, f.err
}

func (f *fakeClient) Detail(_ context.Context, _ media.Type, _ string) (*Metadata, error) {
	f.detailed++
	return f.detail, f.err
}

func showMetadata() *Metadata {
	seven := int32(7)
	return &Metadata{
		MediaID:       "1396",
		MediaType:     media.TypeTV,
		Source:        media.SourceTMDB,
		Title:         "Breaking Bad",
		MaxProgress:   &seven,
		SeasonNumbers: []int32{1},
		Seasons: map[int32]*SeasonMetadata{
			1: {
				SeasonNumber: 1,
				Title:        "Season 1",
				Episodes: []EpisodeMetadata{
					{EpisodeNumber: 1, Title: "Pilot"},
					{EpisodeNumber: 2, Title: "Cat's in the Bag..."},
				},
			},
		},
	}
}

func TestRegistryDispatch(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry()

	tv := &fakeClient{detail: showMetadata(), page: &SearchPage{Page: 1}}
	registry.Register(media.TypeTV, media.SourceTMDB, tv)

	got, err := registry.GetMetadata(ctx, media.TypeTV, media.SourceTMDB, "1396", nil, nil)
	require.Nil(t, err)
	assert.Equal(t, "Breaking Bad", got.Title)

	// unknown pair fails with a provider error
	_, err = registry.GetMetadata(ctx, media.TypeGame, media.SourceIGDB, "1", nil, nil)
	pErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, media.SourceIGDB, pErr.Provider)
}

func TestRegistryDefaultSource(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry()

	tv := &fakeClient{page: &SearchPage{Page: 1}}
	registry.Register(media.TypeTV, media.SourceTMDB, tv)

	// empty source falls back to the type's default
	_, err := registry.Search(ctx, media.TypeTV, "", "breaking bad", 1)
	require.Nil(t, err)
	assert.Equal(t, 1, tv.searched)
}

func TestSeasonLookupIndexesIntoShow(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry()

	tv := &fakeClient{detail: showMetadata()}
	registry.Register(media.TypeTV, media.SourceTMDB, tv)

	one := int32(1)
	season, err := registry.GetMetadata(ctx, media.TypeSeason, media.SourceTMDB, "1396", &one, nil)
	require.Nil(t, err)
	assert.Equal(t, media.TypeSeason, season.MediaType)
	assert.Equal(t, "Season 1", season.Title)
	require.NotNil(t, season.MaxProgress)
	assert.Equal(t, int32(2), *season.MaxProgress)
	// the season adapter is the show's adapter
	assert.Equal(t, 1, tv.detailed)
}

func TestSeasonNumberDrift(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry()

	registry.Register(media.TypeTV, media.SourceTMDB, &fakeClient{detail: showMetadata()})

	nine := int32(9)
	_, err := registry.GetMetadata(ctx, media.TypeSeason, media.SourceTMDB, "1396", &nine, nil)
	pErr, ok := AsError(err)
	require.True(t, ok)
	// the message names the missing season and the provider id
	assert.Contains(t, pErr.Message, "season 9")
	assert.Contains(t, pErr.Message, "1396")
}

func TestEpisodeLookup(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry()

	registry.Register(media.TypeTV, media.SourceTMDB, &fakeClient{detail: showMetadata()})

	one := int32(1)
	two := int32(2)
	episode, err := registry.GetMetadata(ctx, media.TypeEpisode, media.SourceTMDB, "1396", &one, &two)
	require.Nil(t, err)
	assert.Equal(t, "Cat's in the Bag...", episode.Title)
	require.NotNil(t, episode.MaxProgress)
	assert.Equal(t, int32(1), *episode.MaxProgress)

	nine := int32(9)
	_, err = registry.GetMetadata(ctx, media.TypeEpisode, media.SourceTMDB, "1396", &one, &nine)
	pErr, ok := AsError(err)
	require.True(t, ok)
	assert.Contains(t, pErr.Message, "episode 9")
}
