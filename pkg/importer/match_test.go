package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trackarr/trackarr/pkg/provider"
)

func TestParseDateLayouts(t *testing.T) {
	for input, want := range map[string]string{
		"2023-05-17": "2023-05-17",
		"2023-05":    "2023-05-01",
		"2023":       "2023-01-01",
		"2023/05/17": "2023-05-17",
		"05/17/2023": "2023-05-17",
	} {
		got, err := parseDate(input)
		require.NoError(t, err, input)
		require.NotNil(t, got, input)
		assert.Equal(t, want, got.Format("2006-01-02"))
	}

	empty, err := parseDate("  ")
	require.NoError(t, err)
	assert.Nil(t, empty)

	_, err = parseDate("yesterday")
	assert.Error(t, err)
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "Completed", statusLabel("COMPLETED"))
	assert.Equal(t, "In progress", statusLabel("  in PROGRESS "))
	assert.Equal(t, "Planning", statusLabel("planning"))
}

func TestBestMatchToleratesDrift(t *testing.T) {
	results := []provider.SearchResult{
		{MediaID: "1", Title: "The Witcher 3: Wild Hunt"},
		{MediaID: "2", Title: "The Witcher 2: Assassins of Kings"},
	}

	match, ok := bestMatch("The Witcher 3 Wild Hunt", results)
	require.True(t, ok)
	assert.Equal(t, "1", match.MediaID)

	_, ok = bestMatch("Stardew Valley", results)
	assert.False(t, ok)

	_, ok = bestMatch("anything", nil)
	assert.False(t, ok)
}

func TestHLTBMinutes(t *testing.T) {
	assert.Nil(t, hltbMinutes("--"))

	zero := hltbMinutes("")
	require.NotNil(t, zero)
	assert.Equal(t, int32(0), *zero)

	full := hltbMinutes("8:35:30")
	require.NotNil(t, full)
	assert.Equal(t, int32(8*60+35+1), *full)

	short := hltbMinutes("46:30")
	require.NotNil(t, short)
	assert.Equal(t, int32(47), *short)

	secs := hltbMinutes("32")
	require.NotNil(t, secs)
	assert.Equal(t, int32(1), *secs)
}
