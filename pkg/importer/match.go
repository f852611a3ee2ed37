package importer

import (
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/trackarr/trackarr/pkg/provider"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// dateLayouts are tried in order; exports disagree on how much of a date
// they keep.
var dateLayouts = []string{"2006-01-02", "2006-01", "2006", "2006/01/02", "01/02/2006"}

// parseDate parses the partial date formats CSV exports carry. Empty input
// is a nil date, not an error.
func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var firstErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return &t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}

var titleCaser = cases.Title(language.English)

// normalizeTitle folds case and whitespace for fuzzy comparison.
func normalizeTitle(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// statusLabel renders an arbitrary-cased foreign status the way the status
// table spells it: first word capitalized, the rest lowercase.
func statusLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	first, rest, found := strings.Cut(s, " ")
	first = titleCaser.String(first)
	if !found {
		return first
	}
	return first + " " + rest
}

// bestMatch picks the search result whose title is closest to the wanted
// title by edit distance, tolerating roughly a quarter of the title drifting.
// Exports routinely differ from provider titles in articles and punctuation.
func bestMatch(title string, results []provider.SearchResult) (*provider.SearchResult, bool) {
	want := normalizeTitle(title)
	if want == "" || len(results) == 0 {
		return nil, false
	}

	bestIdx := -1
	bestDist := -1
	for i := range results {
		dist := levenshtein.ComputeDistance(want, normalizeTitle(results[i].Title))
		if bestDist == -1 || dist < bestDist {
			bestIdx, bestDist = i, dist
		}
	}

	limit := len(want) / 4
	if limit < 2 {
		limit = 2
	}
	if bestDist > limit {
		return nil, false
	}
	return &results[bestIdx], true
}
