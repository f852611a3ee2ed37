package importer

import (
	"context"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/trackarr/trackarr/pkg/media"
	"github.com/trackarr/trackarr/pkg/provider"
	"github.com/trackarr/trackarr/pkg/storage"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/model"
)

// HLTB imports a HowLongToBeat games export. Titles are matched against
// IGDB by search; when two export rows resolve to the same IGDB game
// neither is imported, since there is no way to tell which one is right.
type HLTB struct {
	store     storage.Storage
	providers *provider.Registry
}

func NewHLTB(store storage.Storage, providers *provider.Registry) *HLTB {
	return &HLTB{store: store, providers: providers}
}

func (h *HLTB) Import(ctx context.Context, userID int64, r io.Reader, mode Mode) (*Result, error) {
	rows, err := readRows(r)
	if err != nil {
		return nil, &Error{Source: "hltb", Message: "unreadable games export", Err: err}
	}

	return runImport(ctx, h.store, "hltb", userID, mode, func(s *session) error {
		matches := make([]*provider.SearchResult, len(rows))
		counts := map[string]int{}
		titles := map[string][]string{}

		for i, row := range rows {
			title := row.get("title")
			match, ok := h.match(ctx, s, title)
			if !ok {
				continue
			}
			matches[i] = match
			counts[match.MediaID]++
			titles[match.MediaID] = append(titles[match.MediaID], title)
		}
		for id, n := range counts {
			if n > 1 {
				s.warns.addf("%s matched the same IGDB game %s, none imported", strings.Join(titles[id], ", "), id)
			}
		}

		for i, row := range rows {
			match := matches[i]
			if match == nil || counts[match.MediaID] > 1 {
				continue
			}
			if err := s.apply(ctx, h.entry(row, match)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (h *HLTB) match(ctx context.Context, s *session, title string) (*provider.SearchResult, bool) {
	page, err := h.providers.Search(ctx, media.TypeGame, media.SourceIGDB, title, 1)
	if err != nil {
		s.warns.addf("searching IGDB for %q: %v", title, err)
		return nil, false
	}
	match, ok := bestMatch(title, page.Results)
	if !ok {
		s.warns.addf("no IGDB match for %q", title)
	}
	return match, ok
}

// hltbStatusFlags are checked in order; the export marks the active list
// with an X column and rows can sit on several lists at once.
var hltbStatusFlags = []struct {
	column string
	status media.Status
}{
	{"completed", media.StatusCompleted},
	{"playing", media.StatusInProgress},
	{"backlog", media.StatusPlanning},
	{"replay", media.StatusInProgress},
	{"retired", media.StatusDropped},
}

func hltbStatus(row csvRow) media.Status {
	for _, flag := range hltbStatusFlags {
		if row.get(flag.column) == "X" {
			return flag.status
		}
	}
	return media.StatusCompleted
}

// hltbMinutes parses the export's playtime column. The format shrinks with
// the duration: "8:35:30", "46:30", or bare seconds; "--" means untracked.
func hltbMinutes(s string) *int32 {
	if s == "--" {
		return nil
	}
	if s == "" {
		zero := int32(0)
		return &zero
	}

	parts := strings.Split(s, ":")
	nums := make([]int64, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 32)
		if err != nil {
			return nil
		}
		nums[i] = n
	}

	var minutes int64
	switch len(nums) {
	case 3:
		minutes = nums[0]*60 + nums[1] + int64(math.Round(float64(nums[2])/60))
	case 2:
		minutes = nums[0] + int64(math.Round(float64(nums[1])/60))
	case 1:
		minutes = int64(math.Round(float64(nums[0]) / 60))
	default:
		return nil
	}
	m := int32(minutes)
	return &m
}

func hltbNotes(row csvRow) string {
	sections := []struct{ prefix, column string }{
		{"General", "general notes"},
		{"Review", "review notes"},
		{"Main Story", "main story notes"},
		{"Main + Extras", "main + extras notes"},
		{"Completionist", "completionist notes"},
	}
	var lines []string
	for _, sec := range sections {
		if text := row.get(sec.column); text != "" {
			lines = append(lines, sec.prefix+": "+text)
		}
	}
	return strings.Join(lines, "\n")
}

func (h *HLTB) entry(row csvRow, match *provider.SearchResult) Entry {
	entry := Entry{
		Item: model.Item{
			MediaID:   match.MediaID,
			Source:    string(match.Source),
			MediaType: string(media.TypeGame),
			Title:     match.Title,
			Image:     match.Image,
		},
		Status: hltbStatus(row),
		Notes:  hltbNotes(row),
	}

	// the longest of the tracked playtimes stands in for progress
	for _, column := range []string{"progress", "main story", "main + extras", "completionist"} {
		if m := hltbMinutes(row.get(column)); m != nil && *m > entry.Progress {
			entry.Progress = *m
		}
	}

	if review, err := strconv.ParseFloat(row.get("review"), 64); err == nil && review > 0 {
		score := review / 10
		entry.Score = &score
	}
	if start, err := parseDate(row.get("start date")); err == nil {
		entry.StartDate = start
	}
	if end, err := parseDate(row.get("completion date")); err == nil {
		entry.EndDate = end
	}
	if updated, err := time.Parse("2006-01-02 15:04:05", row.get("updated")); err == nil {
		entry.UpdatedAt = updated.UTC()
	}
	return entry
}
