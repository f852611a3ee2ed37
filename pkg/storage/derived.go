package storage

import "time"

// WatchedProgress counts distinct episodes with at least one recorded watch.
// Repeat watches of the same episode do not inflate the count.
func (s *Season) WatchedProgress() int32 {
	seen := make(map[int32]struct{}, len(s.Episodes))
	for _, e := range s.Episodes {
		seen[e.Episode.ItemID] = struct{}{}
	}
	return int32(len(seen))
}

// WatchedRepeats reports how many complete rewatches the episode rows imply,
// the maximum watch count of any single episode minus one.
func (s *Season) WatchedRepeats() int32 {
	counts := make(map[int32]int32, len(s.Episodes))
	var most int32
	for _, e := range s.Episodes {
		counts[e.Episode.ItemID]++
		if counts[e.Episode.ItemID] > most {
			most = counts[e.Episode.ItemID]
		}
	}
	if most <= 1 {
		return 0
	}
	return most - 1
}

// WatchDates returns the earliest and latest watch timestamps of the season.
// Either may be nil when no watch carries a date.
func (s *Season) WatchDates() (start, end *time.Time) {
	for i := range s.Episodes {
		d := s.Episodes[i].Episode.EndDate
		if d == nil {
			continue
		}
		if start == nil || d.Before(*start) {
			start = d
		}
		if end == nil || d.After(*end) {
			end = d
		}
	}
	return start, end
}

// Season returns the season with the given number, or nil.
func (sh *Show) Season(number int32) *Season {
	for i := range sh.Seasons {
		n := sh.Seasons[i].Item.SeasonNumber
		if n != nil && *n == number {
			return &sh.Seasons[i]
		}
	}
	return nil
}

// WatchedProgress sums the watched episode counts of every season.
func (sh *Show) WatchedProgress() int32 {
	var total int32
	for i := range sh.Seasons {
		total += sh.Seasons[i].WatchedProgress()
	}
	return total
}

// WatchDates returns the earliest and latest watch timestamps across all
// seasons of the show.
func (sh *Show) WatchDates() (start, end *time.Time) {
	for i := range sh.Seasons {
		s, e := sh.Seasons[i].WatchDates()
		if s != nil && (start == nil || s.Before(*start)) {
			start = s
		}
		if e != nil && (end == nil || e.After(*end)) {
			end = e
		}
	}
	return start, end
}
