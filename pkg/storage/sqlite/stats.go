package sqlite

import (
	"context"

	"github.com/trackarr/trackarr/pkg/media"
	"github.com/trackarr/trackarr/pkg/storage"
)

// StatusDistribution counts a user's tracking rows per media type and status
// in a single query. Season rows are derived from their show and excluded.
func (s *SQLite) StatusDistribution(ctx context.Context, userID int64) (map[media.Type]map[media.Status]int, error) {
	// Raw SQL since Jet doesn't properly handle aggregate queries with custom structs.
	rows, err := s.handle().QueryContext(ctx, `
		SELECT media_type, status, COUNT(id)
		FROM media
		WHERE user_id = ? AND media_type != 'season'
		GROUP BY media_type, status
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dist := make(map[media.Type]map[media.Status]int)
	for rows.Next() {
		var mediaType, status string
		var count int
		if err := rows.Scan(&mediaType, &status, &count); err != nil {
			return nil, err
		}

		t := media.Type(mediaType)
		if dist[t] == nil {
			dist[t] = make(map[media.Status]int)
		}
		dist[t][media.Status(status)] = count
	}

	return dist, rows.Err()
}

// ScoreDistribution bins a user's scores per media type into integer buckets
// 0 through 10.
func (s *SQLite) ScoreDistribution(ctx context.Context, userID int64) (map[media.Type][]int, error) {
	// Raw SQL since Jet doesn't properly handle aggregate queries with custom structs.
	rows, err := s.handle().QueryContext(ctx, `
		SELECT media_type, CAST(ROUND(score) AS INTEGER), COUNT(id)
		FROM media
		WHERE user_id = ? AND score IS NOT NULL AND media_type != 'season'
		GROUP BY media_type, CAST(ROUND(score) AS INTEGER)
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dist := make(map[media.Type][]int)
	for rows.Next() {
		var mediaType string
		var bucket, count int
		if err := rows.Scan(&mediaType, &bucket, &count); err != nil {
			return nil, err
		}

		t := media.Type(mediaType)
		if dist[t] == nil {
			dist[t] = make([]int, 11)
		}
		if bucket < 0 {
			bucket = 0
		}
		if bucket > 10 {
			bucket = 10
		}
		dist[t][bucket] += count
	}

	return dist, rows.Err()
}

var _ storage.StatisticsStorage = (*SQLite)(nil)
