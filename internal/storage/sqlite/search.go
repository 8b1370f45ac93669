package sqlite

import (
	"context"
	"fmt"
	"time"

	"klip/internal/normalize"
	"klip/internal/storage"
	"klip/pkg/types"
)

// Query implements storage.Storage interface
func (s *SQLiteStorage) Query(ctx context.Context, opts storage.QueryOptions) ([]*types.Clip, error) {
	query := s.db.WithContext(ctx).Model(&storage.ClipModel{})

	// Substring match on the normalized form; instr avoids LIKE wildcards in
	// user input.
	if opts.Search != "" {
		query = query.Where("instr(search_content, ?) > 0", normalize.Normalize(opts.Search))
	}

	if opts.HasDate() {
		start, end := s.dateBounds(opts.Date.Date())
		query = query.Where("created_at >= ? AND created_at < ?", start, end)
	}

	var models []storage.ClipModel
	err := query.
		Order("created_at DESC").
		Order("rowid DESC").
		Limit(storage.MaxQueryResults).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query clips: %w", err)
	}

	clips := make([]*types.Clip, 0, len(models))
	for i := range models {
		clip, err := models[i].ToClip()
		if err != nil {
			return nil, err
		}
		clips = append(clips, clip)
	}

	return clips, nil
}

// DistinctDates implements storage.Storage interface
func (s *SQLiteStorage) DistinctDates(ctx context.Context) ([]time.Time, error) {
	var stamps []storage.Timestamp
	err := s.db.WithContext(ctx).Model(&storage.ClipModel{}).
		Order("created_at DESC").
		Pluck("created_at", &stamps).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list clip dates: %w", err)
	}

	// Rows arrive newest first, so equal local dates are adjacent.
	var dates []time.Time
	for _, stamp := range stamps {
		t, err := stamp.Time()
		if err != nil {
			return nil, err
		}
		y, m, d := t.In(s.loc).Date()
		date := time.Date(y, m, d, 0, 0, 0, 0, s.loc)
		if n := len(dates); n > 0 && dates[n-1].Equal(date) {
			continue
		}
		dates = append(dates, date)
	}

	return dates, nil
}
