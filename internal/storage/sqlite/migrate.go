package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"klip/internal/normalize"
	"klip/internal/storage"
)

const createClipsTable = `CREATE TABLE IF NOT EXISTS clips (
	id TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	is_favorite BOOLEAN DEFAULT 0
)`

// columnMigrations are additive and applied on every start. A column that
// already exists is the expected steady state.
var columnMigrations = []string{
	"ALTER TABLE clips ADD COLUMN search_content TEXT",
	"ALTER TABLE clips ADD COLUMN clip_type TEXT DEFAULT 'text'",
	"ALTER TABLE clips ADD COLUMN image_path TEXT",
}

const createCreatedAtIndex = `CREATE INDEX IF NOT EXISTS idx_clips_created_at ON clips(created_at)`

// canonicalizeTimestamps rewrites created_at values that are not already in
// storage.TimestampLayout, such as CURRENT_TIMESTAMP defaults or RFC 3339
// strings with an offset, so that string comparison stays chronological.
const canonicalizeTimestamps = `UPDATE clips
SET created_at = strftime('%Y-%m-%dT%H:%M:%fZ', created_at)
WHERE created_at NOT GLOB '[0-9][0-9][0-9][0-9]-[0-9][0-9]-[0-9][0-9]T[0-9][0-9]:[0-9][0-9]:[0-9][0-9].[0-9][0-9][0-9]Z'
	AND strftime('%Y-%m-%dT%H:%M:%fZ', created_at) IS NOT NULL`

func (s *SQLiteStorage) initialize(ctx context.Context) error {
	if err := s.migrate(ctx); err != nil {
		return err
	}

	if err := s.backfillSearchContent(ctx); err != nil {
		return err
	}

	if err := os.MkdirAll(s.imagesDir, 0o755); err != nil {
		return fmt.Errorf("failed to create images directory: %w", err)
	}

	if _, err := s.sweep(ctx); err != nil {
		return err
	}
	return nil
}

func (s *SQLiteStorage) migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)

	if err := db.Exec(createClipsTable).Error; err != nil {
		return fmt.Errorf("failed to create clips table: %w", err)
	}

	for _, stmt := range columnMigrations {
		err := db.Exec(stmt).Error
		if err == nil {
			slog.Info("applied schema migration", "stmt", stmt)
			continue
		}
		if isDuplicateColumn(err) {
			continue
		}
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	if err := db.Exec(createCreatedAtIndex).Error; err != nil {
		return fmt.Errorf("failed to create created_at index: %w", err)
	}

	result := db.Exec(canonicalizeTimestamps)
	if result.Error != nil {
		return fmt.Errorf("failed to canonicalize timestamps: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		slog.Info("canonicalized legacy timestamps", "rows", result.RowsAffected)
	}

	return nil
}

func isDuplicateColumn(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "duplicate column name")
}

// backfillSearchContent fills search_content for rows written before the
// column existed.
func (s *SQLiteStorage) backfillSearchContent(ctx context.Context) error {
	db := s.db.WithContext(ctx)

	var pending []storage.ClipModel
	if err := db.Select("id", "content").Where("search_content IS NULL").Find(&pending).Error; err != nil {
		return fmt.Errorf("failed to list clips without search content: %w", err)
	}

	for _, model := range pending {
		err := db.Model(&storage.ClipModel{}).
			Where("id = ?", model.ID).
			Update("search_content", normalize.Normalize(model.Content)).Error
		if err != nil {
			return fmt.Errorf("failed to backfill search content for clip %s: %w", model.ID, err)
		}
	}

	if len(pending) > 0 {
		slog.Info("backfilled search content", "rows", len(pending))
	}
	return nil
}

// sweep deletes non-favorite clips older than the retention window together
// with their image files, and returns the number of rows removed.
func (s *SQLiteStorage) sweep(ctx context.Context) (int64, error) {
	db := s.db.WithContext(ctx)
	cutoff := storage.FormatTimestamp(s.now().Add(-s.retention))
	expired := "COALESCE(is_favorite, 0) = 0 AND created_at < ?"

	var images []string
	err := db.Model(&storage.ClipModel{}).
		Where(expired, cutoff).
		Where("image_path IS NOT NULL AND image_path != ''").
		Pluck("image_path", &images).Error
	if err != nil {
		return 0, fmt.Errorf("failed to list expired images: %w", err)
	}

	result := db.Where(expired, cutoff).Delete(&storage.ClipModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to apply retention policy: %w", result.Error)
	}

	for _, path := range images {
		removeImage(path)
	}

	if result.RowsAffected > 0 {
		slog.Info("retention sweep removed clips", "rows", result.RowsAffected, "cutoff", cutoff)
	}
	return result.RowsAffected, nil
}
