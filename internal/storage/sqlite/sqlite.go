package sqlite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"klip/internal/normalize"
	"klip/internal/storage"
	"klip/pkg/types"
)

// busyTimeoutMS lets a writer wait for the lock held by another pooled
// connection instead of failing with SQLITE_BUSY.
const busyTimeoutMS = 10000

type SQLiteStorage struct {
	db        *gorm.DB
	imagesDir string
	retention time.Duration
	loc       *time.Location
	now       func() time.Time
}

var _ storage.Storage = (*SQLiteStorage)(nil)

// New opens (creating if absent) the clip database under config.DataDir and
// brings it to a usable state: schema, migrations, search backfill, images
// directory and the retention sweep all complete before New returns.
func New(config storage.Config) (*SQLiteStorage, error) {
	config = config.WithDefaults()
	if config.DataDir == "" {
		return nil, errors.New("data directory can not be empty")
	}

	if err := os.MkdirAll(config.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(config.DataDir, storage.DBFilename)
	dsn := fmt.Sprintf("%s?_busy_timeout=%d&_journal_mode=WAL", dbPath, busyTimeoutMS)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(config.PoolSize)
	sqlDB.SetMaxIdleConns(config.PoolSize)

	s := &SQLiteStorage{
		db:        db,
		imagesDir: filepath.Join(config.DataDir, storage.ImagesDir),
		retention: config.Retention,
		loc:       config.Location,
		now:       config.Now,
	}

	if err := s.initialize(context.Background()); err != nil {
		sqlDB.Close()
		return nil, err
	}

	slog.Debug("clip store ready", "path", dbPath, "pool", config.PoolSize)
	return s, nil
}

// ImagesDir implements storage.Storage interface
func (s *SQLiteStorage) ImagesDir() string {
	return s.imagesDir
}

// Close releases the connection pool
func (s *SQLiteStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// insertUniqueText inserts a text clip unless one with the same content
// already exists in [dayStart, dayEnd). Check and insert are one statement.
const insertUniqueText = `INSERT INTO clips (id, content, created_at, is_favorite, search_content, clip_type, image_path)
SELECT ?, ?, ?, 0, ?, 'text', NULL
WHERE NOT EXISTS (
	SELECT 1 FROM clips
	WHERE clip_type = 'text' AND content = ? AND created_at >= ? AND created_at < ?
)`

// InsertText implements storage.Storage interface
func (s *SQLiteStorage) InsertText(ctx context.Context, content string) (*types.Clip, error) {
	now := s.now()
	dayStart, dayEnd := s.dayBounds(now)

	clip := &types.Clip{
		ID:            uuid.NewString(),
		Content:       content,
		CreatedAt:     now.UTC().Truncate(time.Millisecond),
		Type:          types.ClipText,
		SearchContent: normalize.Normalize(content),
	}

	result := s.db.WithContext(ctx).Exec(insertUniqueText,
		clip.ID, clip.Content, storage.FormatTimestamp(clip.CreatedAt), clip.SearchContent,
		clip.Content, dayStart, dayEnd,
	)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to insert clip: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, storage.ErrDuplicate
	}

	return clip, nil
}

// InsertImage implements storage.Storage interface
func (s *SQLiteStorage) InsertImage(ctx context.Context, data []byte) (*types.Clip, error) {
	if _, err := png.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidImage, err)
	}

	id := uuid.NewString()
	path := filepath.Join(s.imagesDir, id+".png")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write image: %w", err)
	}

	clip := &types.Clip{
		ID:        id,
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
		Type:      types.ClipImage,
		ImagePath: path,
	}

	if err := s.db.WithContext(ctx).Create(storage.FromClip(clip)).Error; err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			slog.Warn("failed to remove orphaned image", "path", path, "err", rmErr)
		}
		return nil, fmt.Errorf("failed to create clip: %w", err)
	}

	return clip, nil
}

// Get implements storage.Storage interface
func (s *SQLiteStorage) Get(ctx context.Context, id string) (*types.Clip, error) {
	model, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return model.ToClip()
}

func (s *SQLiteStorage) find(ctx context.Context, id string) (*storage.ClipModel, error) {
	var model storage.ClipModel
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get clip: %w", err)
	}
	return &model, nil
}

// UpdateContent implements storage.Storage interface
func (s *SQLiteStorage) UpdateContent(ctx context.Context, id, content string) error {
	result := s.db.WithContext(ctx).Model(&storage.ClipModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"content":        content,
			"search_content": normalize.Normalize(content),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update clip content: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SetFavorite implements storage.Storage interface
func (s *SQLiteStorage) SetFavorite(ctx context.Context, id string, favorite bool) error {
	result := s.db.WithContext(ctx).Model(&storage.ClipModel{}).
		Where("id = ?", id).
		Update("is_favorite", favorite)
	if result.Error != nil {
		return fmt.Errorf("failed to update favorite flag: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete implements storage.Storage interface
func (s *SQLiteStorage) Delete(ctx context.Context, id string) (storage.DeleteResult, error) {
	var res storage.DeleteResult

	model, err := s.find(ctx, id)
	if err != nil {
		return res, err
	}

	if model.ImagePath != nil && *model.ImagePath != "" {
		res.ImagePath = *model.ImagePath
		res.FileErr = removeImage(res.ImagePath)
	}

	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&storage.ClipModel{}).Error; err != nil {
		return res, fmt.Errorf("failed to delete clip: %w", err)
	}

	return res, nil
}

// removeImage deletes a backing image file. A file that is already gone is
// not an error.
func removeImage(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to delete image file", "path", path, "err", err)
		return err
	}
	return nil
}

// dayBounds returns the stored-form bounds [start, end) of the local
// calendar day containing t.
func (s *SQLiteStorage) dayBounds(t time.Time) (string, string) {
	return s.dateBounds(t.In(s.loc).Date())
}

// dateBounds returns the stored-form bounds of the given local calendar date.
func (s *SQLiteStorage) dateBounds(y int, m time.Month, d int) (string, string) {
	start := time.Date(y, m, d, 0, 0, 0, 0, s.loc)
	return storage.FormatTimestamp(start), storage.FormatTimestamp(start.AddDate(0, 0, 1))
}
