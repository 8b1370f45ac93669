package storage

import (
	"context"
	"time"

	"klip/pkg/types"
)

// Storage defines the interface for clipboard history persistence
type Storage interface {
	// InsertText stores a new text clip and returns it. It returns
	// ErrDuplicate without writing when a text clip with identical content
	// was already created on the current local calendar day.
	InsertText(ctx context.Context, content string) (*types.Clip, error)

	// InsertImage writes png to the images directory and stores an image clip
	// pointing at it.
	InsertImage(ctx context.Context, png []byte) (*types.Clip, error)

	// Get retrieves a clip by ID
	Get(ctx context.Context, id string) (*types.Clip, error)

	// UpdateContent replaces the content of a clip. Edits are intentional, so
	// no duplicate check is made.
	UpdateContent(ctx context.Context, id, content string) error

	// SetFavorite marks or unmarks a clip as favorite
	SetFavorite(ctx context.Context, id string, favorite bool) error

	// Delete removes a clip and, best-effort, its backing image file
	Delete(ctx context.Context, id string) (DeleteResult, error)

	// Query returns at most MaxQueryResults clips matching opts, newest first
	Query(ctx context.Context, opts QueryOptions) ([]*types.Clip, error)

	// DistinctDates returns every local calendar date holding at least one
	// clip, most recent first
	DistinctDates(ctx context.Context) ([]time.Time, error)

	// ImagesDir is the directory holding image clip files
	ImagesDir() string

	Close() error
}

// DeleteResult reports the secondary effects of a delete. A failure to
// remove the image file does not fail the delete itself.
type DeleteResult struct {
	ImagePath string
	FileErr   error
}

// Config holds storage configuration
type Config struct {
	DataDir   string         // Directory holding the database and images
	Retention time.Duration  // Age after which non-favorite clips are swept
	PoolSize  int            // Maximum open database connections
	Location  *time.Location // Zone defining "local calendar day"; nil means time.Local
	Now       func() time.Time
}

// WithDefaults returns a copy of c with zero fields replaced by defaults.
func (c Config) WithDefaults() Config {
	if c.Retention <= 0 {
		c.Retention = DefaultRetention
	}
	if c.PoolSize <= 0 {
		c.PoolSize = DefaultPoolSize
	}
	if c.Location == nil {
		c.Location = time.Local
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}
