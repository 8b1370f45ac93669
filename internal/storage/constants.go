package storage

import (
	"errors"
	"time"
)

const (
	// MaxQueryResults caps every Query result set.
	MaxQueryResults = 50

	// DefaultRetention is how long non-favorite clips survive the startup sweep.
	DefaultRetention = 90 * 24 * time.Hour

	// DefaultPoolSize bounds concurrent connections shared by the monitor and
	// request handlers.
	DefaultPoolSize = 5

	// DateLayout is the wire form of a local calendar date.
	DateLayout = "2006-01-02"

	DBFilename = "clips.db"
	ImagesDir  = "images"
)

// Storage errors
var (
	ErrDuplicate    = errors.New("clip with identical content already exists today")
	ErrNotFound     = errors.New("clip not found")
	ErrInvalidImage = errors.New("invalid image data")
)
