package types

import "time"

// ClipType distinguishes text entries from image entries.
type ClipType string

const (
	ClipText  ClipType = "text"
	ClipImage ClipType = "image"
)

type Clip struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	IsFavorite bool      `json:"is_favorite"`
	Type       ClipType  `json:"clip_type"`
	ImagePath  string    `json:"image_path,omitempty"` // set iff Type == ClipImage

	// SearchContent is the normalized form of Content. It is never shown.
	SearchContent string `json:"-"`
}
