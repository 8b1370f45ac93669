package storage

import (
	"database/sql/driver"
	"fmt"
	"time"

	"klip/pkg/types"
)

// TimestampLayout is the fixed-width UTC form of created_at. Lexical order of
// stored values equals chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// legacyLayouts covers values written by SQLite CURRENT_TIMESTAMP and by
// RFC 3339 writers before timestamps were canonicalized.
var legacyLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
}

// ClipModel is the row shape of the clips table.
type ClipModel struct {
	ID            string    `gorm:"column:id;primaryKey"`
	Content       string    `gorm:"column:content;not null"`
	CreatedAt     Timestamp `gorm:"column:created_at;autoCreateTime:false"`
	IsFavorite    bool      `gorm:"column:is_favorite"`
	SearchContent *string   `gorm:"column:search_content"`
	ClipType      string    `gorm:"column:clip_type"`
	ImagePath     *string   `gorm:"column:image_path"`
}

func (ClipModel) TableName() string { return "clips" }

// Timestamp holds a created_at value in its stored text form. The sqlite
// driver hands DATETIME columns back as time.Time when it can parse them, so
// Scan accepts both shapes.
type Timestamp string

func (ts *Timestamp) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*ts = ""
	case string:
		*ts = Timestamp(v)
	case []byte:
		*ts = Timestamp(v)
	case time.Time:
		*ts = Timestamp(FormatTimestamp(v))
	default:
		return fmt.Errorf("cannot scan %T into Timestamp", value)
	}
	return nil
}

func (ts Timestamp) Value() (driver.Value, error) {
	return string(ts), nil
}

// Time parses the stored value.
func (ts Timestamp) Time() (time.Time, error) {
	return ParseTimestamp(string(ts))
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp accepts TimestampLayout and the legacy layouts.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(TimestampLayout, s); err == nil {
		return t, nil
	}
	for _, layout := range legacyLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func (cm *ClipModel) ToClip() (*types.Clip, error) {
	createdAt, err := cm.CreatedAt.Time()
	if err != nil {
		return nil, fmt.Errorf("clip %s: %w", cm.ID, err)
	}

	clip := &types.Clip{
		ID:         cm.ID,
		Content:    cm.Content,
		CreatedAt:  createdAt,
		IsFavorite: cm.IsFavorite,
		Type:       types.ClipType(cm.ClipType),
	}
	if clip.Type == "" {
		clip.Type = types.ClipText
	}
	if cm.SearchContent != nil {
		clip.SearchContent = *cm.SearchContent
	}
	if cm.ImagePath != nil {
		clip.ImagePath = *cm.ImagePath
	}
	return clip, nil
}

func FromClip(clip *types.Clip) *ClipModel {
	model := &ClipModel{
		ID:            clip.ID,
		Content:       clip.Content,
		CreatedAt:     Timestamp(FormatTimestamp(clip.CreatedAt)),
		IsFavorite:    clip.IsFavorite,
		ClipType:      string(clip.Type),
		SearchContent: &clip.SearchContent,
	}
	if clip.ImagePath != "" {
		model.ImagePath = &clip.ImagePath
	}
	return model
}
