package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"klip/internal/clipboard"
	"klip/internal/storage"
	"klip/pkg/types"
)

// Config holds service configuration
type Config struct {
	PollInterval time.Duration  // Clipboard sampling interval
	Location     *time.Location // Zone used to parse date filters; nil means time.Local
}

// AddResult is the outcome of a manual save. Duplicate is set, and ID is
// empty, when identical text was already stored today.
type AddResult struct {
	ID        string `json:"id,omitempty"`
	Duplicate bool   `json:"duplicate"`
}

// ClipboardService is the request-facing façade over the store and the
// clipboard. It also owns the monitor goroutine and fans captures out to
// registered handlers.
type ClipboardService struct {
	store    storage.Storage
	backend  clipboard.Backend
	monitor  *clipboard.Monitor
	loc      *time.Location
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	handlers []ChangeHandler
	mu       sync.RWMutex
}

// New creates a new ClipboardService
func New(store storage.Storage, backend clipboard.Backend, config Config) *ClipboardService {
	loc := config.Location
	if loc == nil {
		loc = time.Local
	}

	s := &ClipboardService{
		store:   store,
		backend: backend,
		loc:     loc,
	}
	s.monitor = clipboard.NewMonitor(backend, store, config.PollInterval)
	s.monitor.OnChange(s.notify)
	return s
}

// RegisterHandler adds a new clipboard change handler
func (s *ClipboardService) RegisterHandler(handler ChangeHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, handler)
}

// Start begins monitoring the clipboard in the background
func (s *ClipboardService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return opError("Start", "clipboard monitor already running", nil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.monitor.Run(ctx)
	}()

	return nil
}

// Stop gracefully shuts down the monitor and waits for it to exit
func (s *ClipboardService) Stop() error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	s.wg.Wait()
	return nil
}

func (s *ClipboardService) notify(clip *types.Clip) {
	s.mu.RLock()
	handlers := s.handlers // Copy to avoid holding lock during callbacks
	s.mu.RUnlock()

	for _, handler := range handlers {
		handler.HandleClipboardChange(clip)
	}
}

// GetClips returns the clips matching the raw search text and date string.
// Empty strings leave that dimension unconstrained.
func (s *ClipboardService) GetClips(ctx context.Context, searchText, dateFilter string) ([]*types.Clip, error) {
	opts := storage.QueryOptions{Search: searchText}

	if dateFilter = strings.TrimSpace(dateFilter); dateFilter != "" {
		date, err := time.ParseInLocation(storage.DateLayout, dateFilter, s.loc)
		if err != nil {
			return nil, opError("GetClips", fmt.Sprintf("bad date %q", dateFilter), ErrInvalidDate)
		}
		opts.Date = date
	}

	clips, err := s.store.Query(ctx, opts)
	if err != nil {
		return nil, opError("GetClips", "failed to query clips", err)
	}
	return clips, nil
}

// GetDates returns every local date holding clips as YYYY-MM-DD, newest first
func (s *ClipboardService) GetDates(ctx context.Context) ([]string, error) {
	dates, err := s.store.DistinctDates(ctx)
	if err != nil {
		return nil, opError("GetDates", "failed to list dates", err)
	}

	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format(storage.DateLayout)
	}
	return out, nil
}

// AddClip saves text manually under the same per-day duplicate rule as
// automatic captures
func (s *ClipboardService) AddClip(ctx context.Context, content string) (AddResult, error) {
	if strings.TrimSpace(content) == "" {
		return AddResult{}, opError("AddClip", "nothing to save", ErrEmptyContent)
	}

	clip, err := s.store.InsertText(ctx, content)
	if errors.Is(err, storage.ErrDuplicate) {
		return AddResult{Duplicate: true}, nil
	}
	if err != nil {
		return AddResult{}, opError("AddClip", "failed to store clip", err)
	}
	return AddResult{ID: clip.ID}, nil
}

// UpdateClipContent replaces the text of a clip
func (s *ClipboardService) UpdateClipContent(ctx context.Context, id, content string) error {
	if err := s.store.UpdateContent(ctx, id, content); err != nil {
		return opError("UpdateClipContent", "failed to update clip", err)
	}
	return nil
}

// SetFavorite marks or unmarks a clip as favorite
func (s *ClipboardService) SetFavorite(ctx context.Context, id string, favorite bool) error {
	if err := s.store.SetFavorite(ctx, id, favorite); err != nil {
		return opError("SetFavorite", "failed to update favorite flag", err)
	}
	return nil
}

// DeleteClip deletes a clip by its ID
func (s *ClipboardService) DeleteClip(ctx context.Context, id string) error {
	res, err := s.store.Delete(ctx, id)
	if err != nil {
		return opError("DeleteClip", "failed to delete clip", err)
	}
	if res.FileErr != nil {
		slog.Warn("clip deleted but its image file was not", "id", id, "path", res.ImagePath, "err", res.FileErr)
	}
	return nil
}

// CopyToClipboard writes text to the system clipboard
func (s *ClipboardService) CopyToClipboard(ctx context.Context, content string) error {
	if err := s.backend.WriteText(content); err != nil {
		return opError("CopyToClipboard", "failed to set clipboard content", err)
	}
	return nil
}

// CopyImageToClipboard writes the PNG file at path to the system clipboard.
// Only files inside the store's images directory are accepted.
func (s *ClipboardService) CopyImageToClipboard(ctx context.Context, path string) error {
	if !withinDir(s.store.ImagesDir(), path) {
		return opError("CopyImageToClipboard", fmt.Sprintf("refusing %q", path), ErrImagePath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return opError("CopyImageToClipboard", "failed to read image", err)
	}
	if err := s.backend.WriteImage(data); err != nil {
		return opError("CopyImageToClipboard", "failed to set clipboard image", err)
	}
	return nil
}

// withinDir reports whether path names a file strictly below dir once both
// are made absolute and cleaned.
func withinDir(dir, path string) bool {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// CopyClip puts a stored clip back on the system clipboard
func (s *ClipboardService) CopyClip(ctx context.Context, id string) error {
	clip, err := s.store.Get(ctx, id)
	if err != nil {
		return opError("CopyClip", "failed to retrieve clip", err)
	}

	if clip.Type == types.ClipImage {
		if clip.ImagePath == "" {
			return opError("CopyClip", "image clip without file", ErrNotImage)
		}
		return s.CopyImageToClipboard(ctx, clip.ImagePath)
	}
	return s.CopyToClipboard(ctx, clip.Content)
}
