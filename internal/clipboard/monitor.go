package clipboard

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"klip/internal/logging"
	"klip/internal/storage"
	"klip/pkg/types"
)

// DefaultPollInterval is how often the monitor samples the clipboard.
const DefaultPollInterval = time.Second

// Inserter is the part of the store the monitor writes through. Manual saves
// go through the same call, so both paths share one duplicate rule.
type Inserter interface {
	InsertText(ctx context.Context, content string) (*types.Clip, error)
}

// Monitor polls a Backend and stores each new piece of clipboard text.
//
// Image capture is not performed: the store can hold image clips but the
// monitor only samples text.
type Monitor struct {
	backend  Backend
	store    Inserter
	interval time.Duration
	handler  func(*types.Clip)
	log      *slog.Logger
}

// monitorState is owned by a single Run loop.
type monitorState struct {
	lastSeen string
}

func NewMonitor(backend Backend, store Inserter, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Monitor{
		backend:  backend,
		store:    store,
		interval: interval,
		log:      logging.Component("monitor"),
	}
}

// OnChange registers the callback invoked after every stored capture. It
// must be called before Run.
func (m *Monitor) OnChange(handler func(*types.Clip)) {
	m.handler = handler
}

// Run samples the clipboard every interval until ctx is cancelled. Read and
// store failures are logged and never end the loop.
func (m *Monitor) Run(ctx context.Context) {
	state := &monitorState{}
	if text, err := m.backend.ReadText(); err == nil {
		state.lastSeen = text
	}

	m.log.Info("clipboard monitor started", "backend", m.backend.Name(), "interval", m.interval)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Info("clipboard monitor stopped")
			return
		case <-ticker.C:
			m.tick(ctx, state)
		}
	}
}

// tick performs one sample and reports whether a clip was stored.
func (m *Monitor) tick(ctx context.Context, state *monitorState) bool {
	text, err := m.backend.ReadText()
	if err != nil {
		if !errors.Is(err, ErrEmpty) && !errors.Is(err, ErrUnavailable) {
			m.log.Debug("clipboard read failed", "err", err)
		}
		return false
	}
	if text == state.lastSeen || strings.TrimSpace(text) == "" {
		return false
	}

	previous := state.lastSeen
	state.lastSeen = text

	clip, err := m.store.InsertText(ctx, text)
	switch {
	case errors.Is(err, storage.ErrDuplicate):
		m.log.Debug("clipboard text already stored today")
		return false
	case err != nil:
		// Forget the text so the next tick retries it.
		state.lastSeen = previous
		m.log.Warn("failed to store clipboard text", "err", err)
		return false
	}

	m.log.Debug("stored clipboard text", "id", clip.ID, "length", len(text))
	if m.handler != nil {
		m.handler(clip)
	}
	return true
}
