package clipboard

import (
	"runtime"
	"sync"

	"github.com/progrium/darwinkit/macos/appkit"
)

const (
	pasteboardText = appkit.PasteboardType("public.utf8-plain-text")
	pasteboardPNG  = appkit.PasteboardType("public.png")
)

// darwinBackend talks to the general pasteboard through AppKit.
type darwinBackend struct {
	pasteboard appkit.Pasteboard
	mutex      sync.Mutex
}

func init() {
	// AppKit pasteboard calls must stay on one OS thread
	runtime.LockOSThread()
}

func newNative() (Backend, error) {
	return &darwinBackend{
		pasteboard: appkit.Pasteboard_GeneralPasteboard(),
	}, nil
}

func (b *darwinBackend) Name() string { return "macOS pasteboard" }

func (b *darwinBackend) ReadText() (string, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	text := b.pasteboard.StringForType(pasteboardText)
	if text == "" {
		return "", ErrEmpty
	}
	return text, nil
}

func (b *darwinBackend) WriteText(text string) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.pasteboard.ClearContents()
	if !b.pasteboard.SetStringForType(text, pasteboardText) {
		return ErrUnavailable
	}
	return nil
}

func (b *darwinBackend) ReadImage() ([]byte, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	data := b.pasteboard.DataForType(pasteboardPNG)
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	return data, nil
}

func (b *darwinBackend) WriteImage(png []byte) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.pasteboard.ClearContents()
	if !b.pasteboard.SetDataForType(png, pasteboardPNG) {
		return ErrUnavailable
	}
	return nil
}
