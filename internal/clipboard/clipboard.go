// Package clipboard binds the operating system clipboard and runs the
// monitor that turns clipboard changes into stored clips.
//
//	native_darwin.go  macOS pasteboard via darwinkit
//	native_other.go   other desktops via golang.design/x/clipboard
//	exec.go           xclip/xsel/wl-clipboard/pbcopy via atotto/clipboard
//	headless.go       no display; every call reports ErrUnavailable
package clipboard

import (
	"errors"
	"fmt"
	"log/slog"
)

// Backend kinds accepted by New.
const (
	KindNative   = "native"
	KindExec     = "exec"
	KindHeadless = "headless"
)

var (
	ErrUnavailable = errors.New("clipboard unavailable")
	ErrUnsupported = errors.New("clipboard format not supported by backend")
	ErrEmpty       = errors.New("clipboard holds no data of the requested format")
)

// Backend is the clipboard capability the monitor and the copy operations use.
type Backend interface {
	// Name returns a human-readable name for the backend.
	Name() string

	ReadText() (string, error)
	WriteText(text string) error

	// ReadImage and WriteImage exchange PNG-encoded data.
	ReadImage() ([]byte, error)
	WriteImage(png []byte) error
}

// New returns the backend of the given kind. When the requested backend
// cannot reach a display it falls back to the headless backend so the rest
// of the process keeps working.
func New(kind string) (Backend, error) {
	switch kind {
	case KindNative, "":
		b, err := newNative()
		if err != nil {
			slog.Warn("clipboard unavailable, running headless", "backend", kind, "err", err)
			return headlessBackend{}, nil
		}
		return b, nil
	case KindExec:
		b, err := newExec()
		if err != nil {
			slog.Warn("clipboard unavailable, running headless", "backend", kind, "err", err)
			return headlessBackend{}, nil
		}
		return b, nil
	case KindHeadless:
		return headlessBackend{}, nil
	default:
		return nil, fmt.Errorf("unknown clipboard backend %q", kind)
	}
}
