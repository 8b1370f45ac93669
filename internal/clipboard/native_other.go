//go:build !darwin

package clipboard

import (
	"golang.design/x/clipboard"
)

// designBackend uses golang.design/x/clipboard (X11 on Linux, the Win32
// clipboard on Windows).
type designBackend struct{}

func newNative() (Backend, error) {
	if err := clipboard.Init(); err != nil {
		return nil, err
	}
	return designBackend{}, nil
}

func (designBackend) Name() string { return "system clipboard" }

func (designBackend) ReadText() (string, error) {
	data := clipboard.Read(clipboard.FmtText)
	if data == nil {
		return "", ErrEmpty
	}
	return string(data), nil
}

func (designBackend) WriteText(text string) error {
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

func (designBackend) ReadImage() ([]byte, error) {
	data := clipboard.Read(clipboard.FmtImage)
	if data == nil {
		return nil, ErrEmpty
	}
	return data, nil
}

func (designBackend) WriteImage(png []byte) error {
	clipboard.Write(clipboard.FmtImage, png)
	return nil
}
