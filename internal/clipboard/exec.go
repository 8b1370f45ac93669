package clipboard

import (
	"errors"

	atotto "github.com/atotto/clipboard"
)

// execBackend shells out to the platform clipboard tools. It needs no cgo
// and works under Wayland through wl-clipboard, but handles text only.
type execBackend struct{}

func newExec() (Backend, error) {
	if atotto.Unsupported {
		return nil, errors.New("no clipboard utility found (install xclip, xsel or wl-clipboard)")
	}
	return execBackend{}, nil
}

func (execBackend) Name() string { return "clipboard utilities (exec)" }

func (execBackend) ReadText() (string, error) {
	return atotto.ReadAll()
}

func (execBackend) WriteText(text string) error {
	return atotto.WriteAll(text)
}

func (execBackend) ReadImage() ([]byte, error) { return nil, ErrUnsupported }
func (execBackend) WriteImage([]byte) error    { return ErrUnsupported }
