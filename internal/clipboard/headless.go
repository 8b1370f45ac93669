package clipboard

// headlessBackend is used when no display server is reachable (headless
// servers, containers). It never yields content and refuses writes.
type headlessBackend struct{}

func (headlessBackend) Name() string               { return "headless (no-op)" }
func (headlessBackend) ReadText() (string, error)  { return "", ErrUnavailable }
func (headlessBackend) WriteText(string) error     { return ErrUnavailable }
func (headlessBackend) ReadImage() ([]byte, error) { return nil, ErrUnavailable }
func (headlessBackend) WriteImage([]byte) error    { return ErrUnavailable }
