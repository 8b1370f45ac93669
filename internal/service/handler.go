package service

import "klip/pkg/types"

// ChangeHandler is implemented by components that need to be notified of clipboard changes
type ChangeHandler interface {
	HandleClipboardChange(clip *types.Clip)
}

// ChangeHandlerFunc adapts a function to ChangeHandler.
type ChangeHandlerFunc func(clip *types.Clip)

func (f ChangeHandlerFunc) HandleClipboardChange(clip *types.Clip) { f(clip) }
