package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDate  = errors.New("invalid date, expected YYYY-MM-DD")
	ErrEmptyContent = errors.New("content can not be empty")
	ErrNotImage     = errors.New("clip has no image")
	ErrImagePath    = errors.New("image path is outside the image store")
)

// ClipboardError reports which service operation failed and why
type ClipboardError struct {
	Op      string // Operation that failed
	Message string // Error message
	Err     error  // Underlying error
}

func (e *ClipboardError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s failed: %s", e.Op, e.Message)
}

func (e *ClipboardError) Unwrap() error {
	return e.Err
}

func opError(op, message string, err error) error {
	return &ClipboardError{Op: op, Message: message, Err: err}
}
