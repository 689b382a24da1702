package detections

import (
	"errors"
	"fmt"
)

var (
	ErrNotInitialized = errors.New("inference engine is not initialized")
	ErrBounds         = errors.New("pixel buffer does not match image bounds")
	ErrWorkerClosed   = errors.New("inference worker is closed")
)

// InitializationError reports a model or class table that could not be
// loaded. The engine stays unusable until Initialize succeeds.
type InitializationError struct {
	Resource string
	Cause    error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("initialize %s: %v", e.Resource, e.Cause)
}

func (e *InitializationError) Unwrap() error {
	return e.Cause
}

// ProcessingError wraps failures in turning caller input into something the
// engine can consume.
type ProcessingError struct {
	Message string
	Cause   error
}

func (e *ProcessingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ProcessingError) Unwrap() error {
	return e.Cause
}
