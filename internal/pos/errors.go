package pos

import (
	"errors"
	"fmt"

	"bbqpos/internal/store"
)

// ErrNoStore is wrapped by ConnectionError when the session has no store
// handle at all.
var ErrNoStore = errors.New("store unavailable")

// ConnectionError reports that the store could not be reached or rejected
// the call.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ValidationError blocks an action before any remote call is made.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NotFoundError reports that a referenced order, order item or menu item
// does not exist in the store.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Kind + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func storeError(op, kind, id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return &NotFoundError{Kind: kind, ID: id}
	}
	return &ConnectionError{Op: op, Err: err}
}
