package models

import (
	"errors"
	"fmt"
)

// ErrTaskNotFound is returned when a tenant-scoped update or delete
// matches no document.
var ErrTaskNotFound = errors.New("task not found")

// ValidationError marks a request rejected before any store write.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// StoreError wraps a persistence layer failure. Op names the operation
// that failed; the driver error is kept for server-side logs and never
// leaks into a response body.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }
