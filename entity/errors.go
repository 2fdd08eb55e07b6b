package entity

import (
	"errors"
	"fmt"

	"sortec/lib/validate"
)

// ErrNotFound is returned when a referenced registration does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError lists every violated field of an input, user-correctable.
type ValidationError = validate.Error

type FieldError = validate.FieldError

// AllocationError means no correlative could be obtained; nothing was written.
type AllocationError struct {
	Err error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocate correlative: %v", e.Err)
}

func (e *AllocationError) Unwrap() error {
	return e.Err
}

// StorageError means the record store failed and the operation did not complete.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// DeliveryError is a notification transport failure. It is logged, never propagated
// past the workflow.
type DeliveryError struct {
	Kind      NotificationKind
	Recipient string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver %s to %s: %v", e.Kind, e.Recipient, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
