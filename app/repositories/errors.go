package repositories

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by callers that treat absence as a failure.
	// Stores themselves report absence with a boolean.
	ErrNotFound = errors.New("record not found")

	// ErrStorage matches any failure of the underlying storage medium.
	ErrStorage = errors.New("storage failure")

	ErrInvalidCollection = errors.New("invalid collection name")
)

// StorageError records the operation and collection of a failed read,
// write, rename or database call.
type StorageError struct {
	Op         string
	Collection string
	Err        error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

func storageErr(op, collection string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Collection: collection, Err: err}
}
