package models

import (
	"fmt"
	"time"
)

// Entity carries the identity and timestamps shared by every stored record.
// It is embedded by Post, Category and Comment.
type Entity struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Record is anything a collection can hold. Field exposes the named
// attributes used for filtering, searching and sorting.
type Record interface {
	Meta() *Entity
	Field(name string) (any, bool)
	Validate() error
}

// Meta returns the entity header for stores to stamp and inspect.
func (e *Entity) Meta() *Entity {
	return e
}

// Stamp assigns a fresh identity with equal creation and update times.
func (e *Entity) Stamp(id string, now time.Time) {
	now = now.UTC()
	e.ID = id
	e.CreatedAt = now
	e.UpdatedAt = now
}

// Touch refreshes UpdatedAt. It never moves the timestamp backwards, so a
// clock step between two writes keeps CreatedAt <= UpdatedAt.
func (e *Entity) Touch(now time.Time) {
	now = now.UTC()
	if now.Before(e.UpdatedAt) {
		return
	}
	e.UpdatedAt = now
}

func (e *Entity) field(name string) (any, bool) {
	switch name {
	case "id":
		return e.ID, true
	case "createdAt":
		return e.CreatedAt, true
	case "updatedAt":
		return e.UpdatedAt, true
	}
	return nil, false
}

func (e *Entity) validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: id cannot be empty", ErrValidation)
	}
	if e.CreatedAt.IsZero() {
		return fmt.Errorf("%w: createdAt cannot be zero", ErrValidation)
	}
	if e.UpdatedAt.Before(e.CreatedAt) {
		return fmt.Errorf("%w: updatedAt precedes createdAt", ErrValidation)
	}
	return nil
}
