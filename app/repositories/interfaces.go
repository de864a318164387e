package repositories

import (
	"context"

	"quill/app/models"
	"quill/app/query"
)

// Collection names.
const (
	PostsCollection      = "posts"
	CategoriesCollection = "categories"
	CommentsCollection   = "comments"
)

// Patch is a typed partial update. Apply must only touch payload fields;
// stores restore identity and creation time afterwards regardless.
type Patch[T any] interface {
	Apply(T)
}

// Store is collection-scoped CRUD over records of one kind. Lookups by id
// report absence with a false flag rather than an error; callers decide
// whether absence is a failure.
type Store[T models.Record] interface {
	Collection() string

	// FindAll returns every record in store order.
	FindAll(ctx context.Context) ([]T, error)
	// FindPage slices FindAll in store order.
	FindPage(ctx context.Context, p query.Pagination) (*query.Page[T], error)
	FindByID(ctx context.Context, id string) (T, bool, error)
	// FindByField returns records whose field equals value exactly. Array
	// fields match when any element does.
	FindByField(ctx context.Context, field, value string) ([]T, error)

	// Create assigns a new id and sets both timestamps to now, ignoring
	// whatever identity the record carried.
	Create(ctx context.Context, record T) (T, error)
	// Update merges patch into the record and refreshes UpdatedAt.
	Update(ctx context.Context, id string, patch Patch[T]) (T, bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	DeleteByField(ctx context.Context, field, value string) (int, error)

	Exists(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context) (int, error)
}
