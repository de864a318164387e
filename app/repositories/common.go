package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"

	"quill/app/models"
	"quill/app/query"
)

// maxIDAttempts bounds re-draws when a generated id already exists.
const maxIDAttempts = 3

// timeNow is the clock used for timestamps; tests may replace it.
var timeNow = time.Now

// newID returns a random 128-bit identifier in UUID form.
func newID() string {
	return uuid.NewString()
}

// uniqueID draws ids until taken reports one as free.
func uniqueID(taken func(id string) (bool, error)) (string, error) {
	for range maxIDAttempts {
		id := newID()
		used, err := taken(id)
		if err != nil {
			return "", err
		}
		if !used {
			return id, nil
		}
	}
	return "", fmt.Errorf("could not allocate a unique id after %d attempts", maxIDAttempts)
}

// marshalEntity marshals an entity to JSON
func marshalEntity(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entity: %w", err)
	}
	return data, nil
}

// unmarshalEntity unmarshals JSON data into an entity
func unmarshalEntity(data []byte, entity any) error {
	if err := json.Unmarshal(data, entity); err != nil {
		return fmt.Errorf("failed to unmarshal entity: %w", err)
	}
	return nil
}

// applyPatch merges patch into record and refreshes UpdatedAt. The id and
// creation time survive whatever the patch does.
func applyPatch[T models.Record](record T, patch Patch[T]) error {
	meta := record.Meta()
	id, created := meta.ID, meta.CreatedAt
	patch.Apply(record)
	meta = record.Meta()
	meta.ID = id
	meta.CreatedAt = created
	meta.Touch(timeNow())
	return record.Validate()
}

// stamp gives record a fresh identity and validates it.
func stamp[T models.Record](record T, id string) error {
	record.Meta().Stamp(id, timeNow())
	return record.Validate()
}

func matchField[T models.Record](record T, field, value string) bool {
	return query.Condition{Field: field, Value: value}.Matches(record)
}

func pageOf[T models.Record](records []T, p query.Pagination) (*query.Page[T], error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return query.Paginate(records, p), nil
}

// validateCollection restricts names to lower-case letters and underscores.
// Names end up in file paths and SQL identifiers.
func validateCollection(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidCollection)
	}
	for _, r := range name {
		if (r < 'a' || r > 'z') && r != '_' {
			return fmt.Errorf("%w: %q", ErrInvalidCollection, name)
		}
	}
	return nil
}

// collectionLocks hands out one RWMutex per collection name so every
// read-modify-write on a collection is serialized within the process.
type collectionLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

func newCollectionLocks() *collectionLocks {
	return &collectionLocks{locks: make(map[string]*sync.RWMutex)}
}

func (l *collectionLocks) get(name string) *sync.RWMutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[name]
	if !ok {
		m = &sync.RWMutex{}
		l.locks[name] = m
	}
	return m
}

func isNil[T models.Record](record T) bool {
	v := reflect.ValueOf(record)
	return !v.IsValid() || (v.Kind() == reflect.Pointer && v.IsNil())
}

func ctxErr(ctx context.Context, op, collection string) error {
	if err := ctx.Err(); err != nil {
		return storageErr(op, collection, err)
	}
	return nil
}
