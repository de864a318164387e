// Package mock provides an in-memory Store for service and handler tests.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"quill/app/models"
	"quill/app/query"
	"quill/app/repositories"
)

// Store keeps records encoded in memory, in insertion order. Errors set
// with Fail are returned by the named operation until cleared.
type Store[T models.Record] struct {
	name  string
	mutex sync.RWMutex
	order []string
	docs  map[string][]byte
	fails map[string]error

	// Now is the clock used for timestamps.
	Now func() time.Time
}

var _ repositories.Store[*models.Post] = (*Store[*models.Post])(nil)

func NewStore[T models.Record](collection string) *Store[T] {
	return &Store[T]{
		name:  collection,
		docs:  make(map[string][]byte),
		fails: make(map[string]error),
		Now:   time.Now,
	}
}

func NewPostStore() *Store[*models.Post] {
	return NewStore[*models.Post](repositories.PostsCollection)
}

func NewCategoryStore() *Store[*models.Category] {
	return NewStore[*models.Category](repositories.CategoriesCollection)
}

func NewCommentStore() *Store[*models.Comment] {
	return NewStore[*models.Comment](repositories.CommentsCollection)
}

// Fail makes op ("find", "get", "create", "update", "delete", "exists",
// "count") return err. A nil err clears it.
func (m *Store[T]) Fail(op string, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if err == nil {
		delete(m.fails, op)
		return
	}
	m.fails[op] = &repositories.StorageError{Op: op, Collection: m.name, Err: err}
}

// Clear removes every record and injected failure.
func (m *Store[T]) Clear() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.order = nil
	m.docs = make(map[string][]byte)
	m.fails = make(map[string]error)
}

func (m *Store[T]) Collection() string {
	return m.name
}

func (m *Store[T]) decode(id string) T {
	var record T
	if err := json.Unmarshal(m.docs[id], &record); err != nil {
		panic(fmt.Sprintf("mock: corrupt record %s: %v", id, err))
	}
	return record
}

func (m *Store[T]) put(record T) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	m.docs[record.Meta().ID] = data
	return nil
}

func (m *Store[T]) all() []T {
	records := make([]T, 0, len(m.order))
	for _, id := range m.order {
		records = append(records, m.decode(id))
	}
	return records
}

func (m *Store[T]) FindAll(ctx context.Context) ([]T, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if err := m.fails["find"]; err != nil {
		return nil, err
	}
	return m.all(), nil
}

func (m *Store[T]) FindPage(ctx context.Context, p query.Pagination) (*query.Page[T], error) {
	records, err := m.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return query.Paginate(records, p), nil
}

func (m *Store[T]) FindByID(ctx context.Context, id string) (T, bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	var zero T
	if err := m.fails["get"]; err != nil {
		return zero, false, err
	}
	if _, ok := m.docs[id]; !ok {
		return zero, false, nil
	}
	return m.decode(id), true, nil
}

func (m *Store[T]) FindByField(ctx context.Context, field, value string) ([]T, error) {
	records, err := m.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return query.Where(records, query.Condition{Field: field, Value: value}), nil
}

func (m *Store[T]) Create(ctx context.Context, record T) (T, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	var zero T
	if err := m.fails["create"]; err != nil {
		return zero, err
	}

	id := uuid.NewString()
	record.Meta().Stamp(id, m.Now())
	if err := record.Validate(); err != nil {
		return zero, err
	}
	if err := m.put(record); err != nil {
		return zero, err
	}
	m.order = append(m.order, id)
	return record, nil
}

func (m *Store[T]) Update(ctx context.Context, id string, patch repositories.Patch[T]) (T, bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	var zero T
	if err := m.fails["update"]; err != nil {
		return zero, false, err
	}
	if _, ok := m.docs[id]; !ok {
		return zero, false, nil
	}

	record := m.decode(id)
	created := record.Meta().CreatedAt
	patch.Apply(record)
	meta := record.Meta()
	meta.ID, meta.CreatedAt = id, created
	meta.Touch(m.Now())
	if err := record.Validate(); err != nil {
		return zero, false, err
	}
	if err := m.put(record); err != nil {
		return zero, false, err
	}
	return record, true, nil
}

func (m *Store[T]) Delete(ctx context.Context, id string) (bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if err := m.fails["delete"]; err != nil {
		return false, err
	}
	if _, ok := m.docs[id]; !ok {
		return false, nil
	}
	delete(m.docs, id)
	m.order = slices.DeleteFunc(m.order, func(s string) bool { return s == id })
	return true, nil
}

func (m *Store[T]) DeleteByField(ctx context.Context, field, value string) (int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if err := m.fails["delete"]; err != nil {
		return 0, err
	}
	cond := query.Condition{Field: field, Value: value}
	var removed int
	m.order = slices.DeleteFunc(m.order, func(id string) bool {
		if !cond.Matches(m.decode(id)) {
			return false
		}
		delete(m.docs, id)
		removed++
		return true
	})
	return removed, nil
}

func (m *Store[T]) Exists(ctx context.Context, id string) (bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if err := m.fails["exists"]; err != nil {
		return false, err
	}
	_, ok := m.docs[id]
	return ok, nil
}

func (m *Store[T]) Count(ctx context.Context) (int, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if err := m.fails["count"]; err != nil {
		return 0, err
	}
	return len(m.order), nil
}
