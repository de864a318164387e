package repositories

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"quill/app/models"
	"quill/app/query"
)

// JSONDatabase is a directory holding one JSON file per collection.
//
// Every mutation reads the whole collection, changes it in memory and
// writes the whole collection back through a temp file and a rename, so a
// crash mid-write leaves either the old or the new file, never a torn one.
// The cost is O(collection size) per write: fine for a single blog, not for
// high-volume data.
type JSONDatabase struct {
	dir   string
	locks *collectionLocks

	// writeTemp writes the new contents into the temp file. Tests replace
	// it to simulate a failing disk.
	writeTemp func(f *os.File, data []byte) error
}

// OpenJSONDatabase creates dir if needed and returns a handle on it.
// Stores opened on the same handle share per-collection locks.
func OpenJSONDatabase(dir string) (*JSONDatabase, error) {
	if dir == "" {
		return nil, errors.New("data directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, storageErr("mkdir", dir, err)
	}
	return &JSONDatabase{
		dir:   dir,
		locks: newCollectionLocks(),
		writeTemp: func(f *os.File, data []byte) error {
			_, err := f.Write(data)
			return err
		},
	}, nil
}

// writeAtomic replaces path with data using the temp-file, fsync, rename
// pattern. On any failure the temp file is removed and path is untouched.
func (d *JSONDatabase) writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := d.writeTemp(tmp, data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// JSONStore keeps one collection in <dir>/<collection>.json as an indented
// JSON array.
type JSONStore[T models.Record] struct {
	db   *JSONDatabase
	name string
	path string
	mu   *sync.RWMutex
}

// NewJSONStore opens the named collection, creating an empty file if none
// exists yet.
func NewJSONStore[T models.Record](db *JSONDatabase, collection string) (*JSONStore[T], error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	s := &JSONStore[T]{
		db:   db,
		name: collection,
		path: filepath.Join(db.dir, collection+".json"),
		mu:   db.locks.get(collection),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		if err := s.persist(nil); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, storageErr("stat", collection, err)
	}
	return s, nil
}

func (s *JSONStore[T]) Collection() string {
	return s.name
}

// Path returns the collection file.
func (s *JSONStore[T]) Path() string {
	return s.path
}

// load reads the full collection. A missing file is an empty collection;
// an unparseable one is a storage failure, never silently discarded.
func (s *JSONStore[T]) load() ([]T, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("read", s.name, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, storageErr("decode", s.name, err)
	}
	return slices.DeleteFunc(records, isNil[T]), nil
}

func (s *JSONStore[T]) persist(records []T) error {
	if records == nil {
		records = []T{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return storageErr("encode", s.name, err)
	}
	data = append(data, '\n')
	if err := s.db.writeAtomic(s.path, data); err != nil {
		return storageErr("write", s.name, err)
	}
	return nil
}

func (s *JSONStore[T]) read(ctx context.Context, op string) ([]T, error) {
	if err := ctxErr(ctx, op, s.name); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load()
}

func (s *JSONStore[T]) FindAll(ctx context.Context) ([]T, error) {
	records, err := s.read(ctx, "find")
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []T{}
	}
	return records, nil
}

func (s *JSONStore[T]) FindPage(ctx context.Context, p query.Pagination) (*query.Page[T], error) {
	records, err := s.read(ctx, "find")
	if err != nil {
		return nil, err
	}
	return pageOf(records, p)
}

func (s *JSONStore[T]) FindByID(ctx context.Context, id string) (T, bool, error) {
	var zero T
	records, err := s.read(ctx, "get")
	if err != nil {
		return zero, false, err
	}
	if i := indexOf(records, id); i >= 0 {
		return records[i], true, nil
	}
	return zero, false, nil
}

func (s *JSONStore[T]) FindByField(ctx context.Context, field, value string) ([]T, error) {
	records, err := s.read(ctx, "find")
	if err != nil {
		return nil, err
	}
	out := make([]T, 0)
	for _, r := range records {
		if matchField(r, field, value) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *JSONStore[T]) Exists(ctx context.Context, id string) (bool, error) {
	records, err := s.read(ctx, "exists")
	if err != nil {
		return false, err
	}
	return indexOf(records, id) >= 0, nil
}

func (s *JSONStore[T]) Count(ctx context.Context) (int, error) {
	records, err := s.read(ctx, "count")
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// mutate runs fn under the collection's write lock with the current
// contents. fn returns the new contents and whether anything changed;
// unchanged collections are not rewritten.
func (s *JSONStore[T]) mutate(ctx context.Context, op string, fn func([]T) ([]T, bool, error)) error {
	if err := ctxErr(ctx, op, s.name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	next, changed, err := fn(records)
	if err != nil || !changed {
		return err
	}
	return s.persist(next)
}

func (s *JSONStore[T]) Create(ctx context.Context, record T) (T, error) {
	var zero T
	if isNil(record) {
		return zero, fmt.Errorf("%w: nil record", models.ErrValidation)
	}
	err := s.mutate(ctx, "create", func(records []T) ([]T, bool, error) {
		id, err := uniqueID(func(id string) (bool, error) {
			return indexOf(records, id) >= 0, nil
		})
		if err != nil {
			return nil, false, storageErr("create", s.name, err)
		}
		if err := stamp(record, id); err != nil {
			return nil, false, err
		}
		return append(records, record), true, nil
	})
	if err != nil {
		return zero, err
	}
	return record, nil
}

func (s *JSONStore[T]) Update(ctx context.Context, id string, patch Patch[T]) (T, bool, error) {
	var updated T
	var found bool
	err := s.mutate(ctx, "update", func(records []T) ([]T, bool, error) {
		i := indexOf(records, id)
		if i < 0 {
			return records, false, nil
		}
		if err := applyPatch(records[i], patch); err != nil {
			return nil, false, err
		}
		updated, found = records[i], true
		return records, true, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return updated, found, nil
}

func (s *JSONStore[T]) Delete(ctx context.Context, id string) (bool, error) {
	var removed bool
	err := s.mutate(ctx, "delete", func(records []T) ([]T, bool, error) {
		i := indexOf(records, id)
		if i < 0 {
			return records, false, nil
		}
		removed = true
		return slices.Delete(records, i, i+1), true, nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

func (s *JSONStore[T]) DeleteByField(ctx context.Context, field, value string) (int, error) {
	var removed int
	err := s.mutate(ctx, "delete", func(records []T) ([]T, bool, error) {
		before := len(records)
		records = slices.DeleteFunc(records, func(r T) bool {
			return matchField(r, field, value)
		})
		removed = before - len(records)
		return records, removed > 0, nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func indexOf[T models.Record](records []T, id string) int {
	return slices.IndexFunc(records, func(r T) bool {
		return r.Meta().ID == id
	})
}
