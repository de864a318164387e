package repositories

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"quill/app/models"
	"quill/app/query"
)

// BadgerDatabase wraps a badger handle shared by several collections.
type BadgerDatabase struct {
	db    *badger.DB
	locks *collectionLocks
}

// OpenBadger opens a badger database at path. With inMemory set the path
// is ignored and nothing touches disk.
func OpenBadger(path string, inMemory bool) (*BadgerDatabase, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, storageErr("open", path, err)
	}
	return &BadgerDatabase{db: db, locks: newCollectionLocks()}, nil
}

func (d *BadgerDatabase) Close() error {
	return d.db.Close()
}

// Backup streams a full snapshot of every collection to w.
func (d *BadgerDatabase) Backup(w io.Writer) error {
	if _, err := d.db.Backup(w, 0); err != nil {
		return storageErr("backup", "", err)
	}
	return nil
}

// Load replays a snapshot written by Backup. The database should be empty.
// Malformed input can make badger panic; that is returned as an error.
func (d *BadgerDatabase) Load(r io.Reader) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = storageErr("restore", "", fmt.Errorf("panic while loading backup: %v", p))
		}
	}()
	if err := d.db.Load(r, 4); err != nil {
		return storageErr("restore", "", err)
	}
	return nil
}

// Records live under doc:<collection>:<seq> so prefix iteration yields
// insertion order. idx:<collection>:<id> maps an id to its sequence key.
func docPrefix(collection string) []byte {
	return []byte("doc:" + collection + ":")
}

func docKey(collection string, seq uint64) []byte {
	key := docPrefix(collection)
	return binary.BigEndian.AppendUint64(key, seq)
}

func idxKey(collection, id string) []byte {
	return []byte("idx:" + collection + ":" + id)
}

func seqKey(collection string) []byte {
	return []byte("seq:" + collection)
}

// nextSeq advances the collection's sequence counter
func nextSeq(txn *badger.Txn, collection string) (uint64, error) {
	var seq uint64
	item, err := txn.Get(seqKey(collection))
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
	case err != nil:
		return 0, err
	default:
		err = item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("corrupt sequence for %s", collection)
			}
			seq = binary.BigEndian.Uint64(val)
			return nil
		})
		if err != nil {
			return 0, err
		}
	}
	seq++
	if err := txn.Set(seqKey(collection), binary.BigEndian.AppendUint64(nil, seq)); err != nil {
		return 0, err
	}
	return seq, nil
}

// BadgerStore keeps one collection in a badger database.
type BadgerStore[T models.Record] struct {
	db   *badger.DB
	name string
	mu   *sync.RWMutex
}

// NewBadgerStore returns a store for the named collection.
func NewBadgerStore[T models.Record](db *BadgerDatabase, collection string) (*BadgerStore[T], error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	return &BadgerStore[T]{db: db.db, name: collection, mu: db.locks.get(collection)}, nil
}

func (s *BadgerStore[T]) Collection() string {
	return s.name
}

func (s *BadgerStore[T]) decode(item *badger.Item) (T, error) {
	var record T
	err := item.Value(func(val []byte) error {
		return unmarshalEntity(val, &record)
	})
	return record, err
}

// scan visits every record in insertion order until fn returns false.
func (s *BadgerStore[T]) scan(txn *badger.Txn, fn func(key []byte, record T) bool) error {
	prefix := docPrefix(s.name)
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		record, err := s.decode(item)
		if err != nil {
			return err
		}
		if isNil(record) {
			continue
		}
		if !fn(item.KeyCopy(nil), record) {
			return nil
		}
	}
	return nil
}

// lookup resolves id to its document key and record.
func (s *BadgerStore[T]) lookup(txn *badger.Txn, id string) ([]byte, T, bool, error) {
	var zero T
	item, err := txn.Get(idxKey(s.name, id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, zero, false, nil
	}
	if err != nil {
		return nil, zero, false, err
	}
	key, err := item.ValueCopy(nil)
	if err != nil {
		return nil, zero, false, err
	}
	doc, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, zero, false, nil
	}
	if err != nil {
		return nil, zero, false, err
	}
	record, err := s.decode(doc)
	if err != nil {
		return nil, zero, false, err
	}
	return key, record, !isNil(record), nil
}

func (s *BadgerStore[T]) view(ctx context.Context, op string, fn func(txn *badger.Txn) error) error {
	if err := ctxErr(ctx, op, s.name); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return storageErr(op, s.name, s.db.View(fn))
}

func (s *BadgerStore[T]) update(ctx context.Context, op string, fn func(txn *badger.Txn) error) error {
	if err := ctxErr(ctx, op, s.name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.db.Update(fn)
	if errors.Is(err, models.ErrValidation) {
		return err
	}
	return storageErr(op, s.name, err)
}

func (s *BadgerStore[T]) FindAll(ctx context.Context) ([]T, error) {
	records := make([]T, 0)
	err := s.view(ctx, "find", func(txn *badger.Txn) error {
		return s.scan(txn, func(_ []byte, r T) bool {
			records = append(records, r)
			return true
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *BadgerStore[T]) FindPage(ctx context.Context, p query.Pagination) (*query.Page[T], error) {
	records, err := s.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return pageOf(records, p)
}

func (s *BadgerStore[T]) FindByID(ctx context.Context, id string) (T, bool, error) {
	var record T
	var found bool
	err := s.view(ctx, "get", func(txn *badger.Txn) error {
		var err error
		_, record, found, err = s.lookup(txn, id)
		return err
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return record, found, nil
}

func (s *BadgerStore[T]) FindByField(ctx context.Context, field, value string) ([]T, error) {
	records := make([]T, 0)
	err := s.view(ctx, "find", func(txn *badger.Txn) error {
		return s.scan(txn, func(_ []byte, r T) bool {
			if matchField(r, field, value) {
				records = append(records, r)
			}
			return true
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *BadgerStore[T]) Exists(ctx context.Context, id string) (bool, error) {
	_, found, err := s.FindByID(ctx, id)
	return found, err
}

func (s *BadgerStore[T]) Count(ctx context.Context) (int, error) {
	var n int
	err := s.view(ctx, "count", func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := docPrefix(s.name)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

func (s *BadgerStore[T]) Create(ctx context.Context, record T) (T, error) {
	var zero T
	if isNil(record) {
		return zero, fmt.Errorf("%w: nil record", models.ErrValidation)
	}
	err := s.update(ctx, "create", func(txn *badger.Txn) error {
		id, err := uniqueID(func(id string) (bool, error) {
			_, err := txn.Get(idxKey(s.name, id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				return false, nil
			}
			return err == nil, err
		})
		if err != nil {
			return err
		}
		if err := stamp(record, id); err != nil {
			return err
		}
		seq, err := nextSeq(txn, s.name)
		if err != nil {
			return err
		}
		data, err := marshalEntity(record)
		if err != nil {
			return err
		}
		key := docKey(s.name, seq)
		if err := txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set(idxKey(s.name, id), key)
	})
	if err != nil {
		return zero, err
	}
	return record, nil
}

func (s *BadgerStore[T]) Update(ctx context.Context, id string, patch Patch[T]) (T, bool, error) {
	var updated T
	var found bool
	err := s.update(ctx, "update", func(txn *badger.Txn) error {
		key, record, ok, err := s.lookup(txn, id)
		if err != nil || !ok {
			return err
		}
		if err := applyPatch(record, patch); err != nil {
			return err
		}
		data, err := marshalEntity(record)
		if err != nil {
			return err
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}
		updated, found = record, true
		return nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return updated, found, nil
}

func (s *BadgerStore[T]) Delete(ctx context.Context, id string) (bool, error) {
	var removed bool
	err := s.update(ctx, "delete", func(txn *badger.Txn) error {
		key, _, ok, err := s.lookup(txn, id)
		if err != nil || !ok {
			return err
		}
		if err := txn.Delete(key); err != nil {
			return err
		}
		removed = true
		return txn.Delete(idxKey(s.name, id))
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

func (s *BadgerStore[T]) DeleteByField(ctx context.Context, field, value string) (int, error) {
	var removed int
	err := s.update(ctx, "delete", func(txn *badger.Txn) error {
		type victim struct {
			key []byte
			id  string
		}
		var victims []victim
		err := s.scan(txn, func(key []byte, r T) bool {
			if matchField(r, field, value) {
				victims = append(victims, victim{key: key, id: r.Meta().ID})
			}
			return true
		})
		if err != nil {
			return err
		}
		for _, v := range victims {
			if err := txn.Delete(v.key); err != nil {
				return err
			}
			if err := txn.Delete(idxKey(s.name, v.id)); err != nil {
				return err
			}
		}
		removed = len(victims)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
