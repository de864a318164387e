package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"quill/app/models"
)

// Backend names accepted by Open.
const (
	BackendJSON   = "json"
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
)

// Options selects and configures the storage backend.
type Options struct {
	// Backend is one of BackendJSON, BackendBadger or BackendSQLite.
	Backend string
	// DataDir holds the collection files or database. Ignored when
	// InMemory is set on a database backend.
	DataDir  string
	InMemory bool

	// CacheSize > 0 puts an expiring LRU in front of every collection.
	CacheSize int
	CacheTTL  time.Duration
}

// Stores bundles the three collections the blog uses.
type Stores struct {
	Posts      Store[*models.Post]
	Categories Store[*models.Category]
	Comments   Store[*models.Comment]

	closers []func() error
}

// Close releases the underlying database handles.
func (s *Stores) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// handles holds whichever database the chosen backend opened.
type handles struct {
	json   *JSONDatabase
	badger *BadgerDatabase
	sqlite *SQLiteDatabase
}

// Open builds the post, category and comment stores for opts. Each store
// is wrapped with the cache (when enabled) and then with metrics.
func Open(ctx context.Context, opts Options) (*Stores, error) {
	var h handles
	stores := &Stores{}

	switch opts.Backend {
	case BackendJSON, "":
		db, err := OpenJSONDatabase(opts.DataDir)
		if err != nil {
			return nil, err
		}
		h.json = db
		opts.Backend = BackendJSON
	case BackendBadger:
		db, err := OpenBadger(filepath.Join(opts.DataDir, "badger"), opts.InMemory)
		if err != nil {
			return nil, err
		}
		h.badger = db
		stores.closers = append(stores.closers, db.Close)
	case BackendSQLite:
		path := ":memory:"
		if !opts.InMemory {
			if err := os.MkdirAll(opts.DataDir, 0o755); err != nil {
				return nil, storageErr("mkdir", opts.DataDir, err)
			}
			path = filepath.Join(opts.DataDir, "quill.db")
		}
		db, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		h.sqlite = db
		stores.closers = append(stores.closers, db.Close)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}

	var err error
	if stores.Posts, err = openCollection[*models.Post](ctx, opts, h, PostsCollection); err != nil {
		stores.Close()
		return nil, err
	}
	if stores.Categories, err = openCollection[*models.Category](ctx, opts, h, CategoriesCollection); err != nil {
		stores.Close()
		return nil, err
	}
	if stores.Comments, err = openCollection[*models.Comment](ctx, opts, h, CommentsCollection); err != nil {
		stores.Close()
		return nil, err
	}
	return stores, nil
}

func openCollection[T models.Record](ctx context.Context, opts Options, h handles, name string) (Store[T], error) {
	var store Store[T]
	var err error
	switch {
	case h.json != nil:
		store, err = NewJSONStore[T](h.json, name)
	case h.badger != nil:
		store, err = NewBadgerStore[T](h.badger, name)
	case h.sqlite != nil:
		store, err = NewSQLiteStore[T](ctx, h.sqlite, name)
	default:
		err = errors.New("no database opened")
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}

	if opts.CacheSize > 0 {
		store = NewCachedStore(store, opts.CacheSize, opts.CacheTTL)
	}
	return NewInstrumentedStore(store, opts.Backend), nil
}
