package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"quill/app/models"
	"quill/app/query"
)

// SQLiteDatabase is a single SQLite file holding one table per collection.
// Each row keeps the record as a JSON document; seq preserves insertion
// order.
type SQLiteDatabase struct {
	db    *sql.DB
	locks *collectionLocks
}

// OpenSQLite opens (or creates) the database at path. ":memory:" works for
// tests.
func OpenSQLite(path string) (*SQLiteDatabase, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storageErr("open", path, err)
	}
	// One connection keeps ":memory:" databases shared and serializes
	// writers.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, storageErr("open", path, err)
	}
	return &SQLiteDatabase{db: db, locks: newCollectionLocks()}, nil
}

func (d *SQLiteDatabase) Close() error {
	return d.db.Close()
}

// SQLiteStore keeps one collection in its own table.
type SQLiteStore[T models.Record] struct {
	db   *sql.DB
	name string
	mu   *sync.RWMutex
}

// NewSQLiteStore creates the collection's table if it does not exist.
func NewSQLiteStore[T models.Record](ctx context.Context, db *SQLiteDatabase, collection string) (*SQLiteStore[T], error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id  TEXT NOT NULL UNIQUE,
		doc TEXT NOT NULL
	)`, collection)
	if _, err := db.db.ExecContext(ctx, ddl); err != nil {
		return nil, storageErr("migrate", collection, err)
	}
	return &SQLiteStore[T]{db: db.db, name: collection, mu: db.locks.get(collection)}, nil
}

func (s *SQLiteStore[T]) Collection() string {
	return s.name
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore[T]) all(ctx context.Context, q querier) ([]T, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf("SELECT doc FROM %s ORDER BY seq", s.name))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]T, 0)
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var record T
		if err := unmarshalEntity([]byte(doc), &record); err != nil {
			return nil, err
		}
		if !isNil(record) {
			records = append(records, record)
		}
	}
	return records, rows.Err()
}

func (s *SQLiteStore[T]) one(ctx context.Context, q querier, id string) (T, bool, error) {
	var zero T
	var doc string
	err := q.QueryRowContext(ctx, fmt.Sprintf("SELECT doc FROM %s WHERE id = ?", s.name), id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}
	var record T
	if err := unmarshalEntity([]byte(doc), &record); err != nil {
		return zero, false, err
	}
	return record, !isNil(record), nil
}

func (s *SQLiteStore[T]) FindAll(ctx context.Context) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records, err := s.all(ctx, s.db)
	if err != nil {
		return nil, storageErr("find", s.name, err)
	}
	return records, nil
}

func (s *SQLiteStore[T]) FindPage(ctx context.Context, p query.Pagination) (*query.Page[T], error) {
	records, err := s.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return pageOf(records, p)
}

func (s *SQLiteStore[T]) FindByID(ctx context.Context, id string) (T, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, found, err := s.one(ctx, s.db, id)
	if err != nil {
		var zero T
		return zero, false, storageErr("get", s.name, err)
	}
	return record, found, nil
}

func (s *SQLiteStore[T]) FindByField(ctx context.Context, field, value string) ([]T, error) {
	records, err := s.FindAll(ctx)
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

func (s *SQLiteStore[T]) Exists(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE id = ?", s.name), id).Scan(&n)
	if err != nil {
		return false, storageErr("exists", s.name, err)
	}
	return n > 0, nil
}

func (s *SQLiteStore[T]) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.name)).Scan(&n); err != nil {
		return 0, storageErr("count", s.name, err)
	}
	return n, nil
}

// inTx runs fn in a transaction under the collection's write lock.
// Validation errors pass through unwrapped; everything else is a storage
// failure.
func (s *SQLiteStore[T]) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	if err := ctxErr(ctx, op, s.name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr(op, s.name, err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		if errors.Is(err, models.ErrValidation) {
			return err
		}
		return storageErr(op, s.name, err)
	}
	return storageErr(op, s.name, tx.Commit())
}

func (s *SQLiteStore[T]) Create(ctx context.Context, record T) (T, error) {
	var zero T
	if isNil(record) {
		return zero, fmt.Errorf("%w: nil record", models.ErrValidation)
	}
	err := s.inTx(ctx, "create", func(tx *sql.Tx) error {
		id, err := uniqueID(func(id string) (bool, error) {
			var n int
			err := tx.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE id = ?", s.name), id).Scan(&n)
			return n > 0, err
		})
		if err != nil {
			return err
		}
		if err := stamp(record, id); err != nil {
			return err
		}
		data, err := marshalEntity(record)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, fmt.Sprintf("INSERT INTO %s (id, doc) VALUES (?, ?)", s.name), id, string(data))
		return err
	})
	if err != nil {
		return zero, err
	}
	return record, nil
}

func (s *SQLiteStore[T]) Update(ctx context.Context, id string, patch Patch[T]) (T, bool, error) {
	var updated T
	var found bool
	err := s.inTx(ctx, "update", func(tx *sql.Tx) error {
		record, ok, err := s.one(ctx, tx, id)
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
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("UPDATE %s SET doc = ? WHERE id = ?", s.name), string(data), id); err != nil {
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

func (s *SQLiteStore[T]) Delete(ctx context.Context, id string) (bool, error) {
	var removed bool
	err := s.inTx(ctx, "delete", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.name), id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		removed = n > 0
		return err
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// DeleteByField matches in Go so array fields behave as in FindByField.
func (s *SQLiteStore[T]) DeleteByField(ctx context.Context, field, value string) (int, error) {
	var removed int
	err := s.inTx(ctx, "delete", func(tx *sql.Tx) error {
		records, err := s.all(ctx, tx)
		if err != nil {
			return err
		}
		stmt := fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.name)
		for _, r := range records {
			if !matchField(r, field, value) {
				continue
			}
			if _, err := tx.ExecContext(ctx, stmt, r.Meta().ID); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
