// Package kv provides a Badger-backed implementation of store.Client.
//
// Records are stored as JSON under "<kind>:<id>". Unique field tuples get
// an index key "<kind>:uniq:<fields>=<values>" pointing at the owning id,
// written in the same transaction as the record. Queries scan the kind's
// prefix and filter in memory, which suits catalog-sized data sets.
package kv

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/knowyournotes/catalog-server/internal/id"
	"github.com/knowyournotes/catalog-server/internal/store"
)

// Store implements store.Client on Badger.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

var _ store.Client = (*Store)(nil)

// Open opens (or creates) a Badger database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup
	return open(opts, logger, path)
}

// OpenInMemory opens a Badger database that lives only in memory.
func OpenInMemory(logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return open(opts, logger, ":memory:")
}

func open(opts badger.Options, logger *slog.Logger, path string) (*Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	if logger != nil {
		logger.Info("Badger database opened successfully", "path", path)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return s.db.Close()
}

func recordKey(kind store.Kind, recordID string) []byte {
	return []byte(string(kind) + ":" + recordID)
}

func recordPrefix(kind store.Kind) []byte {
	return []byte(string(kind) + ":")
}

func uniqueKey(kind store.Kind, fields []string, r store.Record) []byte {
	values := make([]string, len(fields))
	for i, f := range fields {
		values[i] = r.String(f)
	}
	return []byte(string(kind) + ":uniq:" + strings.Join(fields, ",") + "=" + strings.Join(values, "\x00"))
}

func isUniqueKey(kind store.Kind, key []byte) bool {
	return bytes.HasPrefix(key, []byte(string(kind)+":uniq:"))
}

// Fetch scans kind and returns the records matching q.
func (s *Store) Fetch(ctx context.Context, kind store.Kind, q store.Query) ([]store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	schema, err := store.Lookup(kind)
	if err != nil {
		return nil, err
	}
	if err := schema.CheckQuery(kind, q); err != nil {
		return nil, err
	}

	var records []store.Record
	err = s.db.View(func(txn *badger.Txn) error {
		var scanErr error
		records, scanErr = scan(txn, kind)
		return scanErr
	})
	if err != nil {
		return nil, unavailable(err, "fetch "+string(kind))
	}
	return store.Apply(records, q), nil
}

// FetchOne returns the record with the given id.
func (s *Store) FetchOne(ctx context.Context, kind store.Kind, recordID string) (store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := store.Lookup(kind); err != nil {
		return nil, err
	}

	var r store.Record
	err := s.db.View(func(txn *badger.Txn) error {
		var getErr error
		r, getErr = get(txn, kind, recordID)
		return getErr
	})
	if err != nil {
		return nil, translate(err, kind, recordID, "fetch")
	}
	return r, nil
}

// Insert stores a new record. Unique tuples are checked and claimed in the
// same transaction, so concurrent inserts of one pair cannot both succeed.
func (s *Store) Insert(ctx context.Context, kind store.Kind, fields store.Record) (store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	schema, err := store.Lookup(kind)
	if err != nil {
		return nil, err
	}
	if err := schema.CheckRecord(kind, fields); err != nil {
		return nil, err
	}

	r := fields.Clone()
	if r.ID() == "" {
		if schema.Prefix == "" {
			return nil, store.ErrInvalidQuery.WithMessage(fmt.Sprintf("%s requires an explicit id", kind))
		}
		newID, err := id.Generate(schema.Prefix)
		if err != nil {
			return nil, fmt.Errorf("generate id: %w", err)
		}
		r["id"] = newID
	}

	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		key := recordKey(kind, r.ID())
		if _, err := txn.Get(key); err == nil {
			return store.ErrConflict.WithMessage(fmt.Sprintf("%s %s already exists", kind, r.ID()))
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		for _, fields := range schema.Unique {
			uk := uniqueKey(kind, fields, r)
			if _, err := txn.Get(uk); err == nil {
				return store.ErrConflict.WithMessage(fmt.Sprintf("%s (%s) already exists", kind, strings.Join(fields, ", ")))
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			if err := txn.Set(uk, []byte(r.ID())); err != nil {
				return err
			}
		}
		return txn.Set(key, data)
	})
	if err != nil {
		if errors.Is(err, badger.ErrConflict) {
			// Lost an optimistic race with a concurrent writer on the same keys.
			return nil, store.ErrConflict.WithCause(err)
		}
		return nil, translate(err, kind, r.ID(), "insert")
	}

	return decode(data)
}

// Update merges fields into the record with the given id.
func (s *Store) Update(ctx context.Context, kind store.Kind, recordID string, fields store.Record) (store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	schema, err := store.Lookup(kind)
	if err != nil {
		return nil, err
	}
	if err := schema.CheckRecord(kind, fields); err != nil {
		return nil, err
	}
	if _, ok := fields["id"]; ok {
		return nil, store.ErrInvalidQuery.WithMessage("id cannot be updated")
	}

	var updated store.Record
	err = s.db.Update(func(txn *badger.Txn) error {
		current, err := get(txn, kind, recordID)
		if err != nil {
			return err
		}
		next := current.Clone()
		for k, v := range fields {
			next[k] = v
		}

		for _, ufields := range schema.Unique {
			oldKey, newKey := uniqueKey(kind, ufields, current), uniqueKey(kind, ufields, next)
			if bytes.Equal(oldKey, newKey) {
				continue
			}
			if _, err := txn.Get(newKey); err == nil {
				return store.ErrConflict
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			if err := txn.Delete(oldKey); err != nil {
				return err
			}
			if err := txn.Set(newKey, []byte(recordID)); err != nil {
				return err
			}
		}

		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}
		if err := txn.Set(recordKey(kind, recordID), data); err != nil {
			return err
		}
		updated, err = decode(data)
		return err
	})
	if err != nil {
		return nil, translate(err, kind, recordID, "update")
	}
	return updated, nil
}

// Delete removes the record with the given id and its unique index keys.
func (s *Store) Delete(ctx context.Context, kind store.Kind, recordID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	schema, err := store.Lookup(kind)
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		current, err := get(txn, kind, recordID)
		if err != nil {
			return err
		}
		return deleteRecord(txn, kind, schema, current)
	})
	return translate(err, kind, recordID, "delete")
}

// DeleteWhere removes every record of kind matching q in one transaction.
func (s *Store) DeleteWhere(ctx context.Context, kind store.Kind, q store.Query) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	schema, err := store.Lookup(kind)
	if err != nil {
		return 0, err
	}
	if err := schema.CheckQuery(kind, q); err != nil {
		return 0, err
	}
	if len(q.Filters) == 0 {
		return 0, store.ErrInvalidQuery.WithMessage("delete without filters")
	}

	deleted := 0
	err = s.db.Update(func(txn *badger.Txn) error {
		records, err := scan(txn, kind)
		if err != nil {
			return err
		}
		for _, r := range store.Apply(records, q) {
			if err := deleteRecord(txn, kind, schema, r); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, unavailable(err, "delete "+string(kind))
	}
	return deleted, nil
}

func get(txn *badger.Txn, kind store.Kind, recordID string) (store.Record, error) {
	item, err := txn.Get(recordKey(kind, recordID))
	if err != nil {
		return nil, err
	}
	var r store.Record
	err = item.Value(func(val []byte) error {
		var decErr error
		r, decErr = decode(val)
		return decErr
	})
	return r, err
}

// scan returns every record of kind in key order.
func scan(txn *badger.Txn, kind store.Kind) ([]store.Record, error) {
	opts := badger.DefaultIteratorOptions
	prefix := recordPrefix(kind)
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	records := []store.Record{}
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		if isUniqueKey(kind, item.Key()) {
			continue
		}
		err := item.Value(func(val []byte) error {
			r, err := decode(val)
			if err != nil {
				return err
			}
			records = append(records, r)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return records, nil
}

func deleteRecord(txn *badger.Txn, kind store.Kind, schema store.KindSchema, r store.Record) error {
	for _, fields := range schema.Unique {
		if err := txn.Delete(uniqueKey(kind, fields, r)); err != nil {
			return err
		}
	}
	return txn.Delete(recordKey(kind, r.ID()))
}

func decode(data []byte) (store.Record, error) {
	var r store.Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return r, nil
}

func translate(err error, kind store.Kind, recordID, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, badger.ErrKeyNotFound) {
		return store.ErrNotFound.WithMessage(fmt.Sprintf("%s %s not found", kind, recordID))
	}
	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		return err
	}
	return unavailable(err, op+" "+string(kind))
}

func unavailable(err error, op string) error {
	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		return err
	}
	return store.ErrUnavailable.WithMessage(op).WithCause(err)
}
