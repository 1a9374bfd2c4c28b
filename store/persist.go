package store

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"hash"
	"slices"
	"strconv"

	"github.com/dgraph-io/badger"
)

type persister interface {
	flush(txn *badger.Txn, h hash.Hash) error
	load(txn *badger.Txn) error
}

var ErrSessionOpen = errors.New("store: cannot flush with an open undo session")

func rowKey(table string, id ID) []byte {
	return []byte(fmt.Sprintf("%s:%016x", table, uint64(id)))
}

func nextIDKey(table string) []byte {
	return []byte("meta:next:" + table)
}

// Flush writes every row changed since the previous flush into txn and
// returns the new state hash, chained from prev. Tables are flushed in
// registration order and rows in ID order, so equal histories give equal
// hashes on every node.
func (db *DB) Flush(txn *badger.Txn, prev []byte) ([]byte, error) {
	if db.InSession() {
		return nil, ErrSessionOpen
	}
	h := sha256.New()
	h.Write(prev)
	for _, t := range db.tables {
		if err := t.flush(txn, h); err != nil {
			return nil, fmt.Errorf("flush %s: %w", t.tableName(), err)
		}
	}
	return h.Sum(nil), nil
}

// Load fills every registered table from bdb. Tables must be empty.
func (db *DB) Load(bdb *badger.DB) error {
	return bdb.View(func(txn *badger.Txn) error {
		for _, t := range db.tables {
			if err := t.load(txn); err != nil {
				return fmt.Errorf("load %s: %w", t.tableName(), err)
			}
		}
		return nil
	})
}

func (t *Table[T]) flush(txn *badger.Txn, h hash.Hash) error {
	ids := make([]ID, 0, len(t.dirty))
	for id := range t.dirty {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		key := rowKey(t.name, id)
		h.Write(key)
		v, ok := t.rows[id]
		if !ok {
			if err := txn.Delete(key); err != nil {
				return err
			}
			continue
		}
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		h.Write(data)
		if err := txn.Set(key, data); err != nil {
			return err
		}
	}
	if len(ids) > 0 {
		if err := txn.Set(nextIDKey(t.name), []byte(strconv.FormatInt(int64(t.nextID), 10))); err != nil {
			return err
		}
	}
	clear(t.dirty)
	return nil
}

func (t *Table[T]) load(txn *badger.Txn) error {
	if len(t.rows) > 0 {
		return fmt.Errorf("table %s is not empty", t.name)
	}
	prefix := []byte(t.name + ":")
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var v T
		err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &v)
		})
		if err != nil {
			return err
		}
		t.insert(v)
		if id := t.id(v); id >= t.nextID {
			t.nextID = id + 1
		}
	}

	item, err := txn.Get(nextIDKey(t.name))
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
	case err != nil:
		return err
	default:
		err = item.Value(func(val []byte) error {
			next, err := strconv.ParseInt(string(val), 10, 64)
			if err != nil {
				return err
			}
			if ID(next) > t.nextID {
				t.nextID = ID(next)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	clear(t.dirty)
	return nil
}
