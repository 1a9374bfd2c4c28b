package store

import (
	"fmt"

	"github.com/google/btree"
)

const btreeDegree = 16

// Table holds rows of a plain value type T keyed by ID. T must not contain
// slices, maps or pointers shared with callers: rows are copied in and out.
type Table[T any] struct {
	db      *DB
	name    string
	idOf    func(*T) *ID
	rows    map[ID]T
	nextID  ID
	indexes []*Index[T]
	dirty   map[ID]struct{}
}

// NewTable registers a table named name in db. idOf returns a pointer to the
// row's ID field.
func NewTable[T any](db *DB, name string, idOf func(*T) *ID) *Table[T] {
	t := &Table[T]{
		db:     db,
		name:   name,
		idOf:   idOf,
		rows:   make(map[ID]T),
		nextID: 1,
		dirty:  make(map[ID]struct{}),
	}
	db.register(t)
	return t
}

func (t *Table[T]) tableName() string { return t.name }

func (t *Table[T]) id(v T) ID { return *t.idOf(&v) }

// AddIndex creates an ordered secondary index. less orders rows by the index
// key only; rows with equal keys are ordered by ID. A unique index rejects a
// second row with an equal key.
func (t *Table[T]) AddIndex(name string, unique bool, less func(a, b T) bool) *Index[T] {
	if len(t.rows) > 0 {
		panic("store: index " + name + " added to non-empty table " + t.name)
	}
	idx := &Index[T]{table: t, name: name, unique: unique, less: less}
	idx.tree = btree.NewG[T](btreeDegree, idx.treeLess)
	t.indexes = append(t.indexes, idx)
	return idx
}

// Len returns the number of rows.
func (t *Table[T]) Len() int { return len(t.rows) }

// Get returns the row with the given id.
func (t *Table[T]) Get(id ID) (T, bool) {
	v, ok := t.rows[id]
	return v, ok
}

// MustGet is Get for references the caller knows to be valid.
func (t *Table[T]) MustGet(id ID) T {
	v, ok := t.rows[id]
	if !ok {
		panic(fmt.Sprintf("store: %s %d does not exist", t.name, id))
	}
	return v
}

// Create inserts a new row initialised by init and returns it.
func (t *Table[T]) Create(init func(*T)) (T, error) {
	var v T
	init(&v)
	id := t.nextID
	*t.idOf(&v) = id
	if err := t.checkUnique(v); err != nil {
		var zero T
		return zero, err
	}
	t.nextID++
	t.insert(v)
	t.db.record(func() {
		t.erase(v)
		t.nextID = id
	})
	return v, nil
}

// Modify applies fn to a copy of the row and stores the result.
func (t *Table[T]) Modify(id ID, fn func(*T)) (T, error) {
	old, ok := t.rows[id]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s %d", ErrNotFound, t.name, id)
	}
	v := old
	fn(&v)
	*t.idOf(&v) = id
	if err := t.checkUnique(v); err != nil {
		var zero T
		return zero, err
	}
	t.erase(old)
	t.insert(v)
	t.db.record(func() {
		t.erase(v)
		t.insert(old)
	})
	return v, nil
}

// Remove deletes the row with the given id.
func (t *Table[T]) Remove(id ID) error {
	old, ok := t.rows[id]
	if !ok {
		return fmt.Errorf("%w: %s %d", ErrNotFound, t.name, id)
	}
	t.erase(old)
	t.db.record(func() {
		t.insert(old)
	})
	return nil
}

func (t *Table[T]) checkUnique(v T) error {
	id := t.id(v)
	for _, idx := range t.indexes {
		if !idx.unique {
			continue
		}
		if existing, ok := idx.Find(v); ok && t.id(existing) != id {
			return fmt.Errorf("%w: %s.%s", ErrUniqueViolation, t.name, idx.name)
		}
	}
	return nil
}

func (t *Table[T]) insert(v T) {
	id := t.id(v)
	t.rows[id] = v
	for _, idx := range t.indexes {
		idx.tree.ReplaceOrInsert(v)
	}
	t.dirty[id] = struct{}{}
}

func (t *Table[T]) erase(v T) {
	id := t.id(v)
	for _, idx := range t.indexes {
		idx.tree.Delete(v)
	}
	delete(t.rows, id)
	t.dirty[id] = struct{}{}
}
