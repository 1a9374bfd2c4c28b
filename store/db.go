// Package store keeps chain objects in indexed in-memory tables.
//
// Every table shares one DB journal, so a group of mutations across tables
// can be rolled back as a unit with an undo session. Dirty rows are flushed
// to badger once per block.
package store

import (
	"errors"
)

// ID identifies a row inside a table. Zero is never assigned to a row and is
// used as "no reference".
type ID int64

var (
	ErrNotFound        = errors.New("object not found")
	ErrUniqueViolation = errors.New("unique index violation")
)

type table interface {
	tableName() string
	persister
}

// DB owns the undo journal and the set of registered tables.
type DB struct {
	journal []func()
	marks   []int
	tables  []table
}

func NewDB() *DB {
	return &DB{}
}

func (db *DB) register(t table) {
	for _, existing := range db.tables {
		if existing.tableName() == t.tableName() {
			panic("store: table " + t.tableName() + " registered twice")
		}
	}
	db.tables = append(db.tables, t)
}

// record appends an undo step. Outside of any session nothing is recorded.
func (db *DB) record(undo func()) {
	if len(db.marks) == 0 {
		return
	}
	db.journal = append(db.journal, undo)
}

// OnUndo records fn to be run if the innermost open session is undone. It
// covers state kept outside of tables.
func (db *DB) OnUndo(fn func()) {
	db.record(fn)
}

// InSession reports whether an undo session is open.
func (db *DB) InSession() bool {
	return len(db.marks) > 0
}

// Session is a nestable undo scope. Sessions must be closed in reverse order
// of opening.
type Session struct {
	db     *DB
	mark   int
	depth  int
	closed bool
}

// StartUndoSession opens a new undo scope. The usual pattern is
//
//	s := db.StartUndoSession()
//	defer s.Undo()
//	...
//	s.Commit()
func (db *DB) StartUndoSession() *Session {
	s := &Session{db: db, mark: len(db.journal), depth: len(db.marks)}
	db.marks = append(db.marks, s.mark)
	return s
}

// Undo reverts every mutation made since the session was opened. It is a
// no-op once the session has been committed or undone.
func (s *Session) Undo() {
	if s.closed {
		return
	}
	s.checkTop()
	db := s.db
	for i := len(db.journal) - 1; i >= s.mark; i-- {
		db.journal[i]()
		db.journal[i] = nil
	}
	db.journal = db.journal[:s.mark]
	db.marks = db.marks[:s.depth]
	s.closed = true
}

// Commit keeps the session's mutations. They stay revertible by an
// enclosing session, if any.
func (s *Session) Commit() {
	if s.closed {
		return
	}
	s.checkTop()
	db := s.db
	db.marks = db.marks[:s.depth]
	if len(db.marks) == 0 {
		clear(db.journal)
		db.journal = db.journal[:0]
	}
	s.closed = true
}

func (s *Session) checkTop() {
	if len(s.db.marks) != s.depth+1 {
		panic("store: undo sessions closed out of order")
	}
}
