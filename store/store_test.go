package store

import (
	"testing"

	"github.com/dgraph-io/badger"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID    ID
	Name  string
	Group int
}

type fixture struct {
	db      *DB
	rows    *Table[row]
	byName  *Index[row]
	byGroup *Index[row]
}

func newFixture() fixture {
	db := NewDB()
	rows := NewTable(db, "row", func(r *row) *ID { return &r.ID })
	return fixture{
		db:   db,
		rows: rows,
		byName: rows.AddIndex("by_name", true, func(a, b row) bool {
			return a.Name < b.Name
		}),
		byGroup: rows.AddIndex("by_group", false, func(a, b row) bool {
			return a.Group < b.Group
		}),
	}
}

func (f fixture) create(t *testing.T, name string, group int) row {
	t.Helper()
	r, err := f.rows.Create(func(r *row) {
		r.Name = name
		r.Group = group
	})
	require.NoError(t, err)
	return r
}

func TestCreateAssignsSequentialIDs(t *testing.T) {
	f := newFixture()
	a := f.create(t, "a", 1)
	b := f.create(t, "b", 1)
	require.Equal(t, ID(1), a.ID)
	require.Equal(t, ID(2), b.ID)
	require.Equal(t, 2, f.rows.Len())
}

func TestUniqueIndexRejectsDuplicate(t *testing.T) {
	f := newFixture()
	f.create(t, "a", 1)
	_, err := f.rows.Create(func(r *row) { r.Name = "a" })
	require.ErrorIs(t, err, ErrUniqueViolation)
	require.Equal(t, 1, f.rows.Len())

	b := f.create(t, "b", 1)
	_, err = f.rows.Modify(b.ID, func(r *row) { r.Name = "a" })
	require.ErrorIs(t, err, ErrUniqueViolation)
	got, _ := f.rows.Get(b.ID)
	require.Equal(t, "b", got.Name)
}

func TestNonUniqueIndexOrdersByID(t *testing.T) {
	f := newFixture()
	f.create(t, "c", 2)
	f.create(t, "a", 1)
	f.create(t, "b", 2)

	var names []string
	f.byGroup.AscendEqual(row{Group: 2}, func(r row) bool {
		names = append(names, r.Name)
		return true
	})
	require.Equal(t, []string{"c", "b"}, names)

	first, ok := f.byGroup.Find(row{Group: 2})
	require.True(t, ok)
	require.Equal(t, "c", first.Name)
	require.False(t, f.byGroup.Has(row{Group: 3}))
}

func TestModifyReindexes(t *testing.T) {
	f := newFixture()
	r := f.create(t, "a", 1)
	_, err := f.rows.Modify(r.ID, func(r *row) { r.Group = 5 })
	require.NoError(t, err)
	require.Empty(t, f.byGroup.Collect(row{Group: 1}))
	require.Len(t, f.byGroup.Collect(row{Group: 5}), 1)
}

func TestUndoSessionRevertsEverything(t *testing.T) {
	f := newFixture()
	kept := f.create(t, "kept", 1)

	s := f.db.StartUndoSession()
	f.create(t, "temp", 1)
	_, err := f.rows.Modify(kept.ID, func(r *row) { r.Name = "renamed" })
	require.NoError(t, err)
	require.NoError(t, f.rows.Remove(kept.ID))
	s.Undo()

	require.Equal(t, 1, f.rows.Len())
	got, ok := f.rows.Get(kept.ID)
	require.True(t, ok)
	require.Equal(t, "kept", got.Name)
	require.True(t, f.byName.Has(row{Name: "kept"}))
	require.False(t, f.byName.Has(row{Name: "temp"}))

	// ids handed out inside an undone session are reused
	again := f.create(t, "again", 1)
	require.Equal(t, ID(2), again.ID)
}

func TestNestedSessionCommitIsUndoneByOuter(t *testing.T) {
	f := newFixture()
	outer := f.db.StartUndoSession()
	inner := f.db.StartUndoSession()
	f.create(t, "a", 1)
	inner.Commit()
	require.Equal(t, 1, f.rows.Len())
	outer.Undo()
	require.Equal(t, 0, f.rows.Len())
	require.False(t, f.db.InSession())
}

func TestCommitAfterUndoIsNoop(t *testing.T) {
	f := newFixture()
	s := f.db.StartUndoSession()
	f.create(t, "a", 1)
	s.Commit()
	s.Undo()
	require.Equal(t, 1, f.rows.Len())
}

func TestFlushAndLoadRoundTrip(t *testing.T) {
	bdb, err := badger.Open(badger.DefaultOptions(t.TempDir()))
	require.NoError(t, err)
	defer bdb.Close()

	f := newFixture()
	a := f.create(t, "a", 1)
	f.create(t, "b", 2)
	require.NoError(t, f.rows.Remove(a.ID))

	var hash []byte
	err = bdb.Update(func(txn *badger.Txn) error {
		var err error
		hash, err = f.db.Flush(txn, nil)
		return err
	})
	require.NoError(t, err)
	require.Len(t, hash, 32)

	loaded := newFixture()
	require.NoError(t, loaded.db.Load(bdb))
	require.Equal(t, 1, loaded.rows.Len())
	b, ok := loaded.byName.Find(row{Name: "b"})
	require.True(t, ok)
	require.Equal(t, ID(2), b.ID)

	c := loaded.create(t, "c", 1)
	require.Equal(t, ID(3), c.ID)
}

func TestFlushHashIsDeterministic(t *testing.T) {
	flushOnce := func() []byte {
		bdb, err := badger.Open(badger.DefaultOptions(t.TempDir()))
		require.NoError(t, err)
		defer bdb.Close()
		f := newFixture()
		f.create(t, "x", 1)
		f.create(t, "y", 2)
		var hash []byte
		require.NoError(t, bdb.Update(func(txn *badger.Txn) error {
			var err error
			hash, err = f.db.Flush(txn, []byte("prev"))
			return err
		}))
		return hash
	}
	require.Equal(t, flushOnce(), flushOnce())
}

func TestFlushRefusesOpenSession(t *testing.T) {
	bdb, err := badger.Open(badger.DefaultOptions(t.TempDir()))
	require.NoError(t, err)
	defer bdb.Close()

	f := newFixture()
	s := f.db.StartUndoSession()
	defer s.Undo()
	err = bdb.Update(func(txn *badger.Txn) error {
		_, err := f.db.Flush(txn, nil)
		return err
	})
	require.ErrorIs(t, err, ErrSessionOpen)
}

func TestOnUndoRunsOnlyInsideSession(t *testing.T) {
	db := NewDB()
	calls := 0
	db.OnUndo(func() { calls++ })

	s := db.StartUndoSession()
	db.OnUndo(func() { calls++ })
	s.Undo()
	require.Equal(t, 1, calls)

	s = db.StartUndoSession()
	db.OnUndo(func() { calls++ })
	s.Commit()
	require.Equal(t, 1, calls)
}
