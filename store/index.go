package store

import "github.com/google/btree"

// Index is an ordered view over a table.
type Index[T any] struct {
	table  *Table[T]
	name   string
	unique bool
	less   func(a, b T) bool
	tree   *btree.BTreeG[T]
}

func (idx *Index[T]) treeLess(a, b T) bool {
	if idx.less(a, b) {
		return true
	}
	if idx.less(b, a) {
		return false
	}
	if idx.unique {
		return false
	}
	return idx.table.id(a) < idx.table.id(b)
}

func (idx *Index[T]) sameKey(a, b T) bool {
	return !idx.less(a, b) && !idx.less(b, a)
}

// Find returns the first row whose key equals the key of probe. The probe's
// ID must be zero.
func (idx *Index[T]) Find(probe T) (T, bool) {
	var (
		found T
		ok    bool
	)
	idx.tree.AscendGreaterOrEqual(probe, func(item T) bool {
		if idx.sameKey(probe, item) {
			found, ok = item, true
		}
		return false
	})
	return found, ok
}

// Has reports whether a row with the probe's key exists.
func (idx *Index[T]) Has(probe T) bool {
	_, ok := idx.Find(probe)
	return ok
}

// Ascend calls fn for every row in index order until fn returns false.
func (idx *Index[T]) Ascend(fn func(T) bool) {
	idx.tree.Ascend(btree.ItemIteratorG[T](fn))
}

// AscendFrom calls fn for rows starting at pivot (inclusive). pivot is
// usually an existing row, which makes it a pagination cursor.
func (idx *Index[T]) AscendFrom(pivot T, fn func(T) bool) {
	idx.tree.AscendGreaterOrEqual(pivot, btree.ItemIteratorG[T](fn))
}

// AscendEqual calls fn for every row whose key equals the key of probe.
// The probe's ID must be zero.
func (idx *Index[T]) AscendEqual(probe T, fn func(T) bool) {
	idx.tree.AscendGreaterOrEqual(probe, func(item T) bool {
		if !idx.sameKey(probe, item) {
			return false
		}
		return fn(item)
	})
}

// Collect returns every row whose key equals the key of probe.
func (idx *Index[T]) Collect(probe T) []T {
	var out []T
	idx.AscendEqual(probe, func(item T) bool {
		out = append(out, item)
		return true
	})
	return out
}

// Len returns the number of rows in the index.
func (idx *Index[T]) Len() int { return idx.tree.Len() }
