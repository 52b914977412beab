// lstore Index - per-table collection of column indices
// Component: create_index/drop_index/locate/locate_range over a Table
//
// Grounded on original_source/lstore/index.py's Index class, which
// owns one BPlusTree per indexed column and lazily builds the
// primary-key tree on table creation.

package database

import "sync"

// Index owns zero or more BPlusTree instances, one per indexed
// column, keyed by column number. The table's primary-key column is
// indexed from construction.
type Index struct {
	mu      sync.Mutex
	trees   map[int]*BPlusTree
	order   int
}

// NewIndex returns an Index with the primary-key column pre-indexed.
func NewIndex(keyColumn, order int) *Index {
	idx := &Index{
		trees: make(map[int]*BPlusTree),
		order: order,
	}
	idx.trees[keyColumn] = NewBPlusTree(order)
	return idx
}

// CreateIndex installs a new, empty tree for column, silently
// replacing any index that previously existed there, and returns it.
// It does not scan the table's existing rows; the returned tree holds
// only what is inserted into it afterwards.
func (idx *Index) CreateIndex(column int) *BPlusTree {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	tree := NewBPlusTree(idx.order)
	idx.trees[column] = tree
	return tree
}

// DropIndex removes the index on column, if one exists. It does not
// protect the primary-key column: dropping that index removes the
// tree Table's key lookups read.
func (idx *Index) DropIndex(column int) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.trees, column)
}

// Has reports whether column currently has an index.
func (idx *Index) Has(column int) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	_, ok := idx.trees[column]
	return ok
}

// Insert records a (value, rid) pair in column's index, if one
// exists. A no-op on unindexed columns.
func (idx *Index) Insert(column int, value, rid int64) {
	idx.mu.Lock()
	tree, ok := idx.trees[column]
	idx.mu.Unlock()
	if !ok {
		return
	}
	tree.Insert(value, rid)
}

// Locate returns the RIDs whose value in column equals value. Returns
// nil if column has no index.
func (idx *Index) Locate(column int, value int64) []int64 {
	idx.mu.Lock()
	tree, ok := idx.trees[column]
	idx.mu.Unlock()
	if !ok {
		return nil
	}
	return tree.Locate(value)
}

// LocateRange returns the RIDs whose value in column falls within
// [lo, hi]. Returns nil if column has no index.
func (idx *Index) LocateRange(column int, lo, hi int64) []int64 {
	idx.mu.Lock()
	tree, ok := idx.trees[column]
	idx.mu.Unlock()
	if !ok {
		return nil
	}
	return tree.LocateRange(lo, hi)
}
