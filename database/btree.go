// lstore BPlusTree - ordered value -> RID index
// Component: the column index backing Index.create_index/locate/locate_range
//
// Node layout (in-memory, not page-packed):
//
//	internal node: separator keys | child pointers (len(children) == len(keys)+1)
//	leaf node:     (value, rid) pairs, sorted by value | next-leaf pointer
//
// This mirrors original_source/lstore/index.py's BPlusTree/Node, and
// borrows the habit of documenting the physical layout in a comment
// block above the type, adapted here to an in-memory node since Index
// wraps an abstract ordered map, not a page-resident structure.
package database

import "sync"

// DefaultBTreeOrder matches original_source/lstore/index.py's
// BPlusTree(order=4) default.
const DefaultBTreeOrder = 4

type bNode struct {
	isLeaf   bool
	keys     []int64   // internal: separator keys; leaf: per-entry keys
	rids     []int64   // leaf only, parallel to keys
	children []*bNode  // internal only, len(children) == len(keys)+1
	next     *bNode    // leaf only: right sibling, for range scans
}

// BPlusTree is an order-configurable B+-tree mapping int64 values to
// RIDs, duplicates permitted. Leaves are linked left-to-right so
// LocateRange can walk them without re-descending from the root. All
// operations take the tree's single mutex for their duration, giving
// coarse but simple thread-safety.
type BPlusTree struct {
	mu    sync.Mutex
	root  *bNode
	order int
}

// NewBPlusTree constructs an empty tree with the given order (maximum
// keys per node is order-1).
func NewBPlusTree(order int) *BPlusTree {
	if order < 3 {
		order = DefaultBTreeOrder
	}
	return &BPlusTree{
		root:  &bNode{isLeaf: true},
		order: order,
	}
}

// Insert adds a (value, rid) pair. Duplicate values are permitted at
// the tree level; the caller (the primary-key uniqueness guard in
// Table.InsertRow) is responsible for rejecting duplicate keys before
// they reach here.
func (t *BPlusTree) Insert(value, rid int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.root.keys) == t.order-1 {
		newRoot := &bNode{isLeaf: false, children: []*bNode{t.root}}
		t.splitChild(newRoot, 0)
		t.root = newRoot
	}
	t.insertNonFull(t.root, value, rid)
}

func (t *BPlusTree) insertNonFull(n *bNode, value, rid int64) {
	if n.isLeaf {
		idx := 0
		for idx < len(n.keys) && n.keys[idx] < value {
			idx++
		}
		n.keys = append(n.keys, 0)
		n.rids = append(n.rids, 0)
		copy(n.keys[idx+1:], n.keys[idx:])
		copy(n.rids[idx+1:], n.rids[idx:])
		n.keys[idx] = value
		n.rids[idx] = rid
		return
	}

	i := 0
	for i < len(n.keys) && value >= n.keys[i] {
		i++
	}
	if len(n.children[i].keys) == t.order-1 {
		t.splitChild(n, i)
		if value >= n.keys[i] {
			i++
		}
	}
	t.insertNonFull(n.children[i], value, rid)
}

// splitChild splits the full child at index, promoting its median
// separator into parent.
func (t *BPlusTree) splitChild(parent *bNode, index int) {
	node := parent.children[index]
	mid := len(node.keys) / 2
	newNode := &bNode{isLeaf: node.isLeaf}

	var splitKey int64
	if node.isLeaf {
		splitKey = node.keys[mid]
		newNode.keys = append([]int64(nil), node.keys[mid:]...)
		newNode.rids = append([]int64(nil), node.rids[mid:]...)
		node.keys = node.keys[:mid]
		node.rids = node.rids[:mid]
		newNode.next = node.next
		node.next = newNode
	} else {
		splitKey = node.keys[mid]
		newNode.keys = append([]int64(nil), node.keys[mid+1:]...)
		newNode.children = append([]*bNode(nil), node.children[mid+1:]...)
		node.keys = node.keys[:mid]
		node.children = node.children[:mid+1]
	}

	parent.keys = append(parent.keys, 0)
	copy(parent.keys[index+1:], parent.keys[index:])
	parent.keys[index] = splitKey

	parent.children = append(parent.children, nil)
	copy(parent.children[index+2:], parent.children[index+1:])
	parent.children[index+1] = newNode
}

// Locate returns all RIDs with the given value, most recently
// inserted first.
func (t *BPlusTree) Locate(value int64) []int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.descendTo(value)
	var out []int64
	for i, k := range n.keys {
		if k == value {
			out = append(out, n.rids[i])
		}
	}
	return out
}

// descendTo walks from the root to the leaf that would contain value.
// Must be called with t.mu held.
func (t *BPlusTree) descendTo(value int64) *bNode {
	n := t.root
	for !n.isLeaf {
		i := 0
		for i < len(n.keys) && value >= n.keys[i] {
			i++
		}
		n = n.children[i]
	}
	return n
}

// LocateRange returns all RIDs with lo <= value <= hi, in ascending
// value order, by walking the linked leaf list.
func (t *BPlusTree) LocateRange(lo, hi int64) []int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.descendTo(lo)
	var out []int64
	for n != nil {
		for i, k := range n.keys {
			if k > hi {
				return out
			}
			if k >= lo {
				out = append(out, n.rids[i])
			}
		}
		n = n.next
	}
	return out
}
