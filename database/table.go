// lstore Table - columnar storage for one relation
// Component: base/tail pages, page directory, version chain, RID allocation
//
// Grounded on original_source/lstore/table.py (exact latch set: rid_lock,
// pd_lock, vc_lock, metadata_lock) and filodb_records.go's TableDef/Record
// shape for the Go-side schema descriptor.

package database

import "sync"

// RID identifies a logical record. RIDs are allocated monotonically
// starting at 1 and are never reused, even after delete.
type RID int64

// PagePosition locates one column's value within a page array.
type PagePosition struct {
	PageIndex int
	SlotIndex int
}

// VersionEntry is one historical snapshot in a record's version
// chain: one optional PagePosition per column, pointing into that
// column's tail pages. A nil entry for a column means that column was
// not touched by the update that produced this version.
type VersionEntry []*PagePosition

// Record is a materialized row returned by the query layer: its RID,
// the primary-key value it was looked up by, and one value per
// projected column (unprojected columns are left as nil).
type Record struct {
	RID     RID
	Key     int64
	Columns []*int64
}

// Schema describes a table's static shape, mirroring the TableDef
// descriptor style.
type Schema struct {
	Name       string
	NumColumns int
	KeyColumn  int
}

// Table is columnar storage for one relation: num_columns parallel
// arrays of base pages holding current values, a parallel set of tail
// pages holding historical values, a page directory mapping RID to
// each column's current page position, and a version chain mapping
// RID to the ordered (most-recent-first) history of prior versions.
type Table struct {
	name       string
	numColumns int
	keyColumn  int

	metadataMu sync.Mutex

	// insertMu is held across the whole of InsertRow: the uniqueness
	// probe, RID allocation, page append, page-directory install, and
	// index insert all happen as one critical section, so two
	// concurrent inserts of the same key can never both pass the
	// uniqueness check.
	insertMu sync.Mutex

	ridMu      sync.Mutex
	ridCounter int64

	// pageMu guards the base/tail page-array slice headers themselves
	// (growth via append, and the position a write landed at), not
	// just the per-page mutex a Page already carries. Reading a slot
	// index back out of a page must happen under the same lock as the
	// write that produced it, or two writers into the same page can
	// both read the same NumRecords()-1 and disagree with reality.
	pageMu sync.Mutex

	basePages [][]*Page // [column][pageIndex]
	tailPages [][]*Page // [column][pageIndex]

	pdMu          sync.Mutex
	pageDirectory map[RID][]PagePosition

	vcMu         sync.Mutex
	versionChain map[RID][]VersionEntry

	index *Index
}

// NewTable constructs an empty table with numColumns columns, keyColumn
// designated as the primary key, and a primary-key index already built.
func NewTable(name string, numColumns, keyColumn int, btreeOrder int) *Table {
	t := &Table{
		name:          name,
		numColumns:    numColumns,
		keyColumn:     keyColumn,
		basePages:     make([][]*Page, numColumns),
		tailPages:     make([][]*Page, numColumns),
		pageDirectory: make(map[RID][]PagePosition),
		versionChain:  make(map[RID][]VersionEntry),
		index:         NewIndex(keyColumn, btreeOrder),
	}
	for c := 0; c < numColumns; c++ {
		t.basePages[c] = []*Page{newPage()}
		t.tailPages[c] = []*Page{newPage()}
	}
	return t
}

// Schema returns the table's static descriptor.
func (t *Table) Schema() Schema {
	t.metadataMu.Lock()
	defer t.metadataMu.Unlock()
	return Schema{Name: t.name, NumColumns: t.numColumns, KeyColumn: t.keyColumn}
}

// Name returns the table's name.
func (t *Table) Name() string {
	t.metadataMu.Lock()
	defer t.metadataMu.Unlock()
	return t.name
}

// KeyColumn returns the index of the primary-key column.
func (t *Table) KeyColumn() int {
	t.metadataMu.Lock()
	defer t.metadataMu.Unlock()
	return t.keyColumn
}

// NumColumns returns the table's column count.
func (t *Table) NumColumns() int {
	t.metadataMu.Lock()
	defer t.metadataMu.Unlock()
	return t.numColumns
}

// nextRID allocates the next monotonic RID.
func (t *Table) nextRID() RID {
	t.ridMu.Lock()
	defer t.ridMu.Unlock()
	t.ridCounter++
	return RID(t.ridCounter)
}

// InsertRow appends columns as a new record's base values, records its
// page-directory entry, indexes its primary key, and returns the new
// RID. Rejects a duplicate primary key by returning false.
//
// The uniqueness probe, RID allocation, page append, page-directory
// install, and index insert all run under insertMu as one critical
// section. Splitting them into separate short-lived locks would let
// two concurrent inserts of the same key both pass the uniqueness
// check before either one commits its index entry.
func (t *Table) InsertRow(columns []int64) (RID, bool) {
	t.insertMu.Lock()
	defer t.insertMu.Unlock()

	keyValue := columns[t.keyColumn]
	if t.indexHasLiveKey(keyValue) {
		return 0, false
	}

	rid := t.nextRID()
	positions := make([]PagePosition, t.numColumns)
	for c, value := range columns {
		pageIdx, slotIdx := t.appendBase(c, value)
		positions[c] = PagePosition{PageIndex: pageIdx, SlotIndex: slotIdx}
	}

	t.pdMu.Lock()
	t.pageDirectory[rid] = positions
	t.pdMu.Unlock()

	t.index.Insert(t.keyColumn, keyValue, int64(rid))
	return rid, true
}

// indexHasLiveKey reports whether keyValue is still in use by a
// non-deleted record. The primary-key index keeps stale entries for
// deleted records (deletion only removes the page-directory entry),
// so a raw index hit is not enough: every hit must be checked against
// the page directory, the same way Select/Update already resolve a
// RID before trusting it.
func (t *Table) indexHasLiveKey(keyValue int64) bool {
	for _, r := range t.index.Locate(t.keyColumn, keyValue) {
		if _, ok := t.positionsFor(RID(r)); ok {
			return true
		}
	}
	return false
}

// appendBase writes value to column c's last base page, allocating a
// new page if the current one is full, and returns its position.
// pageMu serializes the slice-header append and the NumRecords()-1
// slot read against every other page-array mutation and read: without
// it, two goroutines writing into the same page can each read back
// NumRecords()-1 after both writes land and record the wrong slot.
func (t *Table) appendBase(c int, value int64) (pageIdx, slotIdx int) {
	t.pageMu.Lock()
	defer t.pageMu.Unlock()

	pages := t.basePages[c]
	last := pages[len(pages)-1]
	if !last.Write(value) {
		last = newPage()
		last.Write(value)
		t.basePages[c] = append(t.basePages[c], last)
	}
	pageIdx = len(t.basePages[c]) - 1
	slotIdx = last.NumRecords() - 1
	return
}

// appendTail writes value to column c's last tail page and returns
// its position, mirroring appendBase for historical values.
func (t *Table) appendTail(c int, value int64) (pageIdx, slotIdx int) {
	t.pageMu.Lock()
	defer t.pageMu.Unlock()

	pages := t.tailPages[c]
	last := pages[len(pages)-1]
	if !last.Write(value) {
		last = newPage()
		last.Write(value)
		t.tailPages[c] = append(t.tailPages[c], last)
	}
	pageIdx = len(t.tailPages[c]) - 1
	slotIdx = last.NumRecords() - 1
	return
}

// ReadColumn reads a single column's current value at the given base
// page position. Locked under pageMu because t.basePages[col] is a
// slice header that appendBase may be growing concurrently.
func (t *Table) ReadColumn(col, pageIdx, slotIdx int) int64 {
	t.pageMu.Lock()
	page := t.basePages[col][pageIdx]
	t.pageMu.Unlock()
	return page.Read(slotIdx)
}

// OverwriteBase writes value in place at an existing base-page
// position, under the same pageMu discipline as ReadColumn: the slice
// lookup must not race with appendBase growing the same column.
func (t *Table) OverwriteBase(col, pageIdx, slotIdx int, value int64) {
	t.pageMu.Lock()
	page := t.basePages[col][pageIdx]
	t.pageMu.Unlock()
	page.Overwrite(slotIdx, value)
}

// readTail reads a single column's historical value at the given tail
// page position, under the same pageMu discipline as ReadColumn.
func (t *Table) readTail(col, pageIdx, slotIdx int) int64 {
	t.pageMu.Lock()
	page := t.tailPages[col][pageIdx]
	t.pageMu.Unlock()
	return page.Read(slotIdx)
}

// positionsFor returns a copy of rid's current page-directory entry,
// and whether rid exists.
func (t *Table) positionsFor(rid RID) ([]PagePosition, bool) {
	t.pdMu.Lock()
	defer t.pdMu.Unlock()
	positions, ok := t.pageDirectory[rid]
	if !ok {
		return nil, false
	}
	out := make([]PagePosition, len(positions))
	copy(out, positions)
	return out, true
}

// deletePositions removes rid's page-directory entry, the storage
// equivalent of a logical delete (base/tail page slots are never
// reclaimed). Returns false if rid did not exist.
func (t *Table) deletePositions(rid RID) bool {
	t.pdMu.Lock()
	defer t.pdMu.Unlock()
	if _, ok := t.pageDirectory[rid]; !ok {
		return false
	}
	delete(t.pageDirectory, rid)
	return true
}

// versionChainFor returns a copy of rid's version chain (most-recent
// first), or nil if rid has never been updated.
func (t *Table) versionChainFor(rid RID) []VersionEntry {
	t.vcMu.Lock()
	defer t.vcMu.Unlock()
	chain, ok := t.versionChain[rid]
	if !ok {
		return nil
	}
	out := make([]VersionEntry, len(chain))
	copy(out, chain)
	return out
}

// pushVersion prepends entry to rid's version chain.
func (t *Table) pushVersion(rid RID, entry VersionEntry) {
	t.vcMu.Lock()
	defer t.vcMu.Unlock()
	t.versionChain[rid] = append([]VersionEntry{entry}, t.versionChain[rid]...)
}
