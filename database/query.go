// lstore Query - row-level operations bound to one Table
// Component: insert/select/select_version/update/delete/sum/sum_version/increment
//
// Grounded on original_source/lstore/query.py, translated method for
// method: the version-clamping rule in selectVersion/sumVersion and
// the sum/sumVersion "found" bool mirror the original's fallback
// behavior exactly. Query itself carries no state beyond the table it
// is bound to, matching the original's thin wrapper.

package database

// Query implements the record-level read/write operations of one
// table. It holds no state of its own; every call re-derives its
// answer from the table's current page directory, version chain, and
// index, so a Query value is safe to share or recreate freely.
type Query struct {
	table *Table
}

// NewQuery binds a Query to table.
func NewQuery(table *Table) *Query {
	return &Query{table: table}
}

// Insert appends a new row. columns must have exactly
// table.NumColumns() entries. Returns false if the primary-key column
// already has a row with that value.
func (q *Query) Insert(columns []int64) bool {
	if len(columns) != q.table.numColumns {
		return false
	}
	_, ok := q.table.InsertRow(columns)
	return ok
}

// Select returns the current values for the row whose searchColumn
// equals searchKey, projecting only the columns marked true in
// projected. Returns an empty slice if no such row exists.
func (q *Query) Select(searchKey int64, searchColumn int, projected []bool) []Record {
	rids := q.table.index.Locate(searchColumn, searchKey)
	if len(rids) == 0 {
		return nil
	}
	rid := RID(rids[0])

	positions, ok := q.table.positionsFor(rid)
	if !ok {
		return nil
	}

	values := make([]*int64, q.table.numColumns)
	for c, pos := range positions {
		if c < len(projected) && projected[c] {
			v := q.table.ReadColumn(c, pos.PageIndex, pos.SlotIndex)
			values[c] = &v
		}
	}
	return []Record{{RID: rid, Key: searchKey, Columns: values}}
}

// resolveVersionIndex clamps a negative relativeVersion ("how many
// updates back") against the chain's actual length, returning the
// index into chain to use and the version number actually served.
// relativeVersion == 0 means "current"; the caller handles that case
// before calling this.
func resolveVersionIndex(chainLen int, relativeVersion int) (versionIdx, actualVersion int) {
	if chainLen == 0 {
		return 0, 0
	}
	versionIdx = -relativeVersion - 1
	if versionIdx >= chainLen {
		versionIdx = chainLen - 1
		actualVersion = -(versionIdx + 1)
	} else {
		actualVersion = relativeVersion
	}
	return
}

// SelectVersion returns the row as of relativeVersion updates ago
// (0 = current, -1 = one update back, and so on), clamped to the
// oldest version available once relativeVersion reaches further back
// than the chain holds. Returns an empty slice if no such row exists.
func (q *Query) SelectVersion(searchKey int64, searchColumn int, projected []bool, relativeVersion int) []Record {
	rids := q.table.index.Locate(searchColumn, searchKey)
	if len(rids) == 0 {
		return nil
	}
	rid := RID(rids[0])

	positions, ok := q.table.positionsFor(rid)
	if !ok {
		return nil
	}

	actualVersion := relativeVersion
	var versionIdx int
	chain := q.table.versionChainFor(rid)
	if relativeVersion < 0 {
		versionIdx, actualVersion = resolveVersionIndex(len(chain), relativeVersion)
	}

	values := make([]*int64, q.table.numColumns)
	for c, isProjected := range projected {
		if !isProjected {
			continue
		}
		if actualVersion == 0 {
			v := q.table.ReadColumn(c, positions[c].PageIndex, positions[c].SlotIndex)
			values[c] = &v
			continue
		}

		var entry VersionEntry
		if versionIdx < len(chain) {
			entry = chain[versionIdx]
		}
		if entry != nil && c < len(entry) && entry[c] != nil {
			v := q.table.readTail(c, entry[c].PageIndex, entry[c].SlotIndex)
			values[c] = &v
		} else {
			v := q.table.ReadColumn(c, positions[c].PageIndex, positions[c].SlotIndex)
			values[c] = &v
		}
	}
	return []Record{{RID: rid, Key: searchKey, Columns: values}}
}

// Update changes the row whose primary key equals primaryKey. columns
// has one entry per table column; a nil entry leaves that column
// unchanged. The old value of every changed column is preserved in a
// new tail-page entry prepended to the row's version chain.
//
// Changing the primary-key column to a value different from
// primaryKey is rejected outright (returns false), as is changing it
// to a value already used by another row.
func (q *Query) Update(primaryKey int64, columns []*int64) bool {
	rids := q.table.index.Locate(q.table.keyColumn, primaryKey)
	if len(rids) == 0 {
		return false
	}
	rid := RID(rids[0])

	oldPositions, ok := q.table.positionsFor(rid)
	if !ok {
		return false
	}

	if newKey := columns[q.table.keyColumn]; newKey != nil && *newKey != primaryKey {
		return false
	}

	entry := make(VersionEntry, q.table.numColumns)
	for c, newValue := range columns {
		if newValue == nil {
			continue
		}
		oldValue := q.table.ReadColumn(c, oldPositions[c].PageIndex, oldPositions[c].SlotIndex)
		tailPageIdx, tailSlotIdx := q.table.appendTail(c, oldValue)
		entry[c] = &PagePosition{PageIndex: tailPageIdx, SlotIndex: tailSlotIdx}
		q.table.OverwriteBase(c, oldPositions[c].PageIndex, oldPositions[c].SlotIndex, *newValue)
	}

	q.table.pushVersion(rid, entry)
	return true
}

// Delete removes the row whose primary key equals primaryKey from the
// page directory. The underlying page slots and version chain remain
// (storage is append-only; deletion is logical, via page-directory
// removal, per the no-reclaim model).
func (q *Query) Delete(primaryKey int64) bool {
	rids := q.table.index.Locate(q.table.keyColumn, primaryKey)
	if len(rids) == 0 {
		return false
	}
	return q.table.deletePositions(RID(rids[0]))
}

// Sum adds aggregateColumn's current value across every row whose
// primary key falls within [startRange, endRange]. Returns (0, false)
// if no row in range exists.
func (q *Query) Sum(startRange, endRange int64, aggregateColumn int) (int64, bool) {
	rids := q.table.index.LocateRange(q.table.keyColumn, startRange, endRange)
	var total int64
	found := false
	for _, r := range rids {
		rid := RID(r)
		positions, ok := q.table.positionsFor(rid)
		if !ok {
			continue
		}
		pos := positions[aggregateColumn]
		total += q.table.ReadColumn(aggregateColumn, pos.PageIndex, pos.SlotIndex)
		found = true
	}
	return total, found
}

// SumVersion is Sum as of relativeVersion updates ago, applying the
// same clamp-to-oldest rule as SelectVersion independently per row.
func (q *Query) SumVersion(startRange, endRange int64, aggregateColumn int, relativeVersion int) (int64, bool) {
	rids := q.table.index.LocateRange(q.table.keyColumn, startRange, endRange)
	var total int64
	found := false
	for _, r := range rids {
		rid := RID(r)
		positions, ok := q.table.positionsFor(rid)
		if !ok {
			continue
		}

		if relativeVersion == 0 {
			pos := positions[aggregateColumn]
			total += q.table.ReadColumn(aggregateColumn, pos.PageIndex, pos.SlotIndex)
			found = true
			continue
		}

		chain := q.table.versionChainFor(rid)
		versionIdx, _ := resolveVersionIndex(len(chain), relativeVersion)

		var entry VersionEntry
		if versionIdx < len(chain) {
			entry = chain[versionIdx]
		}
		if entry != nil && aggregateColumn < len(entry) && entry[aggregateColumn] != nil {
			total += q.table.readTail(aggregateColumn, entry[aggregateColumn].PageIndex, entry[aggregateColumn].SlotIndex)
		} else {
			pos := positions[aggregateColumn]
			total += q.table.ReadColumn(aggregateColumn, pos.PageIndex, pos.SlotIndex)
		}
		found = true
	}
	return total, found
}

// Increment adds one to column for the row whose primary key equals
// key, implemented as a select followed by an update like the
// original.
func (q *Query) Increment(key int64, column int) bool {
	projected := make([]bool, q.table.numColumns)
	for i := range projected {
		projected[i] = true
	}
	rows := q.Select(key, q.table.keyColumn, projected)
	if len(rows) == 0 {
		return false
	}
	row := rows[0]
	if row.Columns[column] == nil {
		return false
	}

	updated := make([]*int64, q.table.numColumns)
	newValue := *row.Columns[column] + 1
	updated[column] = &newValue
	return q.Update(key, updated)
}
