// lstore Transaction - S2PL-guarded ordered list of queued operations
// Component: lock-then-execute-then-record protocol, commit/abort, rollback
//
// Grounded on original_source/lstore/transaction.py for the
// run/commit/abort shape and the process-wide transaction-ID counter,
// and on spec's own S2PL/no-wait locking protocol layered on top of
// it (the original's transaction.py predates its own lock.py and does
// not actually call the lock manager; this implementation wires the
// two together as the engine's contract requires).

package database

import (
	"fmt"
	"sync"
)

var (
	transactionIDMu  sync.Mutex
	nextTransactionID uint64
)

// nextTID allocates the next process-wide transaction ID.
func nextTID() TransactionID {
	transactionIDMu.Lock()
	defer transactionIDMu.Unlock()
	nextTransactionID++
	return TransactionID(nextTransactionID)
}

// op is one queued (operation, table, arguments) triple.
type op struct {
	kind OpKind
	q    *Query

	// insert
	insertColumns []int64

	// select / select_version / sum / sum_version / update / delete / increment
	key             int64
	projected       []bool
	relativeVersion int

	// update
	updateColumns []*int64

	// sum / sum_version
	startRange, endRange int64
	aggregateColumn      int
}

// OpResult is the outcome of one executed operation, retained so a
// caller can inspect what a committed transaction actually produced.
type OpResult struct {
	Kind    OpKind
	Success bool
	Records []Record
	Sum     int64
	Found   bool
}

// executedOp is rollback metadata for one op that has already run
// against the table, captured before locks are taken so abort can
// compensate even though the op itself mutated state.
type executedOp struct {
	kind       OpKind
	table      *Table
	key        int64
	oldColumns []*int64 // full pre-op snapshot, update/delete/increment only
}

// Transaction is an ordered list of queued operations executed under
// Strict Two-Phase Locking with a no-wait policy: each operation locks
// its key before running, and any refusal or operation failure aborts
// the whole transaction. Locks are held until commit or abort, at
// which point every lock the transaction acquired is released in one
// step.
type Transaction struct {
	id  TransactionID
	ops []op

	executed []executedOp
	Results  []OpResult
}

// NewTransaction allocates a transaction with a fresh, process-wide
// unique ID.
func NewTransaction() *Transaction {
	return &Transaction{id: nextTID()}
}

// ID returns the transaction's identifier.
func (tx *Transaction) ID() TransactionID { return tx.id }

// AddInsert queues an insert of columns into table.
func (tx *Transaction) AddInsert(table *Table, columns []int64) {
	tx.ops = append(tx.ops, op{kind: OpInsert, q: NewQuery(table), insertColumns: columns})
}

// AddSelect queues a select of the row keyed by key, projecting the
// columns marked true.
func (tx *Transaction) AddSelect(table *Table, key int64, projected []bool) {
	tx.ops = append(tx.ops, op{kind: OpSelect, q: NewQuery(table), key: key, projected: projected})
}

// AddSelectVersion queues a versioned select.
func (tx *Transaction) AddSelectVersion(table *Table, key int64, projected []bool, relativeVersion int) {
	tx.ops = append(tx.ops, op{kind: OpSelectVersion, q: NewQuery(table), key: key, projected: projected, relativeVersion: relativeVersion})
}

// AddUpdate queues an update of the row keyed by key.
func (tx *Transaction) AddUpdate(table *Table, key int64, columns []*int64) {
	tx.ops = append(tx.ops, op{kind: OpUpdate, q: NewQuery(table), key: key, updateColumns: columns})
}

// AddDelete queues a delete of the row keyed by key.
func (tx *Transaction) AddDelete(table *Table, key int64) {
	tx.ops = append(tx.ops, op{kind: OpDelete, q: NewQuery(table), key: key})
}

// AddSum queues a range sum over [lo, hi] on the primary-key column.
func (tx *Transaction) AddSum(table *Table, lo, hi int64, aggregateColumn int) {
	tx.ops = append(tx.ops, op{kind: OpSum, q: NewQuery(table), startRange: lo, endRange: hi, aggregateColumn: aggregateColumn})
}

// AddSumVersion queues a versioned range sum.
func (tx *Transaction) AddSumVersion(table *Table, lo, hi int64, aggregateColumn int, relativeVersion int) {
	tx.ops = append(tx.ops, op{kind: OpSumVersion, q: NewQuery(table), startRange: lo, endRange: hi, aggregateColumn: aggregateColumn, relativeVersion: relativeVersion})
}

// AddIncrement queues an increment of column for the row keyed by key.
func (tx *Transaction) AddIncrement(table *Table, key int64, column int) {
	tx.ops = append(tx.ops, op{kind: OpIncrement, q: NewQuery(table), key: key, aggregateColumn: column})
}

func lockKey(tableName string, key int64) string {
	return fmt.Sprintf("%s:%d", tableName, key)
}

// Run executes every queued operation in order: for each, it snapshots
// rollback metadata, acquires the locks that operation's kind
// requires, runs the operation, and records it as executed. Any lock
// refusal or operation failure aborts the transaction immediately.
// Returns true iff every operation succeeded and the transaction
// committed.
func (tx *Transaction) Run() bool {
	tx.executed = nil
	tx.Results = nil

	lm := GetLockManager()
	for _, o := range tx.ops {
		table := o.q.table
		snapshot := tx.snapshotFor(o)

		if !tx.acquireLocks(lm, o) {
			return tx.abort(lm)
		}

		result, success := tx.execute(o)
		tx.Results = append(tx.Results, result)
		if !success {
			return tx.abort(lm)
		}

		if snapshot != nil {
			tx.executed = append(tx.executed, executedOp{
				kind:       o.kind,
				table:      table,
				key:        tx.keyFor(o),
				oldColumns: snapshot,
			})
		} else if o.kind == OpInsert {
			tx.executed = append(tx.executed, executedOp{
				kind:  OpInsert,
				table: table,
				key:   o.insertColumns[table.KeyColumn()],
			})
		}
	}
	return tx.commit(lm)
}

// keyFor returns the primary-key value an op addresses.
func (tx *Transaction) keyFor(o op) int64 {
	if o.kind == OpInsert {
		return o.insertColumns[o.q.table.KeyColumn()]
	}
	return o.key
}

// snapshotFor pre-computes rollback metadata for update/delete/
// increment by reading the row's current full state before any locks
// are taken, matching the execution protocol's ordering.
func (tx *Transaction) snapshotFor(o op) []*int64 {
	switch o.kind {
	case OpUpdate, OpDelete, OpIncrement:
		allProjected := make([]bool, o.q.table.NumColumns())
		for i := range allProjected {
			allProjected[i] = true
		}
		rows := o.q.Select(o.key, o.q.table.KeyColumn(), allProjected)
		if len(rows) == 0 {
			return nil
		}
		return rows[0].Columns
	default:
		return nil
	}
}

// acquireLocks takes the locks op's kind requires, per the naming
// convention "table:primary_key". Range operations lock every integer
// key in [lo, hi], matching the documented overlocking behavior.
func (tx *Transaction) acquireLocks(lm *LockManager, o op) bool {
	tableName := o.q.table.Name()
	switch o.kind {
	case OpInsert:
		key := o.insertColumns[o.q.table.KeyColumn()]
		return lm.AcquireExclusive(tx.id, lockKey(tableName, key))
	case OpSelect, OpSelectVersion:
		return lm.AcquireShared(tx.id, lockKey(tableName, o.key))
	case OpUpdate, OpDelete, OpIncrement:
		return lm.AcquireExclusive(tx.id, lockKey(tableName, o.key))
	case OpSum, OpSumVersion:
		for k := o.startRange; k <= o.endRange; k++ {
			if !lm.AcquireShared(tx.id, lockKey(tableName, k)) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// execute runs op against its bound query and reports whether the
// transaction should treat it as a success. Select-family operations
// always report success per the query layer's "empty result, not an
// error" convention; every other kind fails the transaction when its
// underlying query call does.
func (tx *Transaction) execute(o op) (OpResult, bool) {
	switch o.kind {
	case OpInsert:
		ok := o.q.Insert(o.insertColumns)
		return OpResult{Kind: o.kind, Success: ok}, ok
	case OpSelect:
		rows := o.q.Select(o.key, o.q.table.KeyColumn(), o.projected)
		return OpResult{Kind: o.kind, Success: true, Records: rows}, true
	case OpSelectVersion:
		rows := o.q.SelectVersion(o.key, o.q.table.KeyColumn(), o.projected, o.relativeVersion)
		return OpResult{Kind: o.kind, Success: true, Records: rows}, true
	case OpUpdate:
		ok := o.q.Update(o.key, o.updateColumns)
		return OpResult{Kind: o.kind, Success: ok}, ok
	case OpDelete:
		ok := o.q.Delete(o.key)
		return OpResult{Kind: o.kind, Success: ok}, ok
	case OpSum:
		total, found := o.q.Sum(o.startRange, o.endRange, o.aggregateColumn)
		return OpResult{Kind: o.kind, Success: found, Sum: total, Found: found}, found
	case OpSumVersion:
		total, found := o.q.SumVersion(o.startRange, o.endRange, o.aggregateColumn, o.relativeVersion)
		return OpResult{Kind: o.kind, Success: found, Sum: total, Found: found}, found
	case OpIncrement:
		ok := o.q.Increment(o.key, o.aggregateColumn)
		return OpResult{Kind: o.kind, Success: ok}, ok
	default:
		return OpResult{Kind: o.kind}, false
	}
}

// commit clears executed-op state and releases all locks. It never
// fails.
func (tx *Transaction) commit(lm *LockManager) bool {
	tx.executed = nil
	lm.ReleaseAll(tx.id)
	transactionCommits.Add(1)
	return true
}

// abort runs rollback-by-compensation over the executed-op list in
// reverse, then releases all locks. Rollback re-enters the query
// layer, which itself writes fresh tail-page and version-chain
// entries; this intentionally mirrors the source's behavior rather
// than hiding it behind true undo-logging.
func (tx *Transaction) abort(lm *LockManager) bool {
	for i := len(tx.executed) - 1; i >= 0; i-- {
		e := tx.executed[i]
		q := NewQuery(e.table)
		switch e.kind {
		case OpInsert:
			q.Delete(e.key)
		case OpUpdate, OpIncrement:
			q.Update(e.key, e.oldColumns)
		case OpDelete:
			columns := make([]int64, len(e.oldColumns))
			for i, v := range e.oldColumns {
				if v != nil {
					columns[i] = *v
				}
			}
			q.Insert(columns)
		}
	}
	tx.executed = nil
	lm.ReleaseAll(tx.id)
	transactionAborts.Add(1)
	return false
}
