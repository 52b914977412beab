package database

import "testing"

func TestTransactionBasicCommit(t *testing.T) {
	tbl := NewTable("tx_basic", 3, 0, DefaultBTreeOrder)
	for k := int64(1000); k < 1005; k++ {
		NewQuery(tbl).Insert([]int64{k, 0, 0})
	}

	tx := NewTransaction()
	tx.AddUpdate(tbl, 1000, []*int64{nil, ptr(99), nil})
	if !tx.Run() {
		t.Fatal("transaction should commit")
	}

	rows := NewQuery(tbl).Select(1000, 0, allProjected(3))
	if *rows[0].Columns[1] != 99 {
		t.Errorf("column 1 = %d, want 99", *rows[0].Columns[1])
	}
}

func TestTransactionMultiOpCommit(t *testing.T) {
	tbl := NewTable("tx_multiop", 2, 0, DefaultBTreeOrder)
	for _, k := range []int64{1001, 1002, 1003} {
		NewQuery(tbl).Insert([]int64{k, 0})
	}

	tx := NewTransaction()
	tx.AddUpdate(tbl, 1001, []*int64{nil, ptr(111)})
	tx.AddUpdate(tbl, 1002, []*int64{nil, ptr(222)})
	tx.AddUpdate(tbl, 1003, []*int64{nil, ptr(333)})
	if !tx.Run() {
		t.Fatal("transaction should commit")
	}

	want := map[int64]int64{1001: 111, 1002: 222, 1003: 333}
	for k, v := range want {
		rows := NewQuery(tbl).Select(k, 0, allProjected(2))
		if *rows[0].Columns[1] != v {
			t.Errorf("key %d column 1 = %d, want %d", k, *rows[0].Columns[1], v)
		}
	}
}

func TestTransactionAbortsOnLockConflict(t *testing.T) {
	tbl := NewTable("tx_conflict", 2, 0, DefaultBTreeOrder)
	NewQuery(tbl).Insert([]int64{1, 0})

	tx1 := NewTransaction()
	lm := GetLockManager()
	if !lm.AcquireExclusive(tx1.ID(), lockKey("tx_conflict", 1)) {
		t.Fatal("tx1 should acquire exclusive lock on key 1")
	}

	tx2 := NewTransaction()
	tx2.AddUpdate(tbl, 1, []*int64{nil, ptr(5)})
	if tx2.Run() {
		t.Fatal("tx2 should abort: tx1 still holds the lock")
	}

	lm.ReleaseAll(tx1.ID())

	if !tx2.Run() {
		t.Fatal("tx2 should commit once tx1 releases its lock")
	}
}

func TestTransactionRollbackOnFailedOp(t *testing.T) {
	tbl := NewTable("tx_rollback", 2, 0, DefaultBTreeOrder)
	NewQuery(tbl).Insert([]int64{1, 1000})

	tx := NewTransaction()
	tx.AddUpdate(tbl, 1, []*int64{nil, ptr(9999)})
	tx.AddUpdate(tbl, 1, []*int64{nil, ptr(8888)})
	tx.AddUpdate(tbl, 999, []*int64{nil, ptr(1)}) // nonexistent key, forces abort

	if tx.Run() {
		t.Fatal("transaction should abort: third update targets a nonexistent key")
	}

	rows := NewQuery(tbl).Select(1, 0, allProjected(2))
	if *rows[0].Columns[1] != 1000 {
		t.Errorf("after abort, column 1 = %d, want restored value 1000", *rows[0].Columns[1])
	}
}

func TestTransactionLockUpgradeWithinOneTransaction(t *testing.T) {
	tbl := NewTable("tx_upgrade", 2, 0, DefaultBTreeOrder)
	NewQuery(tbl).Insert([]int64{1, 1})

	tx := NewTransaction()
	tx.AddSelect(tbl, 1, allProjected(2))
	tx.AddUpdate(tbl, 1, []*int64{nil, ptr(2)})
	if !tx.Run() {
		t.Fatal("select then update on the same key within one transaction should commit via lock upgrade")
	}

	rows := NewQuery(tbl).Select(1, 0, allProjected(2))
	if *rows[0].Columns[1] != 2 {
		t.Errorf("column 1 = %d, want 2", *rows[0].Columns[1])
	}
}
