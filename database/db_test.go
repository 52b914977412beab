package database

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDatabaseCreateDropGetTable(t *testing.T) {
	db := NewDatabase(Config{})
	dir := t.TempDir()
	if err := db.Open(dir); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if _, err := db.CreateTable("users", 3, 0); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	if _, err := db.CreateTable("users", 3, 0); err != ErrTableExists {
		t.Fatalf("duplicate CreateTable err = %v, want ErrTableExists", err)
	}
	if _, err := db.GetTable("users"); err != nil {
		t.Fatalf("GetTable failed: %v", err)
	}
	if _, err := db.GetTable("missing"); err != ErrTableNotFound {
		t.Fatalf("GetTable on missing table err = %v, want ErrTableNotFound", err)
	}
	if err := db.DropTable("users"); err != nil {
		t.Fatalf("DropTable failed: %v", err)
	}
	if err := db.DropTable("users"); err != ErrTableNotFound {
		t.Fatalf("DropTable on missing table err = %v, want ErrTableNotFound", err)
	}
}

func TestDatabaseCloseOpenRoundTrip(t *testing.T) {
	dir := t.TempDir()

	db := NewDatabase(Config{})
	if err := db.Open(dir); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	table, err := db.CreateTable("grades", 3, 0)
	if err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	q := NewQuery(table)
	q.Insert([]int64{1000, 90, 1})
	q.Insert([]int64{1001, 80, 2})
	q.Update(1000, []*int64{nil, ptr(95), nil})

	if err := db.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened := NewDatabase(Config{})
	if err := reopened.Open(dir); err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	reloadedTable, err := reopened.GetTable("grades")
	if err != nil {
		t.Fatalf("GetTable after reopen failed: %v", err)
	}

	rq := NewQuery(reloadedTable)
	rows := rq.Select(1000, 0, allProjected(3))
	if len(rows) != 1 || *rows[0].Columns[1] != 95 {
		t.Fatalf("reloaded key 1000 = %v, want column 1 == 95", rows)
	}
	rows = rq.Select(1001, 0, allProjected(3))
	if len(rows) != 1 || *rows[0].Columns[1] != 80 {
		t.Fatalf("reloaded key 1001 = %v, want column 1 == 80", rows)
	}

	// A fresh insert after reopen must continue the RID sequence rather
	// than colliding with rehydrated rids.
	if !rq.Insert([]int64{1002, 70, 3}) {
		t.Fatal("insert after reopen should succeed")
	}
}

func TestDatabaseOpenCreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "path")
	db := NewDatabase(Config{})
	if err := db.Open(dir); err != nil {
		t.Fatalf("Open on a missing directory should create it: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("expected directory to exist: %v", err)
	}
}
