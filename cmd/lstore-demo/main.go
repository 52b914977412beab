// lstore-demo - minimal wiring demonstration, not a CLI harness
//
// Grounded on the original main.go's delegation pattern
// (database.StartDB()); kept intentionally tiny: opens a database,
// creates one table, runs a handful of queries through a
// TransactionWorker, and closes. No REPL, no command parser.

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/filodb/lstore/database"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	db := database.NewDatabase(database.Config{Logger: logger})

	dir, err := os.MkdirTemp("", "lstore-demo-*")
	if err != nil {
		logger.Error("mkdtemp failed", "error", err)
		os.Exit(1)
	}
	defer os.RemoveAll(dir)

	if err := db.Open(dir); err != nil {
		logger.Error("open failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	table, err := db.CreateTable("grades", 3, 0)
	if err != nil {
		logger.Error("create_table failed", "error", err)
		os.Exit(1)
	}

	worker := database.NewTransactionWorker()
	for key := int64(1000); key < 1005; key++ {
		tx := database.NewTransaction()
		tx.AddInsert(table, []int64{key, 90, 0})
		worker.AddTransaction(tx)
	}

	update := database.NewTransaction()
	newValue := int64(99)
	update.AddUpdate(table, 1000, []*int64{nil, &newValue, nil})
	worker.AddTransaction(update)

	worker.Run()
	worker.Join()

	q := database.NewQuery(table)
	rows := q.Select(1000, table.KeyColumn(), []bool{true, true, true})
	if len(rows) == 1 {
		fmt.Printf("key=1000 columns=%v\n", derefAll(rows[0].Columns))
	}
	fmt.Printf("committed %d/%d transactions\n", worker.Result, len(worker.Stats))
}

func derefAll(values []*int64) []int64 {
	out := make([]int64, len(values))
	for i, v := range values {
		if v != nil {
			out[i] = *v
		}
	}
	return out
}
