// lstore metrics - expvar counters beyond the lock manager's own
// Component: transaction commit/abort and worker-retry introspection
//
// expvar is used throughout instead of a third-party metrics client
// because the engine is an embedded library with no HTTP surface to
// expose a /metrics endpoint on; see DESIGN.md.

package database

import "expvar"

var (
	transactionCommits = expvar.NewInt("lstore_transaction_commits_total")
	transactionAborts  = expvar.NewInt("lstore_transaction_aborts_total")
	workerRetries      = expvar.NewInt("lstore_worker_retries_total")
)
