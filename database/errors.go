// lstore error sentinels
// Component: package-level errors for catalog and persistence failures
//
// Grounded on the ErrTableAlreadyExists / errors.Is pattern in
// filodb_engine.go and filodb_operations.go: plain stdlib errors,
// wrapped with fmt.Errorf("%w: ...") for context, never a third-party
// errors package. Query-level failures (constraint violations, lock
// refusals, not-found) collapse to bool at the Query/Transaction
// boundary; these sentinels cover the layer below that, inside
// Database and on-disk loading.

package database

import "errors"

var (
	// ErrTableExists is returned by CreateTable when the name is
	// already present in the catalog.
	ErrTableExists = errors.New("lstore: table already exists")
	// ErrTableNotFound is returned by GetTable/DropTable for an
	// unknown table name.
	ErrTableNotFound = errors.New("lstore: table not found")
	// ErrCorruptMetadata is returned when metadata.db cannot be
	// parsed into a well-formed table catalog.
	ErrCorruptMetadata = errors.New("lstore: corrupt metadata file")
	// ErrDatabaseNotOpen names the not-open condition. No Database
	// method returns it: catalog operations work on an unopened
	// Database, and Close on one is a no-op.
	ErrDatabaseNotOpen = errors.New("lstore: database not open")
)
