package store

import "fmt"

// Lookup misses at this layer are values, not errors: point lookups
// return a found flag and mutating calls return an affected flag.
// Errors are reserved for driver failures and mapping misuse.

// ColumnError reports a create/update value targeting a column the
// entity mapping never declared writable. It always indicates a
// programming error in the calling service, not bad client input.
type ColumnError struct {
	Table  string
	Column string
	Op     string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("store: column %q is not %s on table %q", e.Column, e.Op, e.Table)
}
