// Package statestore provides small durable key/value tables consumed
// whole: callers read an entire table, mutate it, and write it back.
// It backs the credential lease table and the restricted-IP table.
package statestore

import (
	"context"
	"encoding/json"
)

// Table is a named set of JSON rows keyed by an opaque string
// (an identity, a caller IP).
type Table map[string]json.RawMessage

// Store reads and writes whole tables. Concurrent read-modify-write cycles
// on the same table can lose updates; callers accept last-write-wins.
type Store interface {
	// Read returns the full table, or an empty table if it does not exist.
	Read(ctx context.Context, table string) (Table, error)

	// Write replaces the full table.
	Write(ctx context.Context, table string, rows Table) error

	// Close releases any resources held by the store.
	Close() error
}

// Clone returns an independent copy of a table.
func Clone(rows Table) Table {
	out := make(Table, len(rows))
	for k, v := range rows {
		out[k] = v
	}
	return out
}
