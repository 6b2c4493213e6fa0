// Package session tracks live conversations. The Store keeps histories in
// memory keyed by session ID and maps caller identities to their active
// session; the Archiver mirrors each finished turn to SQLite so transcripts
// survive restarts; the Cleaner evicts sessions that have gone idle.
package session
