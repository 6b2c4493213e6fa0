// Package retrieval implements the gateway's knowledge base: documents are
// split into fixed-size chunks, embedded, and held in memory for cosine
// similarity search. Chunks and vectors are mirrored to SQLite so the index
// can warm up without re-embedding after a restart.
package retrieval
