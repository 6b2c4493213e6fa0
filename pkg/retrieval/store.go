package retrieval

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	_ "github.com/mattn/go-sqlite3"
)

const chunkSchema = `
CREATE TABLE IF NOT EXISTS chunks (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	document  TEXT NOT NULL,
	ordinal   INTEGER NOT NULL,
	text      TEXT NOT NULL,
	embedding BLOB NOT NULL
);
`

// ChunkStore persists embedded chunks so the index can warm up without
// re-embedding everything after a restart.
type ChunkStore struct {
	db *sql.DB
}

// NewChunkStore opens (or creates) the chunk database at path.
func NewChunkStore(path string) (*ChunkStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open chunk database: %w", err)
	}
	if _, err := db.Exec(chunkSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create chunk schema: %w", err)
	}
	return &ChunkStore{db: db}, nil
}

// ReplaceAll swaps the persisted chunk set in one transaction.
func (s *ChunkStore) ReplaceAll(ctx context.Context, chunks []Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("failed to clear chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (document, ordinal, text, embedding) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.Document, c.Ordinal, c.Text, encodeVector(c.Embedding)); err != nil {
			return fmt.Errorf("failed to insert chunk: %w", err)
		}
	}

	return tx.Commit()
}

// LoadAll returns every persisted chunk in insertion order.
func (s *ChunkStore) LoadAll(ctx context.Context) ([]Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT document, ordinal, text, embedding FROM chunks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		var blob []byte
		if err := rows.Scan(&c.Document, &c.Ordinal, &c.Text, &blob); err != nil {
			return nil, err
		}
		c.Embedding = decodeVector(blob)
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// Close closes the underlying database.
func (s *ChunkStore) Close() error {
	return s.db.Close()
}

func encodeVector(v []float32) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, len(v)*4))
	for _, f := range v {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(f))
		buf.Write(b[:])
	}
	return buf.Bytes()
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
