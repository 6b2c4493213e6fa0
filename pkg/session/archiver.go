package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/Arash-Rostami/AI-Agent-sub000/internal/metrics"
	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/chat"
)

const archiveQueueSize = 256

const transcriptSchema = `
CREATE TABLE IF NOT EXISTS transcripts (
	session_id TEXT PRIMARY KEY,
	identity   TEXT NOT NULL DEFAULT '',
	messages   TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transcripts_identity ON transcripts(identity);
`

// Transcript is one archived conversation.
type Transcript struct {
	SessionID string         `json:"session_id"`
	Identity  string         `json:"identity"`
	Messages  []chat.Message `json:"messages"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Archiver mirrors finished turns to SQLite in the background. Upserts are
// fire-and-forget: a full queue drops the snapshot and the next turn
// re-archives the whole history anyway.
type Archiver struct {
	db    *sql.DB
	queue chan Transcript

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// NewArchiver opens (or creates) the transcript database at path and starts
// the background writer.
func NewArchiver(path string) (*Archiver, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript database: %w", err)
	}
	if _, err := db.Exec(transcriptSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create transcript schema: %w", err)
	}

	a := &Archiver{
		db:     db,
		queue:  make(chan Transcript, archiveQueueSize),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go a.run()

	log.Info().Str("path", path).Msg("Transcript archiver started")
	return a, nil
}

// Upsert queues a snapshot for archiving. It never blocks and never fails;
// a saturated queue drops the snapshot with a warning.
func (a *Archiver) Upsert(sessionID, identity string, history []chat.Message) {
	t := Transcript{
		SessionID: sessionID,
		Identity:  identity,
		Messages:  chat.CloneHistory(history),
		UpdatedAt: time.Now(),
	}

	select {
	case a.queue <- t:
	default:
		metrics.RecordTranscriptDrop()
		log.Warn().Str("session_id", sessionID).Msg("Archive queue full, snapshot dropped")
	}
}

func (a *Archiver) run() {
	defer close(a.done)
	for {
		select {
		case t := <-a.queue:
			a.write(t)
		case <-a.stopCh:
			// Drain what is already queued before exiting.
			for {
				select {
				case t := <-a.queue:
					a.write(t)
				default:
					return
				}
			}
		}
	}
}

func (a *Archiver) write(t Transcript) {
	payload, err := json.Marshal(t.Messages)
	if err != nil {
		log.Error().Err(err).Str("session_id", t.SessionID).Msg("Failed to encode transcript")
		return
	}

	_, err = a.db.Exec(`
		INSERT INTO transcripts (session_id, identity, messages, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			identity = excluded.identity,
			messages = excluded.messages,
			updated_at = excluded.updated_at`,
		t.SessionID, t.Identity, string(payload), t.UpdatedAt.UTC())
	if err != nil {
		log.Error().Err(err).Str("session_id", t.SessionID).Msg("Failed to archive transcript")
		return
	}

	log.Debug().Str("session_id", t.SessionID).Int("messages", len(t.Messages)).Msg("Transcript archived")
}

// Load returns the archived transcript for sessionID, or false when none
// exists.
func (a *Archiver) Load(ctx context.Context, sessionID string) (Transcript, bool, error) {
	row := a.db.QueryRowContext(ctx,
		`SELECT session_id, identity, messages, updated_at FROM transcripts WHERE session_id = ?`,
		sessionID)

	var t Transcript
	var payload string
	if err := row.Scan(&t.SessionID, &t.Identity, &payload, &t.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return Transcript{}, false, nil
		}
		return Transcript{}, false, fmt.Errorf("failed to load transcript: %w", err)
	}
	if err := json.Unmarshal([]byte(payload), &t.Messages); err != nil {
		return Transcript{}, false, fmt.Errorf("failed to decode transcript: %w", err)
	}
	return t, true, nil
}

// ListByIdentity returns session IDs archived for identity, newest first.
func (a *Archiver) ListByIdentity(ctx context.Context, identity string) ([]string, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT session_id FROM transcripts WHERE identity = ? ORDER BY updated_at DESC`,
		identity)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close stops the background writer, drains the queue, and closes the
// database.
func (a *Archiver) Close() error {
	a.stopOnce.Do(func() {
		close(a.stopCh)
	})
	<-a.done

	log.Info().Msg("Transcript archiver stopped")
	return a.db.Close()
}
