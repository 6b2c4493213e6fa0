package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog/log"

	"github.com/Arash-Rostami/AI-Agent-sub000/internal/metrics"
	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/chat"
)

// sessionIDAlphabet keeps generated IDs URL and filename safe.
const sessionIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

const sessionIDLength = 21

// Store keeps conversation histories in memory. Histories live only as
// long as the process; the Archiver mirrors them to durable storage.
type Store struct {
	mu        sync.RWMutex
	histories map[string][]chat.Message
	touched   map[string]time.Time
	active    map[string]string // identity -> session ID

	writeLocks map[string]*sync.Mutex
	locksMu    sync.RWMutex

	now func() time.Time
}

// NewStore creates an empty session store.
func NewStore() *Store {
	s := &Store{
		histories:  make(map[string][]chat.Message),
		touched:    make(map[string]time.Time),
		active:     make(map[string]string),
		writeLocks: make(map[string]*sync.Mutex),
		now:        time.Now,
	}

	log.Info().Msg("Session store initialized")
	return s
}

// NewSessionID mints a fresh session identifier.
func NewSessionID() string {
	id, err := gonanoid.Generate(sessionIDAlphabet, sessionIDLength)
	if err != nil {
		// gonanoid only fails when the system RNG does.
		return fmt.Sprintf("s%d", time.Now().UnixNano())
	}
	return id
}

func validateSessionID(sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session id cannot be empty")
	}
	if strings.ContainsAny(sessionID, "/\\\x00") {
		return fmt.Errorf("session id contains invalid characters")
	}
	return nil
}

// getWriteLock gets or creates the mutex serializing writes to one session.
func (s *Store) getWriteLock(sessionID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	if lock, exists := s.writeLocks[sessionID]; exists {
		return lock
	}

	lock := &sync.Mutex{}
	s.writeLocks[sessionID] = lock
	return lock
}

func (s *Store) releaseWriteLock(sessionID string) {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	delete(s.writeLocks, sessionID)
}

// Resolve returns the session bound to identity, minting and binding a new
// one when the identity has none. Anonymous callers always get a fresh
// session.
func (s *Store) Resolve(identity string) string {
	if identity == "" {
		id := NewSessionID()
		s.ensure(id)
		return id
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.active[identity]; ok {
		if _, alive := s.histories[id]; alive {
			return id
		}
	}

	id := NewSessionID()
	s.active[identity] = id
	s.histories[id] = nil
	s.touched[id] = s.now()
	metrics.SetActiveSessions(len(s.histories))

	log.Debug().Str("identity", identity).Str("session_id", id).Msg("Session bound")
	return id
}

// Bind explicitly maps identity to sessionID, replacing any prior binding.
func (s *Store) Bind(identity, sessionID string) error {
	if identity == "" {
		return nil
	}
	if err := validateSessionID(sessionID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[identity] = sessionID
	if _, ok := s.histories[sessionID]; !ok {
		s.histories[sessionID] = nil
		s.touched[sessionID] = s.now()
		metrics.SetActiveSessions(len(s.histories))
	}
	return nil
}

func (s *Store) ensure(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.histories[sessionID]; !ok {
		s.histories[sessionID] = nil
		s.touched[sessionID] = s.now()
		metrics.SetActiveSessions(len(s.histories))
	}
}

// History returns a copy of the session's messages. Unknown sessions get an
// empty history rather than an error.
func (s *Store) History(sessionID string) []chat.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return chat.CloneHistory(s.histories[sessionID])
}

// Append adds messages to the session under its write lock, creating it on
// first use.
func (s *Store) Append(sessionID string, messages ...chat.Message) error {
	if err := validateSessionID(sessionID); err != nil {
		return err
	}
	if len(messages) == 0 {
		return nil
	}

	lock := s.getWriteLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	now := s.now()
	for i := range messages {
		if messages[i].Timestamp.IsZero() {
			messages[i].Timestamp = now
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.histories[sessionID]; !ok {
		metrics.SetActiveSessions(len(s.histories) + 1)
	}
	s.histories[sessionID] = append(s.histories[sessionID], messages...)
	s.touched[sessionID] = now
	return nil
}

// Replace swaps the session's history wholesale.
func (s *Store) Replace(sessionID string, history []chat.Message) error {
	if err := validateSessionID(sessionID); err != nil {
		return err
	}

	lock := s.getWriteLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.histories[sessionID] = chat.CloneHistory(history)
	s.touched[sessionID] = s.now()
	metrics.SetActiveSessions(len(s.histories))
	return nil
}

// Clear drops the session's history and any identity bindings pointing at it.
func (s *Store) Clear(sessionID string) {
	lock := s.getWriteLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.histories, sessionID)
	delete(s.touched, sessionID)
	for identity, id := range s.active {
		if id == sessionID {
			delete(s.active, identity)
		}
	}
	metrics.SetActiveSessions(len(s.histories))

	s.releaseWriteLock(sessionID)
	log.Info().Str("session_id", sessionID).Msg("Session cleared")
}

// Owner returns the identity bound to sessionID, if any.
func (s *Store) Owner(sessionID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for identity, id := range s.active {
		if id == sessionID {
			return identity, true
		}
	}
	return "", false
}

// LastTouched returns when the session last changed.
func (s *Store) LastTouched(sessionID string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ts, ok := s.touched[sessionID]
	return ts, ok
}

// Sessions lists all live session IDs.
func (s *Store) Sessions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.histories))
	for id := range s.histories {
		ids = append(ids, id)
	}
	return ids
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.histories)
}
