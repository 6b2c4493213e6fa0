package permission

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/statestore"
)

// DefaultStateExpiry is how long a remembered restricted grant lasts.
const DefaultStateExpiry = 24 * time.Hour

const restrictedTable = "restricted_ips"

// RestrictedState is the remembered access level for one caller IP, so
// known embeds do not re-authenticate on every page load.
type RestrictedState struct {
	Restricted bool      `json:"restricted"`
	BMS        bool      `json:"bms"`
	GrantedAt  time.Time `json:"granted_at"`
}

// StateStore persists RestrictedState per caller IP with expiry.
type StateStore struct {
	store  statestore.Store
	expiry time.Duration
	now    func() time.Time
}

// NewStateStore creates a state store over the given backend.
func NewStateStore(store statestore.Store, expiry time.Duration) *StateStore {
	if expiry <= 0 {
		expiry = DefaultStateExpiry
	}
	return &StateStore{store: store, expiry: expiry, now: time.Now}
}

// Remember records the caller's state, stamping the grant time.
func (s *StateStore) Remember(ctx context.Context, ip string, state RestrictedState) error {
	if ip == "" {
		return nil
	}
	state.GrantedAt = s.now()

	table := s.readTable(ctx)
	s.pruneExpired(table)

	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	table[ip] = raw
	return s.store.Write(ctx, restrictedTable, table)
}

// Lookup returns the remembered state for ip, or false when none exists or
// the grant has expired.
func (s *StateStore) Lookup(ctx context.Context, ip string) (RestrictedState, bool) {
	if ip == "" {
		return RestrictedState{}, false
	}

	table := s.readTable(ctx)
	raw, ok := table[ip]
	if !ok {
		return RestrictedState{}, false
	}

	var state RestrictedState
	if err := json.Unmarshal(raw, &state); err != nil {
		return RestrictedState{}, false
	}
	if s.now().Sub(state.GrantedAt) >= s.expiry {
		return RestrictedState{}, false
	}
	return state, true
}

func (s *StateStore) readTable(ctx context.Context) statestore.Table {
	table, err := s.store.Read(ctx, restrictedTable)
	if err != nil {
		log.Warn().Err(err).Msg("Restricted state table unreadable, starting empty")
		return statestore.Table{}
	}
	return table
}

func (s *StateStore) pruneExpired(table statestore.Table) {
	now := s.now()
	for ip, raw := range table {
		var state RestrictedState
		if err := json.Unmarshal(raw, &state); err != nil || now.Sub(state.GrantedAt) >= s.expiry {
			delete(table, ip)
		}
	}
}
