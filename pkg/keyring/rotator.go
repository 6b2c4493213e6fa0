// Package keyring assigns provider credentials to caller identities.
//
// Each identity holds at most one lease; a lease older than the TTL is
// replaced on next access rather than proactively evicted. On a provider
// quota or leaked-key signal the orchestrator escalates the identity to the
// privileged credential.
package keyring

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/statestore"
	"github.com/rs/zerolog"
)

// DefaultLeaseTTL is how long a credential stays pinned to an identity.
const DefaultLeaseTTL = 2 * time.Hour

// leaseTable is the statestore table holding active leases.
const leaseTable = "credential_leases"

// Credential is one provider API key from the configured pool.
type Credential struct {
	ID         string `json:"id"`
	Key        string `json:"key"`
	Privileged bool   `json:"privileged,omitempty"`
}

// Lease pins one credential to one identity.
type Lease struct {
	Identity   string    `json:"identity"`
	Key        string    `json:"key"`
	AssignedAt time.Time `json:"assigned_at"`
}

// Expired reports whether the lease is older than ttl at time now.
func (l Lease) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(l.AssignedAt) >= ttl
}

// Rotator hands out credentials. Safe for concurrent use; concurrent
// writers on the backing table are last-write-wins (see package doc).
type Rotator struct {
	pool       []Credential
	privileged Credential
	store      statestore.Store
	ttl        time.Duration
	now        func() time.Time
	logger     zerolog.Logger

	mu   sync.Mutex
	rand *rand.Rand
}

// Config holds rotator configuration.
type Config struct {
	Pool       []Credential
	Privileged Credential
	Store      statestore.Store
	TTL        time.Duration
	Now        func() time.Time // test hook, defaults to time.Now
	Logger     zerolog.Logger
}

// New creates a Rotator.
func New(cfg Config) (*Rotator, error) {
	if len(cfg.Pool) == 0 {
		return nil, errors.New("credential pool cannot be empty")
	}
	if cfg.Store == nil {
		return nil, errors.New("backing store is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultLeaseTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	privileged := cfg.Privileged
	privileged.Privileged = true
	if privileged.Key == "" {
		// Without a dedicated privileged key the last pool entry stands in.
		privileged = cfg.Pool[len(cfg.Pool)-1]
		privileged.Privileged = true
	}

	return &Rotator{
		pool:       cfg.Pool,
		privileged: privileged,
		store:      cfg.Store,
		ttl:        cfg.TTL,
		now:        cfg.Now,
		logger:     cfg.Logger,
		rand:       rand.New(rand.NewSource(cfg.Now().UnixNano())),
	}, nil
}

// Privileged returns the escalation credential.
func (r *Rotator) Privileged() Credential {
	return r.privileged
}

// Acquire returns the credential leased to identity, minting a fresh lease
// when none exists or the existing one expired. An empty identity gets the
// first pool credential without persisting anything.
func (r *Rotator) Acquire(ctx context.Context, identity string) (Credential, error) {
	if identity == "" {
		return r.pool[0], nil
	}

	table := r.readTable(ctx)
	now := r.now()

	if raw, ok := table[identity]; ok {
		var lease Lease
		if err := json.Unmarshal(raw, &lease); err == nil && !lease.Expired(now, r.ttl) {
			return r.credentialForKey(lease.Key), nil
		}
	}

	cred := r.pickRandom()
	lease := Lease{Identity: identity, Key: cred.Key, AssignedAt: now}

	r.pruneExpired(table, now)
	if err := r.writeLease(ctx, table, lease); err != nil {
		return Credential{}, err
	}

	r.logger.Debug().Str("identity", identity).Str("credential", cred.ID).Msg("Credential leased")
	return cred, nil
}

// Escalate unconditionally rebinds identity to the privileged credential
// with a fresh timestamp. Called after a quota or leaked-key signal.
func (r *Rotator) Escalate(ctx context.Context, identity string) error {
	if identity == "" {
		return nil
	}

	table := r.readTable(ctx)
	lease := Lease{Identity: identity, Key: r.privileged.Key, AssignedAt: r.now()}

	if err := r.writeLease(ctx, table, lease); err != nil {
		return err
	}

	r.logger.Info().Str("identity", identity).Msg("Identity escalated to privileged credential")
	return nil
}

// Prune drops all expired leases from the backing table. The scheduler calls
// this periodically; Acquire also prunes opportunistically.
func (r *Rotator) Prune(ctx context.Context) error {
	table := r.readTable(ctx)
	before := len(table)
	r.pruneExpired(table, r.now())
	if len(table) == before {
		return nil
	}

	if err := r.store.Write(ctx, leaseTable, table); err != nil {
		return err
	}
	r.logger.Debug().Int("pruned", before-len(table)).Msg("Expired leases pruned")
	return nil
}

// readTable loads the lease table, degrading to an empty table on any
// storage failure. Losing leases only costs a re-roll of the random pick.
func (r *Rotator) readTable(ctx context.Context) statestore.Table {
	table, err := r.store.Read(ctx, leaseTable)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Lease table unreadable, starting empty")
		return statestore.Table{}
	}
	return table
}

func (r *Rotator) writeLease(ctx context.Context, table statestore.Table, lease Lease) error {
	raw, err := json.Marshal(lease)
	if err != nil {
		return err
	}
	table[lease.Identity] = raw
	return r.store.Write(ctx, leaseTable, table)
}

func (r *Rotator) pruneExpired(table statestore.Table, now time.Time) {
	for identity, raw := range table {
		var lease Lease
		if err := json.Unmarshal(raw, &lease); err != nil || lease.Expired(now, r.ttl) {
			delete(table, identity)
		}
	}
}

func (r *Rotator) pickRandom() Credential {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pool[r.rand.Intn(len(r.pool))]
}

// credentialForKey maps a stored key back to its pool entry. Keys removed
// from the pool since the lease was written still work as bare credentials.
func (r *Rotator) credentialForKey(key string) Credential {
	if key == r.privileged.Key {
		return r.privileged
	}
	for _, c := range r.pool {
		if c.Key == key {
			return c
		}
	}
	return Credential{ID: "leased", Key: key}
}
