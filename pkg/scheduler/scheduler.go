// Package scheduler runs the gateway's background maintenance on fixed
// cadences: pruning expired credential leases, evicting idle sessions, and
// resyncing the retrieval index after document changes.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/keyring"
	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/retrieval"
	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/session"
)

// Intervals configures the maintenance cadences.
type Intervals struct {
	LeasePrune   time.Duration
	SessionSweep time.Duration
	IndexResync  time.Duration
}

// DefaultIntervals returns the production cadences.
func DefaultIntervals() Intervals {
	return Intervals{
		LeasePrune:   15 * time.Minute,
		SessionSweep: 5 * time.Minute,
		IndexResync:  time.Minute,
	}
}

// Config wires a Scheduler. Nil components skip their jobs.
type Config struct {
	Rotator   *keyring.Rotator
	Cleaner   *session.Cleaner
	Index     *retrieval.Index
	Intervals Intervals
}

// Scheduler owns the cron loop.
type Scheduler struct {
	cron *cron.Cron
	cfg  Config
}

// New creates a Scheduler with its jobs registered but not running.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Intervals == (Intervals{}) {
		cfg.Intervals = DefaultIntervals()
	}

	s := &Scheduler{
		cron: cron.New(),
		cfg:  cfg,
	}

	if cfg.Rotator != nil {
		if err := s.add(cfg.Intervals.LeasePrune, s.pruneLeases); err != nil {
			return nil, err
		}
	}
	if cfg.Cleaner != nil {
		if err := s.add(cfg.Intervals.SessionSweep, s.sweepSessions); err != nil {
			return nil, err
		}
	}
	if cfg.Index != nil {
		if err := s.add(cfg.Intervals.IndexResync, s.resyncIndex); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *Scheduler) add(every time.Duration, job func()) error {
	if every <= 0 {
		return fmt.Errorf("maintenance interval must be positive")
	}
	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", every), job)
	return err
}

// Start begins running jobs on their cadences.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Msg("Maintenance scheduler started")
}

// Stop halts scheduling and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("Maintenance scheduler stopped")
}

func (s *Scheduler) pruneLeases() {
	if err := s.cfg.Rotator.Prune(context.Background()); err != nil {
		log.Error().Err(err).Msg("Lease prune failed")
	}
}

func (s *Scheduler) sweepSessions() {
	s.cfg.Cleaner.Sweep()
}

// resyncIndex rebuilds the retrieval index only when the watcher flagged a
// change since the last run.
func (s *Scheduler) resyncIndex() {
	if !s.cfg.Index.ConsumeDirty() {
		return
	}

	if _, err := s.cfg.Index.Rebuild(context.Background()); err != nil {
		log.Error().Err(err).Msg("Index resync failed")
		s.cfg.Index.MarkDirty()
	}
}
