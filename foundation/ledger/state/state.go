// Package state is the core API for the ledger and implements all the
// business rules and processing.
package state

import (
	"context"
	"sync"

	"github.com/ecoledger/ecoledger/foundation/ledger/database"
	"github.com/ecoledger/ecoledger/foundation/ledger/genesis"
)

// EventHandler defines a function that is called when events
// occur in the processing of committing records.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for background chain maintenance.
type Worker interface {
	Shutdown()
	SignalSweep()
}

// =============================================================================

// Config represents the configuration required to start
// the ledger state.
type Config struct {
	Genesis   genesis.Genesis
	Storage   database.Storage
	EvHandler EventHandler
}

// State manages the record chain.
type State struct {
	mu sync.Mutex

	genesis   genesis.Genesis
	db        *database.Database
	tally     *tally
	evHandler EventHandler

	Worker Worker
}

// New constructs a new ledger state for data management.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	// Access the database layer and hydrate the chain tip.
	db, err := database.New(cfg.Storage, ev)
	if err != nil {
		return nil, err
	}

	// Rebuild the per owner running totals from the stored chain. Records are
	// not validated here, a damaged chain still loads and the verify API is
	// the place that reports the damage.
	tally := newTally()
	iter := db.ForEach(context.Background())
	for record, err := iter.Next(); !iter.Done(); record, err = iter.Next() {
		if err != nil {
			iter.Close()
			return nil, err
		}
		tally.applyRecord(record)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}

	state := State{
		genesis:   cfg.Genesis,
		db:        db,
		tally:     tally,
		evHandler: ev,
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the service.

	return &state, nil
}

// Shutdown cleanly brings the ledger down.
func (s *State) Shutdown() error {

	// Make sure the database is properly closed.
	defer func() {
		s.db.Close()
	}()

	// Stop all background chain maintenance. Tooling runs the state without
	// a worker, so the worker may not be set.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	return nil
}

// =============================================================================

// Genesis returns a copy of the genesis information.
func (s *State) Genesis() genesis.Genesis {
	return s.genesis
}

// LatestRecord returns a copy of the current chain tip.
func (s *State) LatestRecord() database.Record {
	return s.db.LatestRecord()
}

// TipDigest returns the digest the next committed record will link to.
func (s *State) TipDigest() string {
	return s.db.TipDigest()
}

// QueryByID retrieves a single record by its commit sequence number.
func (s *State) QueryByID(ctx context.Context, id int64) (database.Record, error) {
	return s.db.QueryByID(ctx, id)
}

// Query retrieves a page of records, newest first. An empty owner selects
// records across all owners.
func (s *State) Query(ctx context.Context, owner string, pageNumber int, rowsPerPage int) ([]database.Record, error) {
	return s.db.Query(ctx, owner, pageNumber, rowsPerPage)
}

// Count returns the number of committed records, optionally for one owner.
func (s *State) Count(ctx context.Context, owner string) (int, error) {
	return s.db.Count(ctx, owner)
}
