// Package database handles all lower level support for maintaining the
// record chain. This includes the storage contract and a safe API to the
// chain tip, the one piece of chain state every append depends on.
package database

import (
	"context"
	"errors"
	"sync"

	"github.com/ecoledger/ecoledger/foundation/ledger/digest"
)

// Set of errors for store access. Storage implementations translate their
// driver failures into these so callers never see driver specifics.
var (
	ErrNoRecord         = errors.New("no record found")
	ErrTipConflict      = errors.New("chain tip already extended")
	ErrStoreUnavailable = errors.New("record store unavailable")
)

// Iterator interface represents the ability to iterate over records held in
// storage in commit order.
type Iterator interface {
	Next() (Record, error)
	Done() bool
	Close() error
}

// Storage interface represents the behavior required to be implemented by
// any package providing durable support for the record chain.
type Storage interface {
	Write(ctx context.Context, record Record) (Record, error)
	ForEach(ctx context.Context) Iterator
	ForOwner(ctx context.Context, owner string) Iterator
	LatestRecord(ctx context.Context) (Record, error)
	QueryByID(ctx context.Context, id int64) (Record, error)
	Query(ctx context.Context, owner string, pageNumber int, rowsPerPage int) ([]Record, error)
	Count(ctx context.Context, owner string) (int, error)
	Close() error
}

// Database manages data related to the record chain. It caches the latest
// committed record so appends don't pay a storage read for the tip.
type Database struct {
	mu      sync.RWMutex
	latest  Record
	storage Storage
}

// New constructs a new Database and hydrates the chain tip from storage.
// Records are not validated here. A corrupted store must still open so the
// verification API can report what is wrong with it.
func New(storage Storage, evHandler func(v string, args ...any)) (*Database, error) {
	db := Database{
		storage: storage,
	}

	latest, err := storage.LatestRecord(context.Background())
	switch {
	case err == nil:
		db.latest = latest
		evHandler("database: tip hydrated: record[%d] digest[%s]", latest.ID, latest.CurrentDigest)

	case errors.Is(err, ErrNoRecord):
		evHandler("database: tip hydrated: chain is empty")

	default:
		return nil, err
	}

	return &db, nil
}

// Close closes the underlying storage.
func (db *Database) Close() error {
	return db.storage.Close()
}

// TipDigest returns the digest new records must link to. For an empty chain
// this is the zero hash sentinel.
func (db *Database) TipDigest() string {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.latest.ID == 0 {
		return digest.ZeroHash
	}

	return db.latest.CurrentDigest
}

// LatestRecord returns a copy of the current chain tip.
func (db *Database) LatestRecord() Record {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.latest
}

// Write commits the specified record to storage and on success makes it the
// cached chain tip. A conflicting concurrent append surfaces as
// ErrTipConflict and leaves the cache untouched.
func (db *Database) Write(ctx context.Context, record Record) (Record, error) {
	committed, err := db.storage.Write(ctx, record)
	if err != nil {
		return Record{}, err
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	db.latest = committed

	return committed, nil
}

// Reload re-reads the chain tip from storage. Used after a tip conflict to
// pick up the record that won the race.
func (db *Database) Reload(ctx context.Context) error {
	latest, err := db.storage.LatestRecord(ctx)
	if err != nil {
		if errors.Is(err, ErrNoRecord) {
			latest = Record{}
		} else {
			return err
		}
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	db.latest = latest

	return nil
}

// ForEach returns an iterator to walk the whole chain in commit order.
func (db *Database) ForEach(ctx context.Context) Iterator {
	return db.storage.ForEach(ctx)
}

// ForOwner returns an iterator over the records belonging to the specified
// owner, in commit order.
func (db *Database) ForOwner(ctx context.Context, owner string) Iterator {
	return db.storage.ForOwner(ctx, owner)
}

// QueryByID retrieves a single record by its commit sequence number.
func (db *Database) QueryByID(ctx context.Context, id int64) (Record, error) {
	return db.storage.QueryByID(ctx, id)
}

// Query retrieves a page of records, newest first. An empty owner selects
// records across all owners.
func (db *Database) Query(ctx context.Context, owner string, pageNumber int, rowsPerPage int) ([]Record, error) {
	return db.storage.Query(ctx, owner, pageNumber, rowsPerPage)
}

// Count returns the number of committed records, optionally for one owner.
func (db *Database) Count(ctx context.Context, owner string) (int, error) {
	return db.storage.Count(ctx, owner)
}
