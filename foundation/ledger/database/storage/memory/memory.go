// Package memory implements the ability to read and write records to memory
// using a slice. Used by tests and by tooling that needs a chain without a
// database file.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/ecoledger/ecoledger/foundation/ledger/database"
)

// Memory represents the storage implementation for reading and storing
// records in memory using a slice. This implements the database.Storage
// interface.
type Memory struct {
	mu      sync.RWMutex
	records []database.Record
	parents map[string]struct{}
}

// New constructs a Memory value for use.
func New() (*Memory, error) {
	return &Memory{
		parents: make(map[string]struct{}),
	}, nil
}

// Close in this implementation has nothing to do since everything
// is in memory.
func (m *Memory) Close() error {
	return nil
}

// Write takes the specified record and stores it in memory. The record is
// assigned the next commit sequence number. Two records can never claim the
// same predecessor, which keeps the chain a single line even here.
func (m *Memory) Write(ctx context.Context, record database.Record) (database.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.parents[record.PreviousDigest]; exists {
		return database.Record{}, fmt.Errorf("%w: parent %s", database.ErrTipConflict, record.PreviousDigest)
	}

	record.ID = int64(len(m.records) + 1)
	m.records = append(m.records, record)
	m.parents[record.PreviousDigest] = struct{}{}

	return record, nil
}

// LatestRecord returns the last committed record.
func (m *Memory) LatestRecord(ctx context.Context) (database.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l := len(m.records)
	if l == 0 {
		return database.Record{}, database.ErrNoRecord
	}

	return m.records[l-1], nil
}

// QueryByID searches the chain to locate and return the record with the
// specified commit sequence number.
func (m *Memory) QueryByID(ctx context.Context, id int64) (database.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if id < 1 || id > int64(len(m.records)) {
		return database.Record{}, database.ErrNoRecord
	}

	return m.records[id-1], nil
}

// Query returns a page of records, newest first. An empty owner selects
// records across all owners.
func (m *Memory) Query(ctx context.Context, owner string, pageNumber int, rowsPerPage int) ([]database.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []database.Record
	for i := len(m.records) - 1; i >= 0; i-- {
		if owner == "" || m.records[i].Owner == owner {
			matched = append(matched, m.records[i])
		}
	}

	start := (pageNumber - 1) * rowsPerPage
	if start >= len(matched) {
		return nil, nil
	}

	end := start + rowsPerPage
	if end > len(matched) {
		end = len(matched)
	}

	return matched[start:end], nil
}

// Count returns the number of committed records, optionally for one owner.
func (m *Memory) Count(ctx context.Context, owner string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if owner == "" {
		return len(m.records), nil
	}

	var count int
	for _, record := range m.records {
		if record.Owner == owner {
			count++
		}
	}

	return count, nil
}

// ForEach returns an iterator to walk through all the records starting with
// the first commit.
func (m *Memory) ForEach(ctx context.Context) database.Iterator {
	return &memoryIterator{ctx: ctx, storage: m}
}

// ForOwner returns an iterator over the records belonging to the specified
// owner, in commit order.
func (m *Memory) ForOwner(ctx context.Context, owner string) database.Iterator {
	return &memoryIterator{ctx: ctx, storage: m, owner: owner}
}

// =============================================================================

// memoryIterator represents the iteration implementation for walking
// through and reading records in memory. This implements the database
// Iterator interface.
type memoryIterator struct {
	ctx     context.Context // Carries the caller's cancellation.
	storage *Memory         // Access to the storage API.
	owner   string          // When set, only this owner's records are returned.
	current int64           // Current record id being iterated over.
	eoc     bool            // Represents the iterator is at the end of the chain.
}

// Next retrieves the next record from memory.
func (mi *memoryIterator) Next() (database.Record, error) {
	if mi.eoc {
		return database.Record{}, database.ErrNoRecord
	}

	for {
		mi.current++

		record, err := mi.storage.QueryByID(mi.ctx, mi.current)
		if err != nil {
			mi.eoc = true
			return database.Record{}, nil
		}

		if mi.owner == "" || record.Owner == mi.owner {
			return record, nil
		}
	}
}

// Done returns the end of chain value.
func (mi *memoryIterator) Done() bool {
	return mi.eoc
}

// Close in this implementation has nothing to do since everything
// is in memory.
func (mi *memoryIterator) Close() error {
	return nil
}
