package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	ledgerdb "github.com/ecoledger/ecoledger/foundation/ledger/database"
)

const recordColumns = `
	id, owner, activity_kind, emission_value, emission_unit, quantity,
	quantity_unit, factor_id, description, recorded_at, previous_digest,
	current_digest`

// LedgerStore provides durable chain storage over SQLite. This implements
// the ledgerdb.Storage interface. The UNIQUE constraint on previous_digest
// is what makes a lost append race visible, even to a second process
// writing to the same file.
type LedgerStore struct {
	db *sql.DB
}

// NewLedgerStore constructs a LedgerStore for use.
func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{
		db: db,
	}
}

// Close implements the storage interface. The database handle is shared
// with the user and audit stores and is owned by whoever opened it, so
// there is nothing to release here.
func (ls *LedgerStore) Close() error {
	return nil
}

// Write commits the specified record in a single insert, so the record and
// both its digests are stored together or not at all.
func (ls *LedgerStore) Write(ctx context.Context, record ledgerdb.Record) (ledgerdb.Record, error) {
	const q = `
	INSERT INTO activities
		(owner, activity_kind, emission_value, emission_unit, quantity,
		quantity_unit, factor_id, description, recorded_at, previous_digest,
		current_digest)
	VALUES
		(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := ls.db.ExecContext(ctx, q,
		record.Owner, record.ActivityKind, record.Emission, record.EmissionUnit,
		record.Quantity, record.QuantityUnit, record.FactorID, record.Description,
		record.RecordedAt, record.PreviousDigest, record.CurrentDigest)
	if err != nil {
		if isTipConflict(err) {
			return ledgerdb.Record{}, fmt.Errorf("%w: parent %s", ledgerdb.ErrTipConflict, record.PreviousDigest)
		}
		return ledgerdb.Record{}, storeErr(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return ledgerdb.Record{}, storeErr(err)
	}
	record.ID = id

	return record, nil
}

// LatestRecord returns the last committed record.
func (ls *LedgerStore) LatestRecord(ctx context.Context) (ledgerdb.Record, error) {
	q := `SELECT` + recordColumns + `
	FROM activities
	ORDER BY id DESC
	LIMIT 1`

	record, err := scanRecord(ls.db.QueryRowContext(ctx, q))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledgerdb.Record{}, ledgerdb.ErrNoRecord
		}
		return ledgerdb.Record{}, storeErr(err)
	}

	return record, nil
}

// QueryByID retrieves the record with the specified commit sequence number.
func (ls *LedgerStore) QueryByID(ctx context.Context, id int64) (ledgerdb.Record, error) {
	q := `SELECT` + recordColumns + `
	FROM activities
	WHERE id = ?`

	record, err := scanRecord(ls.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledgerdb.Record{}, ledgerdb.ErrNoRecord
		}
		return ledgerdb.Record{}, storeErr(err)
	}

	return record, nil
}

// Query returns a page of records, newest first. An empty owner selects
// records across all owners.
func (ls *LedgerStore) Query(ctx context.Context, owner string, pageNumber int, rowsPerPage int) ([]ledgerdb.Record, error) {
	q := `SELECT` + recordColumns + `
	FROM activities
	WHERE (?1 = '' OR owner = ?1)
	ORDER BY id DESC
	LIMIT ?2 OFFSET ?3`

	rows, err := ls.db.QueryContext(ctx, q, owner, rowsPerPage, (pageNumber-1)*rowsPerPage)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var records []ledgerdb.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, storeErr(err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err)
	}

	return records, nil
}

// Count returns the number of committed records, optionally for one owner.
func (ls *LedgerStore) Count(ctx context.Context, owner string) (int, error) {
	const q = `
	SELECT COUNT(*)
	FROM activities
	WHERE (?1 = '' OR owner = ?1)`

	var count int
	if err := ls.db.QueryRowContext(ctx, q, owner).Scan(&count); err != nil {
		return 0, storeErr(err)
	}

	return count, nil
}

// ForEach returns an iterator to walk the whole chain in commit order.
func (ls *LedgerStore) ForEach(ctx context.Context) ledgerdb.Iterator {
	return ls.scan(ctx, "")
}

// ForOwner returns an iterator over the records belonging to the specified
// owner, in commit order.
func (ls *LedgerStore) ForOwner(ctx context.Context, owner string) ledgerdb.Iterator {
	return ls.scan(ctx, owner)
}

func (ls *LedgerStore) scan(ctx context.Context, owner string) ledgerdb.Iterator {
	q := `SELECT` + recordColumns + `
	FROM activities
	WHERE (?1 = '' OR owner = ?1)
	ORDER BY id ASC`

	rows, err := ls.db.QueryContext(ctx, q, owner)
	if err != nil {
		return &recordIterator{err: storeErr(err)}
	}

	return &recordIterator{rows: rows}
}

// =============================================================================

// recordIterator represents the iteration implementation for walking through
// and reading records from SQLite. This implements the ledgerdb.Iterator
// interface.
type recordIterator struct {
	rows     *sql.Rows
	err      error
	reported bool
	eoc      bool
}

// Next retrieves the next record from the scan. A store failure is returned
// while Done still reports false, so the caller's loop body sees the error
// before the walk ends.
func (ri *recordIterator) Next() (ledgerdb.Record, error) {
	if ri.eoc {
		return ledgerdb.Record{}, ledgerdb.ErrNoRecord
	}

	if ri.err != nil {
		if ri.reported {
			ri.eoc = true
		}
		ri.reported = true
		return ledgerdb.Record{}, ri.err
	}

	if !ri.rows.Next() {
		if err := ri.rows.Err(); err != nil {
			ri.err = storeErr(err)
			ri.reported = true
			return ledgerdb.Record{}, ri.err
		}
		ri.eoc = true
		return ledgerdb.Record{}, nil
	}

	record, err := scanRecord(ri.rows)
	if err != nil {
		ri.err = storeErr(err)
		ri.reported = true
		return ledgerdb.Record{}, ri.err
	}

	return record, nil
}

// Done returns the end of chain value.
func (ri *recordIterator) Done() bool {
	return ri.eoc
}

// Close releases the underlying rows. Safe to call at any point of the walk.
func (ri *recordIterator) Close() error {
	if ri.rows == nil {
		return nil
	}
	return ri.rows.Close()
}

// =============================================================================

// rowScanner is implemented by both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (ledgerdb.Record, error) {
	var r ledgerdb.Record
	err := row.Scan(&r.ID, &r.Owner, &r.ActivityKind, &r.Emission, &r.EmissionUnit,
		&r.Quantity, &r.QuantityUnit, &r.FactorID, &r.Description, &r.RecordedAt,
		&r.PreviousDigest, &r.CurrentDigest)
	if err != nil {
		return ledgerdb.Record{}, err
	}

	return r, nil
}

// isTipConflict reports whether the insert lost an append race on the
// previous_digest uniqueness rule.
func isTipConflict(err error) bool {
	if !isConstraintError(err) {
		return false
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "activities.previous_digest")
}

// storeErr translates driver failures into the store unavailable condition
// the chain layer understands. Context cancellation passes through untouched.
func storeErr(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", ledgerdb.ErrStoreUnavailable, err)
}
