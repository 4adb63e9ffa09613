package state

import (
	"context"
	"errors"

	"github.com/ecoledger/ecoledger/foundation/ledger/database"
	"github.com/ecoledger/ecoledger/foundation/ledger/digest"
)

// Set of scopes a verification report can carry. An owner scoped report
// certifies strictly less than a global one and the two must never be
// mistaken for each other.
const (
	ScopeGlobal = "global"
	ScopeOwner  = "owner"
)

// ErrInvalidOwner is returned when a scoped verification or query names no
// owner at all.
var ErrInvalidOwner = errors.New("owner is required")

// VerifyReport represents the outcome of replaying a stored chain. When the
// chain is damaged the report names the first broken record, everything
// after that point is untrustworthy anyway.
type VerifyReport struct {
	Valid           bool
	Scope           string
	Owner           string
	TotalRecords    int
	FailingRecordID int64
	Message         string
}

// VerifyAll replays the whole chain in commit order. Every record must link
// to the digest of the record before it and must reproduce its own stored
// digest from its stored fields. The walk stops at the first failure.
//
// The walk is a point in time scan and needs no locking. A record committed
// while the scan runs may or may not be seen, either way the scan can never
// produce a false valid.
func (s *State) VerifyAll(ctx context.Context) (VerifyReport, error) {
	iter := s.db.ForEach(ctx)
	defer iter.Close()

	expected := digest.ZeroHash
	var total int

	for record, err := iter.Next(); !iter.Done(); record, err = iter.Next() {
		if err != nil {
			return VerifyReport{}, err
		}

		total++

		if err := record.Validate(expected); err != nil {
			s.evHandler("state: verifyall: chain damaged: %s", err)
			return failReport(ScopeGlobal, "", s.population(ctx, "", total), record.ID, err), nil
		}

		expected = record.CurrentDigest
	}

	return VerifyReport{
		Valid:        true,
		Scope:        ScopeGlobal,
		TotalRecords: total,
		Message:      "chain intact",
	}, nil
}

// VerifyOwner replays only the specified owner's records, in commit order,
// checking that each one still reproduces its own stored digest. Owners are
// interleaved on the one global chain, so linkage between an owner's records
// cannot be checked here. This certifies that none of the owner's records
// were individually altered and nothing more, which is why the report is
// tagged with the owner scope.
func (s *State) VerifyOwner(ctx context.Context, owner string) (VerifyReport, error) {
	if owner == "" {
		return VerifyReport{}, ErrInvalidOwner
	}

	iter := s.db.ForOwner(ctx, owner)
	defer iter.Close()

	var total int

	for record, err := iter.Next(); !iter.Done(); record, err = iter.Next() {
		if err != nil {
			return VerifyReport{}, err
		}

		total++

		if err := record.ValidateDigest(); err != nil {
			s.evHandler("state: verifyowner: owner[%s]: record damaged: %s", owner, err)
			return failReport(ScopeOwner, owner, s.population(ctx, owner, total), record.ID, err), nil
		}
	}

	return VerifyReport{
		Valid:        true,
		Scope:        ScopeOwner,
		Owner:        owner,
		TotalRecords: total,
		Message:      "owner records intact",
	}, nil
}

// population returns the record count of the scope so a failed report still
// states the size of the ledger the damage taints. The scanned count serves
// as a floor when the store can't answer.
func (s *State) population(ctx context.Context, owner string, scanned int) int {
	count, err := s.db.Count(ctx, owner)
	if err != nil {
		return scanned
	}

	return count
}

// failReport builds the report for the first broken record found in a walk.
func failReport(scope string, owner string, total int, recordID int64, err error) VerifyReport {
	message := "digest mismatch"
	if errors.Is(err, database.ErrChainDiscontinuity) {
		message = "chain discontinuity"
	}

	return VerifyReport{
		Valid:           false,
		Scope:           scope,
		Owner:           owner,
		TotalRecords:    total,
		FailingRecordID: recordID,
		Message:         message,
	}
}
