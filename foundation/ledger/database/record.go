package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/ecoledger/ecoledger/foundation/ledger/digest"
)

// Set of errors returned when a record fails validation against its place
// in the chain. Callers compare with errors.Is.
var (
	ErrChainDiscontinuity = errors.New("record does not link to its predecessor")
	ErrDigestMismatch     = errors.New("record digest does not match its fields")
	ErrInvalidActivity    = errors.New("activity is not committable")
)

// Activity represents the carbon activity a caller wants committed to the
// ledger. Owner, Kind and Emission participate in the digest. The remaining
// fields ride along for reporting and are not covered by the chain.
type Activity struct {
	Owner        string
	Kind         string
	Emission     float64
	EmissionUnit string
	Quantity     float64
	QuantityUnit string
	FactorID     string
	Description  string
}

// Validate checks the activity can ever be committed. A failure here is a
// caller mistake, not a store or chain problem.
func (a Activity) Validate() error {
	if a.Owner == "" {
		return fmt.Errorf("%w: owner is required", ErrInvalidActivity)
	}

	if a.Kind == "" {
		return fmt.Errorf("%w: activity kind is required", ErrInvalidActivity)
	}

	if !digest.IsCanonical(a.Emission) {
		return fmt.Errorf("%w: emission %v has no canonical rendering", ErrInvalidActivity, a.Emission)
	}

	return nil
}

// Record represents an activity as committed to the ledger. Once written a
// record is never updated or deleted. The digest fields bind the record to
// its predecessor and to its own contents.
type Record struct {
	ID             int64
	Owner          string
	ActivityKind   string
	Emission       float64
	EmissionUnit   string
	Quantity       float64
	QuantityUnit   string
	FactorID       string
	Description    string
	RecordedAt     string
	PreviousDigest string
	CurrentDigest  string
}

// NewRecord constructs a Record from an activity and the digest of the
// current chain tip. The commit time is captured here so the digest and the
// stored record can never disagree about it.
func NewRecord(previousDigest string, a Activity, now time.Time) Record {
	recordedAt := digest.Timestamp(now)

	return Record{
		Owner:          a.Owner,
		ActivityKind:   a.Kind,
		Emission:       a.Emission,
		EmissionUnit:   a.EmissionUnit,
		Quantity:       a.Quantity,
		QuantityUnit:   a.QuantityUnit,
		FactorID:       a.FactorID,
		Description:    a.Description,
		RecordedAt:     recordedAt,
		PreviousDigest: previousDigest,
		CurrentDigest:  digest.Hash(previousDigest, a.Owner, a.Kind, a.Emission, recordedAt),
	}
}

// Validate checks the record against the digest of the record before it.
// Linkage is checked before content so a verifier reports a break in the
// chain rather than a mismatch caused by comparing against the wrong parent.
func (r Record) Validate(previousDigest string) error {
	if r.PreviousDigest != previousDigest {
		return fmt.Errorf("%w: record %d expects parent %s, chain has %s", ErrChainDiscontinuity, r.ID, r.PreviousDigest, previousDigest)
	}

	if err := r.ValidateDigest(); err != nil {
		return err
	}

	return nil
}

// ValidateDigest recomputes the record's digest from its stored fields and
// compares it with the stored value.
func (r Record) ValidateDigest() error {
	want := digest.Hash(r.PreviousDigest, r.Owner, r.ActivityKind, r.Emission, r.RecordedAt)
	if r.CurrentDigest != want {
		return fmt.Errorf("%w: record %d stores %s, fields produce %s", ErrDigestMismatch, r.ID, r.CurrentDigest, want)
	}

	return nil
}
