package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ecoledger/ecoledger/foundation/ledger/database"
)

// maxAppendAttempts is the number of times an append re-reads the tip and
// tries again after losing a commit race before giving up.
const maxAppendAttempts = 3

// ErrAppendConflict is returned when an append could not extend the chain
// within the bounded number of attempts. The chain itself is still
// consistent and the caller is free to retry.
var ErrAppendConflict = errors.New("chain tip kept moving, append abandoned")

// Append validates the specified activity, links it to the current chain tip
// and commits it. Appends are serialized so two callers can never read the
// same tip and both commit. The storage layer enforces the same rule with a
// uniqueness constraint on the parent digest, so even a second process
// writing to the same store cannot fork the chain. Losing that race here
// reloads the tip and tries again a bounded number of times.
func (s *State) Append(ctx context.Context, a database.Activity) (database.Record, error) {
	if err := a.Validate(); err != nil {
		return database.Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 1; attempt <= maxAppendAttempts; attempt++ {
		tip := s.db.TipDigest()
		record := database.NewRecord(tip, a, time.Now())

		committed, err := s.db.Write(ctx, record)
		switch {
		case err == nil:
			s.tally.applyRecord(committed)
			s.evHandler("state: append: committed record[%d] owner[%s] kind[%s] digest[%s]", committed.ID, committed.Owner, committed.ActivityKind, committed.CurrentDigest)
			return committed, nil

		case errors.Is(err, database.ErrTipConflict):
			s.evHandler("state: append: attempt[%d]: tip moved under us, reloading", attempt)
			if err := s.db.Reload(ctx); err != nil {
				return database.Record{}, err
			}

		default:
			return database.Record{}, err
		}
	}

	return database.Record{}, fmt.Errorf("%w: after %d attempts", ErrAppendConflict, maxAppendAttempts)
}
