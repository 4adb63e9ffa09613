package state

import (
	"sync"

	"github.com/ecoledger/ecoledger/foundation/ledger/database"
)

// Tally represents the running emission totals for one owner. Totals are a
// convenience view over the chain, the chain itself stays the source of
// truth and a tally is rebuilt from it on startup.
type Tally struct {
	Owner         string
	Records       int
	TotalEmission float64
	ByKind        map[string]float64
}

// tally manages the per owner totals for every owner with records on
// the chain.
type tally struct {
	mu   sync.RWMutex
	info map[string]Tally
}

func newTally() *tally {
	return &tally{
		info: make(map[string]Tally),
	}
}

// applyRecord folds one committed record into its owner's totals.
func (t *tally) applyRecord(record database.Record) {
	t.mu.Lock()
	defer t.mu.Unlock()

	info, exists := t.info[record.Owner]
	if !exists {
		info = Tally{
			Owner:  record.Owner,
			ByKind: make(map[string]float64),
		}
	}

	info.Records++
	info.TotalEmission += record.Emission
	info.ByKind[record.ActivityKind] += record.Emission

	t.info[record.Owner] = info
}

// copyOwner makes a copy of the current totals for the specified owner.
func (t *tally) copyOwner(owner string) Tally {
	t.mu.RLock()
	defer t.mu.RUnlock()

	info, exists := t.info[owner]
	if !exists {
		return Tally{Owner: owner, ByKind: make(map[string]float64)}
	}

	cp := Tally{
		Owner:         info.Owner,
		Records:       info.Records,
		TotalEmission: info.TotalEmission,
		ByKind:        make(map[string]float64, len(info.ByKind)),
	}
	for kind, emission := range info.ByKind {
		cp.ByKind[kind] = emission
	}

	return cp
}

// =============================================================================

// OwnerTally returns a copy of the running totals for the specified owner.
// An owner with no records gets an empty tally, not an error.
func (s *State) OwnerTally(owner string) Tally {
	return s.tally.copyOwner(owner)
}
