package state_test

import (
	"context"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ecoledger/ecoledger/foundation/ledger/database"
	"github.com/ecoledger/ecoledger/foundation/ledger/database/storage/memory"
	"github.com/ecoledger/ecoledger/foundation/ledger/digest"
	"github.com/ecoledger/ecoledger/foundation/ledger/genesis"
	"github.com/ecoledger/ecoledger/foundation/ledger/state"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func ifErrFailNow(t *testing.T, err error) {
	if err != nil {
		t.Error(err)
		t.FailNow()
	}
}

// newState constructs a state over a fresh in memory store.
func newState(t *testing.T) *state.State {
	storage, err := memory.New()
	ifErrFailNow(t, err)

	st, err := state.New(state.Config{
		Genesis: genesis.Genesis{Name: "test ledger", EmissionUnit: "kg"},
		Storage: storage,
	})
	ifErrFailNow(t, err)

	return st
}

// reseed builds a state over a fresh store holding the specified records
// exactly as given. Used to stand up a chain someone has edited behind the
// appender's back.
func reseed(t *testing.T, records []database.Record) *state.State {
	storage, err := memory.New()
	ifErrFailNow(t, err)

	ctx := context.Background()
	for _, record := range records {
		_, err := storage.Write(ctx, record)
		ifErrFailNow(t, err)
	}

	st, err := state.New(state.Config{
		Genesis: genesis.Genesis{Name: "test ledger", EmissionUnit: "kg"},
		Storage: storage,
	})
	ifErrFailNow(t, err)

	return st
}

// appendActivities commits the specified activities one at a time.
func appendActivities(t *testing.T, st *state.State, activities ...database.Activity) []database.Record {
	ctx := context.Background()

	records := make([]database.Record, 0, len(activities))
	for _, a := range activities {
		record, err := st.Append(ctx, a)
		ifErrFailNow(t, err)
		records = append(records, record)
	}

	return records
}

// =============================================================================

func Test_AppendLinkage(t *testing.T) {
	st := newState(t)
	ctx := context.Background()

	t.Log("Given the need to validate sequential appends form one chain.")
	{
		t.Logf("\tTest 0:\tWhen appending three records for one owner.")
		{
			records := appendActivities(t, st,
				database.Activity{Owner: "u1", Kind: "car", Emission: 4.87, EmissionUnit: "kg"},
				database.Activity{Owner: "u1", Kind: "car", Emission: 1.20, EmissionUnit: "kg"},
				database.Activity{Owner: "u1", Kind: "car", Emission: 9.00, EmissionUnit: "kg"},
			)

			if records[0].PreviousDigest != digest.ZeroHash {
				t.Fatalf("\t%s\tTest 0:\tShould link the first record to the zero hash: got %s.", failed, records[0].PreviousDigest)
			}
			t.Logf("\t%s\tTest 0:\tShould link the first record to the zero hash.", success)

			for i := 1; i < len(records); i++ {
				if records[i].PreviousDigest != records[i-1].CurrentDigest {
					t.Fatalf("\t%s\tTest 0:\tShould link record %d to record %d.", failed, records[i].ID, records[i-1].ID)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould link every record to its predecessor.", success)

			report, err := st.VerifyAll(ctx)
			ifErrFailNow(t, err)

			if !report.Valid {
				t.Fatalf("\t%s\tTest 0:\tShould verify the chain: %s.", failed, report.Message)
			}
			t.Logf("\t%s\tTest 0:\tShould verify the chain.", success)

			if report.TotalRecords != 3 {
				t.Errorf("\t%s\tTest 0:\tShould report 3 records: got %d.", failed, report.TotalRecords)
			} else {
				t.Logf("\t%s\tTest 0:\tShould report 3 records.", success)
			}

			if report.Scope != state.ScopeGlobal {
				t.Errorf("\t%s\tTest 0:\tShould carry the global scope: got %q.", failed, report.Scope)
			} else {
				t.Logf("\t%s\tTest 0:\tShould carry the global scope.", success)
			}
		}
	}
}

func Test_TamperDetection(t *testing.T) {
	ctx := context.Background()

	// Build a clean three record chain to copy from.
	base := appendActivities(t, newState(t),
		database.Activity{Owner: "u1", Kind: "car", Emission: 4.87, EmissionUnit: "kg"},
		database.Activity{Owner: "u1", Kind: "car", Emission: 1.20, EmissionUnit: "kg"},
		database.Activity{Owner: "u1", Kind: "car", Emission: 9.00, EmissionUnit: "kg"},
	)

	type table struct {
		name        string
		tamper      func(records []database.Record)
		failingID   int64
		wantMessage string
	}

	tt := []table{
		{
			name: "emission rewritten",
			tamper: func(records []database.Record) {
				records[1].Emission = 1.21
			},
			failingID:   2,
			wantMessage: "digest mismatch",
		},
		{
			name: "previous digest rewritten",
			tamper: func(records []database.Record) {
				records[1].PreviousDigest = strings.Repeat("f", 64)
			},
			failingID:   2,
			wantMessage: "chain discontinuity",
		},
		{
			name: "emission rewritten with digest recomputed",
			tamper: func(records []database.Record) {
				records[1].Emission = 1.21
				records[1].CurrentDigest = digest.Hash(records[1].PreviousDigest, records[1].Owner, records[1].ActivityKind, 1.21, records[1].RecordedAt)
			},
			failingID:   3,
			wantMessage: "chain discontinuity",
		},
	}

	t.Log("Given the need to validate edits behind the appender's back are detected.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen the chain has its %s.", testID, tst.name)
			{
				records := make([]database.Record, len(base))
				copy(records, base)
				tst.tamper(records)

				report, err := reseed(t, records).VerifyAll(ctx)
				ifErrFailNow(t, err)

				if report.Valid {
					t.Errorf("\t%s\tTest %d:\tShould report the chain invalid.", failed, testID)
					continue
				}
				t.Logf("\t%s\tTest %d:\tShould report the chain invalid.", success, testID)

				if report.FailingRecordID != tst.failingID {
					t.Errorf("\t%s\tTest %d:\tShould fail at record %d: got %d.", failed, testID, tst.failingID, report.FailingRecordID)
				} else {
					t.Logf("\t%s\tTest %d:\tShould fail at record %d.", success, testID, tst.failingID)
				}

				if report.Message != tst.wantMessage {
					t.Errorf("\t%s\tTest %d:\tShould report %q: got %q.", failed, testID, tst.wantMessage, report.Message)
				} else {
					t.Logf("\t%s\tTest %d:\tShould report %q.", success, testID, tst.wantMessage)
				}
			}
		}
	}
}

func Test_ConcurrentAppends(t *testing.T) {
	st := newState(t)
	ctx := context.Background()

	const appends = 25

	t.Log("Given the need to validate concurrent appends never fork the chain.")
	{
		t.Logf("\tTest 0:\tWhen firing %d appends at once.", appends)
		{
			var wg sync.WaitGroup
			wg.Add(appends)

			errors := make(chan error, appends)
			for i := 0; i < appends; i++ {
				go func() {
					defer wg.Done()
					_, err := st.Append(ctx, database.Activity{Owner: "u1", Kind: "bus", Emission: 0.89, EmissionUnit: "kg"})
					if err != nil {
						errors <- err
					}
				}()
			}
			wg.Wait()
			close(errors)

			for err := range errors {
				t.Fatalf("\t%s\tTest 0:\tShould commit every append: %s.", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould commit every append.", success)

			count, err := st.Count(ctx, "")
			ifErrFailNow(t, err)
			if count != appends {
				t.Fatalf("\t%s\tTest 0:\tShould hold %d records: got %d.", failed, appends, count)
			}
			t.Logf("\t%s\tTest 0:\tShould hold %d records.", success, appends)

			records, err := st.Query(ctx, "", 1, appends)
			ifErrFailNow(t, err)

			parents := make(map[string]struct{})
			for _, record := range records {
				if _, exists := parents[record.PreviousDigest]; exists {
					t.Fatalf("\t%s\tTest 0:\tShould never reuse a parent digest: %s.", failed, record.PreviousDigest)
				}
				parents[record.PreviousDigest] = struct{}{}
			}
			t.Logf("\t%s\tTest 0:\tShould never reuse a parent digest.", success)

			report, err := st.VerifyAll(ctx)
			ifErrFailNow(t, err)
			if !report.Valid || report.TotalRecords != appends {
				t.Fatalf("\t%s\tTest 0:\tShould verify as one unbroken chain: valid[%v] records[%d].", failed, report.Valid, report.TotalRecords)
			}
			t.Logf("\t%s\tTest 0:\tShould verify as one unbroken chain.", success)
		}
	}
}

func Test_ScopedVerify(t *testing.T) {
	ctx := context.Background()

	// Interleave two owners on one chain.
	base := appendActivities(t, newState(t),
		database.Activity{Owner: "a", Kind: "car", Emission: 1.5, EmissionUnit: "kg"},
		database.Activity{Owner: "b", Kind: "bus", Emission: 0.9, EmissionUnit: "kg"},
		database.Activity{Owner: "a", Kind: "car", Emission: 2.5, EmissionUnit: "kg"},
		database.Activity{Owner: "b", Kind: "bus", Emission: 1.1, EmissionUnit: "kg"},
	)

	t.Log("Given the need to validate owner scoped verification.")
	{
		t.Logf("\tTest 0:\tWhen verifying one owner of an intact interleaved chain.")
		{
			report, err := reseed(t, base).VerifyOwner(ctx, "a")
			ifErrFailNow(t, err)

			if !report.Valid || report.TotalRecords != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould verify owner a's 2 records: valid[%v] records[%d].", failed, report.Valid, report.TotalRecords)
			}
			t.Logf("\t%s\tTest 0:\tShould verify owner a's 2 records.", success)

			if report.Scope != state.ScopeOwner {
				t.Errorf("\t%s\tTest 0:\tShould carry the owner scope: got %q.", failed, report.Scope)
			} else {
				t.Logf("\t%s\tTest 0:\tShould carry the owner scope.", success)
			}
		}

		t.Logf("\tTest 1:\tWhen another owner's record was rewritten.")
		{
			records := make([]database.Record, len(base))
			copy(records, base)

			// Rewrite b's first record and recompute its digest. The global
			// chain is now broken at the record after it, while every one of
			// a's records still reproduces its own digest.
			records[1].Emission = 5.0
			records[1].CurrentDigest = digest.Hash(records[1].PreviousDigest, records[1].Owner, records[1].ActivityKind, 5.0, records[1].RecordedAt)

			st := reseed(t, records)

			global, err := st.VerifyAll(ctx)
			ifErrFailNow(t, err)
			if global.Valid {
				t.Fatalf("\t%s\tTest 1:\tShould fail global verification.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould fail global verification.", success)

			scoped, err := st.VerifyOwner(ctx, "a")
			ifErrFailNow(t, err)
			if !scoped.Valid {
				t.Fatalf("\t%s\tTest 1:\tShould still verify owner a: %s.", failed, scoped.Message)
			}
			t.Logf("\t%s\tTest 1:\tShould still verify owner a.", success)
		}

		t.Logf("\tTest 2:\tWhen verifying with no owner.")
		{
			_, err := reseed(t, base).VerifyOwner(ctx, "")
			if err != state.ErrInvalidOwner {
				t.Errorf("\t%s\tTest 2:\tShould reject the call: got %v.", failed, err)
			} else {
				t.Logf("\t%s\tTest 2:\tShould reject the call.", success)
			}
		}
	}
}

// contendedStorage wraps the memory store and, exactly once, sneaks a
// competing record in ahead of a write. The wrapped write then collides on
// the parent digest the way a second process would make it collide.
type contendedStorage struct {
	*memory.Memory
	once sync.Once
}

func (cs *contendedStorage) Write(ctx context.Context, record database.Record) (database.Record, error) {
	cs.once.Do(func() {
		tip := digest.ZeroHash
		if latest, err := cs.Memory.LatestRecord(ctx); err == nil {
			tip = latest.CurrentDigest
		}

		interloper := database.NewRecord(tip, database.Activity{Owner: "rival", Kind: "train", Emission: 0.3, EmissionUnit: "kg"}, time.Now())
		if _, err := cs.Memory.Write(ctx, interloper); err != nil {
			panic(err)
		}
	})

	return cs.Memory.Write(ctx, record)
}

func Test_AppendRetry(t *testing.T) {
	mem, err := memory.New()
	ifErrFailNow(t, err)

	storage := contendedStorage{Memory: mem}

	st, err := state.New(state.Config{
		Genesis: genesis.Genesis{Name: "test ledger", EmissionUnit: "kg"},
		Storage: &storage,
	})
	ifErrFailNow(t, err)

	ctx := context.Background()

	t.Log("Given the need to validate an append recovers from losing the tip race.")
	{
		t.Logf("\tTest 0:\tWhen a competing record lands first.")
		{
			record, err := st.Append(ctx, database.Activity{Owner: "u1", Kind: "car", Emission: 4.87, EmissionUnit: "kg"})
			ifErrFailNow(t, err)

			if record.ID != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould commit behind the competing record: got id %d.", failed, record.ID)
			}
			t.Logf("\t%s\tTest 0:\tShould commit behind the competing record.", success)

			rival, err := st.QueryByID(ctx, 1)
			ifErrFailNow(t, err)
			if record.PreviousDigest != rival.CurrentDigest {
				t.Fatalf("\t%s\tTest 0:\tShould link to the record that won the race.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould link to the record that won the race.", success)

			report, err := st.VerifyAll(ctx)
			ifErrFailNow(t, err)
			if !report.Valid || report.TotalRecords != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould verify as one unbroken chain: valid[%v] records[%d].", failed, report.Valid, report.TotalRecords)
			}
			t.Logf("\t%s\tTest 0:\tShould verify as one unbroken chain.", success)
		}
	}
}

func Test_InvalidActivity(t *testing.T) {
	st := newState(t)
	ctx := context.Background()

	type table struct {
		name     string
		activity database.Activity
	}

	tt := []table{
		{"missing owner", database.Activity{Kind: "car", Emission: 1}},
		{"missing kind", database.Activity{Owner: "u1", Emission: 1}},
		{"emission NaN", database.Activity{Owner: "u1", Kind: "car", Emission: math.NaN()}},
		{"emission infinite", database.Activity{Owner: "u1", Kind: "car", Emission: math.Inf(1)}},
	}

	t.Log("Given the need to reject activities before they touch the store.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen appending an activity with a %s.", testID, tst.name)
			{
				if _, err := st.Append(ctx, tst.activity); err == nil {
					t.Errorf("\t%s\tTest %d:\tShould reject the activity.", failed, testID)
					continue
				}
				t.Logf("\t%s\tTest %d:\tShould reject the activity.", success, testID)
			}
		}

		count, err := st.Count(ctx, "")
		ifErrFailNow(t, err)
		if count != 0 {
			t.Errorf("\t%s\tShould leave the store untouched: %d records.", failed, count)
		} else {
			t.Logf("\t%s\tShould leave the store untouched.", success)
		}
	}
}

func Test_OwnerTally(t *testing.T) {
	st := newState(t)

	appendActivities(t, st,
		database.Activity{Owner: "a", Kind: "car", Emission: 1.5, EmissionUnit: "kg"},
		database.Activity{Owner: "a", Kind: "bus", Emission: 0.5, EmissionUnit: "kg"},
		database.Activity{Owner: "b", Kind: "car", Emission: 2.0, EmissionUnit: "kg"},
		database.Activity{Owner: "a", Kind: "car", Emission: 1.0, EmissionUnit: "kg"},
	)

	t.Log("Given the need to validate running totals per owner.")
	{
		t.Logf("\tTest 0:\tWhen three of four records belong to one owner.")
		{
			tally := st.OwnerTally("a")

			if tally.Records != 3 {
				t.Errorf("\t%s\tTest 0:\tShould count 3 records: got %d.", failed, tally.Records)
			} else {
				t.Logf("\t%s\tTest 0:\tShould count 3 records.", success)
			}

			if tally.TotalEmission != 3.0 {
				t.Errorf("\t%s\tTest 0:\tShould total 3.0 kg: got %v.", failed, tally.TotalEmission)
			} else {
				t.Logf("\t%s\tTest 0:\tShould total 3.0 kg.", success)
			}

			if tally.ByKind["car"] != 2.5 || tally.ByKind["bus"] != 0.5 {
				t.Errorf("\t%s\tTest 0:\tShould break totals down by kind: got %v.", failed, tally.ByKind)
			} else {
				t.Logf("\t%s\tTest 0:\tShould break totals down by kind.", success)
			}
		}

		t.Logf("\tTest 1:\tWhen asking for an owner with no records.")
		{
			tally := st.OwnerTally("nobody")
			if tally.Records != 0 || tally.TotalEmission != 0 {
				t.Errorf("\t%s\tTest 1:\tShould get an empty tally.", failed)
			} else {
				t.Logf("\t%s\tTest 1:\tShould get an empty tally.", success)
			}
		}
	}
}
