// Package vial tracks the remaining supply of an insulin vial from a log of
// recorded shots.
//
// Vial is a library. The event store (a database, a document store or the
// in-process memory store) owns the records; vial mirrors them and derives
// the rest:
//
//   - a Ledger that replaces its ordered snapshot on every store change
//   - the vial state (remaining ml, shots taken, shots and days remaining)
//   - a page window over the ledger that stays valid as records come and go
//   - an edit Session with a capacity guard for new shots
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/vial"
//	    "github.com/xraph/vial/store/sqlite"
//	)
//
//	t := vial.New(sqlite.New(db),
//	    vial.WithCapacity(vial.Ml("10")),
//	    vial.WithShotSize(vial.Ml("0.11")),
//	)
//	if err := t.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer t.Stop()
//
//	t.Session().SetDraft(vial.Fields{Brand: "Humalog", AmountMl: "0.11"})
//	if out := t.Save(ctx); !out.OK() {
//	    log.Println(out.Message, out.Err)
//	}
//
//	fmt.Println(t.State().Format())
//
// # Consistency
//
// Store calls return before their effect is known to the ledger. The ledger
// only changes when the store streams a new snapshot, so an Outcome's ID is
// informational. If the stream fails the ledger keeps its last snapshot and
// Err reports ErrStoreUnavailable until the next good one arrives.
//
// # Amounts
//
// Volumes use decimal arithmetic, so 10 ml in 0.11 ml shots is exactly 90
// shots. Malformed amounts count as zero and are listed in State.Issues.
package vial
