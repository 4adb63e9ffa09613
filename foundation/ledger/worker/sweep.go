package worker

import (
	"context"
	"time"
)

// sweepTimeout bounds how long one sweep may spend walking the chain.
const sweepTimeout = 2 * time.Minute

// sweepOperations handles periodic chain verification.
func (w *Worker) sweepOperations() {
	w.evHandler("worker: sweepOperations: G started")
	defer w.evHandler("worker: sweepOperations: G completed")

	for {
		select {
		case <-w.ticker.C:
			if !w.isShutdown() {
				w.runSweepOperation()
			}
		case <-w.sweep:
			if !w.isShutdown() {
				w.runSweepOperation()
			}
		case <-w.shut:
			w.evHandler("worker: sweepOperations: received shut signal")
			return
		}
	}
}

// runSweepOperation replays the whole chain and reports what it finds. The
// sweep only observes, a damaged chain is reported on every pass until an
// operator steps in.
func (w *Worker) runSweepOperation() {
	w.evHandler("worker: runSweepOperation: SWEEP: started")
	defer w.evHandler("worker: runSweepOperation: SWEEP: completed")

	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	t := time.Now()
	report, err := w.state.VerifyAll(ctx)
	duration := time.Since(t)

	w.evHandler("worker: runSweepOperation: SWEEP: sweep duration[%v]", duration)

	if err != nil {
		w.evHandler("worker: runSweepOperation: SWEEP: ERROR: %s", err)
		return
	}

	if !report.Valid {
		w.evHandler("worker: runSweepOperation: SWEEP: WARNING: %s: record[%d]", report.Message, report.FailingRecordID)
		return
	}

	w.evHandler("worker: runSweepOperation: SWEEP: chain intact: records[%d]", report.TotalRecords)
}
