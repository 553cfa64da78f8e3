// Package task runs the cosigning engine's background components
// (intend, evaluate, delay; spec.md §5) as independent, continually-ran
// loops: each iteration either makes progress or it doesn't, and the
// runner backs off when a task reports no progress or errors, exactly the
// way consensus/oasys/scheduler.go's Seal goroutine waits out a delay on a
// select against a stop channel rather than busy-looping.
package task

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

// Task is one unit of continually-ran work. RunIteration should perform as
// much work as is immediately available and return madeProgress=true, or
// return madeProgress=false once it finds nothing left to do. An iteration
// that can't complete (a lookup is missing data it depends on, spec.md
// §4.3's RequestNotableCosigns path) should return an error rather than
// silently doing nothing, so the runner backs off instead of spinning.
type Task interface {
	RunIteration(ctx context.Context) (madeProgress bool, err error)
}

const (
	// idleBackoff is how long the runner waits after an iteration makes no
	// progress before trying again.
	idleBackoff = 100 * time.Millisecond
	// errorBackoff is how long the runner waits after the first of a run of
	// erroring iterations; each further consecutive error doubles the wait,
	// up to maxErrorBackoff.
	errorBackoff = time.Second
	// maxErrorBackoff caps the doubling error backoff.
	maxErrorBackoff = time.Minute
)

// Run drives t to completion of ctx, calling RunIteration until ctx is
// canceled. Each channel in onProgress is sent an (non-blocking) empty
// struct whenever an iteration makes progress. Run itself never waits on
// any channel other than ctx, so a task is not woken early by another
// task's progress; it picks up new work after its idle backoff.
func Run(ctx context.Context, name string, t Task, onProgress ...chan struct{}) {
	backoff := errorBackoff
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		madeProgress, err := t.RunIteration(ctx)
		if err != nil {
			log.Warn("task iteration errored", "task", name, "err", err, "backoff", backoff)
			if !sleep(ctx, backoff) {
				return
			}
			backoff *= 2
			if backoff > maxErrorBackoff {
				backoff = maxErrorBackoff
			}
			continue
		}
		backoff = errorBackoff

		if madeProgress {
			for _, ch := range onProgress {
				select {
				case ch <- struct{}{}:
				default:
				}
			}
			continue
		}

		if !sleep(ctx, idleBackoff) {
			return
		}
	}
}

// sleep waits for d or ctx's cancellation, returning false if ctx finished
// first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
