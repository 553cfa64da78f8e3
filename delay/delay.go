// Package delay implements the Delay task (spec.md §4.5): holding back
// acknowledgement of an already-cosigned block until a fixed synchrony
// window has elapsed, so the rest of the network has had a chance to
// observe and rebroadcast the same cosigns before we act on them. Adapted
// from delay.rs; the context-aware sleep is modeled on
// core/vote/vote_signer.go's context.WithTimeout idiom, generalized to an
// absolute deadline instead of a relative timeout.
package delay

import (
	"context"
	"time"

	"github.com/cosign-network/cosigning/cosigndb"
	"github.com/cosign-network/cosigning/store"
)

const (
	// BroadcastFrequency is how often callers should rebroadcast cosigns
	// flagged for rebroadcasting (spec.md §4.5).
	BroadcastFrequency = 60 * time.Second
	synchronyExpectation = 10 * time.Second
	// AcknowledgementDelay is the total window a cosigned block is held
	// before being acknowledged.
	AcknowledgementDelay = BroadcastFrequency + synchronyExpectation
)

// Task is the CosignDelayTask (spec.md §4.5).
type Task struct {
	DB cosigndb.Database
}

func New(db cosigndb.Database) *Task {
	return &Task{DB: db}
}

// RunIteration implements task.Task.
func (t *Task) RunIteration(ctx context.Context) (bool, error) {
	madeProgress := false
	for {
		txn := cosigndb.NewTxn(t.DB)
		entry, ok, err := store.CosignedBlocks.TryRecv(txn, nil)
		if err != nil {
			return false, err
		}
		if !ok {
			return madeProgress, nil
		}

		timeValid := time.Unix(int64(entry.TimeEvaluated), 0).Add(AcknowledgementDelay)
		if remaining := time.Until(timeValid); remaining > 0 {
			timer := time.NewTimer(remaining)
			select {
			case <-ctx.Done():
				timer.Stop()
				return madeProgress, ctx.Err()
			case <-timer.C:
			}
		}

		if err := store.SetLatestAcknowledgedBlockNumber(txn, entry.BlockNumber); err != nil {
			return false, err
		}
		if err := txn.Commit(); err != nil {
			return false, err
		}
		madeProgress = true
	}
}
