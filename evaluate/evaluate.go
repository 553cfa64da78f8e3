// Package evaluate implements the Evaluate task (spec.md §4.3): consuming
// BlockEvents strictly in order and confirming each block crossed its
// required stake-weighted cosign threshold before advancing the latest
// cosigned block pointer. Adapted from evaluator.rs, mirroring
// consensus/oasys/snapshot.go's Snapshot.apply pattern of validating and
// folding one unit of chain progress at a time inside a single
// transaction per unit.
package evaluate

import (
	"context"
	"fmt"
	"time"

	"github.com/cosign-network/cosigning/cosigndb"
	"github.com/cosign-network/cosigning/oracle"
	"github.com/cosign-network/cosigning/primitives"
	"github.com/cosign-network/cosigning/session"
	"github.com/cosign-network/cosigning/store"
	"github.com/ethereum/go-ethereum/metrics"
)

func nowUnix() uint64 { return uint64(time.Now().Unix()) }

var (
	notableRequestsMeter = metrics.NewRegisteredCounter("cosigning/requests/notable", nil)
	latestCosignedGauge  = metrics.NewRegisteredGauge("cosigning/latest-cosigned-block", nil)
)

// Task is the CosignEvaluatorTask (spec.md §4.3). knownCosign is the
// "lowest common block" cache described there; it lives for the task's
// lifetime, not per iteration, since it only helps across iterations.
type Task struct {
	DB      cosigndb.Database
	Request oracle.RequestNotableCosigns

	knownCosign *uint64
}

func New(db cosigndb.Database, request oracle.RequestNotableCosigns) *Task {
	return &Task{DB: db, Request: request}
}

// RunIteration implements task.Task.
func (t *Task) RunIteration(ctx context.Context) (bool, error) {
	latestCosigned, err := readLatestCosignedBlockNumber(t.DB)
	if err != nil {
		return false, err
	}

	madeProgress := false
	for {
		txn := cosigndb.NewTxn(t.DB)
		entry, ok, err := store.BlockEvents.TryRecv(txn, nil)
		if err != nil {
			return false, err
		}
		if !ok {
			return madeProgress, nil
		}

		if entry.BlockNumber != latestCosigned+1 {
			return false, fmt.Errorf(
				"evaluate: out-of-order block event: got %d, expected %d", entry.BlockNumber, latestCosigned+1)
		}

		if err := t.evaluateBlock(ctx, txn, entry); err != nil {
			return false, err
		}

		if err := store.SetLatestCosignedBlockNumber(txn, entry.BlockNumber); err != nil {
			return false, err
		}
		if err := store.CosignedBlocks.Send(txn, nil, store.CosignedBlockEntry{
			BlockNumber:   entry.BlockNumber,
			TimeEvaluated: nowUnix(),
		}); err != nil {
			return false, err
		}
		if err := txn.Commit(); err != nil {
			return false, err
		}

		latestCosigned = entry.BlockNumber
		latestCosignedGauge.Update(int64(latestCosigned))
		madeProgress = true
	}
}

// stakeForSet looks up a validator set's stake within a GlobalSession,
// failing loud rather than silently treating an absent entry as zero
// weight (evaluator.rs: "ValidatorSet in global session yet didn't have
// its stake" — a local invariant breach per spec.md §7, since every set
// admitted into GlobalSession.Sets is expected to carry a matching Stakes
// entry; intend.go only ever admits sets it could fetch a stake for).
func stakeForSet(info primitives.GlobalSession, network primitives.NetworkId) (uint64, error) {
	stake, ok := info.Stakes[network]
	if !ok {
		return 0, fmt.Errorf("evaluate: validator set for network %v in global session had no stake", network)
	}
	return stake, nil
}

func (t *Task) evaluateBlock(ctx context.Context, txn *cosigndb.Txn, entry store.BlockEventEntry) error {
	switch entry.HasEvents {
	case primitives.No:
		return nil

	case primitives.Notable:
		sessionID, info, err := session.New(txn).CurrentStrict(entry.BlockNumber)
		if err != nil {
			return err
		}
		var weightCosigned uint64
		for _, set := range info.Sets {
			cosign, ok, err := store.NetworksLatestCosignedBlock(txn, sessionID, set.Network)
			if err != nil {
				return err
			}
			if ok && cosign.Cosign.BlockNumber == entry.BlockNumber {
				stake, err := stakeForSet(info, set.Network)
				if err != nil {
					return err
				}
				weightCosigned += stake
			}
		}
		if !primitives.Supermajority(weightCosigned, info.TotalStake) {
			notableRequestsMeter.Inc(1)
			if err := t.Request.RequestNotableCosigns(ctx, sessionID); err != nil {
				return err
			}
			return fmt.Errorf("evaluate: notable block #%d not yet cosigned", entry.BlockNumber)
		}
		return nil

	case primitives.NonNotable:
		if t.knownCosign != nil && *t.knownCosign >= entry.BlockNumber {
			return nil
		}
		t.knownCosign = nil

		sessionID, info, err := session.New(txn).CurrentStrict(entry.BlockNumber)
		if err != nil {
			return err
		}
		var weightCosigned uint64
		var lowestCommonBlock *uint64
		for _, set := range info.Sets {
			cosign, ok, err := store.NetworksLatestCosignedBlock(txn, sessionID, set.Network)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if cosign.Cosign.BlockNumber >= entry.BlockNumber {
				stake, err := stakeForSet(info, set.Network)
				if err != nil {
					return err
				}
				weightCosigned += stake
			}
			if lowestCommonBlock == nil || cosign.Cosign.BlockNumber < *lowestCommonBlock {
				block := cosign.Cosign.BlockNumber
				lowestCommonBlock = &block
			}
		}
		if !primitives.Supermajority(weightCosigned, info.TotalStake) {
			notableRequestsMeter.Inc(1)
			if err := t.Request.RequestNotableCosigns(ctx, sessionID); err != nil {
				return err
			}
			return fmt.Errorf("evaluate: block #%d not yet cosigned", entry.BlockNumber)
		}
		t.knownCosign = lowestCommonBlock
		return nil

	default:
		return fmt.Errorf("evaluate: unknown classification %v", entry.HasEvents)
	}
}

func readLatestCosignedBlockNumber(db cosigndb.Database) (uint64, error) {
	txn := cosigndb.NewTxn(db)
	return store.LatestCosignedBlockNumber(txn)
}
