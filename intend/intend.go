// Package intend implements the Intend task (spec.md §4.2): classifying
// each newly finalized host-chain block, computing which validator sets
// are expected to cosign it, and rotating the GlobalSession registry when
// a block is notable. Adapted from intend.rs, structured as a task package
// the way consensus/oasys/oasys.go structures its per-header verification
// loop into small, single-purpose helper calls.
package intend

import (
	"context"
	"fmt"

	"github.com/cosign-network/cosigning/cosigndb"
	"github.com/cosign-network/cosigning/oracle"
	"github.com/cosign-network/cosigning/primitives"
	"github.com/cosign-network/cosigning/sign"
	"github.com/cosign-network/cosigning/store"
	"github.com/ethereum/go-ethereum/log"
)

// Task is the CosignIntendTask (spec.md §4.2).
type Task struct {
	DB    cosigndb.Database
	Chain oracle.HostChain
}

func New(db cosigndb.Database, chain oracle.HostChain) *Task {
	return &Task{DB: db, Chain: chain}
}

func classify(ctx context.Context, chain oracle.HostChain, hash [32]byte) (primitives.HasEvents, error) {
	keyGen, err := chain.KeyGenEvents(ctx, hash)
	if err != nil {
		return primitives.No, err
	}
	if keyGen {
		return primitives.Notable, nil
	}
	burn, err := chain.BurnWithInstructionEvents(ctx, hash)
	if err != nil {
		return primitives.No, err
	}
	if burn {
		return primitives.NonNotable, nil
	}
	return primitives.No, nil
}

// RunIteration implements task.Task. Each block is classified and indexed
// in its own transaction, matching intend.rs's per-block commit so a
// mid-catch-up error leaves every earlier block durably recorded.
func (t *Task) RunIteration(ctx context.Context) (bool, error) {
	startTxn := cosigndb.NewTxn(t.DB)
	startBlockNumber, err := store.ScanCosignFrom(startTxn)
	if err != nil {
		return false, err
	}
	latest, err := t.Chain.LatestFinalizedBlock(ctx)
	if err != nil {
		return false, err
	}

	madeProgress := false
	for blockNumber := startBlockNumber; blockNumber <= latest.Number; blockNumber++ {
		txn := cosigndb.NewTxn(t.DB)
		if err := t.processBlock(ctx, txn, blockNumber); err != nil {
			return false, err
		}
		if err := txn.Commit(); err != nil {
			return false, err
		}
		madeProgress = true
	}
	return madeProgress, nil
}

func (t *Task) processBlock(ctx context.Context, txn *cosigndb.Txn, blockNumber uint64) error {
	block, ok, err := t.Chain.FinalizedBlockByNumber(ctx, blockNumber)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("intend: finalized block %d vanished", blockNumber)
	}

	hasEvents, err := classify(ctx, t.Chain, block.Hash)
	if err != nil {
		return err
	}

	if hasEvents != primitives.No {
		// Step 2: sets as of the parent block (spec.md §6 — the block itself
		// may alter sets, but only once it is itself cosigned).
		parentSets, _, err := oracle.CosigningSets(ctx, t.Chain, block.ParentHash)
		if err != nil {
			return err
		}

		var newSessionID [32]byte
		if hasEvents == primitives.Notable {
			newSets, newKeys, err := oracle.CosigningSets(ctx, t.Chain, block.Hash)
			if err != nil {
				return err
			}
			newSessionID = sign.SessionID(newSets)
			if err := t.startNewSession(ctx, txn, newSessionID, blockNumber, block, newSets, newKeys); err != nil {
				return err
			}
		}

		if len(parentSets) == 0 {
			hasEvents = primitives.No
		} else {
			// A notable block's own intent is emitted under the session it
			// creates, not the session that was current before it
			// (spec.md §9's chosen rotation convention).
			globalSession := sign.SessionID(parentSets)
			if hasEvents == primitives.Notable {
				globalSession = newSessionID
			}
			for _, set := range parentSets {
				log.Debug("set will be cosigning block", "set", set, "block_number", blockNumber)
				intent := primitives.CosignIntent{
					GlobalSession: globalSession,
					BlockNumber:   blockNumber,
					BlockHash:     block.Hash,
					Notable:       hasEvents == primitives.Notable,
				}
				if err := store.IntendedCosigns.Send(txn, store.ValidatorSetSubkey(set), intent); err != nil {
					return err
				}
			}
		}
	}

	if err := store.SetSubstrateBlocks(txn, blockNumber, block.Hash); err != nil {
		return err
	}
	if err := store.BlockEvents.Send(txn, nil, store.BlockEventEntry{BlockNumber: blockNumber, HasEvents: hasEvents}); err != nil {
		return err
	}
	return store.SetScanCosignFrom(txn, blockNumber+1)
}

func (t *Task) startNewSession(
	ctx context.Context,
	txn *cosigndb.Txn,
	newID [32]byte,
	blockNumber uint64,
	block oracle.Block,
	sets []primitives.ValidatorSet,
	keys map[primitives.NetworkId][32]byte,
) error {
	stakes := make(map[primitives.NetworkId]uint64, len(sets))
	usableKeys := make(map[primitives.NetworkId][32]byte, len(sets))
	usableSets := make([]primitives.ValidatorSet, 0, len(sets))
	var totalStake uint64
	for _, set := range sets {
		stake, ok, err := t.Chain.TotalAllocatedStake(ctx, block.Hash, set.Network)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		stakes[set.Network] = stake
		usableKeys[set.Network] = keys[set.Network]
		totalStake += stake
		usableSets = append(usableSets, set)
	}

	newSession := primitives.GlobalSession{
		StartBlockNumber: blockNumber,
		StartBlockHash:   block.Hash,
		Sets:             primitives.SortValidatorSets(usableSets),
		Keys:             usableKeys,
		Stakes:           stakes,
		TotalStake:       totalStake,
	}

	if err := store.SetGlobalSessionByID(txn, newID, newSession); err != nil {
		return err
	}
	if priorID, _, ok, err := store.LatestGlobalSessionIntended(txn); err != nil {
		return err
	} else if ok {
		if err := store.SetGlobalSessionLastBlock(txn, priorID, blockNumber); err != nil {
			return err
		}
	}
	if err := store.SetLatestGlobalSessionIntended(txn, newID, newSession); err != nil {
		return err
	}
	return store.GlobalSessionsChannel.Send(txn, nil, store.GlobalSessionEntry{ID: newID, Session: newSession})
}
