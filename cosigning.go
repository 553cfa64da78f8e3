// Package cosigning is the cross-chain cosigning engine's façade: it wires
// the durable database, the host-chain oracle, and the Intend/Evaluate/
// Delay tasks together (spec.md §4.4, §4.6, §6), exposing intake of
// externally delivered cosigns and the read surfaces downstream consumers
// poll. Modeled on eth/backend.go's Ethereum struct: a handful of
// long-lived components constructed once by Spawn, which starts the
// background tasks, with Stop ending them.
package cosigning

import (
	"context"
	"errors"
	"sync"

	"github.com/cosign-network/cosigning/cosigndb"
	"github.com/cosign-network/cosigning/delay"
	"github.com/cosign-network/cosigning/evaluate"
	"github.com/cosign-network/cosigning/intend"
	"github.com/cosign-network/cosigning/oracle"
	"github.com/cosign-network/cosigning/primitives"
	"github.com/cosign-network/cosigning/session"
	"github.com/cosign-network/cosigning/sign"
	"github.com/cosign-network/cosigning/store"
	"github.com/cosign-network/cosigning/task"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
)

// ErrFaulted is returned (or wraps a returned error) once a global session
// has been declared faulted (spec.md §4.4 step 6, §7); the protocol is
// terminal for that session and callers should stop relying on its
// cosigns.
var ErrFaulted = errors.New("cosigning: global session faulted")

var (
	cosignsAcceptedMeter  = metrics.NewRegisteredCounter("cosigning/intake/accepted", nil)
	cosignsInvalidMeter   = metrics.NewRegisteredCounter("cosigning/intake/invalid", nil)
	cosignsDuplicateMeter = metrics.NewRegisteredCounter("cosigning/intake/duplicate", nil)
	faultsDeclaredMeter   = metrics.NewRegisteredCounter("cosigning/faults/declared", nil)
)

// Cosigning is the running engine. Construct with Spawn.
type Cosigning struct {
	db cosigndb.Database

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Spawn constructs the engine and starts its three background tasks
// (spec.md §5). request supplies the callback used to ask the network for
// missing notable cosigns. downstream receives a progress notification
// from Evaluate and Delay whenever they advance, mirroring the teacher's
// "wake dependents on progress" channel-fanout idiom.
func Spawn(ctx context.Context, db cosigndb.Database, chain oracle.HostChain, request oracle.RequestNotableCosigns, downstream ...chan struct{}) *Cosigning {
	runCtx, cancel := context.WithCancel(ctx)
	c := &Cosigning{db: db, cancel: cancel}

	intendToEvaluate := make(chan struct{}, 1)
	evaluateToDelay := make(chan struct{}, 1)

	intendTask := intend.New(db, chain)
	evaluateTask := evaluate.New(db, request)
	delayTask := delay.New(db)

	c.wg.Add(3)
	go func() {
		defer c.wg.Done()
		task.Run(runCtx, "intend", intendTask, intendToEvaluate)
	}()
	go func() {
		defer c.wg.Done()
		task.Run(runCtx, "evaluate", evaluateTask, append([]chan struct{}{evaluateToDelay}, downstream...)...)
	}()
	go func() {
		defer c.wg.Done()
		task.Run(runCtx, "delay", delayTask, downstream...)
	}()

	// Nothing reads these internal progress channels to wake a consumer
	// early: forwardProgress only drains them. Evaluate and Delay pick up
	// a producer's new work on their next poll after the idle backoff.
	go forwardProgress(runCtx, intendToEvaluate)
	go forwardProgress(runCtx, evaluateToDelay)

	return c
}

func forwardProgress(ctx context.Context, ch chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
		}
	}
}

// Stop cancels the background tasks and waits for them to exit.
func (c *Cosigning) Stop() {
	c.cancel()
	c.wg.Wait()
}

// LatestCosignedBlockNumber implements spec.md §4.6.
func (c *Cosigning) LatestCosignedBlockNumber() (uint64, error) {
	txn := cosigndb.NewTxn(c.db)
	if _, ok, err := store.FaultedSession(txn); err != nil {
		return 0, err
	} else if ok {
		return 0, ErrFaulted
	}
	return store.LatestCosignedBlockNumber(txn)
}

// NotableCosigns implements spec.md §4.6.
func (c *Cosigning) NotableCosigns(sessionID [32]byte) ([]primitives.SignedCosign, error) {
	txn := cosigndb.NewTxn(c.db)
	info, ok, err := store.GlobalSessionByID(txn, sessionID)
	if err != nil || !ok {
		return nil, err
	}
	var out []primitives.SignedCosign
	for _, set := range info.Sets {
		cosign, ok, err := store.NetworksLatestCosignedBlock(txn, sessionID, set.Network)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, cosign)
		}
	}
	return out, nil
}

// CosignsToRebroadcast implements spec.md §4.6, including the
// same-session-only filter on faulted sessions (SPEC_FULL.md
// "Supplemented features" #3): a faulted session's rebroadcast set never
// includes cosigns stamped for a different, older global session id that
// predates a rotation.
func (c *Cosigning) CosignsToRebroadcast() ([]primitives.SignedCosign, error) {
	txn := cosigndb.NewTxn(c.db)

	if faultedID, ok, err := store.FaultedSession(txn); err != nil {
		return nil, err
	} else if ok {
		faults, err := store.Faults(txn, faultedID)
		if err != nil {
			return nil, err
		}
		out := append([]primitives.SignedCosign(nil), faults...)

		info, ok, err := store.GlobalSessionByID(txn, faultedID)
		if err != nil {
			return nil, err
		}
		if ok {
			for _, set := range info.Sets {
				cosign, ok, err := store.NetworksLatestCosignedBlock(txn, faultedID, set.Network)
				if err != nil {
					return nil, err
				}
				if ok && cosign.Cosign.GlobalSession == faultedID {
					out = append(out, cosign)
				}
			}
		}
		return out, nil
	}

	latestID, info, ok, err := store.LatestGlobalSessionIntended(txn)
	if err != nil || !ok {
		return nil, err
	}
	var out []primitives.SignedCosign
	for _, set := range info.Sets {
		cosign, ok, err := store.NetworksLatestCosignedBlock(txn, latestID, set.Network)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, cosign)
		}
	}
	return out, nil
}

// IntakeCosign implements spec.md §4.4's exact 7-step procedure. It
// assumes single-writer access: callers must not invoke IntakeCosign
// concurrently with itself (SPEC_FULL.md "Supplemented features" #4),
// matching the original's `&mut self` receiver — concurrent calls would
// race on the fault-weight recomputation in step 6.
func (c *Cosigning) IntakeCosign(ctx context.Context, cosign *primitives.SignedCosign) (bool, error) {
	txn := cosigndb.NewTxn(c.db)

	// Step 1: duplicate/stale rebroadcast.
	if existing, ok, err := store.NetworksLatestCosignedBlock(txn, cosign.Cosign.GlobalSession, cosign.Cosign.Cosigner); err != nil {
		return false, err
	} else if ok && existing.Cosign.BlockNumber >= cosign.Cosign.BlockNumber {
		cosignsDuplicateMeter.Inc(1)
		return true, nil
	}

	// Step 2: have we seen this block yet?
	ourBlockHash, ok, err := store.SubstrateBlocks(txn, cosign.Cosign.BlockNumber)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}

	// Step 3: resolve the currently evaluated session (non-strict).
	currentID, currentSession, ok, err := session.New(txn).CurrentNonStrict()
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	if cosign.Cosign.GlobalSession != currentID {
		return true, nil
	}

	// Step 4: bounds-check against the session window.
	if cosign.Cosign.BlockNumber < currentSession.StartBlockNumber {
		cosignsInvalidMeter.Inc(1)
		return false, nil
	}
	if lastBlock, ok, err := store.GlobalSessionLastBlock(txn, currentID); err != nil {
		return false, err
	} else if ok && cosign.Cosign.BlockNumber > lastBlock {
		cosignsInvalidMeter.Inc(1)
		return false, nil
	}

	// Step 5: verify the signature under the cosigner's published key.
	pub, ok := currentSession.Keys[cosign.Cosign.Cosigner]
	if !ok {
		cosignsInvalidMeter.Inc(1)
		return false, nil
	}
	if !sign.Verify(pub, cosign.Cosign, cosign.Signature) {
		cosignsInvalidMeter.Inc(1)
		return false, nil
	}

	// Step 6: record agreement, or a candidate fault on disagreement.
	if ourBlockHash == cosign.Cosign.BlockHash {
		if err := store.SetNetworksLatestCosignedBlock(txn, currentID, cosign.Cosign.Cosigner, *cosign); err != nil {
			return false, err
		}
	} else {
		if err := c.recordFault(txn, currentID, currentSession, *cosign); err != nil {
			return false, err
		}
	}

	if err := txn.Commit(); err != nil {
		return false, err
	}
	cosignsAcceptedMeter.Inc(1)
	return true, nil
}

func (c *Cosigning) recordFault(txn *cosigndb.Txn, sessionID [32]byte, info primitives.GlobalSession, cosign primitives.SignedCosign) error {
	faults, err := store.Faults(txn, sessionID)
	if err != nil {
		return err
	}
	for _, f := range faults {
		if f.Cosign.Cosigner == cosign.Cosign.Cosigner {
			return nil
		}
	}
	faults = append(faults, cosign)
	if err := store.SetFaults(txn, sessionID, faults); err != nil {
		return err
	}

	var weightFaulted uint64
	for _, f := range faults {
		weightFaulted += info.Stakes[f.Cosign.Cosigner]
	}
	if primitives.FaultThreshold(weightFaulted, info.TotalStake) {
		log.Warn("global session faulted", "session", sessionID, "weight_faulted", weightFaulted, "total_stake", info.TotalStake)
		faultsDeclaredMeter.Inc(1)
		return store.SetFaultedSession(txn, sessionID)
	}
	return nil
}
