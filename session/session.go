// Package session implements the GlobalSession registry (spec.md §4.1),
// adapted from consensus/oasys/snapshot.go's store/load/apply idiom: there
// a Snapshot advances by applying headers one at a time and persisting the
// result; here a Registry advances by consuming GlobalSessions channel
// entries strictly in start-block order and persisting the promoted
// pointer in the same transaction as the caller's other work.
package session

import (
	"errors"
	"fmt"

	"github.com/cosign-network/cosigning/cosigndb"
	"github.com/cosign-network/cosigning/primitives"
	"github.com/cosign-network/cosigning/store"
)

// ErrNoSession is returned by CurrentStrict when no session has ever been
// intended (the GlobalSessions channel is empty and none is current).
var ErrNoSession = errors.New("session: no global session available")

// Registry resolves the current GlobalSession against a transaction,
// promoting queued sessions from the GlobalSessions channel as block
// numbers advance past their start.
type Registry struct {
	txn *cosigndb.Txn
}

func New(txn *cosigndb.Txn) *Registry {
	return &Registry{txn: txn}
}

// CurrentStrict implements spec.md §4.1's strict lookup. blockNumber must
// be non-decreasing across calls sharing a transaction lineage; violating
// that is a caller bug and is reported as an error rather than silently
// tolerated (spec.md §4.1 "caller error").
func (r *Registry) CurrentStrict(blockNumber uint64) ([32]byte, primitives.GlobalSession, error) {
	currentID, current, ok, err := store.CurrentlyEvaluatedGlobalSession(r.txn)
	if err != nil {
		return [32]byte{}, primitives.GlobalSession{}, err
	}
	if !ok {
		entry, ok, err := store.GlobalSessionsChannel.TryRecv(r.txn, nil)
		if err != nil {
			return [32]byte{}, primitives.GlobalSession{}, err
		}
		if !ok {
			return [32]byte{}, primitives.GlobalSession{}, ErrNoSession
		}
		currentID, current = entry.ID, entry.Session
		if err := store.SetCurrentlyEvaluatedGlobalSession(r.txn, currentID, current); err != nil {
			return [32]byte{}, primitives.GlobalSession{}, err
		}
	}

	if current.StartBlockNumber > blockNumber {
		return [32]byte{}, primitives.GlobalSession{}, fmt.Errorf(
			"session: current session starts at %d, past requested block %d", current.StartBlockNumber, blockNumber)
	}

	next, ok, err := store.GlobalSessionsChannel.Peek(r.txn, nil)
	if err != nil {
		return [32]byte{}, primitives.GlobalSession{}, err
	}
	if ok && next.Session.StartBlockNumber == blockNumber {
		if _, _, err := store.GlobalSessionsChannel.TryRecv(r.txn, nil); err != nil {
			return [32]byte{}, primitives.GlobalSession{}, err
		}
		currentID, current = next.ID, next.Session
		if err := store.SetCurrentlyEvaluatedGlobalSession(r.txn, currentID, current); err != nil {
			return [32]byte{}, primitives.GlobalSession{}, err
		}

		next, ok, err = store.GlobalSessionsChannel.Peek(r.txn, nil)
		if err != nil {
			return [32]byte{}, primitives.GlobalSession{}, err
		}
	}

	if ok && next.Session.StartBlockNumber < blockNumber {
		return [32]byte{}, primitives.GlobalSession{}, fmt.Errorf(
			"session: queued session starts at %d, behind requested block %d", next.Session.StartBlockNumber, blockNumber)
	}

	return currentID, current, nil
}

// CurrentNonStrict implements spec.md §4.1's read-only lookup: it peeks
// (never consumes) the GlobalSessions channel, returning the queued
// session if the evaluator has already advanced LatestCosignedBlockNumber
// to immediately before that session's start block; otherwise it returns
// the stored current session (or none). This mirrors CurrentStrict's own
// promotion condition (next.StartBlockNumber == blockNumber, here
// blockNumber = LatestCosignedBlockNumber+1) without mutating any state,
// so a notable block's own cosigns — addressed to the *new* session id
// before the evaluator's txn promoting it has committed — are still
// recognized by intake instead of being silently dropped as out-of-phase.
func (r *Registry) CurrentNonStrict() ([32]byte, primitives.GlobalSession, bool, error) {
	currentID, current, ok, err := store.CurrentlyEvaluatedGlobalSession(r.txn)
	if err != nil {
		return [32]byte{}, primitives.GlobalSession{}, false, err
	}

	next, hasNext, err := store.GlobalSessionsChannel.Peek(r.txn, nil)
	if err != nil {
		return [32]byte{}, primitives.GlobalSession{}, false, err
	}
	if !hasNext {
		return currentID, current, ok, nil
	}

	latestCosigned, err := store.LatestCosignedBlockNumber(r.txn)
	if err != nil {
		return [32]byte{}, primitives.GlobalSession{}, false, err
	}
	if next.Session.StartBlockNumber == latestCosigned+1 {
		return next.ID, next.Session, true, nil
	}
	return currentID, current, ok, nil
}
