// Package store declares every durable index and channel spec.md §3
// defines, namespaced by component the way the original Rust
// implementation's per-file create_db!/db_channel! blocks do
// (coordinator/cosign/src/{lib,intend,evaluator,delay}.rs each own a
// slice of this state). Collecting them in one Go package avoids import
// cycles between the task packages that share state across component
// boundaries (e.g. intend populates SubstrateBlocks, intake reads it).
package store

import (
	"encoding/binary"

	"github.com/cosign-network/cosigning/cosigndb"
	"github.com/cosign-network/cosigning/primitives"
)

// --- scalar values, keyed by a fixed name ---

var (
	scanCosignFromKey           = []byte("intend:scan-cosign-from")
	latestGlobalSessionIntended = []byte("intend:latest-global-session-intended")
	currentlyEvaluatedSession   = []byte("evaluate:currently-evaluated-global-session")
	latestCosignedBlockNumber   = []byte("evaluate:latest-cosigned-block-number")
	latestAcknowledgedBlock     = []byte("delay:latest-acknowledged-block-number")
	faultedSessionKey           = []byte("intake:faulted-session")
)

// ScanCosignFrom is the next block number the intend task should scan
// (spec.md §3). Defaults to 1 when unset.
func ScanCosignFrom(txn *cosigndb.Txn) (uint64, error) {
	v, found, err := cosigndb.GetRLP[uint64](txn, scanCosignFromKey)
	if err != nil {
		return 0, err
	}
	if !found {
		return 1, nil
	}
	return v, nil
}

func SetScanCosignFrom(txn *cosigndb.Txn, block uint64) error {
	return cosigndb.PutRLP(txn, scanCosignFromKey, block)
}

// idAndSession is the (session id, GlobalSession) pair stored for the
// "latest intended"/"currently evaluated" pointers.
type idAndSession struct {
	ID      [32]byte
	Session primitives.GlobalSession
}

func LatestGlobalSessionIntended(txn *cosigndb.Txn) ([32]byte, primitives.GlobalSession, bool, error) {
	v, found, err := cosigndb.GetRLP[idAndSession](txn, latestGlobalSessionIntended)
	if err != nil || !found {
		return [32]byte{}, primitives.GlobalSession{}, found, err
	}
	return v.ID, v.Session, true, nil
}

func SetLatestGlobalSessionIntended(txn *cosigndb.Txn, id [32]byte, session primitives.GlobalSession) error {
	return cosigndb.PutRLP(txn, latestGlobalSessionIntended, idAndSession{ID: id, Session: session})
}

func CurrentlyEvaluatedGlobalSession(txn *cosigndb.Txn) ([32]byte, primitives.GlobalSession, bool, error) {
	v, found, err := cosigndb.GetRLP[idAndSession](txn, currentlyEvaluatedSession)
	if err != nil || !found {
		return [32]byte{}, primitives.GlobalSession{}, found, err
	}
	return v.ID, v.Session, true, nil
}

func SetCurrentlyEvaluatedGlobalSession(txn *cosigndb.Txn, id [32]byte, session primitives.GlobalSession) error {
	return cosigndb.PutRLP(txn, currentlyEvaluatedSession, idAndSession{ID: id, Session: session})
}

func LatestCosignedBlockNumber(txn *cosigndb.Txn) (uint64, error) {
	v, found, err := cosigndb.GetRLP[uint64](txn, latestCosignedBlockNumber)
	if err != nil || !found {
		return 0, err
	}
	return v, nil
}

func SetLatestCosignedBlockNumber(txn *cosigndb.Txn, block uint64) error {
	return cosigndb.PutRLP(txn, latestCosignedBlockNumber, block)
}

func LatestAcknowledgedBlockNumber(txn *cosigndb.Txn) (uint64, error) {
	v, found, err := cosigndb.GetRLP[uint64](txn, latestAcknowledgedBlock)
	if err != nil || !found {
		return 0, err
	}
	return v, nil
}

func SetLatestAcknowledgedBlockNumber(txn *cosigndb.Txn, block uint64) error {
	return cosigndb.PutRLP(txn, latestAcknowledgedBlock, block)
}

func FaultedSession(txn *cosigndb.Txn) ([32]byte, bool, error) {
	v, found, err := cosigndb.GetRLP[[32]byte](txn, faultedSessionKey)
	return v, found, err
}

func SetFaultedSession(txn *cosigndb.Txn, id [32]byte) error {
	return cosigndb.PutRLP(txn, faultedSessionKey, id)
}

// --- maps, keyed by a namespace prefix plus a caller-supplied key ---

func substrateBlockKey(number uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, number)
	return append([]byte("intend:substrate-blocks:"), buf...)
}

// SubstrateBlocks is an index of locally observed finalized block hashes,
// populated by intend and read by intake (spec.md §3).
func SubstrateBlocks(txn *cosigndb.Txn, number uint64) ([32]byte, bool, error) {
	v, found, err := cosigndb.GetRLP[[32]byte](txn, substrateBlockKey(number))
	return v, found, err
}

func SetSubstrateBlocks(txn *cosigndb.Txn, number uint64, hash [32]byte) error {
	return cosigndb.PutRLP(txn, substrateBlockKey(number), hash)
}

func globalSessionKey(id [32]byte) []byte {
	return append([]byte("intend:global-sessions:"), id[:]...)
}

// GlobalSessionByID is the durable GlobalSessions map (spec.md §3):
// id -> (start_block_number, start_block_hash, sets, keys, stakes).
func GlobalSessionByID(txn *cosigndb.Txn, id [32]byte) (primitives.GlobalSession, bool, error) {
	v, found, err := cosigndb.GetRLP[primitives.GlobalSession](txn, globalSessionKey(id))
	return v, found, err
}

func SetGlobalSessionByID(txn *cosigndb.Txn, id [32]byte, session primitives.GlobalSession) error {
	return cosigndb.PutRLP(txn, globalSessionKey(id), session)
}

func globalSessionLastBlockKey(id [32]byte) []byte {
	return append([]byte("intend:global-session-last-block:"), id[:]...)
}

// GlobalSessionLastBlock is populated when a successor session begins
// (spec.md §3, §4.2).
func GlobalSessionLastBlock(txn *cosigndb.Txn, id [32]byte) (uint64, bool, error) {
	v, found, err := cosigndb.GetRLP[uint64](txn, globalSessionLastBlockKey(id))
	return v, found, err
}

func SetGlobalSessionLastBlock(txn *cosigndb.Txn, id [32]byte, block uint64) error {
	return cosigndb.PutRLP(txn, globalSessionLastBlockKey(id), block)
}

func networksLatestCosignedBlockKey(sessionID [32]byte, network primitives.NetworkId) []byte {
	key := append([]byte("intake:networks-latest-cosigned-block:"), sessionID[:]...)
	return append(key, byte(network))
}

// NetworksLatestCosignedBlock: (session_id, network) -> SignedCosign
// (spec.md §3).
func NetworksLatestCosignedBlock(txn *cosigndb.Txn, sessionID [32]byte, network primitives.NetworkId) (primitives.SignedCosign, bool, error) {
	v, found, err := cosigndb.GetRLP[primitives.SignedCosign](txn, networksLatestCosignedBlockKey(sessionID, network))
	return v, found, err
}

func SetNetworksLatestCosignedBlock(txn *cosigndb.Txn, sessionID [32]byte, network primitives.NetworkId, cosign primitives.SignedCosign) error {
	return cosigndb.PutRLP(txn, networksLatestCosignedBlockKey(sessionID, network), cosign)
}

func faultsKey(sessionID [32]byte) []byte {
	return append([]byte("intake:faults:"), sessionID[:]...)
}

// Faults: session_id -> ordered list of SignedCosign, at most one entry per
// network (spec.md §3, invariant 5).
func Faults(txn *cosigndb.Txn, sessionID [32]byte) ([]primitives.SignedCosign, error) {
	v, found, err := cosigndb.GetRLP[[]primitives.SignedCosign](txn, faultsKey(sessionID))
	if err != nil || !found {
		return nil, err
	}
	return v, nil
}

func SetFaults(txn *cosigndb.Txn, sessionID [32]byte, faults []primitives.SignedCosign) error {
	return cosigndb.PutRLP(txn, faultsKey(sessionID), faults)
}

// --- channels ---

// BlockEventEntry is a single (block_number, classification) entry on the
// BlockEvents channel, intend -> evaluate (spec.md §3).
type BlockEventEntry struct {
	BlockNumber uint64
	HasEvents   primitives.HasEvents
}

var BlockEvents = cosigndb.NewChannel[BlockEventEntry]("BlockEvents")

// IntendedCosigns delivers a CosignIntent per participating ValidatorSet,
// intend -> external signers (spec.md §3). Namespaced by the set.
var IntendedCosigns = cosigndb.NewChannel[primitives.CosignIntent]("IntendedCosigns")

func ValidatorSetSubkey(set primitives.ValidatorSet) []byte {
	return set.MarshalCanonical()
}

// GlobalSessionEntry is a (session id, GlobalSession) pair delivered on the
// GlobalSessions channel, intend -> evaluate, strictly in start-block order
// (spec.md §3, §5).
type GlobalSessionEntry struct {
	ID      [32]byte
	Session primitives.GlobalSession
}

var GlobalSessionsChannel = cosigndb.NewChannel[GlobalSessionEntry]("GlobalSessions")

// CosignedBlockEntry is a (block_number, time_evaluated_unix_seconds)
// entry, evaluate -> delay (spec.md §3).
type CosignedBlockEntry struct {
	BlockNumber   uint64
	TimeEvaluated uint64
}

var CosignedBlocks = cosigndb.NewChannel[CosignedBlockEntry]("CosignedBlocks")
