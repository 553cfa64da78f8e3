// Package oracle defines the read-only contract this engine holds against
// the host chain (spec.md §6): finalized-block lookup, validator sessions,
// keys, stakes, and the key-gen/burn events that drive block classification.
// The host-chain client itself is explicitly out of scope (spec.md §1); this
// package only fixes the Go interface intend/evaluate are written against,
// plus the RequestNotableCosigns capability (with a plain-function
// adapter) that is injected at Spawn time.
package oracle

import (
	"context"

	"github.com/cosign-network/cosigning/primitives"
)

// Block is a finalized host-chain block header (spec.md §6).
type Block struct {
	Number     uint64
	ParentHash [32]byte
	Hash       [32]byte
}

// HostChain is the read-only oracle contract spec.md §6 defines.
type HostChain interface {
	LatestFinalizedBlock(ctx context.Context) (Block, error)
	FinalizedBlockByNumber(ctx context.Context, number uint64) (Block, bool, error)
	BlockHash(ctx context.Context, number uint64) ([32]byte, bool, error)

	// Session returns the latest session a network has declared, if any.
	Session(ctx context.Context, asOf [32]byte, network primitives.NetworkId) (primitives.Session, bool, error)
	// Keys returns the key pair published for a validator set, if any.
	Keys(ctx context.Context, asOf [32]byte, set primitives.ValidatorSet) (primitives.KeyPair, bool, error)
	// TotalAllocatedStake returns a network's total stake as of a block.
	TotalAllocatedStake(ctx context.Context, asOf [32]byte, network primitives.NetworkId) (uint64, bool, error)

	// KeyGenEvents reports whether the block at asOf contains a
	// validator-key-generation event.
	KeyGenEvents(ctx context.Context, asOf [32]byte) (bool, error)
	// BurnWithInstructionEvents reports whether the block at asOf contains
	// an outbound burn-with-instruction event.
	BurnWithInstructionEvents(ctx context.Context, asOf [32]byte) (bool, error)
}

// RequestNotableCosigns is the capability injected so the evaluate task can
// ask the network for missing cosigns of a global session's notable block
// (spec.md §6).
type RequestNotableCosigns interface {
	RequestNotableCosigns(ctx context.Context, globalSession [32]byte) error
}

// RequestNotableCosignsFunc adapts a plain function to RequestNotableCosigns.
type RequestNotableCosignsFunc func(ctx context.Context, globalSession [32]byte) error

func (f RequestNotableCosignsFunc) RequestNotableCosigns(ctx context.Context, globalSession [32]byte) error {
	return f(ctx, globalSession)
}
