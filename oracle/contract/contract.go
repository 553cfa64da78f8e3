// Package contract is the concrete oracle.HostChain this engine dials in
// production: an ABI-bound read surface over a deployed cosign-oracle
// system contract, reached through a standard JSON-RPC client. Modeled on
// consensus/oasys/contract.go's genesisContract/builtinContract pattern
// (ABI-JSON constant, parsed once, called through a thin wrapper) and
// oasys.go's package-level LRU caches for per-block lookups that would
// otherwise repeat the same RPC round trip every time intend or evaluate
// revisits a block.
package contract

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/cosign-network/cosigning/oracle"
	"github.com/cosign-network/cosigning/primitives"
	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

// cacheSize bounds the per-call-kind LRU caches below; 256 comfortably
// covers several global-session windows' worth of distinct block hashes.
const cacheSize = 256

// ChainReader is the subset of *ethclient.Client this package depends on,
// kept as an interface so tests can substitute a stub RPC backend instead of
// dialing a real node.
type ChainReader interface {
	bind.ContractBackend
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	HeaderByHash(ctx context.Context, hash common.Hash) (*types.Header, error)
}

// HostChain implements oracle.HostChain against a deployed cosign-oracle
// contract, reached over client.
type HostChain struct {
	client  ChainReader
	abi     abi.ABI
	bound   *bind.BoundContract
	address common.Address

	blockNumberByHash *lru.ARCCache // common.Hash -> uint64
	headerByNumber    *lru.ARCCache // uint64 -> *types.Header
}

// New parses the contract ABI and wires up a bound, read-only contract at
// address reached through client.
func New(client ChainReader, address common.Address) (*HostChain, error) {
	parsed, err := abi.JSON(strings.NewReader(cosignOracleABI))
	if err != nil {
		return nil, errors.Wrap(err, "contract: parse abi")
	}
	blockNumberByHash, _ := lru.NewARC(cacheSize)
	headerByNumber, _ := lru.NewARC(cacheSize)
	return &HostChain{
		client:            client,
		abi:               parsed,
		bound:             bind.NewBoundContract(address, parsed, client, client, client),
		address:           address,
		blockNumberByHash: blockNumberByHash,
		headerByNumber:    headerByNumber,
	}, nil
}

func (h *HostChain) headerByNumberCached(ctx context.Context, number *big.Int) (*types.Header, error) {
	if number.Sign() >= 0 {
		if v, ok := h.headerByNumber.Get(number.Uint64()); ok {
			return v.(*types.Header), nil
		}
	}
	header, err := h.client.HeaderByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	h.headerByNumber.Add(header.Number.Uint64(), header)
	h.blockNumberByHash.Add(header.Hash(), header.Number.Uint64())
	return header, nil
}

func (h *HostChain) blockNumberForHash(ctx context.Context, hash [32]byte) (uint64, bool, error) {
	common32 := common.Hash(hash)
	if v, ok := h.blockNumberByHash.Get(common32); ok {
		return v.(uint64), true, nil
	}
	header, err := h.client.HeaderByHash(ctx, common32)
	if err != nil {
		return 0, false, nil
	}
	h.blockNumberByHash.Add(common32, header.Number.Uint64())
	h.headerByNumber.Add(header.Number.Uint64(), header)
	return header.Number.Uint64(), true, nil
}

func toBlock(header *types.Header) oracle.Block {
	return oracle.Block{
		Number:     header.Number.Uint64(),
		Hash:       header.Hash(),
		ParentHash: header.ParentHash,
	}
}

// LatestFinalizedBlock implements oracle.HostChain.
func (h *HostChain) LatestFinalizedBlock(ctx context.Context) (oracle.Block, error) {
	header, err := h.headerByNumberCached(ctx, big.NewInt(rpc.FinalizedBlockNumber.Int64()))
	if err != nil {
		return oracle.Block{}, err
	}
	return toBlock(header), nil
}

// FinalizedBlockByNumber implements oracle.HostChain.
func (h *HostChain) FinalizedBlockByNumber(ctx context.Context, number uint64) (oracle.Block, bool, error) {
	header, err := h.headerByNumberCached(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return oracle.Block{}, false, nil
	}
	return toBlock(header), true, nil
}

// BlockHash implements oracle.HostChain.
func (h *HostChain) BlockHash(ctx context.Context, number uint64) ([32]byte, bool, error) {
	block, ok, err := h.FinalizedBlockByNumber(ctx, number)
	if err != nil || !ok {
		return [32]byte{}, false, err
	}
	return block.Hash, true, nil
}

func (h *HostChain) callOpts(ctx context.Context, asOf [32]byte) (*bind.CallOpts, error) {
	number, ok, err := h.blockNumberForHash(ctx, asOf)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("contract: unknown block hash %x", asOf)
	}
	return &bind.CallOpts{Context: ctx, BlockNumber: new(big.Int).SetUint64(number)}, nil
}

// Session implements oracle.HostChain.
func (h *HostChain) Session(ctx context.Context, asOf [32]byte, network primitives.NetworkId) (primitives.Session, bool, error) {
	opts, err := h.callOpts(ctx, asOf)
	if err != nil {
		return 0, false, err
	}
	var out []interface{}
	if err := h.bound.Call(opts, &out, "session", uint8(network)); err != nil {
		return 0, false, errors.Wrap(err, "contract: call session")
	}
	session := *abi.ConvertType(out[0], new(uint32)).(*uint32)
	return primitives.Session(session), true, nil
}

// Keys implements oracle.HostChain.
func (h *HostChain) Keys(ctx context.Context, asOf [32]byte, set primitives.ValidatorSet) (primitives.KeyPair, bool, error) {
	opts, err := h.callOpts(ctx, asOf)
	if err != nil {
		return primitives.KeyPair{}, false, err
	}
	var out []interface{}
	if err := h.bound.Call(opts, &out, "keys", uint8(set.Network), uint32(set.Session)); err != nil {
		return primitives.KeyPair{}, false, errors.Wrap(err, "contract: call keys")
	}
	published := *abi.ConvertType(out[1], new(bool)).(*bool)
	if !published {
		return primitives.KeyPair{}, false, nil
	}
	raw := *abi.ConvertType(out[0], new([32]byte)).(*[32]byte)
	return primitives.KeyPair{Public: raw}, true, nil
}

// TotalAllocatedStake implements oracle.HostChain.
func (h *HostChain) TotalAllocatedStake(ctx context.Context, asOf [32]byte, network primitives.NetworkId) (uint64, bool, error) {
	opts, err := h.callOpts(ctx, asOf)
	if err != nil {
		return 0, false, err
	}
	var out []interface{}
	if err := h.bound.Call(opts, &out, "totalAllocatedStake", uint8(network)); err != nil {
		return 0, false, errors.Wrap(err, "contract: call totalAllocatedStake")
	}
	stake := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	if !stake.IsUint64() {
		return 0, false, fmt.Errorf("contract: total allocated stake overflows uint64")
	}
	return stake.Uint64(), true, nil
}

func (h *HostChain) hasLogMatching(ctx context.Context, asOf [32]byte, eventName string) (bool, error) {
	event, ok := h.abi.Events[eventName]
	if !ok {
		return false, fmt.Errorf("contract: unknown event %q", eventName)
	}
	hash := common.Hash(asOf)
	logs, err := h.client.FilterLogs(ctx, ethereum.FilterQuery{
		BlockHash: &hash,
		Addresses: []common.Address{h.address},
		Topics:    [][]common.Hash{{event.ID}},
	})
	if err != nil {
		return false, errors.Wrapf(err, "contract: filter logs for %s", eventName)
	}
	return len(logs) > 0, nil
}

// KeyGenEvents implements oracle.HostChain.
func (h *HostChain) KeyGenEvents(ctx context.Context, asOf [32]byte) (bool, error) {
	return h.hasLogMatching(ctx, asOf, "KeyGen")
}

// BurnWithInstructionEvents implements oracle.HostChain.
func (h *HostChain) BurnWithInstructionEvents(ctx context.Context, asOf [32]byte) (bool, error) {
	return h.hasLogMatching(ctx, asOf, "BurnWithInstruction")
}
