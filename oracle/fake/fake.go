// Package fake is a deterministic in-memory oracle.HostChain used by this
// repo's tests in place of a mocking framework, matching the teacher's own
// preference for concrete test backends over mocks.
package fake

import (
	"context"
	"sync"

	"github.com/cosign-network/cosigning/oracle"
	"github.com/cosign-network/cosigning/primitives"
)

type blockInfo struct {
	hash                      [32]byte
	keyGenEvent               bool
	burnWithInstructionEvent  bool
	sessions                  map[primitives.NetworkId]primitives.Session
	keys                      map[primitives.ValidatorSet]primitives.KeyPair
	stakes                    map[primitives.NetworkId]uint64
}

// HostChain is a fully in-memory, directly-populated oracle.HostChain.
type HostChain struct {
	mu      sync.Mutex
	blocks  map[uint64]blockInfo
	latest  uint64
}

func New() *HostChain {
	return &HostChain{blocks: make(map[uint64]blockInfo)}
}

// SetBlock registers (or replaces) the state as-of a block, and extends
// "latest finalized" if number is higher than anything seen so far.
func (h *HostChain) SetBlock(number uint64, hash [32]byte, keyGen, burn bool, sessions map[primitives.NetworkId]primitives.Session, keys map[primitives.ValidatorSet]primitives.KeyPair, stakes map[primitives.NetworkId]uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.blocks[number] = blockInfo{
		hash:                     hash,
		keyGenEvent:              keyGen,
		burnWithInstructionEvent: burn,
		sessions:                 sessions,
		keys:                     keys,
		stakes:                   stakes,
	}
	if number > h.latest {
		h.latest = number
	}
}

func (h *HostChain) byHash(hash [32]byte) (blockInfo, bool) {
	for _, b := range h.blocks {
		if b.hash == hash {
			return b, true
		}
	}
	return blockInfo{}, false
}

func (h *HostChain) LatestFinalizedBlock(ctx context.Context) (oracle.Block, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	b := h.blocks[h.latest]
	return oracle.Block{Number: h.latest, Hash: b.hash}, nil
}

func (h *HostChain) FinalizedBlockByNumber(ctx context.Context, number uint64) (oracle.Block, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.blocks[number]
	if !ok {
		return oracle.Block{}, false, nil
	}
	var parentHash [32]byte
	if p, ok := h.blocks[number-1]; ok {
		parentHash = p.hash
	}
	return oracle.Block{Number: number, Hash: b.hash, ParentHash: parentHash}, true, nil
}

func (h *HostChain) BlockHash(ctx context.Context, number uint64) ([32]byte, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.blocks[number]
	return b.hash, ok, nil
}

func (h *HostChain) Session(ctx context.Context, asOf [32]byte, network primitives.NetworkId) (primitives.Session, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.byHash(asOf)
	if !ok {
		return 0, false, nil
	}
	s, ok := b.sessions[network]
	return s, ok, nil
}

func (h *HostChain) Keys(ctx context.Context, asOf [32]byte, set primitives.ValidatorSet) (primitives.KeyPair, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.byHash(asOf)
	if !ok {
		return primitives.KeyPair{}, false, nil
	}
	k, ok := b.keys[set]
	return k, ok, nil
}

func (h *HostChain) TotalAllocatedStake(ctx context.Context, asOf [32]byte, network primitives.NetworkId) (uint64, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.byHash(asOf)
	if !ok {
		return 0, false, nil
	}
	s, ok := b.stakes[network]
	return s, ok, nil
}

func (h *HostChain) KeyGenEvents(ctx context.Context, asOf [32]byte) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.byHash(asOf)
	return ok && b.keyGenEvent, nil
}

func (h *HostChain) BurnWithInstructionEvents(ctx context.Context, asOf [32]byte) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.byHash(asOf)
	return ok && b.burnWithInstructionEvent, nil
}

// RequestLog records calls made to RequestNotableCosigns, for assertions in
// evaluate's tests.
type RequestLog struct {
	mu       sync.Mutex
	Requests [][32]byte
}

func (r *RequestLog) RequestNotableCosigns(ctx context.Context, globalSession [32]byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Requests = append(r.Requests, globalSession)
	return nil
}
