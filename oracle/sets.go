package oracle

import (
	"context"

	"github.com/cosign-network/cosigning/primitives"
)

// KeysForNetwork fetches the keys a network should use for cosigning as of
// asOf. If the network's latest declared session has not yet published
// keys, it falls back to the immediately prior session's keys
// (coordinator/cosign/src/lib.rs::keys_for_network) — without this,
// a freshly started session with unpublished keys would silently drop the
// network from cosigning instead of cosigning under its outgoing key
// (SPEC_FULL.md "Supplemented features" #1).
func KeysForNetwork(ctx context.Context, chain HostChain, asOf [32]byte, network primitives.NetworkId) (primitives.ValidatorSet, primitives.KeyPair, bool, error) {
	latest, ok, err := chain.Session(ctx, asOf, network)
	if err != nil || !ok {
		return primitives.ValidatorSet{}, primitives.KeyPair{}, false, err
	}

	set := primitives.ValidatorSet{Network: network, Session: latest}
	if keys, ok, err := chain.Keys(ctx, asOf, set); err != nil {
		return primitives.ValidatorSet{}, primitives.KeyPair{}, false, err
	} else if ok {
		return set, keys, true, nil
	}

	if latest == 0 {
		return primitives.ValidatorSet{}, primitives.KeyPair{}, false, nil
	}
	prior := primitives.ValidatorSet{Network: network, Session: latest - 1}
	keys, ok, err := chain.Keys(ctx, asOf, prior)
	if err != nil || !ok {
		return primitives.ValidatorSet{}, primitives.KeyPair{}, false, err
	}
	return prior, keys, true, nil
}

// CosigningSets fetches every network's usable cosigning ValidatorSet and
// public key as of asOf, skipping networks with no usable keys
// (coordinator/cosign/src/lib.rs::cosigning_sets).
func CosigningSets(ctx context.Context, chain HostChain, asOf [32]byte) ([]primitives.ValidatorSet, map[primitives.NetworkId][32]byte, error) {
	sets := make([]primitives.ValidatorSet, 0, len(primitives.NETWORKS))
	keys := make(map[primitives.NetworkId][32]byte, len(primitives.NETWORKS))
	for _, network := range primitives.NETWORKS {
		set, keyPair, ok, err := KeysForNetwork(ctx, chain, asOf, network)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			continue
		}
		sets = append(sets, set)
		keys[network] = keyPair.Public
	}
	return sets, keys, nil
}
