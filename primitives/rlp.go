package primitives

import (
	"io"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"
)

// go-ethereum's rlp package cannot encode Go maps directly, so GlobalSession
// implements rlp.Encoder/rlp.Decoder itself, translating its Keys/Stakes
// maps to sorted parallel slices for the wire and back on read. This keeps
// the in-memory type ergonomic (map lookups everywhere else in this repo)
// while still using RLP for at-rest encoding, per SPEC_FULL.md's ambient
// stack.
type globalSessionRLP struct {
	StartBlockNumber uint64
	StartBlockHash   [32]byte
	Sets             []ValidatorSet
	KeyNetworks      []NetworkId
	KeyValues        [][32]byte
	StakeNetworks    []NetworkId
	StakeValues      []uint64
	TotalStake       uint64
}

func (g GlobalSession) EncodeRLP(w io.Writer) error {
	keyNetworks := make([]NetworkId, 0, len(g.Keys))
	for n := range g.Keys {
		keyNetworks = append(keyNetworks, n)
	}
	sort.Slice(keyNetworks, func(i, j int) bool { return keyNetworks[i] < keyNetworks[j] })
	keyValues := make([][32]byte, len(keyNetworks))
	for i, n := range keyNetworks {
		keyValues[i] = g.Keys[n]
	}

	stakeNetworks := make([]NetworkId, 0, len(g.Stakes))
	for n := range g.Stakes {
		stakeNetworks = append(stakeNetworks, n)
	}
	sort.Slice(stakeNetworks, func(i, j int) bool { return stakeNetworks[i] < stakeNetworks[j] })
	stakeValues := make([]uint64, len(stakeNetworks))
	for i, n := range stakeNetworks {
		stakeValues[i] = g.Stakes[n]
	}

	return rlp.Encode(w, globalSessionRLP{
		StartBlockNumber: g.StartBlockNumber,
		StartBlockHash:   g.StartBlockHash,
		Sets:             g.Sets,
		KeyNetworks:      keyNetworks,
		KeyValues:        keyValues,
		StakeNetworks:    stakeNetworks,
		StakeValues:      stakeValues,
		TotalStake:       g.TotalStake,
	})
}

func (g *GlobalSession) DecodeRLP(s *rlp.Stream) error {
	var wire globalSessionRLP
	if err := s.Decode(&wire); err != nil {
		return err
	}
	g.StartBlockNumber = wire.StartBlockNumber
	g.StartBlockHash = wire.StartBlockHash
	g.Sets = wire.Sets
	g.Keys = make(map[NetworkId][32]byte, len(wire.KeyNetworks))
	for i, n := range wire.KeyNetworks {
		g.Keys[n] = wire.KeyValues[i]
	}
	g.Stakes = make(map[NetworkId]uint64, len(wire.StakeNetworks))
	for i, n := range wire.StakeNetworks {
		g.Stakes[n] = wire.StakeValues[i]
	}
	g.TotalStake = wire.TotalStake
	return nil
}
