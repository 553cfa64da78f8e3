package intend

import (
	"context"
	"testing"

	"github.com/cosign-network/cosigning/cosigndb"
	"github.com/cosign-network/cosigning/cosigndb/memorydb"
	"github.com/cosign-network/cosigning/oracle/fake"
	"github.com/cosign-network/cosigning/primitives"
	"github.com/cosign-network/cosigning/sign"
	"github.com/cosign-network/cosigning/store"
	"github.com/stretchr/testify/require"
)

func TestRunIterationClassifiesAndRotatesOnNotableBlock(t *testing.T) {
	chain := fake.New()

	hash0 := [32]byte{0x00}
	hash1 := [32]byte{0x01}
	hash2 := [32]byte{0x02}

	oldSet := primitives.ValidatorSet{Network: primitives.NetworkBitcoin, Session: 0}
	newSet := primitives.ValidatorSet{Network: primitives.NetworkBitcoin, Session: 1}
	keyA := primitives.KeyPair{Public: [32]byte{0xaa}}
	keyB := primitives.KeyPair{Public: [32]byte{0xbb}}

	// Genesis: session 0 with key A published, 100 total stake.
	chain.SetBlock(0, hash0, false, false,
		map[primitives.NetworkId]primitives.Session{primitives.NetworkBitcoin: 0},
		map[primitives.ValidatorSet]primitives.KeyPair{oldSet: keyA},
		map[primitives.NetworkId]uint64{primitives.NetworkBitcoin: 100})

	// Block 1: no events, still under session 0.
	chain.SetBlock(1, hash1, false, false,
		map[primitives.NetworkId]primitives.Session{primitives.NetworkBitcoin: 0},
		map[primitives.ValidatorSet]primitives.KeyPair{oldSet: keyA},
		map[primitives.NetworkId]uint64{primitives.NetworkBitcoin: 100})

	// Block 2: key-gen event, session 1 with key B published.
	chain.SetBlock(2, hash2, true, false,
		map[primitives.NetworkId]primitives.Session{primitives.NetworkBitcoin: 1},
		map[primitives.ValidatorSet]primitives.KeyPair{oldSet: keyA, newSet: keyB},
		map[primitives.NetworkId]uint64{primitives.NetworkBitcoin: 100})

	db := memorydb.New()
	task := New(db, chain)

	madeProgress, err := task.RunIteration(context.Background())
	require.NoError(t, err)
	require.True(t, madeProgress)

	readTxn := cosigndb.NewTxn(db)

	scanFrom, err := store.ScanCosignFrom(readTxn)
	require.NoError(t, err)
	require.Equal(t, uint64(3), scanFrom)

	h1, ok, err := store.SubstrateBlocks(readTxn, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, hash1, h1)

	newSessionID := sign.SessionID([]primitives.ValidatorSet{newSet})

	entry, ok, err := store.IntendedCosigns.TryRecv(readTxn, store.ValidatorSetSubkey(oldSet))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(2), entry.BlockNumber)
	require.True(t, entry.Notable)
	require.Equal(t, newSessionID, entry.GlobalSession)
	require.Equal(t, hash2, entry.BlockHash)

	sessionEntry, ok, err := store.GlobalSessionsChannel.TryRecv(readTxn, nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, newSessionID, sessionEntry.ID)
	require.Equal(t, uint64(2), sessionEntry.Session.StartBlockNumber)
	require.Equal(t, uint64(100), sessionEntry.Session.TotalStake)
	require.Equal(t, keyB.Public, sessionEntry.Session.Keys[primitives.NetworkBitcoin])

	events := []store.BlockEventEntry{}
	for {
		e, ok, err := store.BlockEvents.TryRecv(readTxn, nil)
		require.NoError(t, err)
		if !ok {
			break
		}
		events = append(events, e)
	}
	require.Equal(t, []store.BlockEventEntry{
		{BlockNumber: 1, HasEvents: primitives.No},
		{BlockNumber: 2, HasEvents: primitives.Notable},
	}, events)
}

// TestRunIterationExcludesKeyedNetworkWithoutStakeFromNewSession guards
// against a GlobalSession whose Sets/Keys disagree with its Stakes: a
// network that published a key but has no TotalAllocatedStake entry (e.g.
// an oracle gap) must be left out of Sets and Keys entirely, not just
// Stakes, so evaluate/intake never see a set they cannot weigh.
func TestRunIterationExcludesKeyedNetworkWithoutStakeFromNewSession(t *testing.T) {
	chain := fake.New()
	hash0 := [32]byte{0x00}
	hash1 := [32]byte{0x01}

	btcSet := primitives.ValidatorSet{Network: primitives.NetworkBitcoin, Session: 0}
	ethSet := primitives.ValidatorSet{Network: primitives.NetworkEthereum, Session: 0}
	btcKey := primitives.KeyPair{Public: [32]byte{0xaa}}
	ethKey := primitives.KeyPair{Public: [32]byte{0xbb}}

	chain.SetBlock(0, hash0, false, false, nil, nil, nil)
	// Block 1: both networks publish session 0 keys, but only Bitcoin has
	// a recorded stake; Ethereum's stake lookup misses entirely.
	chain.SetBlock(1, hash1, true, false,
		map[primitives.NetworkId]primitives.Session{primitives.NetworkBitcoin: 0, primitives.NetworkEthereum: 0},
		map[primitives.ValidatorSet]primitives.KeyPair{btcSet: btcKey, ethSet: ethKey},
		map[primitives.NetworkId]uint64{primitives.NetworkBitcoin: 100})

	db := memorydb.New()
	task := New(db, chain)

	_, err := task.RunIteration(context.Background())
	require.NoError(t, err)

	readTxn := cosigndb.NewTxn(db)
	_, session, ok, err := store.LatestGlobalSessionIntended(readTxn)
	require.NoError(t, err)
	require.True(t, ok)

	require.Equal(t, []primitives.ValidatorSet{btcSet}, session.Sets)
	require.Equal(t, uint64(100), session.TotalStake)
	_, hasEthKey := session.Keys[primitives.NetworkEthereum]
	require.False(t, hasEthKey)
	_, hasEthStake := session.Stakes[primitives.NetworkEthereum]
	require.False(t, hasEthStake)
}

func TestClassifyPrefersKeyGenOverBurn(t *testing.T) {
	chain := fake.New()
	hash := [32]byte{0x07}
	chain.SetBlock(1, hash, true, true, nil, nil, nil)

	has, err := classify(context.Background(), chain, hash)
	require.NoError(t, err)
	require.Equal(t, primitives.Notable, has)
}

func TestClassifyNoEvents(t *testing.T) {
	chain := fake.New()
	hash := [32]byte{0x08}
	chain.SetBlock(1, hash, false, false, nil, nil, nil)

	has, err := classify(context.Background(), chain, hash)
	require.NoError(t, err)
	require.Equal(t, primitives.No, has)
}
