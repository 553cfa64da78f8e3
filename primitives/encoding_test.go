package primitives

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSortValidatorSetsPermutationInvariant(t *testing.T) {
	a := ValidatorSet{Network: NetworkEthereum, Session: 1}
	b := ValidatorSet{Network: NetworkBitcoin, Session: 1}
	c := ValidatorSet{Network: NetworkMonero, Session: 0}

	sorted1 := SortValidatorSets([]ValidatorSet{a, b, c})
	sorted2 := SortValidatorSets([]ValidatorSet{c, a, b})
	sorted3 := SortValidatorSets([]ValidatorSet{b, c, a})

	require.Equal(t, CanonicalSetList(sorted1), CanonicalSetList(sorted2))
	require.Equal(t, CanonicalSetList(sorted1), CanonicalSetList(sorted3))
}

func TestCosignCanonicalRoundTrip(t *testing.T) {
	c := Cosign{
		GlobalSession: [32]byte{1, 2, 3},
		BlockNumber:   0xdeadbeef,
		BlockHash:     [32]byte{4, 5, 6},
		Cosigner:      NetworkMonero,
	}
	buf := c.MarshalCanonical()
	require.Len(t, buf, cosignEncodedLen)

	decoded, ok := UnmarshalCosignCanonical(buf)
	require.True(t, ok)
	require.Equal(t, c, decoded)
}

func TestUnmarshalCosignCanonicalRejectsBadLength(t *testing.T) {
	_, ok := UnmarshalCosignCanonical([]byte{1, 2, 3})
	require.False(t, ok)
}

func TestSupermajorityThreshold(t *testing.T) {
	// Scenario from spec.md §8.5.2: total stake 100, threshold 84.
	require.False(t, Supermajority(83, 100))
	require.True(t, Supermajority(84, 100))
	require.True(t, Supermajority(100, 100))
}

func TestFaultThreshold(t *testing.T) {
	// Scenario from spec.md §8.5.4: total stake 100, threshold 17.
	require.False(t, FaultThreshold(16, 100))
	require.True(t, FaultThreshold(17, 100))
}

func TestSupermajorityDoesNotOverflow(t *testing.T) {
	const maxPractical = uint64(1) << 63
	require.True(t, Supermajority(maxPractical, maxPractical))
}
